package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrItemNotFound   = errors.New("inventory item not found")
	ErrNotCritical    = errors.New("inventory item is not critical")
	ErrTableNotLoaded = errors.New("inventory table not loaded")
	ErrInvalidPalette = errors.New("invalid status palette")
)

// MissingColumnsError is returned when a source lacks required columns
type MissingColumnsError struct {
	Source  string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("source %s is missing required columns: %s", e.Source, strings.Join(e.Columns, ", "))
}

// RowError reports a value that could not be parsed in a source row
type RowError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %s: invalid value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
