package repositories

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"supplyrunway/internal/models"
)

type csvSource struct {
	path      string
	delimiter rune
}

// NewCSVSource reads a local delimited file
func NewCSVSource(path string, delimiter rune) FileSource {
	return &csvSource{path: absPath(path), delimiter: delimiter}
}

func (s *csvSource) Identity() string {
	return "csv:" + s.path
}

func (s *csvSource) Path() string {
	return s.path
}

func (s *csvSource) Fetch(ctx context.Context) (*models.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory file %s: %w", s.path, err)
	}
	defer file.Close()

	return ParseCSV(file, s.Identity(), s.delimiter)
}

type xlsxSource struct {
	path  string
	sheet string
}

// NewXLSXSource reads one sheet of a local workbook
func NewXLSXSource(path, sheet string) FileSource {
	return &xlsxSource{path: absPath(path), sheet: sheet}
}

func (s *xlsxSource) Identity() string {
	if s.sheet == "" {
		return "xlsx:" + s.path
	}
	return "xlsx:" + s.path + "#" + s.sheet
}

func (s *xlsxSource) Path() string {
	return s.path
}

func (s *xlsxSource) Fetch(ctx context.Context) (*models.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory workbook %s: %w", s.path, err)
	}
	defer file.Close()

	return ParseXLSX(file, s.Identity(), s.sheet)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
