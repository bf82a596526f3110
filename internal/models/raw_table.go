package models

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// RawTable is a tabular inventory source as read, before derivation
type RawTable struct {
	Source  string     `json:"source"` // identity of the source, e.g. file path or object URL
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Fingerprint hashes the columns and cells of the table
func (t *RawTable) Fingerprint() string {
	d := xxhash.New()
	writeCells(d, t.Columns)
	for _, row := range t.Rows {
		writeCells(d, row)
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

func writeCells(d *xxhash.Digest, cells []string) {
	for _, cell := range cells {
		_, _ = d.WriteString(strconv.Itoa(len(cell)))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(cell)
	}
	_, _ = d.WriteString("\n")
}
