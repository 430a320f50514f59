package store

import (
	"context"
	"errors"
)

// ErrStoreUnavailable wraps any failure reaching the backing store.
var ErrStoreUnavailable = errors.New("store unavailable")

// Store is the record store boundary. Implementations hold no business logic.
type Store interface {
	FetchAll(ctx context.Context) (Table, error)
	ReplaceAll(ctx context.Context, t Table) error
	AppendRows(ctx context.Context, rows [][]string) error
	// LastModifiedLabel is advisory only and reports false on any failure.
	LastModifiedLabel(ctx context.Context) (string, bool)
}

// Table is a header row plus data rows of the same width.
type Table struct {
	Header []string
	Rows   [][]string
}

func (t Table) Empty() bool {
	return len(t.Header) == 0
}

// Grid returns the header followed by the data rows.
func (t Table) Grid() [][]string {
	if t.Empty() {
		return nil
	}
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, t.Header)
	return append(out, t.Rows...)
}

// FromGrid splits a raw grid into header and rows, padding or truncating each
// row to the header width.
func FromGrid(grid [][]string) Table {
	if len(grid) == 0 {
		return Table{}
	}
	header := grid[0]
	rows := make([][]string, 0, len(grid)-1)
	for _, r := range grid[1:] {
		rows = append(rows, fitRow(r, len(header)))
	}
	return Table{Header: header, Rows: rows}
}

func fitRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

const lastModifiedLayout = "02 Jan 2006 15:04"
