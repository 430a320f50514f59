package sheets

import (
	"context"
	"fmt"
	"time"
)

type SheetReadWriter interface {
	GetRows(ctx context.Context) ([][]interface{}, error)
	ReplaceRows(ctx context.Context, rows [][]interface{}) error
	AppendRows(ctx context.Context, rows [][]interface{}) error
	ModifiedTime(ctx context.Context) (time.Time, error)
}

func (s *SheetClient) a1() string {
	return s.sheetName + "!" + s.cellRange
}

// ToCells converts string rows into the value grid the API expects.
func ToCells(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}

// FromCells flattens API values to strings. Ragged rows are kept ragged.
func FromCells(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v == nil {
				continue
			}
			cells[j] = fmt.Sprint(v)
		}
		out[i] = cells
	}
	return out
}
