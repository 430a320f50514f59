package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"

	log "github.com/sirupsen/logrus"
)

// CSVStore keeps the dataset in a local CSV file.
type CSVStore struct {
	Path string
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{Path: path}
}

func (c *CSVStore) FetchAll(ctx context.Context) (Table, error) {
	grid, err := c.read()
	if err != nil {
		return Table{}, err
	}
	return FromGrid(grid), nil
}

func (c *CSVStore) read() ([][]string, error) {
	b, err := os.ReadFile(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	grid, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrStoreUnavailable, c.Path, err)
	}
	return grid, nil
}

func (c *CSVStore) ReplaceAll(ctx context.Context, t Table) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(t.Grid()); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := os.WriteFile(c.Path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	log.Infof("wrote %d rows to %s", len(t.Rows), c.Path)
	return nil
}

func (c *CSVStore) AppendRows(ctx context.Context, rows [][]string) error {
	grid, err := c.read()
	if err != nil {
		return err
	}
	if len(grid) == 0 {
		return fmt.Errorf("%w: %s has no header row", ErrStoreUnavailable, c.Path)
	}
	f, err := os.OpenFile(c.Path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	log.Infof("appended %d rows to %s", len(rows), c.Path)
	return nil
}

func (c *CSVStore) LastModifiedLabel(ctx context.Context) (string, bool) {
	st, err := os.Stat(c.Path)
	if err != nil {
		return "", false
	}
	return st.ModTime().Format(lastModifiedLayout), true
}
