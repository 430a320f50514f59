package store

import (
	"context"
	"errors"
	"time"
)

type mockSheet struct {
	Rows         [][]interface{}
	GetErr       error
	WriteErr     error
	Modified     time.Time
	ModifiedErr  error
	ReplaceCalls [][][]interface{}
	AppendCalls  [][]interface{}
}

func (m *mockSheet) GetRows(ctx context.Context) ([][]interface{}, error) {
	return m.Rows, m.GetErr
}
func (m *mockSheet) ReplaceRows(ctx context.Context, rows [][]interface{}) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.ReplaceCalls = append(m.ReplaceCalls, rows)
	return nil
}
func (m *mockSheet) AppendRows(ctx context.Context, rows [][]interface{}) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.AppendCalls = append(m.AppendCalls, rows...)
	return nil
}
func (m *mockSheet) ModifiedTime(ctx context.Context) (time.Time, error) {
	return m.Modified, m.ModifiedErr
}

type countingStore struct {
	Table   Table
	Err     error
	Fetches int
	Labels  int
}

func (c *countingStore) FetchAll(ctx context.Context) (Table, error) {
	c.Fetches++
	return c.Table, c.Err
}
func (c *countingStore) ReplaceAll(ctx context.Context, t Table) error {
	c.Table = t
	return nil
}
func (c *countingStore) AppendRows(ctx context.Context, rows [][]string) error {
	if c.Table.Empty() {
		return errors.New("no header")
	}
	c.Table.Rows = append(c.Table.Rows, rows...)
	return nil
}
func (c *countingStore) LastModifiedLabel(ctx context.Context) (string, bool) {
	c.Labels++
	return "01 Jan 2025 00:00", true
}
