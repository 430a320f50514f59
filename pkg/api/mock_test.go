package api

import (
	"context"
	"fmt"

	"rfqdash/pkg/store"
)

type mockStore struct {
	Table    store.Table
	FetchErr error
	Replaced []store.Table
	Appended [][]string
}

func (m *mockStore) FetchAll(ctx context.Context) (store.Table, error) {
	return m.Table, m.FetchErr
}

func (m *mockStore) ReplaceAll(ctx context.Context, t store.Table) error {
	m.Replaced = append(m.Replaced, t)
	m.Table = t
	return nil
}

func (m *mockStore) AppendRows(ctx context.Context, rows [][]string) error {
	if m.Table.Empty() {
		return fmt.Errorf("%w: no header", store.ErrStoreUnavailable)
	}
	m.Appended = append(m.Appended, rows...)
	m.Table.Rows = append(m.Table.Rows, rows...)
	return nil
}

func (m *mockStore) LastModifiedLabel(ctx context.Context) (string, bool) {
	return "", false
}
