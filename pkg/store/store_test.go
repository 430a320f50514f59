package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromGrid(t *testing.T) {
	tests := []struct {
		name string
		grid [][]string
		want Table
	}{
		{"empty", nil, Table{}},
		{"header only", [][]string{{"A", "B"}}, Table{Header: []string{"A", "B"}, Rows: [][]string{}}},
		{
			"ragged rows",
			[][]string{{"A", "B"}, {"1"}, {"1", "2", "3"}},
			Table{Header: []string{"A", "B"}, Rows: [][]string{{"1", ""}, {"1", "2"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromGrid(tt.grid))
		})
	}
}

func TestSheetStoreFetchAll(t *testing.T) {
	m := &mockSheet{Rows: [][]interface{}{{"Division", "Status"}, {"EU"}}}
	s := NewSheetStore(m)

	got, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Division", "Status"}, got.Header)
	assert.Equal(t, [][]string{{"EU", ""}}, got.Rows)
}

func TestSheetStoreFetchAllEmpty(t *testing.T) {
	s := NewSheetStore(&mockSheet{})
	got, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestSheetStoreUnavailable(t *testing.T) {
	s := NewSheetStore(&mockSheet{GetErr: errors.New("403 forbidden")})
	_, err := s.FetchAll(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestSheetStoreReplaceAll(t *testing.T) {
	m := &mockSheet{}
	s := NewSheetStore(m)
	err := s.ReplaceAll(context.Background(), Table{Header: []string{"Division"}, Rows: [][]string{{"EU"}, {"US"}}})
	require.NoError(t, err)
	require.Len(t, m.ReplaceCalls, 1)
	assert.Equal(t, [][]interface{}{{"Division"}, {"EU"}, {"US"}}, m.ReplaceCalls[0])
}

func TestSheetStoreAppendRows(t *testing.T) {
	tests := []struct {
		name    string
		sheet   *mockSheet
		wantErr bool
		want    [][]interface{}
	}{
		{
			name:  "appends after header",
			sheet: &mockSheet{Rows: [][]interface{}{{"Division"}}},
			want:  [][]interface{}{{"EU"}},
		},
		{
			name:    "no header",
			sheet:   &mockSheet{},
			wantErr: true,
		},
		{
			name:    "write failure",
			sheet:   &mockSheet{Rows: [][]interface{}{{"Division"}}, WriteErr: errors.New("boom")},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSheetStore(tt.sheet).AppendRows(context.Background(), [][]string{{"EU"}})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrStoreUnavailable)
				assert.Empty(t, tt.sheet.AppendCalls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.sheet.AppendCalls)
		})
	}
}

func TestSheetStoreLastModifiedLabel(t *testing.T) {
	ts := time.Date(2025, 3, 4, 10, 30, 0, 0, time.Local)
	label, ok := NewSheetStore(&mockSheet{Modified: ts}).LastModifiedLabel(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "04 Mar 2025 10:30", label)

	_, ok = NewSheetStore(&mockSheet{ModifiedErr: errors.New("drive down")}).LastModifiedLabel(context.Background())
	assert.False(t, ok)
}

func TestCSVStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rfq.csv")
	s := NewCSVStore(path)
	ctx := context.Background()

	got, err := s.FetchAll(ctx)
	require.NoError(t, err)
	assert.True(t, got.Empty())

	err = s.AppendRows(ctx, [][]string{{"EU"}})
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	require.NoError(t, s.ReplaceAll(ctx, Table{Header: []string{"Division", "Client"}, Rows: [][]string{{"EU", "Acme, Inc"}}}))
	require.NoError(t, s.AppendRows(ctx, [][]string{{"US", "Globex"}}))

	got, err = s.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Division", "Client"}, got.Header)
	assert.Equal(t, [][]string{{"EU", "Acme, Inc"}, {"US", "Globex"}}, got.Rows)

	_, ok := s.LastModifiedLabel(ctx)
	assert.True(t, ok)
}

func TestCSVStoreUnreadable(t *testing.T) {
	dir := t.TempDir()
	s := NewCSVStore(dir)
	_, err := s.FetchAll(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, ok := NewCSVStore(filepath.Join(dir, "missing.csv")).LastModifiedLabel(context.Background())
	assert.False(t, ok)
}

func TestCachedFetchesOnce(t *testing.T) {
	inner := &countingStore{Table: Table{Header: []string{"Division"}, Rows: [][]string{{"EU"}}}}
	c := NewCached(inner)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.FetchAll(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, inner.Fetches)

	c.Invalidate()
	_, err := c.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.Fetches)

	require.NoError(t, c.AppendRows(ctx, [][]string{{"US"}}))
	got, err := c.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.Fetches)
	assert.Len(t, got.Rows, 2)
}

func TestCachedLabel(t *testing.T) {
	inner := &countingStore{}
	c := NewCached(inner)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		label, ok := c.LastModifiedLabel(ctx)
		assert.True(t, ok)
		assert.Equal(t, "01 Jan 2025 00:00", label)
	}
	assert.Equal(t, 1, inner.Labels)

	c.Invalidate()
	c.LastModifiedLabel(ctx)
	assert.Equal(t, 2, inner.Labels)
}

func TestCachedDoesNotCacheErrors(t *testing.T) {
	inner := &countingStore{Err: ErrStoreUnavailable}
	c := NewCached(inner)
	_, err := c.FetchAll(context.Background())
	assert.Error(t, err)
	_, err = c.FetchAll(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 2, inner.Fetches)
}
