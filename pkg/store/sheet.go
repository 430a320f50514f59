package store

import (
	"context"
	"fmt"

	"rfqdash/pkg/sheets"

	log "github.com/sirupsen/logrus"
)

// SheetStore keeps the dataset in a Google Sheet range.
type SheetStore struct {
	client sheets.SheetReadWriter
}

func NewSheetStore(client sheets.SheetReadWriter) *SheetStore {
	return &SheetStore{client: client}
}

func (s *SheetStore) FetchAll(ctx context.Context) (Table, error) {
	values, err := s.client.GetRows(ctx)
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	t := FromGrid(sheets.FromCells(values))
	log.Debugf("fetched %d rows from sheet", len(t.Rows))
	return t, nil
}

func (s *SheetStore) ReplaceAll(ctx context.Context, t Table) error {
	if err := s.client.ReplaceRows(ctx, sheets.ToCells(t.Grid())); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	log.Infof("replaced sheet contents with %d rows", len(t.Rows))
	return nil
}

func (s *SheetStore) AppendRows(ctx context.Context, rows [][]string) error {
	values, err := s.client.GetRows(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(values) == 0 {
		return fmt.Errorf("%w: sheet has no header row", ErrStoreUnavailable)
	}
	if err := s.client.AppendRows(ctx, sheets.ToCells(rows)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	log.Infof("appended %d rows to sheet", len(rows))
	return nil
}

func (s *SheetStore) LastModifiedLabel(ctx context.Context) (string, bool) {
	ts, err := s.client.ModifiedTime(ctx)
	if err != nil {
		log.Debugf("last modified lookup failed: %v", err)
		return "", false
	}
	return ts.Local().Format(lastModifiedLayout), true
}
