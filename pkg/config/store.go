package config

import (
	"context"
	"fmt"

	"rfqdash/pkg/sheets"
	"rfqdash/pkg/store"

	log "github.com/sirupsen/logrus"
)

// OpenStore builds the record store selected by Backend.
func (c *Config) OpenStore(ctx context.Context) (store.Store, error) {
	switch c.Store.Backend {
	case BackendCSV:
		log.Infof("using csv store at %s", c.Store.CSVPath)
		return store.NewCSVStore(c.Store.CSVPath), nil
	case BackendSheets:
		sc := c.Store.Sheet
		client, err := sheets.NewSheetClient(ctx, sc.CredentialsFile, sc.SpreadsheetID, sc.SheetName, sc.Range)
		if err != nil {
			return nil, err
		}
		log.Infof("using sheet %s!%s", sc.SheetName, sc.Range)
		return store.NewSheetStore(client), nil
	}
	return nil, fmt.Errorf("unknown backend %q", c.Store.Backend)
}
