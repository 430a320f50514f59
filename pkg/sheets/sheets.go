package sheets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	defaultMaxRetries = 15
	maxBackoff        = 60 * time.Second
)

type SheetClient struct {
	service       *sheets.Service
	drive         *drive.Service
	spreadsheetID string
	sheetName     string
	cellRange     string

	maxRetries  int
	backoffBase time.Duration
}

// NewSheetClient builds a client authenticated with a service account key file.
func NewSheetClient(ctx context.Context, jsonPath, spreadsheetID, sheetName, cellRange string) (*SheetClient, error) {
	return NewSheetClientWithOptions(ctx, spreadsheetID, sheetName, cellRange,
		option.WithCredentialsFile(jsonPath),
		option.WithScopes(sheets.SpreadsheetsScope, drive.DriveMetadataReadonlyScope),
	)
}

func NewSheetClientWithOptions(ctx context.Context, spreadsheetID, sheetName, cellRange string, opts ...option.ClientOption) (*SheetClient, error) {
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets client: %w", err)
	}
	drv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive client: %w", err)
	}
	if cellRange == "" {
		cellRange = "A1:Z"
	}
	return &SheetClient{
		service:       srv,
		drive:         drv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		cellRange:     cellRange,
		maxRetries:    defaultMaxRetries,
		backoffBase:   time.Second,
	}, nil
}

// SetRetry overrides the rate-limit retry policy.
func (s *SheetClient) SetRetry(maxRetries int, base time.Duration) {
	s.maxRetries = maxRetries
	s.backoffBase = base
}

func (s *SheetClient) GetRows(ctx context.Context) ([][]interface{}, error) {
	var resp *sheets.ValueRange
	err := s.withBackoff(ctx, "read rows", func() error {
		var err error
		resp, err = s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.a1()).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// ReplaceRows clears the configured range and writes rows starting at its top-left cell.
// Readers racing this call can observe the cleared range.
func (s *SheetClient) ReplaceRows(ctx context.Context, rows [][]interface{}) error {
	err := s.withBackoff(ctx, "clear range", func() error {
		_, err := s.service.Spreadsheets.Values.Clear(
			s.spreadsheetID,
			s.a1(),
			&sheets.ClearValuesRequest{},
		).Context(ctx).Do()
		return err
	})
	if err != nil {
		return err
	}
	return s.withBackoff(ctx, "update rows", func() error {
		_, err := s.service.Spreadsheets.Values.Update(
			s.spreadsheetID,
			s.a1(),
			&sheets.ValueRange{Values: rows},
		).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		return err
	})
}

func (s *SheetClient) AppendRows(ctx context.Context, rows [][]interface{}) error {
	return s.withBackoff(ctx, "append rows", func() error {
		_, err := s.service.Spreadsheets.Values.Append(
			s.spreadsheetID,
			s.a1(),
			&sheets.ValueRange{Values: rows},
		).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		return err
	})
}

// ModifiedTime asks Drive for the spreadsheet's last modification time.
func (s *SheetClient) ModifiedTime(ctx context.Context) (time.Time, error) {
	f, err := s.drive.Files.Get(s.spreadsheetID).Fields("modifiedTime").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, f.ModifiedTime)
}

func (s *SheetClient) withBackoff(ctx context.Context, what string, fn func() error) error {
	var err error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isRateLimited(err) {
			return fmt.Errorf("failed to %s: %w", what, err)
		}
		backoff := time.Duration(math.Pow(2, float64(attempt))) * s.backoffBase
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		log.Printf("Rate limited by Google Sheets API, retrying in %v...", backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("failed to %s after %d retries: %w", what, s.maxRetries, err)
}

// isRateLimited reports quota errors. A 403 is only retried when the API
// says it is a rate limit; otherwise it is a permission failure.
func isRateLimited(err error) bool {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return false
	}
	switch gErr.Code {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		for _, item := range gErr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return true
			}
		}
	}
	return false
}
