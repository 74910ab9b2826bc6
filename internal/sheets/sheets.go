// Package sheets backs the rater's tabular store with one Google Sheets
// spreadsheet, one worksheet tab per rating table.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/ratelimit"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/table"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Config for the Sheets store
type Config struct {
	SpreadsheetID     string
	CredentialsFile   string
	RequestsPerMinute int // Default: 50 (read+write quota is 60/min/user)
}

// Store reads and writes whole worksheet tabs. Every save rewrites the tab
// wholesale; there is no append or in-place update.
type Store struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	limiter       *ratelimit.RateLimiter
	logger        *zap.Logger
}

// New creates a Sheets-backed store
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 50
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	logger.Info("Sheets store initialized",
		zap.String("spreadsheet_id", cfg.SpreadsheetID),
		zap.Int("requests_per_minute", cfg.RequestsPerMinute))

	return &Store{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		limiter:       ratelimit.NewRateLimiter(cfg.RequestsPerMinute),
		logger:        logger,
	}, nil
}

// Read fetches the full contents of one tab. A tab that does not exist or
// holds no rows reads as an empty table.
func (s *Store) Read(ctx context.Context, locator string) (*table.Table, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, locator).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == 400 || gerr.Code == 404) {
			// Missing tab reads as empty, same as an empty one
			return table.New(), nil
		}
		return nil, fmt.Errorf("failed to read tab %q: %w", locator, err)
	}

	if len(resp.Values) == 0 {
		return table.New(), nil
	}

	t := table.New(cellsToStrings(resp.Values[0])...)
	for _, row := range resp.Values[1:] {
		t.Rows = append(t.Rows, cellsToStrings(row))
	}
	return t, nil
}

// Write clears the tab and rewrites it from the table. Clear-then-update
// leaves stale trailing rows behind otherwise, since the new table may be
// shorter than the old one.
func (s *Store) Write(ctx context.Context, locator string, t *table.Table) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	_, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, locator, &sheetsapi.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear tab %q: %w", locator, err)
	}

	values := make([][]interface{}, 0, len(t.Rows)+1)
	values = append(values, stringsToCells(t.Columns))
	for _, row := range t.Rows {
		values = append(values, stringsToCells(row))
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, locator, &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write tab %q: %w", locator, err)
	}

	s.logger.Debug("Tab rewritten",
		zap.String("tab", locator),
		zap.Int("rows", len(t.Rows)))

	return nil
}

func cellsToStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = fmt.Sprintf("%v", c)
	}
	return out
}

func stringsToCells(cells []string) []interface{} {
	out := make([]interface{}, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}
