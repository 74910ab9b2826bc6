// Package xlsx backs the tabular store with a local .xlsx workbook, one
// sheet per tab. It exists for offline annotation runs and for the test
// suites, which need a real store without network access.
package xlsx

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/table"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Store reads and writes whole sheets of one workbook file. The file is
// opened and saved per operation; a mutex serializes access, matching the
// single-writer assumption of the upsert cycle.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

// New creates an xlsx-backed store. The workbook is created on first write
// if it does not exist.
func New(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("workbook path is required")
	}
	return &Store{path: path, logger: logger}, nil
}

// Read fetches one sheet. A missing workbook or sheet reads as empty.
func (s *Store) Read(_ context.Context, locator string) (*table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return table.New(), nil
		}
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(locator)
	if err != nil {
		// Unknown sheet name reads as empty
		return table.New(), nil
	}
	if len(rows) == 0 {
		return table.New(), nil
	}

	t := table.New(rows[0]...)
	for _, row := range rows[1:] {
		t.Rows = append(t.Rows, append([]string(nil), row...))
	}
	return t, nil
}

// Write replaces one sheet with the table's contents
func (s *Store) Write(_ context.Context, locator string, t *table.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to open workbook: %w", err)
		}
		f = excelize.NewFile()
	}
	defer f.Close()

	// Drop and recreate the sheet so stale trailing rows do not survive
	if idx, _ := f.GetSheetIndex(locator); idx >= 0 {
		if err := f.DeleteSheet(locator); err != nil {
			return fmt.Errorf("failed to reset sheet %q: %w", locator, err)
		}
	}
	if _, err := f.NewSheet(locator); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", locator, err)
	}

	if err := writeRow(f, locator, 1, t.Columns); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := writeRow(f, locator, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("Sheet rewritten",
			zap.String("sheet", locator),
			zap.Int("rows", len(t.Rows)))
	}

	return nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, cells []string) error {
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %q: %w", rowNum, sheet, err)
	}
	return nil
}
