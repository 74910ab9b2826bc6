// Package upsert implements delete-then-insert against a store with no
// native update-by-key: read the whole tab fresh, drop rows matching the
// key, append the new row, write the whole tab back.
//
// There is no transaction and no rollback. Two sessions saving the same key
// between one another's read and write will silently drop one row; the fresh
// read at write time narrows that window, it does not close it.
package upsert

import (
	"context"
	"fmt"

	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/store"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/table"

	"go.uber.org/zap"
)

// Synchronizer performs keyed upserts against one store
type Synchronizer struct {
	store  store.Store
	logger *zap.Logger
}

// New creates a synchronizer
func New(st store.Store, logger *zap.Logger) *Synchronizer {
	return &Synchronizer{store: st, logger: logger}
}

// Upsert replaces any row keyed by (keyColumns=keyValues) in the tab with
// newRow and rewrites the tab. Existing rows are projected onto newRow's
// columns first, so a tab polluted by an earlier bad save is cleaned up on
// the way through. Returns the table as written.
func (s *Synchronizer) Upsert(ctx context.Context, locator string, keyColumns, keyValues []string, newRow map[string]string, schema []string) (*table.Table, error) {
	if len(keyColumns) == 0 || len(keyColumns) != len(keyValues) {
		return nil, fmt.Errorf("mismatched upsert key: %d columns, %d values", len(keyColumns), len(keyValues))
	}

	// Always a fresh fetch at write time
	current, err := s.store.Read(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q before upsert: %w", locator, err)
	}

	var updated *table.Table
	if current.IsEmpty() {
		updated = table.New(schema...)
	} else {
		updated = current.FilterColumns(schema)
		dropped := updated.DropMatching(keyColumns, keyValues)
		if dropped > 0 {
			s.logger.Debug("Superseding existing entry",
				zap.String("tab", locator),
				zap.Int("dropped", dropped))
		}
	}

	updated.Append(newRow)

	if err := s.store.Write(ctx, locator, updated); err != nil {
		return nil, fmt.Errorf("failed to write %q: %w", locator, err)
	}

	return updated, nil
}
