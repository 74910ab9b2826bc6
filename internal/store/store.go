// Package store defines the tabular store contract the rater works against.
// Backends address one spreadsheet-like document; a locator is a worksheet
// tab name within it.
package store

import (
	"context"

	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/table"
)

// Store is the remote tabular store. Read of an absent tab returns an empty
// table, not an error; Write replaces the whole tab wholesale.
type Store interface {
	Read(ctx context.Context, locator string) (*table.Table, error)
	Write(ctx context.Context, locator string, t *table.Table) error
}
