package xlsx

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/table"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "ratings.xlsx"), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestReadMissingWorkbook(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Read(context.Background(), "qwen")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !got.IsEmpty() {
		t.Errorf("missing workbook read %d rows, want empty", len(got.Rows))
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tab := table.New("set_token", "user", "rating")
	tab.Rows = [][]string{
		{"tok-1", "alice", "7"},
		{"tok-2", "bob", "9"},
	}

	if err := s.Write(ctx, "qwen", tab); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := s.Read(ctx, "qwen")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(got.Columns, tab.Columns) {
		t.Errorf("columns = %v, want %v", got.Columns, tab.Columns)
	}
	if !reflect.DeepEqual(got.Rows, tab.Rows) {
		t.Errorf("rows = %v, want %v", got.Rows, tab.Rows)
	}
}

func TestWriteShrinksSheet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	big := table.New("user", "rating")
	big.Rows = [][]string{{"alice", "7"}, {"bob", "5"}, {"carol", "3"}}
	if err := s.Write(ctx, "nemotron", big); err != nil {
		t.Fatalf("Write: %v", err)
	}

	small := table.New("user", "rating")
	small.Rows = [][]string{{"alice", "9"}}
	if err := s.Write(ctx, "nemotron", small); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := s.Read(ctx, "nemotron")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.Rows) != 1 {
		t.Errorf("re-read %d rows, want 1 (stale rows must not survive a rewrite)", len(got.Rows))
	}
}

func TestTabsAreIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := table.New("user", "rating")
	a.Rows = [][]string{{"alice", "7"}}
	b := table.New("user", "rating")
	b.Rows = [][]string{{"alice", "4"}}

	if err := s.Write(ctx, "qwen", a); err != nil {
		t.Fatalf("Write qwen: %v", err)
	}
	if err := s.Write(ctx, "gemma", b); err != nil {
		t.Fatalf("Write gemma: %v", err)
	}

	got, err := s.Read(ctx, "qwen")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Get(0, "rating") != "7" {
		t.Errorf("qwen rating = %q, want 7", got.Get(0, "rating"))
	}
}
