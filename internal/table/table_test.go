package table

import (
	"reflect"
	"testing"
)

func TestCellInt(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want int
		ok   bool
	}{
		{name: "plain integer", cell: "7", want: 7, ok: true},
		{name: "float rendering", cell: "7.0", want: 7, ok: true},
		{name: "whitespace", cell: " 10 ", want: 10, ok: true},
		{name: "empty cell", cell: "", want: 0, ok: false},
		{name: "NaN marker", cell: "NaN", want: 0, ok: false},
		{name: "none marker", cell: "None", want: 0, ok: false},
		{name: "non-numeric", cell: "high", want: 0, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CellInt(tt.cell)
			if got != tt.want || ok != tt.ok {
				t.Errorf("CellInt(%q) = (%d, %v), want (%d, %v)", tt.cell, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestDropMatching(t *testing.T) {
	mk := func() *Table {
		tab := New("set_token", "user", "rating")
		tab.Rows = [][]string{
			{"tok-1", "alice", "7"},
			{"tok-1", "bob", "5"},
			{"tok-2", "alice", "9"},
		}
		return tab
	}

	t.Run("drops only the keyed row", func(t *testing.T) {
		tab := mk()
		n := tab.DropMatching([]string{"set_token", "user"}, []string{"tok-1", "alice"})
		if n != 1 {
			t.Fatalf("dropped %d rows, want 1", n)
		}
		if len(tab.Rows) != 2 {
			t.Fatalf("kept %d rows, want 2", len(tab.Rows))
		}
		for _, row := range tab.Rows {
			if row[0] == "tok-1" && row[1] == "alice" {
				t.Errorf("keyed row still present: %v", row)
			}
		}
	})

	t.Run("float-rendered key matches integer key", func(t *testing.T) {
		tab := New("submission_id", "user")
		tab.Rows = [][]string{{"12.0", "alice"}}
		if n := tab.DropMatching([]string{"submission_id", "user"}, []string{"12", "alice"}); n != 1 {
			t.Errorf("dropped %d rows, want 1", n)
		}
	})

	t.Run("missing key column drops nothing", func(t *testing.T) {
		tab := mk()
		if n := tab.DropMatching([]string{"nope", "user"}, []string{"x", "alice"}); n != 0 {
			t.Errorf("dropped %d rows, want 0", n)
		}
	})

	t.Run("no match leaves table intact", func(t *testing.T) {
		tab := mk()
		tab.DropMatching([]string{"set_token", "user"}, []string{"tok-9", "alice"})
		if len(tab.Rows) != 3 {
			t.Errorf("kept %d rows, want 3", len(tab.Rows))
		}
	})
}

func TestFilterColumns(t *testing.T) {
	src := New("set_token", "junk", "rating")
	src.Rows = [][]string{{"tok-1", "x", "7"}}

	got := src.FilterColumns([]string{"set_token", "user", "rating"})

	if !reflect.DeepEqual(got.Columns, []string{"set_token", "user", "rating"}) {
		t.Fatalf("columns = %v", got.Columns)
	}
	want := []string{"tok-1", "", "7"}
	if !reflect.DeepEqual(got.Rows[0], want) {
		t.Errorf("row = %v, want %v (missing column synthesized empty)", got.Rows[0], want)
	}
}

func TestAppendAndGet(t *testing.T) {
	tab := New("user", "rating")
	tab.Append(map[string]string{"user": "alice", "rating": "8", "ignored": "x"})

	if got := tab.Get(0, "rating"); got != "8" {
		t.Errorf("Get(0, rating) = %q, want 8", got)
	}
	if got := tab.Get(0, "ignored"); got != "" {
		t.Errorf("unknown column read %q, want empty", got)
	}
	if got := tab.Get(5, "user"); got != "" {
		t.Errorf("out-of-range row read %q, want empty", got)
	}
}

func TestGetShortRow(t *testing.T) {
	tab := New("a", "b", "c")
	tab.Rows = [][]string{{"1"}}
	if got := tab.Get(0, "c"); got != "" {
		t.Errorf("short row cell = %q, want empty", got)
	}
}
