package service

import (
	"testing"

	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/models"
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		name string
		from models.SessionState
		to   models.SessionState
		ok   bool
	}{
		{name: "loading to awaiting", from: models.StateLoading, to: models.StateAwaitingRating, ok: true},
		{name: "awaiting to saving", from: models.StateAwaitingRating, to: models.StateSaving, ok: true},
		{name: "saving to advancing", from: models.StateSaving, to: models.StateAdvancing, ok: true},
		{name: "saving back to awaiting on failure", from: models.StateSaving, to: models.StateAwaitingRating, ok: true},
		{name: "advancing to complete", from: models.StateAdvancing, to: models.StateComplete, ok: true},
		{name: "complete back to awaiting", from: models.StateComplete, to: models.StateAwaitingRating, ok: true},
		{name: "complete cannot save", from: models.StateComplete, to: models.StateSaving, ok: false},
		{name: "loading cannot save", from: models.StateLoading, to: models.StateSaving, ok: false},
		{name: "saving cannot complete directly", from: models.StateSaving, to: models.StateComplete, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &models.Session{State: tt.from}
			err := transition(s, tt.to)
			if (err == nil) != tt.ok {
				t.Fatalf("transition(%s -> %s) error = %v, want ok=%v", tt.from, tt.to, err, tt.ok)
			}
			if tt.ok && s.State != tt.to {
				t.Errorf("state after transition = %s, want %s", s.State, tt.to)
			}
			if !tt.ok && s.State != tt.from {
				t.Errorf("failed transition mutated state to %s", s.State)
			}
		})
	}
}
