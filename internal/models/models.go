package models

import "time"

// ModelVariant identifies one of the six correction models under evaluation
type ModelVariant string

const (
	VariantQwen      ModelVariant = "A"
	VariantNemotron  ModelVariant = "B"
	VariantMinistral ModelVariant = "C"
	VariantKimiK2    ModelVariant = "D"
	VariantGPT       ModelVariant = "E"
	VariantGemma     ModelVariant = "F"
)

// ReferenceVariant anchors the legacy submission_id lookup (see master.Index)
const ReferenceVariant = VariantNemotron

// VariantTabNames maps variant IDs to their worksheet tab names
var VariantTabNames = map[ModelVariant]string{
	VariantQwen:      "qwen",
	VariantNemotron:  "nemotron",
	VariantMinistral: "ministral",
	VariantKimiK2:    "kimik2",
	VariantGPT:       "gpt",
	VariantGemma:     "gemma",
}

// AllVariants returns the six variants in display order (A..F)
func AllVariants() []ModelVariant {
	return []ModelVariant{
		VariantQwen, VariantNemotron, VariantMinistral,
		VariantKimiK2, VariantGPT, VariantGemma,
	}
}

// IsValidVariant reports whether v is one of the six known variant tags
func IsValidVariant(v ModelVariant) bool {
	_, ok := VariantTabNames[v]
	return ok
}

// MasterRecord is one read-only row of the master sheet: a source sentence
// paired with one model's corrected output
type MasterRecord struct {
	Incorrect string       `json:"incorrect"`
	VariantID ModelVariant `json:"id"`
	Corrected string       `json:"corrected"`
}

// RatingEntry is one annotator's score for one model variant on one sentence.
// Keyed by (SetToken, User) within the variant's table; SubmissionID is the
// legacy reference-row echo and is not part of the key.
type RatingEntry struct {
	SubmissionID int       `json:"submission_id"`
	User         string    `json:"user"`
	SetToken     string    `json:"set_token"`
	Rating       int       `json:"rating"`
	Timestamp    time.Time `json:"timestamp"`
}

// CorrectionEntry is one annotator's free-text ideal correction for one
// sentence, stored in its own table with the same (SetToken, User) key
type CorrectionEntry struct {
	SubmissionID  int       `json:"submission_id"`
	User          string    `json:"user"`
	SetToken      string    `json:"set_token"`
	UserCorrected string    `json:"user_corrected"`
	Timestamp     time.Time `json:"timestamp"`
}

// SessionState is an explicit state machine replacing the original tool's
// rerun-the-script control flow
type SessionState string

const (
	StateLoading        SessionState = "loading"
	StateAwaitingRating SessionState = "awaiting-rating"
	StateSaving         SessionState = "saving"
	StateAdvancing      SessionState = "advancing"
	StateComplete       SessionState = "complete"
)

// Session holds one annotator's progress through the sentence list
type Session struct {
	ID        string       `json:"id"`
	User      string       `json:"user"`
	Index     int          `json:"index"`
	State     SessionState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
	LastSeen  time.Time    `json:"last_seen"`
}

// LoginRequest starts (or resumes) an annotator session. Any non-empty name
// is accepted; there is deliberately no authentication.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
}

// NavigateRequest moves the session cursor
type NavigateRequest struct {
	Action string `json:"action" binding:"required,oneof=prev next jump restart"`
	Index  int    `json:"index"`
}

// SaveRatingsRequest carries one save action: scores per variant plus an
// optional manual correction. Ratings outside [1,10] are rejected at binding.
type SaveRatingsRequest struct {
	Ratings    map[ModelVariant]int `json:"ratings" binding:"required,min=1,dive,min=1,max=10"`
	Correction string               `json:"correction"`
}

// VariantView is one model's candidate correction plus the annotator's
// previously saved rating, if any
type VariantView struct {
	VariantID   ModelVariant `json:"id"`
	TabName     string       `json:"tab_name"`
	Corrected   string       `json:"corrected"`
	SavedRating int          `json:"saved_rating,omitempty"`
}

// SentenceView is everything the UI needs to render one rating screen
type SentenceView struct {
	Incorrect       string        `json:"incorrect"`
	Index           int           `json:"index"`
	Total           int           `json:"total"`
	SetToken        string        `json:"set_token"`
	SubmissionID    int           `json:"submission_id"`
	Variants        []VariantView `json:"variants"`
	SavedCorrection string        `json:"saved_correction,omitempty"`
}

// TableReport is the outcome of one table's upsert within a save
type TableReport struct {
	Tab   string `json:"tab"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// SaveReport aggregates per-table outcomes; writes are independent, so a save
// can partially succeed
type SaveReport struct {
	Tables  []TableReport `json:"tables"`
	Saved   int           `json:"saved"`
	Failed  int           `json:"failed"`
	Advance bool          `json:"advance"`
}

// LeaderboardRow is one annotator's completed-set count
type LeaderboardRow struct {
	User  string `json:"user"`
	Count int    `json:"count"`
}
