// Package master loads and indexes the read-only master sheet: one row per
// (sentence, model variant) pair.
package master

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/models"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// headerRowOffset converts a zero-based data row index to the row number
	// shown in the spreadsheet UI (header row + 1-based count)
	headerRowOffset = 2

	colIncorrect = "incorrect"
	colVariantID = "id"
	colCorrected = "corrected"
)

// setTokenNamespace scopes the UUIDv5 submission tokens. Fixed so that the
// token for a sentence is stable across sessions, restarts and annotators.
var setTokenNamespace = uuid.MustParse("9f2c1b4e-5a8d-4c3e-9b7a-2d6f8e1a0c5b")

// Index is an immutable view over one load of the master sheet
type Index struct {
	sentences []string
	bySentence map[string][]models.MasterRecord
	refRow    map[string]int
}

// Build indexes a loaded master table
func Build(records []models.MasterRecord) *Index {
	idx := &Index{
		bySentence: make(map[string][]models.MasterRecord),
		refRow:    make(map[string]int),
	}
	for i, rec := range records {
		if rec.Incorrect == "" {
			continue
		}
		if _, seen := idx.bySentence[rec.Incorrect]; !seen {
			idx.sentences = append(idx.sentences, rec.Incorrect)
		}
		idx.bySentence[rec.Incorrect] = append(idx.bySentence[rec.Incorrect], rec)
		if rec.VariantID == models.ReferenceVariant {
			if _, dup := idx.refRow[rec.Incorrect]; !dup {
				idx.refRow[rec.Incorrect] = i + headerRowOffset
			}
		}
	}
	return idx
}

// Sentences returns the ordered unique source sentences
func (idx *Index) Sentences() []string {
	return idx.sentences
}

// Len returns the number of unique sentences
func (idx *Index) Len() int {
	return len(idx.sentences)
}

// Sentence returns the sentence at position i, or ok=false past the end
func (idx *Index) Sentence(i int) (string, bool) {
	if i < 0 || i >= len(idx.sentences) {
		return "", false
	}
	return idx.sentences[i], true
}

// Variants returns the master records for one sentence in A..F order.
// Variants missing from the sheet are simply absent.
func (idx *Index) Variants(sentence string) []models.MasterRecord {
	recs := idx.bySentence[sentence]
	out := make([]models.MasterRecord, 0, len(recs))
	for _, v := range models.AllVariants() {
		for _, rec := range recs {
			if rec.VariantID == v {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}

// SetToken derives the submission identifier for a sentence: a UUIDv5 over
// the sentence text. Deterministic, so every session of every annotator keys
// the same sentence identically, and unique per sentence, so sentences can
// never collapse onto a shared key.
func (idx *Index) SetToken(sentence string) string {
	return uuid.NewSHA1(setTokenNamespace, []byte(sentence)).String()
}

// ReferenceRowID returns the spreadsheet row number of the sentence's
// reference-variant row, echoed into saved entries as the legacy
// submission_id column. Returns 0 when the sentence has no reference row.
// Note the legacy scheme's defect: under it every such sentence shared the
// one sentinel id. The live key is SetToken, which does not inherit this.
func (idx *Index) ReferenceRowID(sentence string) int {
	return idx.refRow[sentence]
}

// Loader fetches and caches the master table with a TTL. The master data is
// immutable during an annotation campaign; the TTL only picks up out-of-band
// edits eventually.
type Loader struct {
	store  store.Store
	tab    string
	ttl    time.Duration
	logger *zap.Logger

	mu       sync.Mutex
	cached   *Index
	loadedAt time.Time
}

// NewLoader creates a master loader reading the given tab
func NewLoader(st store.Store, tab string, ttl time.Duration, logger *zap.Logger) *Loader {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Loader{store: st, tab: tab, ttl: ttl, logger: logger}
}

// Load returns the cached index, refreshing it after the TTL
func (l *Loader) Load(ctx context.Context) (*Index, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil && time.Since(l.loadedAt) < l.ttl {
		return l.cached, nil
	}

	t, err := l.store.Read(ctx, l.tab)
	if err != nil {
		if l.cached != nil {
			// Serve stale data over failing the whole screen
			l.logger.Warn("Master refresh failed, serving cached index", zap.Error(err))
			return l.cached, nil
		}
		return nil, fmt.Errorf("failed to load master table: %w", err)
	}
	if t.IsEmpty() {
		return nil, fmt.Errorf("master table %q is empty", l.tab)
	}

	records := make([]models.MasterRecord, 0, len(t.Rows))
	for i := range t.Rows {
		rec := models.MasterRecord{
			Incorrect: strings.TrimSpace(t.Get(i, colIncorrect)),
			VariantID: models.ModelVariant(strings.TrimSpace(t.Get(i, colVariantID))),
			Corrected: t.Get(i, colCorrected),
		}
		records = append(records, rec)
	}

	l.cached = Build(records)
	l.loadedAt = time.Now()

	l.logger.Info("Master index loaded",
		zap.Int("rows", len(records)),
		zap.Int("sentences", l.cached.Len()))

	return l.cached, nil
}
