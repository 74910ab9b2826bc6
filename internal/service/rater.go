// Package service implements the rating workflow: sessions, navigation,
// pre-fill and the multi-table save.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/master"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/models"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/repository"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/store"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/table"
	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/upsert"
	"github.com/Ashwin-Arumugam/Tamil-nlp/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const timestampLayout = "2006-01-02 15:04:05"

// Column allow-lists enforced on every write; anything else found in a tab
// is stripped on the way through.
var (
	ratingColumns     = []string{"submission_id", "user", "set_token", "rating", "timestamp"}
	correctionColumns = []string{"submission_id", "user", "set_token", "user_corrected", "timestamp"}
	upsertKey         = []string{"set_token", "user"}
)

var (
	// ErrAllComplete signals the session cursor is past the last sentence
	ErrAllComplete = errors.New("all items complete")
	// ErrSuggestUnavailable signals no suggestion provider is configured
	ErrSuggestUnavailable = errors.New("suggestion provider not configured")
	// ErrSessionNotFound signals an unknown or expired session id
	ErrSessionNotFound = errors.New("session not found")
	// ErrUsernameRequired signals a login with a blank annotator name
	ErrUsernameRequired = errors.New("username is required")
)

// Suggester drafts a correction for an incorrect sentence
type Suggester interface {
	Suggest(ctx context.Context, incorrect string) (string, error)
	Close() error
}

// Rater is the annotation session service
type Rater struct {
	store          store.Store
	syncer         *upsert.Synchronizer
	masterLoader   *master.Loader
	sessions       *repository.SessionRepository
	suggester      Suggester // nil when the feature is disabled
	metrics        *metrics.Metrics
	logger         *zap.Logger
	correctionsTab string

	mu sync.Mutex
	// Per-session snapshot of the rating tabs, loaded once per session and
	// refreshed from each successful save. Pre-fill hints only; saves always
	// re-read the remote tab. Bounded: the least recently touched session
	// is evicted once maxCachedSessions is reached.
	cache map[string]*tabSnapshot
}

// maxCachedSessions caps the pre-fill cache at one entry per live session
const maxCachedSessions = 64

type tabSnapshot struct {
	tabs    map[string]*table.Table
	touched time.Time
}

// Config wires the rater's collaborators
type Config struct {
	Store          store.Store
	MasterLoader   *master.Loader
	Sessions       *repository.SessionRepository
	Suggester      Suggester
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
	CorrectionsTab string
}

// NewRater creates the rating service
func NewRater(cfg Config) *Rater {
	if cfg.CorrectionsTab == "" {
		cfg.CorrectionsTab = "user_corrections"
	}
	return &Rater{
		store:          cfg.Store,
		syncer:         upsert.New(cfg.Store, cfg.Logger),
		masterLoader:   cfg.MasterLoader,
		sessions:       cfg.Sessions,
		suggester:      cfg.Suggester,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
		correctionsTab: cfg.CorrectionsTab,
		cache:          make(map[string]*tabSnapshot),
	}
}

// Login starts a session for the given annotator name, or resumes the most
// recent one for that name. Any non-empty name is accepted.
func (r *Rater) Login(ctx context.Context, username string) (*models.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}

	idx, err := r.masterLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	if sess, err := r.sessions.GetSessionByUser(username); err == nil {
		sess.LastSeen = time.Now().UTC()
		if err := r.sessions.UpdateSession(sess); err != nil {
			return nil, err
		}
		r.loadSessionCache(ctx, sess.ID)
		r.metrics.SessionsStarted.Inc()
		r.logger.Info("Session resumed",
			zap.String("user", username),
			zap.String("session_id", sess.ID),
			zap.Int("index", sess.Index))
		return sess, nil
	}

	now := time.Now().UTC()
	sess := &models.Session{
		ID:        uuid.New().String(),
		User:      username,
		Index:     0,
		State:     models.StateLoading,
		CreatedAt: now,
		LastSeen:  now,
	}
	if err := r.sessions.CreateSession(sess); err != nil {
		return nil, err
	}

	r.loadSessionCache(ctx, sess.ID)

	next := models.StateAwaitingRating
	if idx.Len() == 0 {
		next = models.StateComplete
	}
	if err := transition(sess, next); err != nil {
		return nil, err
	}
	if err := r.sessions.UpdateSession(sess); err != nil {
		return nil, err
	}

	r.metrics.SessionsStarted.Inc()
	r.logger.Info("Session started",
		zap.String("user", username),
		zap.String("session_id", sess.ID))

	return sess, nil
}

// GetSession returns the stored session
func (r *Rater) GetSession(id string) (*models.Session, error) {
	return r.session(id)
}

func (r *Rater) session(id string) (*models.Session, error) {
	sess, err := r.sessions.GetSession(id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

// Progress returns (position, total) for a session
func (r *Rater) Progress(ctx context.Context, sess *models.Session) (int, int, error) {
	idx, err := r.masterLoader.Load(ctx)
	if err != nil {
		return 0, 0, err
	}
	return sess.Index, idx.Len(), nil
}

// Current builds the rating screen for the session's cursor: the sentence,
// its variant outputs in A..F order, and this annotator's previously saved
// answers as pre-fill hints. Returns ErrAllComplete past the end.
func (r *Rater) Current(ctx context.Context, sessionID string) (*models.SentenceView, error) {
	sess, err := r.session(sessionID)
	if err != nil {
		return nil, err
	}

	idx, err := r.masterLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	sentence, ok := idx.Sentence(sess.Index)
	if !ok {
		return nil, ErrAllComplete
	}

	token := idx.SetToken(sentence)
	tabs := r.sessionTabs(ctx, sess.ID)

	view := &models.SentenceView{
		Incorrect:    sentence,
		Index:        sess.Index,
		Total:        idx.Len(),
		SetToken:     token,
		SubmissionID: idx.ReferenceRowID(sentence),
	}

	for _, rec := range idx.Variants(sentence) {
		tab := models.VariantTabNames[rec.VariantID]
		vv := models.VariantView{
			VariantID: rec.VariantID,
			TabName:   tab,
			Corrected: rec.Corrected,
		}
		if saved, ok := savedRating(tabs[tab], token, sess.User); ok {
			vv.SavedRating = saved
		}
		view.Variants = append(view.Variants, vv)
	}

	view.SavedCorrection = savedCorrection(tabs[r.correctionsTab], token, sess.User)

	return view, nil
}

// Navigate moves the session cursor. A cursor past the last sentence puts
// the session in the complete state; prev and restart bring it back.
func (r *Rater) Navigate(ctx context.Context, sessionID string, req models.NavigateRequest) (*models.Session, error) {
	sess, err := r.session(sessionID)
	if err != nil {
		return nil, err
	}

	idx, err := r.masterLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	target := sess.Index
	switch req.Action {
	case "prev":
		if target > 0 {
			target--
		}
	case "next":
		if target < idx.Len() {
			target++
		}
	case "jump":
		if req.Index < 0 {
			return nil, fmt.Errorf("index %d out of range", req.Index)
		}
		target = req.Index
	case "restart":
		target = 0
	default:
		return nil, fmt.Errorf("unknown navigation action %q", req.Action)
	}

	sess.Index = target
	sess.LastSeen = time.Now().UTC()

	next := models.StateAwaitingRating
	if target >= idx.Len() {
		next = models.StateComplete
	}
	if sess.State != next {
		if err := transition(sess, next); err != nil {
			return nil, err
		}
	}

	if err := r.sessions.UpdateSession(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SaveRatings upserts one rating row per rated variant into that variant's
// tab, plus the optional manual correction into its own tab. Each tab is an
// independent write: a failed tab is reported and does not undo the others.
// The cursor advances only when every write succeeded.
func (r *Rater) SaveRatings(ctx context.Context, sessionID string, req models.SaveRatingsRequest) (*models.SaveReport, error) {
	started := time.Now()

	sess, err := r.session(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State == models.StateComplete {
		return nil, ErrAllComplete
	}
	if err := transition(sess, models.StateSaving); err != nil {
		return nil, err
	}

	idx, err := r.masterLoader.Load(ctx)
	if err != nil {
		return nil, err
	}
	sentence, ok := idx.Sentence(sess.Index)
	if !ok {
		return nil, ErrAllComplete
	}

	for v, rating := range req.Ratings {
		if !models.IsValidVariant(v) {
			return nil, fmt.Errorf("unknown model variant %q", v)
		}
		if rating < 1 || rating > 10 {
			return nil, fmt.Errorf("rating %d for variant %s out of range [1,10]", rating, v)
		}
	}

	token := idx.SetToken(sentence)
	refID := idx.ReferenceRowID(sentence)
	ts := time.Now().Format(timestampLayout)
	keyValues := []string{token, sess.User}

	report := &models.SaveReport{}

	for _, v := range models.AllVariants() {
		rating, rated := req.Ratings[v]
		if !rated {
			continue
		}
		tab := models.VariantTabNames[v]
		row := map[string]string{
			"submission_id": strconv.Itoa(refID),
			"user":          sess.User,
			"set_token":     token,
			"rating":        strconv.Itoa(rating),
			"timestamp":     ts,
		}
		r.applyUpsert(ctx, sess.ID, tab, keyValues, row, ratingColumns, report)
	}

	if correction := strings.TrimSpace(req.Correction); correction != "" {
		row := map[string]string{
			"submission_id":  strconv.Itoa(refID),
			"user":           sess.User,
			"set_token":      token,
			"user_corrected": correction,
			"timestamp":      ts,
		}
		r.applyUpsert(ctx, sess.ID, r.correctionsTab, keyValues, row, correctionColumns, report)
	}

	sess.LastSeen = time.Now().UTC()

	status := "ok"
	if report.Failed == 0 {
		report.Advance = true
		if err := transition(sess, models.StateAdvancing); err != nil {
			return nil, err
		}
		sess.Index++
		next := models.StateAwaitingRating
		if sess.Index >= idx.Len() {
			next = models.StateComplete
		}
		if err := transition(sess, next); err != nil {
			return nil, err
		}
	} else {
		status = "partial"
		if err := transition(sess, models.StateAwaitingRating); err != nil {
			return nil, err
		}
	}

	if err := r.sessions.UpdateSession(sess); err != nil {
		return nil, err
	}

	r.metrics.SaveDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
	r.logger.Info("Ratings saved",
		zap.String("user", sess.User),
		zap.String("set_token", token),
		zap.Int("saved", report.Saved),
		zap.Int("failed", report.Failed))

	return report, nil
}

// applyUpsert performs one tab's upsert and records its outcome
func (r *Rater) applyUpsert(ctx context.Context, sessionID, tab string, keyValues []string, row map[string]string, schema []string, report *models.SaveReport) {
	written, err := r.syncer.Upsert(ctx, tab, upsertKey, keyValues, row, schema)
	if err != nil {
		r.logger.Error("Failed to save entry",
			zap.String("tab", tab),
			zap.Error(err))
		r.metrics.SavesTotal.WithLabelValues(tab, "error").Inc()
		report.Tables = append(report.Tables, models.TableReport{Tab: tab, OK: false, Error: err.Error()})
		report.Failed++
		return
	}

	r.mu.Lock()
	if snap, ok := r.cache[sessionID]; ok {
		snap.tabs[tab] = written
		snap.touched = time.Now()
	}
	r.mu.Unlock()

	r.metrics.SavesTotal.WithLabelValues(tab, "ok").Inc()
	report.Tables = append(report.Tables, models.TableReport{Tab: tab, OK: true})
	report.Saved++
}

// SuggestCorrection asks the configured LLM for a draft correction of the
// session's current sentence
func (r *Rater) SuggestCorrection(ctx context.Context, sessionID string) (string, error) {
	if r.suggester == nil {
		return "", ErrSuggestUnavailable
	}

	sess, err := r.session(sessionID)
	if err != nil {
		return "", err
	}
	idx, err := r.masterLoader.Load(ctx)
	if err != nil {
		return "", err
	}
	sentence, ok := idx.Sentence(sess.Index)
	if !ok {
		return "", ErrAllComplete
	}

	suggestion, err := r.suggester.Suggest(ctx, sentence)
	if err != nil {
		r.metrics.SuggestsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	r.metrics.SuggestsTotal.WithLabelValues("ok").Inc()
	return suggestion, nil
}

// Leaderboard counts each annotator's rated sentence sets across every
// variant tab. A set counts once no matter how many of its variants were
// rated, so partially rated sets still show up.
func (r *Rater) Leaderboard(ctx context.Context) ([]models.LeaderboardRow, error) {
	counts := make(map[string]map[string]struct{})
	for _, v := range models.AllVariants() {
		t, err := r.readTab(ctx, models.VariantTabNames[v])
		if err != nil {
			return nil, err
		}
		for i := range t.Rows {
			user := strings.TrimSpace(t.Get(i, "user"))
			token := strings.TrimSpace(t.Get(i, "set_token"))
			if user == "" || token == "" {
				continue
			}
			if counts[user] == nil {
				counts[user] = make(map[string]struct{})
			}
			counts[user][token] = struct{}{}
		}
	}

	rows := make([]models.LeaderboardRow, 0, len(counts))
	for user, tokens := range counts {
		rows = append(rows, models.LeaderboardRow{User: user, Count: len(tokens)})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].User < rows[j].User
	})
	return rows, nil
}

// ExportTable returns one variant's full rating table
func (r *Rater) ExportTable(ctx context.Context, variant models.ModelVariant) (*table.Table, error) {
	if !models.IsValidVariant(variant) {
		return nil, fmt.Errorf("unknown model variant %q", variant)
	}
	return r.readTab(ctx, models.VariantTabNames[variant])
}

// Close releases the suggester, if any
func (r *Rater) Close() error {
	if r.suggester != nil {
		return r.suggester.Close()
	}
	return nil
}

func (r *Rater) readTab(ctx context.Context, tab string) (*table.Table, error) {
	t, err := r.store.Read(ctx, tab)
	if err != nil {
		r.metrics.StoreCalls.WithLabelValues("read", "error").Inc()
		return nil, fmt.Errorf("failed to read tab %q: %w", tab, err)
	}
	r.metrics.StoreCalls.WithLabelValues("read", "ok").Inc()
	return t, nil
}

// loadSessionCache snapshots every rating tab for pre-fill. Best effort: a
// tab that fails to read is treated as empty, matching the save path's
// tolerance; the save itself never trusts this cache.
func (r *Rater) loadSessionCache(ctx context.Context, sessionID string) {
	tabs := make(map[string]*table.Table)
	names := make([]string, 0, len(models.VariantTabNames)+1)
	for _, v := range models.AllVariants() {
		names = append(names, models.VariantTabNames[v])
	}
	names = append(names, r.correctionsTab)

	for _, name := range names {
		t, err := r.readTab(ctx, name)
		if err != nil {
			r.logger.Warn("Pre-fill load failed, treating tab as empty",
				zap.String("tab", name),
				zap.Error(err))
			t = table.New()
		}
		tabs[name] = t
	}

	r.mu.Lock()
	if _, ok := r.cache[sessionID]; !ok && len(r.cache) >= maxCachedSessions {
		r.evictOldest()
	}
	r.cache[sessionID] = &tabSnapshot{tabs: tabs, touched: time.Now()}
	r.mu.Unlock()
}

// evictOldest drops the least recently touched snapshot. Caller holds r.mu.
func (r *Rater) evictOldest() {
	var oldest string
	var when time.Time
	for id, snap := range r.cache {
		if oldest == "" || snap.touched.Before(when) {
			oldest = id
			when = snap.touched
		}
	}
	if oldest != "" {
		delete(r.cache, oldest)
	}
}

// sessionTabs returns a copy of the session's pre-fill snapshot, loading it
// lazily when the session outlived a server restart. Callers get their own
// map so a concurrent save replacing entries never races the read.
func (r *Rater) sessionTabs(ctx context.Context, sessionID string) map[string]*table.Table {
	if tabs, ok := r.snapshotTabs(sessionID); ok {
		return tabs
	}
	r.loadSessionCache(ctx, sessionID)
	tabs, _ := r.snapshotTabs(sessionID)
	return tabs
}

func (r *Rater) snapshotTabs(sessionID string) (map[string]*table.Table, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.cache[sessionID]
	if !ok {
		return nil, false
	}
	snap.touched = time.Now()
	out := make(map[string]*table.Table, len(snap.tabs))
	for name, t := range snap.tabs {
		out[name] = t
	}
	return out, true
}

// savedRating scans a tab for this annotator's prior rating of the sentence
// set. Non-numeric cells read as "no prior rating".
func savedRating(t *table.Table, token, user string) (int, bool) {
	if t.IsEmpty() {
		return 0, false
	}
	for i := range t.Rows {
		if strings.TrimSpace(t.Get(i, "set_token")) == token &&
			strings.TrimSpace(t.Get(i, "user")) == user {
			return table.CellInt(t.Get(i, "rating"))
		}
	}
	return 0, false
}

// savedCorrection returns this annotator's prior manual correction, if any
func savedCorrection(t *table.Table, token, user string) string {
	if t.IsEmpty() {
		return ""
	}
	for i := range t.Rows {
		if strings.TrimSpace(t.Get(i, "set_token")) == token &&
			strings.TrimSpace(t.Get(i, "user")) == user {
			return t.Get(i, "user_corrected")
		}
	}
	return ""
}
