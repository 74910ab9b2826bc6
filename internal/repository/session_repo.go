package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/Ashwin-Arumugam/Tamil-nlp/internal/models"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no session row matches the lookup
var ErrNotFound = errors.New("session not found")

// SessionRepository persists annotator sessions so a returning annotator
// resumes their navigation position after a browser or server restart. The
// rating data itself lives in the remote sheet, never here.
type SessionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSessionRepository creates a new repository
func NewSessionRepository(dbPath string, logger *zap.Logger) (*SessionRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &SessionRepository{
		db:     db,
		logger: logger,
	}

	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Session repository initialized", zap.String("db_path", dbPath))

	return repo, nil
}

// migrate creates tables
func (r *SessionRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user TEXT NOT NULL,
		idx INTEGER NOT NULL DEFAULT 0,
		state TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		last_seen DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user);
	`

	_, err := r.db.Exec(schema)
	return err
}

// CreateSession stores a new session
func (r *SessionRepository) CreateSession(s *models.Session) error {
	query := `
		INSERT INTO sessions (id, user, idx, state, created_at, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, s.ID, s.User, s.Index, string(s.State), s.CreatedAt, s.LastSeen)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// UpdateSession persists the mutable fields of a session
func (r *SessionRepository) UpdateSession(s *models.Session) error {
	query := `
		UPDATE sessions
		SET idx = ?, state = ?, last_seen = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query, s.Index, string(s.State), s.LastSeen, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (r *SessionRepository) GetSession(id string) (*models.Session, error) {
	query := `
		SELECT id, user, idx, state, created_at, last_seen
		FROM sessions
		WHERE id = ?
	`

	s := &models.Session{}
	var state string
	err := r.db.QueryRow(query, id).Scan(&s.ID, &s.User, &s.Index, &state, &s.CreatedAt, &s.LastSeen)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s.State = models.SessionState(state)

	return s, nil
}

// GetSessionByUser retrieves the most recent session for an annotator name,
// used to resume rather than restart when the same name logs in again
func (r *SessionRepository) GetSessionByUser(user string) (*models.Session, error) {
	query := `
		SELECT id, user, idx, state, created_at, last_seen
		FROM sessions
		WHERE user = ?
		ORDER BY last_seen DESC
		LIMIT 1
	`

	s := &models.Session{}
	var state string
	err := r.db.QueryRow(query, user).Scan(&s.ID, &s.User, &s.Index, &state, &s.CreatedAt, &s.LastSeen)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by user: %w", err)
	}
	s.State = models.SessionState(state)

	return s, nil
}

// Close closes the database connection
func (r *SessionRepository) Close() error {
	return r.db.Close()
}
