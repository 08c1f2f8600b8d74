package session

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/roadmap/internal/db"
	"github.com/hpungsan/roadmap/internal/errors"
)

// SQLiteStore keeps sessions in sessions.db so they survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) baseDir/sessions.db.
func OpenSQLite(baseDir string) (*SQLiteStore, error) {
	conn, err := db.Init(baseDir)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(conn), nil
}

// NewSQLiteStore wraps an already initialized database.
func NewSQLiteStore(conn *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: conn}
}

// Load returns the stored state, or a fresh State if id is unknown.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*State, error) {
	row, err := db.GetSession(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return &State{}, nil
		}
		return nil, err
	}
	return &State{Roadmap: row.Roadmap, Editing: row.Editing, Final: row.Final}, nil
}

// Save replaces the state for id.
func (s *SQLiteStore) Save(ctx context.Context, id string, st *State) error {
	return db.UpsertSession(ctx, s.db, &db.SessionRow{
		ID:      id,
		Roadmap: st.Roadmap,
		Editing: st.Editing,
		Final:   st.Final,
	})
}

// Delete forgets id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return db.DeleteSession(ctx, s.db, id)
}

// PurgeIdle deletes sessions untouched for longer than olderThan.
func (s *SQLiteStore) PurgeIdle(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, errors.NewInvalidRequest("older_than must be positive")
	}
	cutoff := time.Now().Add(-olderThan).Unix()
	return db.PurgeSessions(ctx, s.db, cutoff)
}

// Stats returns the number of stored sessions and how many are finalized.
func (s *SQLiteStore) Stats(ctx context.Context) (total, finalized int, err error) {
	return db.CountSessions(ctx, s.db)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
