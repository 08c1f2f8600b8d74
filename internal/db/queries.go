package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/hpungsan/roadmap/internal/errors"
)

// SessionRow is one persisted session.
type SessionRow struct {
	ID        string
	Roadmap   *string
	Editing   bool
	Final     bool
	CreatedAt int64
	UpdatedAt int64
}

// GetSession retrieves a session by ID. Returns NOT_FOUND if absent.
func GetSession(ctx context.Context, db *sql.DB, id string) (*SessionRow, error) {
	query := `
		SELECT id, roadmap, editing, final, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`

	var (
		row     SessionRow
		roadmap sql.NullString
	)
	err := db.QueryRowContext(ctx, query, id).Scan(
		&row.ID, &roadmap, &row.Editing, &row.Final, &row.CreatedAt, &row.UpdatedAt,
	)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFound(id)
		}
		return nil, errors.NewInternal(err)
	}
	if roadmap.Valid {
		text := roadmap.String
		row.Roadmap = &text
	}

	return &row, nil
}

// UpsertSession inserts or replaces a session, keeping created_at on update.
func UpsertSession(ctx context.Context, db *sql.DB, row *SessionRow) error {
	now := time.Now().Unix()

	query := `
		INSERT INTO sessions (id, roadmap, editing, final, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			roadmap = excluded.roadmap,
			editing = excluded.editing,
			final = excluded.final,
			updated_at = excluded.updated_at
	`

	_, err := db.ExecContext(ctx, query,
		row.ID, toNullString(row.Roadmap), row.Editing, row.Final, now, now,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteSession removes a session. Unknown IDs are not an error.
func DeleteSession(ctx context.Context, db *sql.DB, id string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// PurgeSessions deletes sessions not updated since the cutoff (Unix seconds).
// Returns the number of rows removed.
func PurgeSessions(ctx context.Context, db *sql.DB, cutoff int64) (int, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// CountSessions returns the number of stored sessions, and how many are finalized.
func CountSessions(ctx context.Context, db *sql.DB) (total, finalized int, err error) {
	query := `SELECT COUNT(*), COALESCE(SUM(final), 0) FROM sessions`
	if err := db.QueryRowContext(ctx, query).Scan(&total, &finalized); err != nil {
		return 0, 0, errors.NewInternal(err)
	}
	return total, finalized, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
