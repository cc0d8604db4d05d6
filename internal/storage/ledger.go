package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Upload is one saved admin document.
type Upload struct {
	ID         uuid.UUID `db:"id"`
	Path       string    `db:"path"`
	SizeBytes  int64     `db:"size_bytes"`
	UploaderID int64     `db:"uploader_id"`
	CreatedAt  time.Time `db:"created_at"`
}

// Ledger records uploads.
type Ledger interface {
	Record(ctx context.Context, u Upload) (Upload, error)
	Recent(ctx context.Context, limit int) ([]Upload, error)
	Enabled() bool
}

// NopLedger is used when no database is configured.
type NopLedger struct{}

// Record returns u unchanged.
func (NopLedger) Record(_ context.Context, u Upload) (Upload, error) { return u, nil }

// Recent returns nothing.
func (NopLedger) Recent(context.Context, int) ([]Upload, error) { return nil, nil }

// Enabled reports false.
func (NopLedger) Enabled() bool { return false }

// PostgresLedger stores uploads in the uploads table.
type PostgresLedger struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgresLedger wraps db.
func NewPostgresLedger(db *sqlx.DB) *PostgresLedger {
	return &PostgresLedger{db: db, now: time.Now}
}

const insertUpload = `INSERT INTO uploads (id, path, size_bytes, uploader_id, created_at)
VALUES (:id, :path, :size_bytes, :uploader_id, :created_at)`

// Record inserts u, filling in the id and timestamp when unset.
func (l *PostgresLedger) Record(ctx context.Context, u Upload) (Upload, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = l.now().UTC()
	}
	if _, err := l.db.NamedExecContext(ctx, insertUpload, u); err != nil {
		return Upload{}, fmt.Errorf("ledger: insert %s: %w", u.Path, err)
	}
	return u, nil
}

const selectRecent = `SELECT id, path, size_bytes, uploader_id, created_at
FROM uploads ORDER BY created_at DESC LIMIT $1`

// Recent returns the latest uploads, newest first.
func (l *PostgresLedger) Recent(ctx context.Context, limit int) ([]Upload, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []Upload
	if err := l.db.SelectContext(ctx, &out, selectRecent, limit); err != nil {
		return nil, fmt.Errorf("ledger: recent: %w", err)
	}
	return out, nil
}

// Enabled reports true.
func (l *PostgresLedger) Enabled() bool { return true }
