package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
)

// GuideRepository tracks uploaded travel guides and their indexing lifecycle.
type GuideRepository struct {
	db *sql.DB
}

func NewGuideRepository(db *sql.DB) *GuideRepository {
	return &GuideRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *GuideRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS guides (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	filename TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	sections INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_guides_status ON guides(status);
CREATE INDEX IF NOT EXISTS idx_guides_created_at ON guides(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *GuideRepository) Create(ctx context.Context, guide *domain.Guide) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO guides (
	id, title, filename, storage_path, sections, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		guide.ID, guide.Title, guide.Filename, guide.StoragePath, guide.Sections,
		string(guide.Status), guide.Error, guide.CreatedAt, guide.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert guide: %w", err)
	}
	return nil
}

func (r *GuideRepository) GetByID(ctx context.Context, id string) (*domain.Guide, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, filename, storage_path, sections, status, error_message, created_at, updated_at
FROM guides
WHERE id = $1
`, id)

	var guide domain.Guide
	var status string

	err := row.Scan(
		&guide.ID, &guide.Title, &guide.Filename, &guide.StoragePath, &guide.Sections,
		&status, &guide.Error, &guide.CreatedAt, &guide.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrGuideNotFound, "get guide", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan guide: %w", err)
	}

	guide.Status = domain.GuideStatus(status)
	return &guide, nil
}

func (r *GuideRepository) UpdateStatus(ctx context.Context, id string, status domain.GuideStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE guides
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update guide status: %w", err)
	}
	return requireRowAffected(res, "update guide status", id)
}

// SetIndexed records a successful indexing pass together with the parsed
// guide title and section count.
func (r *GuideRepository) SetIndexed(ctx context.Context, id, title string, sections int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE guides
SET title = $2, sections = $3, status = $4, error_message = '', updated_at = $5
WHERE id = $1
`, id, title, sections, string(domain.GuideIndexed), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set guide indexed: %w", err)
	}
	return requireRowAffected(res, "set guide indexed", id)
}

func requireRowAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrGuideNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}
