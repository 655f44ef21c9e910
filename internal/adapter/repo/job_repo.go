package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"printforge/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
    id            TEXT PRIMARY KEY,
    description   TEXT NOT NULL,
    style         TEXT NOT NULL DEFAULT 'figurine',
    size_mm       DOUBLE PRECISION NOT NULL DEFAULT 0,
    concept_only  BOOLEAN NOT NULL DEFAULT FALSE,
    status        TEXT NOT NULL DEFAULT 'pending',
    progress      INTEGER NOT NULL DEFAULT 0,
    image_path    TEXT,
    image_url     TEXT,
    mesh_path     TEXT,
    mesh_url      TEXT,
    mesh_urls     JSONB,
    error_message TEXT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS jobs_created_at_idx ON jobs (created_at DESC);
`

// EnsureSchema creates the jobs table when it does not exist yet.
func (r *JobRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure jobs schema: %w", err)
	}
	return nil
}

const selectColumns = `
id, description, style, size_mm, concept_only, status, progress,
COALESCE(image_path, ''), COALESCE(image_url, ''),
COALESCE(mesh_path, ''), COALESCE(mesh_url, ''),
mesh_urls, COALESCE(error_message, ''), created_at, updated_at`

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, description, style, size_mm, concept_only, status, progress)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Description,
		job.Style,
		job.SizeMM,
		job.ConceptOnly,
		job.Status,
		job.Progress,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `SELECT ` + selectColumns + ` FROM jobs WHERE id = $1;`
	return scanJob(r.pool.QueryRow(ctx, query, jobID))
}

// Update applies a partial merge: nil fields keep their stored value and
// updated_at is always refreshed.
func (r *JobRepositoryPG) Update(ctx context.Context, jobID string, upd domain.JobUpdate) (*domain.Job, error) {
	var meshURLs []byte
	if len(upd.MeshURLs) > 0 {
		encoded, err := json.Marshal(upd.MeshURLs)
		if err != nil {
			return nil, fmt.Errorf("encode mesh urls: %w", err)
		}
		meshURLs = encoded
	}
	query := `
UPDATE jobs
SET status        = COALESCE($2, status),
    progress      = COALESCE($3, progress),
    image_path    = COALESCE($4, image_path),
    image_url     = COALESCE($5, image_url),
    mesh_path     = COALESCE($6, mesh_path),
    mesh_url      = COALESCE($7, mesh_url),
    mesh_urls     = COALESCE($8, mesh_urls),
    error_message = COALESCE($9, error_message),
    updated_at    = NOW()
WHERE id = $1
RETURNING ` + selectColumns + `;`
	return scanJob(r.pool.QueryRow(ctx, query, jobID,
		upd.Status,
		upd.Progress,
		upd.ImagePath,
		upd.ImageURL,
		upd.MeshPath,
		upd.MeshURL,
		meshURLs,
		upd.ErrorMessage,
	))
}

// List returns jobs ordered newest-first.
func (r *JobRepositoryPG) List(ctx context.Context, limit, offset int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + selectColumns + ` FROM jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2;`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var meshURLs []byte
	if err := row.Scan(
		&job.ID,
		&job.Description,
		&job.Style,
		&job.SizeMM,
		&job.ConceptOnly,
		&job.Status,
		&job.Progress,
		&job.ImagePath,
		&job.ImageURL,
		&job.MeshPath,
		&job.MeshURL,
		&meshURLs,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(meshURLs) > 0 {
		if err := json.Unmarshal(meshURLs, &job.MeshURLs); err != nil {
			return nil, fmt.Errorf("decode mesh urls: %w", err)
		}
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
