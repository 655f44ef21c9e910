package domain

import "context"

// JobRepository defines persistence for job entities.
//
// Update is a partial merge: fields left nil in the JobUpdate keep their
// stored value, updated_at is always bumped. GetByID and Update return
// ErrNotFound for unknown ids so callers can distinguish "does not exist"
// from "exists with empty fields".
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)
	Update(ctx context.Context, jobID string, upd JobUpdate) (*Job, error)
	List(ctx context.Context, limit, offset int) ([]Job, error)
}
