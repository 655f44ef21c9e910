package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"printforge/internal/domain"
)

// JobRepositoryMem implements domain.JobRepository in process memory. It backs
// local development without a DATABASE_URL and the pipeline tests. Reads
// return copies so callers never observe a write in progress.
type JobRepositoryMem struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

func NewMemoryJobRepository() *JobRepositoryMem {
	return &JobRepositoryMem{jobs: make(map[string]*domain.Job)}
}

func (r *JobRepositoryMem) Create(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	stored := cloneJob(job)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.jobs[job.ID] = stored
	job.CreatedAt = now
	job.UpdatedAt = now
	return nil
}

func (r *JobRepositoryMem) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneJob(job), nil
}

func (r *JobRepositoryMem) Update(ctx context.Context, jobID string, upd domain.JobUpdate) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.Status != nil {
		job.Status = *upd.Status
	}
	if upd.Progress != nil {
		job.Progress = *upd.Progress
	}
	if upd.ImagePath != nil {
		job.ImagePath = *upd.ImagePath
	}
	if upd.ImageURL != nil {
		job.ImageURL = *upd.ImageURL
	}
	if upd.MeshPath != nil {
		job.MeshPath = *upd.MeshPath
	}
	if upd.MeshURL != nil {
		job.MeshURL = *upd.MeshURL
	}
	if len(upd.MeshURLs) > 0 {
		job.MeshURLs = make(map[string]string, len(upd.MeshURLs))
		for k, v := range upd.MeshURLs {
			job.MeshURLs[k] = v
		}
	}
	if upd.ErrorMessage != nil {
		job.ErrorMessage = *upd.ErrorMessage
	}
	job.UpdatedAt = time.Now()
	return cloneJob(job), nil
}

func (r *JobRepositoryMem) List(ctx context.Context, limit, offset int) ([]domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	all := make([]*domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		all = append(all, job)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]domain.Job, 0, len(all))
	for _, job := range all {
		out = append(out, *cloneJob(job))
	}
	return out, nil
}

func cloneJob(job *domain.Job) *domain.Job {
	clone := *job
	if job.MeshURLs != nil {
		clone.MeshURLs = make(map[string]string, len(job.MeshURLs))
		for k, v := range job.MeshURLs {
			clone.MeshURLs[k] = v
		}
	}
	return &clone
}

var _ domain.JobRepository = (*JobRepositoryMem)(nil)
