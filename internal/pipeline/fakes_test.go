package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"printforge/internal/adapter/repo"
	"printforge/internal/domain"
	"printforge/internal/infra"
	"printforge/internal/providers/image"
	"printforge/internal/providers/mesh"
	"printforge/internal/storage"
)

type fakeImageGen struct {
	calls int32
	err   error
}

func (f *fakeImageGen) Generate(ctx context.Context, req image.GenerateRequest) (*image.Result, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	if err := os.MkdirAll(filepath.Dir(req.DestinationPath), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(req.DestinationPath, []byte("png-bytes"), 0o644); err != nil {
		return nil, err
	}
	return &image.Result{LocalPath: req.DestinationPath, MIME: "image/png"}, nil
}

func (f *fakeImageGen) callCount() int { return int(atomic.LoadInt32(&f.calls)) }

// fakeMeshClient plays back a scripted sequence of poll observations.
type fakeMeshClient struct {
	mu        sync.Mutex
	submits   int
	polls     []mesh.Task
	pollIndex int
	submitErr error
	modelData []byte
	lastOpts  mesh.Options
}

func (f *fakeMeshClient) Submit(ctx context.Context, imageDataURI string, opts mesh.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	f.lastOpts = opts
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return fmt.Sprintf("task-%d", f.submits), nil
}

func (f *fakeMeshClient) Poll(ctx context.Context, taskID string) (*mesh.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.polls) == 0 {
		return &mesh.Task{ID: taskID, Status: mesh.TaskPending}, nil
	}
	task := f.polls[f.pollIndex]
	if f.pollIndex < len(f.polls)-1 {
		f.pollIndex++
	}
	task.ID = taskID
	return &task, nil
}

func (f *fakeMeshClient) Download(ctx context.Context, url, destDir, format string) (string, error) {
	data := f.modelData
	if data == nil {
		data = []byte("mesh-bytes")
	}
	path := filepath.Join(destDir, "download."+format)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (f *fakeMeshClient) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits
}

func succeededTask(urls map[string]string) []mesh.Task {
	return []mesh.Task{
		{Status: mesh.TaskInProgress, Progress: 30},
		{Status: mesh.TaskInProgress, Progress: 80},
		{Status: mesh.TaskSucceeded, Progress: 100, ModelURLs: urls},
	}
}

// recordingRepo wraps the in-memory repository and captures every observed
// status and progress value in order.
type recordingRepo struct {
	domain.JobRepository

	mu       sync.Mutex
	statuses []domain.JobStatus
	progress []int
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{JobRepository: repo.NewMemoryJobRepository()}
}

func (r *recordingRepo) Update(ctx context.Context, jobID string, upd domain.JobUpdate) (*domain.Job, error) {
	r.mu.Lock()
	if upd.Status != nil {
		r.statuses = append(r.statuses, *upd.Status)
	}
	if upd.Progress != nil {
		r.progress = append(r.progress, *upd.Progress)
	}
	r.mu.Unlock()
	return r.JobRepository.Update(ctx, jobID, upd)
}

type testEnv struct {
	svc      *Service
	repo     domain.JobRepository
	imageGen *fakeImageGen
	meshGen  *fakeMeshClient
	store    *storage.FileStore
}

func newTestEnv(t *testing.T, jobs domain.JobRepository, meshGen *fakeMeshClient) *testEnv {
	t.Helper()
	if jobs == nil {
		jobs = repo.NewMemoryJobRepository()
	}
	if meshGen == nil {
		meshGen = &fakeMeshClient{polls: succeededTask(map[string]string{
			"glb": "https://cdn.example.com/model.glb",
			"obj": "https://cdn.example.com/model.obj",
		})}
	}
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	imageGen := &fakeImageGen{}
	logger := infra.NewLogger("test")
	svc := NewService(jobs, imageGen, meshGen, store, logger, Config{
		PublicBaseURL: "http://localhost:8080",
		MeshTimeout:   2 * time.Second,
		PollInterval:  time.Millisecond,
	})
	return &testEnv{svc: svc, repo: jobs, imageGen: imageGen, meshGen: meshGen, store: store}
}
