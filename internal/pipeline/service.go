package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"printforge/internal/domain"
	"printforge/internal/infra"
	"printforge/internal/providers/image"
	"printforge/internal/providers/mesh"
	"printforge/internal/storage"
)

// preferredMeshFormat is what we download for web preview. When the backend
// did not produce it we fall back to whatever it did return instead of
// failing the job.
const preferredMeshFormat = "glb"

// Config tunes the pipeline's mesh poll loop and URL construction.
type Config struct {
	PublicBaseURL string
	MeshTimeout   time.Duration
	PollInterval  time.Duration
}

// Service drives jobs through the pipeline state machine:
//
//	pending -> generating_image -> concept_ready            (concept jobs)
//	pending -> generating_image -> converting_3d -> completed (full jobs)
//
// with failed reachable from either working state. A concept job re-enters at
// converting_3d through GenerateMeshForJob once payment confirms. The service
// is the error boundary: adapter failures become a failed job record plus a
// log line and never escape to the worker loop.
type Service struct {
	repo     domain.JobRepository
	imageGen image.Generator
	meshGen  mesh.Client
	store    *storage.FileStore
	logger   infra.Logger

	baseURL      string
	meshTimeout  time.Duration
	pollInterval time.Duration
}

func NewService(
	repo domain.JobRepository,
	imageGen image.Generator,
	meshGen mesh.Client,
	store *storage.FileStore,
	logger infra.Logger,
	cfg Config,
) *Service {
	timeout := cfg.MeshTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Service{
		repo:         repo,
		imageGen:     imageGen,
		meshGen:      meshGen,
		store:        store,
		logger:       logger,
		baseURL:      strings.TrimRight(cfg.PublicBaseURL, "/"),
		meshTimeout:  timeout,
		pollInterval: interval,
	}
}

// SubmitJob creates a full-pipeline job in pending state and returns its id.
// The caller enqueues the id for processing.
func (s *Service) SubmitJob(ctx context.Context, description, style string, sizeMM float64) (string, error) {
	return s.createJob(ctx, "job", description, style, sizeMM, false)
}

// SubmitConceptJob creates a pay-gated job that stops after image generation.
// Size is decided at checkout, stored as the 0 sentinel.
func (s *Service) SubmitConceptJob(ctx context.Context, description, style string) (string, error) {
	return s.createJob(ctx, "concept", description, style, 0, true)
}

func (s *Service) createJob(ctx context.Context, prefix, description, style string, sizeMM float64, conceptOnly bool) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", errors.New("description is required")
	}
	jobID := newJobID(prefix)
	job := &domain.Job{
		ID:          jobID,
		Description: description,
		Style:       domain.NormalizeImageStyle(style),
		SizeMM:      sizeMM,
		ConceptOnly: conceptOnly,
		Status:      domain.JobStatusPending,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	s.logger.Info().Str("job_id", jobID).Bool("concept_only", conceptOnly).Str("style", string(job.Style)).Msg("pipeline: job submitted")
	return jobID, nil
}

// GetJobStatus returns the stored job, or domain.ErrNotFound.
func (s *Service) GetJobStatus(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.repo.GetByID(ctx, jobID)
}

// ListJobs returns recent jobs, newest first.
func (s *Service) ListJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	return s.repo.List(ctx, limit, 0)
}

// Process drives one full pass for a queued job. Failures are recorded on the
// job and returned for logging; the job never stays in a non-terminal state.
func (s *Service) Process(ctx context.Context, jobID string) error {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}

	// Older ids encoded the job kind in their prefix. The persisted flag is
	// the source of truth; a mismatch is only worth a warning.
	if prefixed := strings.HasPrefix(job.ID, "concept_"); prefixed != job.ConceptOnly {
		s.logger.Warn().Str("job_id", job.ID).Bool("concept_only", job.ConceptOnly).
			Msg("pipeline: id prefix disagrees with concept_only flag, trusting the flag")
	}

	if _, err := s.repo.Update(ctx, jobID, domain.JobUpdate{
		Status:   domain.StatusPtr(domain.JobStatusGeneratingImage),
		Progress: domain.IntPtr(20),
	}); err != nil {
		return s.fail(ctx, jobID, fmt.Errorf("enter image stage: %w", err))
	}

	imageKey := job.ID + "/concept.png"
	destPath, err := s.store.AbsPath(imageKey)
	if err != nil {
		return s.fail(ctx, jobID, err)
	}
	if _, err := s.imageGen.Generate(ctx, image.GenerateRequest{
		Prompt:          job.Description,
		Style:           job.Style,
		DestinationPath: destPath,
		RequestID:       job.ID,
	}); err != nil {
		return s.fail(ctx, jobID, err)
	}

	imageURL := s.outputURL(imageKey)
	progress := 40
	status := domain.JobStatusGeneratingImage
	if job.ConceptOnly {
		progress = 100
		status = domain.JobStatusConceptReady
	}
	if _, err := s.repo.Update(ctx, jobID, domain.JobUpdate{
		Status:    domain.StatusPtr(status),
		Progress:  domain.IntPtr(progress),
		ImagePath: domain.StrPtr(imageKey),
		ImageURL:  domain.StrPtr(imageURL),
	}); err != nil {
		return s.fail(ctx, jobID, fmt.Errorf("persist image result: %w", err))
	}
	s.logger.Info().Str("job_id", job.ID).Str("image", imageURL).Msg("pipeline: image generated")

	if job.ConceptOnly {
		// Correct completion of this pass. 3D generation happens after payment.
		s.logger.Info().Str("job_id", job.ID).Msg("pipeline: concept ready, awaiting payment")
		return nil
	}

	if err := s.runMeshStage(ctx, job.ID, imageKey, mesh.OptionsFor("detailed", "")); err != nil {
		return s.fail(ctx, jobID, err)
	}
	return nil
}

// GenerateMeshForJob resumes a concept job into mesh generation after payment
// confirmed. It reports success to its caller so fulfillment and notification
// can be chained.
func (s *Service) GenerateMeshForJob(ctx context.Context, jobID, meshStyle, materialKey string) bool {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("pipeline: deferred generation for unknown job")
		return false
	}
	if job.ImagePath == "" {
		// Trigger fired before concept generation finished; a logic error
		// upstream. Refuse rather than generate a mesh from nothing.
		s.logger.Error().Str("job_id", jobID).Msg("pipeline: deferred generation without concept image")
		return false
	}

	s.logger.Info().Str("job_id", jobID).Str("mesh_style", meshStyle).Str("material", materialKey).
		Msg("pipeline: deferred mesh generation")
	if err := s.runMeshStage(ctx, jobID, job.ImagePath, mesh.OptionsFor(meshStyle, materialKey)); err != nil {
		_ = s.fail(ctx, jobID, err)
		return false
	}
	return true
}

// runMeshStage submits the stored concept image to the mesh backend, polls to
// completion, downloads an artifact, and persists the terminal state. Job
// progress covers 50-90 during polling, scaled from the backend's own
// percentage, and never decreases within the pass.
func (s *Service) runMeshStage(ctx context.Context, jobID, imageKey string, opts mesh.Options) error {
	if _, err := s.repo.Update(ctx, jobID, domain.JobUpdate{
		Status:   domain.StatusPtr(domain.JobStatusConverting3D),
		Progress: domain.IntPtr(50),
	}); err != nil {
		return fmt.Errorf("enter mesh stage: %w", err)
	}

	imageBytes, err := s.store.Read(ctx, imageKey)
	if err != nil {
		return fmt.Errorf("read concept image: %w", err)
	}
	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageBytes)

	taskID, err := s.meshGen.Submit(ctx, dataURI, opts)
	if err != nil {
		return fmt.Errorf("submit mesh task: %w", err)
	}
	s.logger.Debug().Str("job_id", jobID).Str("task_id", taskID).Msg("pipeline: mesh task submitted")

	task, err := s.pollMeshTask(ctx, jobID, taskID)
	if err != nil {
		return err
	}

	url, format, err := pickModelURL(task.ModelURLs, preferredMeshFormat)
	if err != nil {
		return err
	}
	localPath, err := s.meshGen.Download(ctx, url, s.store.BasePath(), format)
	if err != nil {
		return fmt.Errorf("download mesh artifact: %w", err)
	}
	meshKey, err := s.store.Rename(localPath, jobID+"/model."+format)
	if err != nil {
		return err
	}

	if _, err := s.repo.Update(ctx, jobID, domain.JobUpdate{
		Status:   domain.StatusPtr(domain.JobStatusCompleted),
		Progress: domain.IntPtr(100),
		MeshPath: domain.StrPtr(meshKey),
		MeshURL:  domain.StrPtr(url),
		MeshURLs: task.ModelURLs,
	}); err != nil {
		return fmt.Errorf("persist mesh result: %w", err)
	}
	s.logger.Info().Str("job_id", jobID).Str("format", format).Int("formats", len(task.ModelURLs)).
		Msg("pipeline: mesh completed")
	return nil
}

// pollMeshTask polls until the task succeeds, fails, or the total wait budget
// is spent. Timeout is reported as mesh.ErrPollTimeout, distinct from a
// backend failure.
func (s *Service) pollMeshTask(ctx context.Context, jobID, taskID string) (*mesh.Task, error) {
	deadline := time.Now().Add(s.meshTimeout)
	lastProgress := 50
	for {
		task, err := s.meshGen.Poll(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("poll mesh task: %w", err)
		}
		if task.Succeeded() {
			return task, nil
		}
		if task.Failed() {
			if task.Diagnostic != "" {
				return nil, fmt.Errorf("mesh task failed with status %s: %s", task.Status, task.Diagnostic)
			}
			return nil, fmt.Errorf("mesh task failed with status %s", task.Status)
		}

		if progress := 50 + task.Progress*40/100; progress > lastProgress && progress <= 90 {
			lastProgress = progress
			if _, err := s.repo.Update(ctx, jobID, domain.JobUpdate{Progress: domain.IntPtr(progress)}); err != nil {
				s.logger.Warn().Err(err).Str("job_id", jobID).Msg("pipeline: progress update failed")
			}
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: task %s exceeded %s", mesh.ErrPollTimeout, taskID, s.meshTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

// fail records the terminal failure with enough detail to diagnose without
// re-running, and returns the original error for the caller's log line.
func (s *Service) fail(ctx context.Context, jobID string, cause error) error {
	if _, err := s.repo.Update(ctx, jobID, domain.JobUpdate{
		Status:       domain.StatusPtr(domain.JobStatusFailed),
		ErrorMessage: domain.StrPtr(cause.Error()),
	}); err != nil {
		s.logger.Error().Err(err).Str("job_id", jobID).Msg("pipeline: failed to record job failure")
	}
	s.logger.Error().Err(cause).Str("job_id", jobID).Msg("pipeline: job failed")
	return cause
}

func (s *Service) outputURL(key string) string {
	return s.baseURL + "/output/" + key
}

// pickModelURL prefers the requested format but falls back to obj, then to
// any returned format in stable order.
func pickModelURL(urls map[string]string, preferred string) (string, string, error) {
	if len(urls) == 0 {
		return "", "", errors.New("mesh task returned no model artifacts")
	}
	if url, ok := urls[preferred]; ok && url != "" {
		return url, preferred, nil
	}
	if url, ok := urls["obj"]; ok && url != "" {
		return url, "obj", nil
	}
	formats := make([]string, 0, len(urls))
	for format := range urls {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	for _, format := range formats {
		if urls[format] != "" {
			return urls[format], format, nil
		}
	}
	return "", "", errors.New("mesh task returned no usable artifact urls")
}

func newJobID(prefix string) string {
	return fmt.Sprintf("%s_%s_%s", prefix, time.Now().Format("20060102_150405"), uuid.NewString()[:6])
}
