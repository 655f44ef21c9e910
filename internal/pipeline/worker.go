package pipeline

import (
	"context"
	"fmt"
	"sync"

	"printforge/internal/domain"
	"printforge/internal/infra"
)

// MeshRequest is a deferred mesh generation dispatched onto the worker pool
// after a payment event. OnSuccess runs in the pool goroutine once the job
// completed, so fulfillment and notification never block the webhook.
type MeshRequest struct {
	JobID       string
	MeshStyle   string
	MaterialKey string
	OnSuccess   func(ctx context.Context, jobID string)
}

// Worker owns the two execution substrates of the pipeline: a single consumer
// draining the primary job queue in FIFO order, and a small fixed pool for
// deferred mesh generations. Both are started once at boot and drain on
// context cancellation. A failing job never terminates either loop.
type Worker struct {
	svc    *Service
	logger infra.Logger

	queue    chan string
	meshJobs chan MeshRequest

	poolSize int
	wg       sync.WaitGroup
}

func NewWorker(svc *Service, logger infra.Logger, queueCapacity, meshPoolSize int) *Worker {
	if queueCapacity <= 0 {
		queueCapacity = 128
	}
	if meshPoolSize <= 0 {
		meshPoolSize = 2
	}
	return &Worker{
		svc:      svc,
		logger:   logger,
		queue:    make(chan string, queueCapacity),
		meshJobs: make(chan MeshRequest, queueCapacity),
		poolSize: meshPoolSize,
	}
}

// Start launches the consumer loop and the mesh pool. It returns immediately;
// call Wait after cancelling ctx to drain.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.consumeLoop(ctx)
	}()
	for i := 0; i < w.poolSize; i++ {
		w.wg.Add(1)
		go func(slot int) {
			defer w.wg.Done()
			w.meshLoop(ctx, slot)
		}(i)
	}
	w.logger.Info().Int("mesh_pool", w.poolSize).Msg("worker: started")
}

// Wait blocks until all loops exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

// Enqueue adds a job id to the primary queue. A full queue is reported to the
// caller instead of blocking the submitter.
func (w *Worker) Enqueue(jobID string) error {
	select {
	case w.queue <- jobID:
		return nil
	default:
		return fmt.Errorf("enqueue %s: %w", jobID, domain.ErrQueueFull)
	}
}

// EnqueueMeshGeneration dispatches a deferred generation onto the bounded
// pool. Excess requests sit in the channel rather than spawning goroutines.
func (w *Worker) EnqueueMeshGeneration(req MeshRequest) error {
	select {
	case w.meshJobs <- req:
		return nil
	default:
		return fmt.Errorf("enqueue mesh generation %s: %w", req.JobID, domain.ErrQueueFull)
	}
}

func (w *Worker) consumeLoop(ctx context.Context) {
	w.logger.Info().Msg("worker: job consumer started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("worker: job consumer stopped")
			return
		case jobID := <-w.queue:
			w.handleProcess(ctx, jobID)
		}
	}
}

func (w *Worker) handleProcess(ctx context.Context, jobID string) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().Str("job_id", jobID).Interface("panic", r).Msg("worker: panic while processing job")
		}
	}()
	w.logger.Info().Str("job_id", jobID).Msg("worker: picked job")
	if err := w.svc.Process(ctx, jobID); err != nil {
		// Already recorded on the job; the loop just moves on.
		w.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: job failed")
	}
}

func (w *Worker) meshLoop(ctx context.Context, slot int) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.meshJobs:
			w.handleMeshRequest(ctx, slot, req)
		}
	}
}

func (w *Worker) handleMeshRequest(ctx context.Context, slot int, req MeshRequest) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().Str("job_id", req.JobID).Interface("panic", r).Msg("worker: panic in deferred generation")
		}
	}()
	w.logger.Info().Str("job_id", req.JobID).Int("slot", slot).Msg("worker: deferred mesh generation picked")
	if !w.svc.GenerateMeshForJob(ctx, req.JobID, req.MeshStyle, req.MaterialKey) {
		// Failure detail already on the job; no automatic retry, the chain is skipped.
		return
	}
	if req.OnSuccess != nil {
		req.OnSuccess(ctx, req.JobID)
	}
}
