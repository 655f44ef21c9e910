package pipeline

import (
	"context"

	"printforge/internal/infra"
	"printforge/internal/notify"
	"printforge/internal/providers/fulfill"
)

// Trigger bridges a confirmed payment event into deferred mesh generation.
// On success it chains a fulfillment submission and a customer notification;
// on failure the chain is skipped and recovery is an operator concern.
type Trigger struct {
	worker    *Worker
	svc       *Service
	store     pathResolver
	submitter fulfill.Submitter
	notifier  notify.Notifier
	logger    infra.Logger
}

type pathResolver interface {
	AbsPath(key string) (string, error)
}

func NewTrigger(
	worker *Worker,
	svc *Service,
	store pathResolver,
	submitter fulfill.Submitter,
	notifier notify.Notifier,
	logger infra.Logger,
) *Trigger {
	return &Trigger{
		worker:    worker,
		svc:       svc,
		store:     store,
		submitter: submitter,
		notifier:  notifier,
		logger:    logger,
	}
}

// Fire dispatches the deferred generation for one confirmed payment. It
// returns once the request is queued; generation runs on the bounded pool.
func (t *Trigger) Fire(jobID, meshStyle, materialKey, email string, address fulfill.ShippingAddress) error {
	return t.worker.EnqueueMeshGeneration(MeshRequest{
		JobID:       jobID,
		MeshStyle:   meshStyle,
		MaterialKey: materialKey,
		OnSuccess: func(ctx context.Context, id string) {
			t.chain(ctx, id, materialKey, email, address)
		},
	})
}

func (t *Trigger) chain(ctx context.Context, jobID, materialKey, email string, address fulfill.ShippingAddress) {
	job, err := t.svc.GetJobStatus(ctx, jobID)
	if err != nil {
		t.logger.Error().Err(err).Str("job_id", jobID).Msg("trigger: completed job not found")
		return
	}

	if t.submitter != nil && job.MeshPath != "" {
		meshPath, err := t.store.AbsPath(job.MeshPath)
		if err != nil {
			t.logger.Error().Err(err).Str("job_id", jobID).Str("mesh_path", job.MeshPath).
				Msg("trigger: mesh path unresolvable, fulfillment skipped")
		} else {
			orderID, err := t.submitter.SubmitOrder(ctx, fulfill.OrderRequest{
				MeshPath: meshPath,
				Material: materialKey,
				Address:  address,
			})
			if err != nil {
				t.logger.Error().Err(err).Str("job_id", jobID).Msg("trigger: fulfillment submission failed")
			} else {
				t.logger.Info().Str("job_id", jobID).Str("order_id", orderID).Msg("trigger: fulfillment order placed")
				if err := t.notifier.OrderConfirmed(ctx, email, orderID); err != nil {
					t.logger.Warn().Err(err).Str("job_id", jobID).Msg("trigger: order notification failed")
				}
			}
		}
	}

	if err := t.notifier.ModelReady(ctx, email, job); err != nil {
		t.logger.Warn().Err(err).Str("job_id", jobID).Msg("trigger: model-ready notification failed")
	}
}
