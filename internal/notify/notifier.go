package notify

import (
	"context"

	"printforge/internal/domain"
	"printforge/internal/infra"
)

// Notifier informs a customer about pipeline milestones. The email transport
// itself is an external collaborator; the default implementation just logs so
// the chain stays observable without SMTP credentials.
type Notifier interface {
	ModelReady(ctx context.Context, email string, job *domain.Job) error
	OrderConfirmed(ctx context.Context, email, orderID string) error
}

// LogNotifier writes notification events to the service log.
type LogNotifier struct {
	logger infra.Logger
}

func NewLogNotifier(logger infra.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) ModelReady(ctx context.Context, email string, job *domain.Job) error {
	n.logger.Info().Str("email", email).Str("job_id", job.ID).Str("mesh_url", job.MeshURL).
		Msg("notify: model ready")
	return nil
}

func (n *LogNotifier) OrderConfirmed(ctx context.Context, email, orderID string) error {
	n.logger.Info().Str("email", email).Str("order_id", orderID).Msg("notify: order confirmed")
	return nil
}

var _ Notifier = (*LogNotifier)(nil)
