package messaging

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/adapter"
	"content-marketplace/internal/infra/worker"
)

// Submitter is the part of worker.Pool the async publisher needs.
type Submitter interface {
	Submit(task worker.Task) error
}

var _ adapter.PurchaseEventPublisher = (*AsyncPurchaseEventPublisher)(nil)

// AsyncPurchaseEventPublisher hands events to a worker pool so a slow broker
// never delays the webhook acknowledgement. A rejected submit is logged and
// the event is dropped.
type AsyncPurchaseEventPublisher struct {
	inner   adapter.PurchaseEventPublisher
	pool    Submitter
	timeout time.Duration
	log     *zerolog.Logger
}

func NewAsyncPurchaseEventPublisher(inner adapter.PurchaseEventPublisher, pool Submitter, timeout time.Duration, logger *zerolog.Logger) *AsyncPurchaseEventPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AsyncPurchaseEventPublisher{inner: inner, pool: pool, timeout: timeout, log: logger}
}

func (p *AsyncPurchaseEventPublisher) PublishPurchaseRecorded(_ context.Context, rec *model.PurchaseRecord) error {
	if rec == nil {
		return nil
	}
	snapshot := *rec
	err := p.pool.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return p.inner.PublishPurchaseRecorded(ctx, &snapshot)
	})
	if err != nil {
		p.log.Warn().Err(err).Str("purchase_id", rec.ID).Msg("purchase event dropped")
	}
	return nil
}
