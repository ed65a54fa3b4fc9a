// File: internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"content-marketplace/internal/domain"
	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/adapter"
	"content-marketplace/internal/domain/ports/repository"
	"content-marketplace/internal/infra/logging"
	"content-marketplace/internal/infra/metrics"
)

// Compile-time check
var _ PaymentEventUseCase = (*paymentEventUC)(nil)

// Outcome is the acknowledged result of one delivery. Every Outcome is a
// success from the provider's point of view.
type Outcome string

const (
	OutcomeRecorded         Outcome = "recorded"
	OutcomeAlreadyRecorded  Outcome = "already_recorded"
	OutcomeIgnoredEventType Outcome = "ignored_event_type"
	OutcomeIgnoredUnpaid    Outcome = "ignored_unpaid"
	OutcomeIgnoredMalformed Outcome = "ignored_malformed"
)

type PaymentEventUseCase interface {
	// Handle verifies and applies one gateway delivery. Errors are
	// ErrMissingSignature, ErrAuthenticity or ErrStorageUnavailable.
	Handle(ctx context.Context, rawBody []byte, signatureHeader string) (Outcome, error)
	// SignatureHeader names the header the gateway signs deliveries in.
	SignatureHeader() string
}

type paymentEventUC struct {
	purchases repository.PurchaseRepository
	gateway   adapter.PaymentGateway
	publisher adapter.PurchaseEventPublisher // optional
	log       *zerolog.Logger
	dev       bool
}

func NewPaymentEventUseCase(
	purchases repository.PurchaseRepository,
	gateway adapter.PaymentGateway,
	publisher adapter.PurchaseEventPublisher,
	logger *zerolog.Logger,
	dev bool,
) *paymentEventUC {
	return &paymentEventUC{purchases: purchases, gateway: gateway, publisher: publisher, log: logger, dev: dev}
}

func (u *paymentEventUC) SignatureHeader() string { return u.gateway.SignatureHeader() }

func (u *paymentEventUC) Handle(ctx context.Context, rawBody []byte, signatureHeader string) (Outcome, error) {
	defer logging.TraceDuration(u.log, "PaymentEventUC.Handle")()
	log := logging.With(ctx, u.log)

	if signatureHeader == "" {
		return "", domain.ErrMissingSignature
	}

	ev, err := u.gateway.VerifyAndParseEvent(rawBody, signatureHeader)
	if err != nil {
		log.Warn().Err(err).Str("gateway", u.gateway.Name()).Msg("webhook verification failed")
		if !errors.Is(err, domain.ErrAuthenticity) {
			err = fmt.Errorf("%w: %v", domain.ErrAuthenticity, err)
		}
		return "", err
	}
	evLog := log.With().Str("event_id", ev.ID).Str("event_type", ev.Type).Logger()

	if !ev.IsCompletedPayment() {
		evLog.Debug().Msg("ignoring unhandled event type")
		return OutcomeIgnoredEventType, nil
	}

	meta, err := model.ParseSessionMetadata(ev.Metadata)
	if err != nil {
		evLog.Warn().Err(err).Str("session_id", ev.SessionID).Msg("completed payment with malformed metadata")
		return OutcomeIgnoredMalformed, nil
	}
	amount, _ := meta.Amount()

	if ev.PaymentStatus != model.PaymentStatusPaid {
		evLog.Info().Str("payment_status", ev.PaymentStatus).Msg("checkout completed without payment, skipping")
		return OutcomeIgnoredUnpaid, nil
	}

	pairLog := evLog.With().
		Str("user_id", logging.Redact(meta.UserIdentifier, u.dev)).
		Str("content_id", meta.ContentID).Logger()

	owned, err := u.purchases.Exists(ctx, meta.UserIdentifier, meta.ContentID)
	if err != nil {
		pairLog.Error().Err(err).Msg("purchase lookup failed")
		return "", storageErr(err)
	}
	if owned {
		pairLog.Info().Msg("purchase already recorded")
		return OutcomeAlreadyRecorded, nil
	}

	rec, err := model.NewPurchaseRecord(ulid.Make().String(), meta.UserIdentifier, meta.ContentID, ev.PaymentReferenceID, amount)
	if err != nil {
		pairLog.Warn().Err(err).Msg("cannot build purchase record")
		return OutcomeIgnoredMalformed, nil
	}

	res, err := u.purchases.Insert(ctx, rec)
	if err != nil {
		pairLog.Error().Err(err).Msg("purchase insert failed")
		return "", storageErr(err)
	}
	if res.Status == model.AlreadyExists {
		pairLog.Info().Msg("purchase recorded concurrently by another delivery")
		return OutcomeAlreadyRecorded, nil
	}

	metrics.AddPurchaseRevenue(amount)
	pairLog.Info().Int64("amount", amount).Str("purchase_id", rec.ID).Msg("purchase recorded")

	stored := rec
	if res.Record != nil {
		stored = res.Record
	}
	u.publish(ctx, &pairLog, stored)
	return OutcomeRecorded, nil
}

func (u *paymentEventUC) publish(ctx context.Context, log *zerolog.Logger, rec *model.PurchaseRecord) {
	if u.publisher == nil {
		return
	}
	err := u.publisher.PublishPurchaseRecorded(ctx, rec)
	metrics.IncEventPublish(err)
	if err != nil {
		log.Warn().Err(err).Msg("publish purchase.recorded failed")
	}
}
