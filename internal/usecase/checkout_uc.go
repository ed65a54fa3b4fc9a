// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"content-marketplace/internal/domain"
	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/adapter"
	"content-marketplace/internal/domain/ports/repository"
	"content-marketplace/internal/infra/logging"
	"content-marketplace/internal/infra/metrics"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutResult is either a gateway session or, for a repeat buyer, the
// content URL itself.
type CheckoutResult struct {
	URL              string
	SessionID        string
	AlreadyPurchased bool
}

type CheckoutUseCase interface {
	// Initiate opens a payment session for identity, or short-circuits to the
	// content when the pair is already purchased. It never writes a record.
	Initiate(ctx context.Context, identity *model.Identity, req model.CheckoutRequest) (CheckoutResult, error)
}

type checkoutUC struct {
	purchases repository.PurchaseRepository
	catalog   adapter.ContentCatalog
	gateway   adapter.PaymentGateway
	validate  *validator.Validate
	baseURL   string
	log       *zerolog.Logger
}

func NewCheckoutUseCase(
	purchases repository.PurchaseRepository,
	catalog adapter.ContentCatalog,
	gateway adapter.PaymentGateway,
	baseURL string,
	logger *zerolog.Logger,
) *checkoutUC {
	return &checkoutUC{
		purchases: purchases,
		catalog:   catalog,
		gateway:   gateway,
		validate:  validator.New(),
		baseURL:   baseURL,
		log:       logger,
	}
}

func (u *checkoutUC) Initiate(ctx context.Context, identity *model.Identity, req model.CheckoutRequest) (CheckoutResult, error) {
	defer logging.TraceDuration(u.log, "CheckoutUC.Initiate")()

	if identity == nil || identity.UserIdentifier == "" {
		metrics.IncCheckout("unauthenticated")
		return CheckoutResult{}, domain.ErrUnauthenticated
	}
	log := logging.With(logging.WithUserID(ctx, identity.UserIdentifier), u.log)

	if err := u.validate.Struct(req); err != nil {
		metrics.IncCheckout("invalid")
		return CheckoutResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	owned, err := u.purchases.Exists(ctx, identity.UserIdentifier, req.ContentID)
	if err != nil {
		metrics.IncCheckout("storage_error")
		log.Error().Err(err).Str("content_id", req.ContentID).Msg("purchase lookup failed")
		return CheckoutResult{}, storageErr(err)
	}
	if owned {
		metrics.IncCheckout("already_purchased")
		return CheckoutResult{
			URL:              ContentURL(u.baseURL, req.ContentType, req.ContentID),
			AlreadyPurchased: true,
		}, nil
	}

	item, err := u.catalog.Lookup(ctx, req.ContentType, req.ContentID)
	if err != nil {
		if errors.Is(err, domain.ErrContentNotFound) {
			metrics.IncCheckout("not_found")
			return CheckoutResult{}, err
		}
		metrics.IncCheckout("catalog_error")
		log.Error().Err(err).Str("content_id", req.ContentID).Msg("catalog lookup failed")
		return CheckoutResult{}, catalogErr(err)
	}
	if item.Price <= 0 {
		metrics.IncCheckout("invalid")
		return CheckoutResult{}, fmt.Errorf("%w: content %q is free", domain.ErrInvalidRequest, req.ContentID)
	}
	if item.Price != req.Price {
		metrics.IncCheckout("invalid")
		log.Warn().Int64("client_price", req.Price).Int64("catalog_price", item.Price).
			Str("content_id", req.ContentID).Msg("checkout price mismatch")
		return CheckoutResult{}, fmt.Errorf("%w: price mismatch", domain.ErrInvalidRequest)
	}

	handle, err := u.gateway.CreateSession(ctx, adapter.SessionRequest{
		ContentID:   req.ContentID,
		Title:       req.Title,
		Price:       item.Price,
		ContentType: req.ContentType,
		Metadata:    model.NewSessionMetadata(identity.UserIdentifier, req.ContentID, item.Price),
	})
	if err != nil {
		metrics.IncCheckout("gateway_error")
		log.Error().Err(err).Str("gateway", u.gateway.Name()).Msg("create payment session failed")
		if !errors.Is(err, domain.ErrGateway) {
			err = fmt.Errorf("%w: %v", domain.ErrGateway, err)
		}
		return CheckoutResult{}, err
	}

	metrics.IncCheckout("session_created")
	log.Info().Str("session_id", handle.ID).Str("content_id", req.ContentID).Msg("payment session created")
	return CheckoutResult{URL: handle.URL, SessionID: handle.ID}, nil
}

func storageErr(err error) error {
	if errors.Is(err, domain.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
}

func catalogErr(err error) error {
	if errors.Is(err, domain.ErrCatalogUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
}
