// File: internal/usecase/access_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/repository"
	"content-marketplace/internal/infra/logging"
	"content-marketplace/internal/infra/metrics"
)

// Compile-time check
var _ AccessUseCase = (*accessUC)(nil)

// Decision is the guard's verdict. RedirectTarget is set iff Granted is false.
type Decision struct {
	Granted        bool
	RedirectTarget string
}

type AccessUseCase interface {
	// CheckAccess fails closed: a storage error yields a denial plus the error.
	CheckAccess(ctx context.Context, identity *model.Identity, contentID string, contentType model.ContentType) (Decision, error)
}

type accessUC struct {
	purchases repository.PurchaseRepository
	baseURL   string
	log       *zerolog.Logger
}

func NewAccessUseCase(purchases repository.PurchaseRepository, baseURL string, logger *zerolog.Logger) *accessUC {
	return &accessUC{purchases: purchases, baseURL: baseURL, log: logger}
}

func (u *accessUC) CheckAccess(ctx context.Context, identity *model.Identity, contentID string, contentType model.ContentType) (Decision, error) {
	defer logging.TraceDuration(u.log, "AccessUC.CheckAccess")()

	if identity == nil || identity.UserIdentifier == "" {
		metrics.IncAccessDecision(string(contentType), "denied")
		return Decision{RedirectTarget: SignInPath}, nil
	}

	denied := Decision{RedirectTarget: DenialRedirect(u.baseURL, contentType, contentID)}

	owned, err := u.purchases.Exists(ctx, identity.UserIdentifier, contentID)
	if err != nil {
		metrics.IncAccessDecision(string(contentType), "error")
		logging.With(ctx, u.log).Error().Err(err).Str("content_id", contentID).Msg("access check failed, denying")
		return denied, storageErr(err)
	}
	if !owned {
		metrics.IncAccessDecision(string(contentType), "denied")
		return denied, nil
	}
	metrics.IncAccessDecision(string(contentType), "granted")
	return Decision{Granted: true}, nil
}
