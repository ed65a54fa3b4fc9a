// File: internal/usecase/library_uc.go
package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"content-marketplace/internal/domain"
	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/repository"
	"content-marketplace/internal/infra/logging"
)

// Compile-time check
var _ LibraryUseCase = (*libraryUC)(nil)

// LibraryUseCase answers "what does this reader own".
type LibraryUseCase interface {
	// Lookup returns the record for the pair, or nil when none exists.
	Lookup(ctx context.Context, identity *model.Identity, contentID string) (*model.PurchaseRecord, error)
	List(ctx context.Context, identity *model.Identity) ([]*model.PurchaseRecord, error)
}

type libraryUC struct {
	purchases repository.PurchaseRepository
	log       *zerolog.Logger
}

func NewLibraryUseCase(purchases repository.PurchaseRepository, logger *zerolog.Logger) *libraryUC {
	return &libraryUC{purchases: purchases, log: logger}
}

func (u *libraryUC) Lookup(ctx context.Context, identity *model.Identity, contentID string) (*model.PurchaseRecord, error) {
	defer logging.TraceDuration(u.log, "LibraryUC.Lookup")()
	if identity == nil || identity.UserIdentifier == "" {
		return nil, domain.ErrUnauthenticated
	}
	if contentID == "" {
		return nil, domain.ErrInvalidRequest
	}
	rec, err := u.purchases.FindByUserAndContent(ctx, identity.UserIdentifier, contentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return rec, nil
}

func (u *libraryUC) List(ctx context.Context, identity *model.Identity) ([]*model.PurchaseRecord, error) {
	defer logging.TraceDuration(u.log, "LibraryUC.List")()
	if identity == nil || identity.UserIdentifier == "" {
		return nil, domain.ErrUnauthenticated
	}
	recs, err := u.purchases.ListByUser(ctx, identity.UserIdentifier)
	if err != nil {
		return nil, storageErr(err)
	}
	return recs, nil
}
