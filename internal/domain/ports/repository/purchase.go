package repository

import (
	"context"

	"content-marketplace/internal/domain/model"
)

// -----------------------------
// Purchases
// -----------------------------

// PurchaseRepository persists entitlement records keyed by (user, content).
// Backend failures are wrapped in domain.ErrStorageUnavailable; callers must
// never read them as "not purchased".
type PurchaseRepository interface {
	Exists(ctx context.Context, userIdentifier, contentID string) (bool, error)
	// Insert is conflict-safe: a duplicate pair yields AlreadyExists, not an error.
	Insert(ctx context.Context, rec *model.PurchaseRecord) (model.InsertResult, error)
	FindByUserAndContent(ctx context.Context, userIdentifier, contentID string) (*model.PurchaseRecord, error)
	ListByUser(ctx context.Context, userIdentifier string) ([]*model.PurchaseRecord, error)
}
