package adapter

import (
	"context"

	"content-marketplace/internal/domain/model"
)

// PurchaseEventPublisher fans out notifications about new entitlements.
type PurchaseEventPublisher interface {
	PublishPurchaseRecorded(ctx context.Context, rec *model.PurchaseRecord) error
}
