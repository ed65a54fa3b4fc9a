package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/adapter"
)

const RoutingKeyPurchaseRecorded = "purchase.recorded"

// PurchaseRecordedEvent is the message body consumers receive.
type PurchaseRecordedEvent struct {
	EventType          string    `json:"event_type"`
	PurchaseID         string    `json:"purchase_id"`
	UserIdentifier     string    `json:"user_identifier"`
	ContentID          string    `json:"content_id"`
	PaymentReferenceID string    `json:"payment_reference_id"`
	Amount             int64     `json:"amount"`
	CreatedAt          time.Time `json:"created_at"`
}

var _ adapter.PurchaseEventPublisher = (*PurchaseEventPublisher)(nil)

// PurchaseEventPublisher adapts a Publisher to the purchase event port.
type PurchaseEventPublisher struct {
	pub Publisher
}

func NewPurchaseEventPublisher(pub Publisher) *PurchaseEventPublisher {
	return &PurchaseEventPublisher{pub: pub}
}

func (p *PurchaseEventPublisher) PublishPurchaseRecorded(ctx context.Context, rec *model.PurchaseRecord) error {
	if rec == nil {
		return fmt.Errorf("publish %s: nil record", RoutingKeyPurchaseRecorded)
	}
	body, err := json.Marshal(PurchaseRecordedEvent{
		EventType:          RoutingKeyPurchaseRecorded,
		PurchaseID:         rec.ID,
		UserIdentifier:     rec.UserIdentifier,
		ContentID:          rec.ContentID,
		PaymentReferenceID: rec.PaymentReferenceID,
		Amount:             rec.Amount,
		CreatedAt:          rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", RoutingKeyPurchaseRecorded, err)
	}
	if err := p.pub.Publish(ctx, RoutingKeyPurchaseRecorded, body); err != nil {
		return fmt.Errorf("publish %s: %w", RoutingKeyPurchaseRecorded, err)
	}
	return nil
}
