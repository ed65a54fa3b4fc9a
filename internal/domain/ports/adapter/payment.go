package adapter

import (
	"context"

	"content-marketplace/internal/domain/model"
)

// SessionRequest describes one hosted checkout to open at the provider.
type SessionRequest struct {
	ContentID   string
	Title       string
	Price       int64 // smallest currency unit, > 0
	ContentType model.ContentType
	Metadata    model.PaymentSessionMetadata
}

// SessionHandle is what the buyer is redirected to.
type SessionHandle struct {
	ID  string
	URL string
}

// PaymentGateway is the hex port for payment providers.
type PaymentGateway interface {
	Name() string

	// CreateSession opens a hosted checkout carrying Metadata opaquely.
	CreateSession(ctx context.Context, req SessionRequest) (SessionHandle, error)
	// VerifyAndParseEvent authenticates rawBody against signatureHeader before
	// decoding it. Any verification failure wraps domain.ErrAuthenticity.
	VerifyAndParseEvent(rawBody []byte, signatureHeader string) (*model.PaymentEvent, error)
	// SignatureHeader is the HTTP header the provider signs deliveries in.
	SignatureHeader() string
}
