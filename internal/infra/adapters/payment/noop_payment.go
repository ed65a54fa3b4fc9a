package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"content-marketplace/internal/domain"
	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopSignatureHeader carries hex(HMAC-SHA256(secret, body)).
const NoopSignatureHeader = "X-Signature"

// NoopEvent is the wire format of noop gateway deliveries.
type NoopEvent struct {
	ID                 string            `json:"id"`
	Type               string            `json:"type"`
	SessionID          string            `json:"session_id"`
	PaymentStatus      string            `json:"payment_status"`
	PaymentReferenceID string            `json:"payment_reference_id,omitempty"`
	Metadata           map[string]string `json:"metadata"`
}

// NoopPaymentGateway is an in-memory gateway for dev mode and tests. Sessions
// are "paid" by CompleteSession, which emits a signed delivery.
type NoopPaymentGateway struct {
	mu       sync.Mutex
	secret   string
	baseURL  string
	sessions map[string]adapter.SessionRequest
}

func NewNoopPaymentGateway(webhookSecret, baseURL string) *NoopPaymentGateway {
	return &NoopPaymentGateway{
		secret:   webhookSecret,
		baseURL:  baseURL,
		sessions: make(map[string]adapter.SessionRequest),
	}
}

func (g *NoopPaymentGateway) Name() string            { return "noop" }
func (g *NoopPaymentGateway) SignatureHeader() string { return NoopSignatureHeader }

func (g *NoopPaymentGateway) CreateSession(ctx context.Context, req adapter.SessionRequest) (adapter.SessionHandle, error) {
	if req.Price <= 0 {
		return adapter.SessionHandle{}, domain.ErrInvalidArgument
	}
	id := "noop_cs_" + uuid.NewString()
	g.mu.Lock()
	g.sessions[id] = req
	g.mu.Unlock()
	return adapter.SessionHandle{ID: id, URL: g.baseURL + "/dev/pay/" + id}, nil
}

// CompleteSession builds the signed checkout.session.completed delivery for
// a session, as the real provider would after the buyer pays.
func (g *NoopPaymentGateway) CompleteSession(sessionID, paymentStatus string) (body []byte, signature string, req adapter.SessionRequest, err error) {
	g.mu.Lock()
	req, ok := g.sessions[sessionID]
	g.mu.Unlock()
	if !ok {
		return nil, "", req, fmt.Errorf("noop: session %q: %w", sessionID, domain.ErrNotFound)
	}
	body, err = json.Marshal(NoopEvent{
		ID:                 "noop_evt_" + uuid.NewString(),
		Type:               model.EventTypeCheckoutCompleted,
		SessionID:          sessionID,
		PaymentStatus:      paymentStatus,
		PaymentReferenceID: "noop_pi_" + sessionID,
		Metadata:           req.Metadata.Map(),
	})
	if err != nil {
		return nil, "", req, err
	}
	return body, SignHMAC(g.secret, body), req, nil
}

func (g *NoopPaymentGateway) VerifyAndParseEvent(rawBody []byte, signatureHeader string) (*model.PaymentEvent, error) {
	if !VerifyHMAC(g.secret, rawBody, signatureHeader) {
		return nil, fmt.Errorf("%w: signature mismatch", domain.ErrAuthenticity)
	}
	var ev NoopEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return nil, fmt.Errorf("%w: decode event: %v", domain.ErrAuthenticity, err)
	}
	return &model.PaymentEvent{
		ID:                 ev.ID,
		Type:               ev.Type,
		SessionID:          ev.SessionID,
		PaymentStatus:      ev.PaymentStatus,
		PaymentReferenceID: ev.PaymentReferenceID,
		Metadata:           ev.Metadata,
	}, nil
}
