package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"content-marketplace/internal/domain"
	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*StripeGateway)(nil)

// checkoutSessions is the part of the Stripe client used here.
type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGateway opens Stripe Checkout sessions and verifies Stripe webhooks.
type StripeGateway struct {
	sessions      checkoutSessions
	webhookSecret string
	baseURL       string
	currency      string
}

func NewStripeGateway(secretKey, webhookSecret, baseURL, currency string) (*StripeGateway, error) {
	if secretKey == "" || webhookSecret == "" {
		return nil, errors.New("stripe: secret key and webhook secret are required")
	}
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{
		sessions:      sc.CheckoutSessions,
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
		currency:      currency,
	}, nil
}

func (g *StripeGateway) Name() string            { return "stripe" }
func (g *StripeGateway) SignatureHeader() string { return "Stripe-Signature" }

func (g *StripeGateway) CreateSession(ctx context.Context, req adapter.SessionRequest) (adapter.SessionHandle, error) {
	if req.Price <= 0 {
		return adapter.SessionHandle{}, domain.ErrInvalidArgument
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(g.currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(req.Title),
					Description: stripe.String(fmt.Sprintf("%s %s", req.ContentType, req.ContentID)),
				},
				UnitAmount: stripe.Int64(req.Price),
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(g.contentURL(req.ContentType, req.ContentID) + "?success=true"),
		CancelURL:  stripe.String(g.baseURL),
	}
	params.Context = ctx
	for k, v := range req.Metadata.Map() {
		params.AddMetadata(k, v)
	}

	s, err := g.sessions.New(params)
	if err != nil {
		return adapter.SessionHandle{}, fmt.Errorf("%w: stripe: %v", domain.ErrGateway, err)
	}
	return adapter.SessionHandle{ID: s.ID, URL: s.URL}, nil
}

// VerifyAndParseEvent checks the Stripe-Signature header (timestamp tolerance
// included) before anything in the payload is read.
func (g *StripeGateway) VerifyAndParseEvent(rawBody []byte, signatureHeader string) (*model.PaymentEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(rawBody, signatureHeader, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthenticity, err)
	}

	out := &model.PaymentEvent{ID: ev.ID, Type: string(ev.Type)}
	if out.Type != model.EventTypeCheckoutCompleted || ev.Data == nil {
		return out, nil
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
		// Verified but undecodable: metadata stays nil and the handler
		// acknowledges it as malformed.
		return out, nil
	}
	out.SessionID = s.ID
	out.PaymentStatus = string(s.PaymentStatus)
	out.Metadata = s.Metadata
	if s.PaymentIntent != nil {
		out.PaymentReferenceID = s.PaymentIntent.ID
	}
	return out, nil
}

func (g *StripeGateway) contentURL(t model.ContentType, id string) string {
	if t == model.ContentTypeBook {
		return g.baseURL + "/books/" + id
	}
	return g.baseURL + "/posts/" + id
}
