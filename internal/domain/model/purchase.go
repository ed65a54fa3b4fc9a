package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"content-marketplace/internal/domain"
)

// ContentType distinguishes the two kinds of sellable content.
type ContentType string

const (
	ContentTypeArticle ContentType = "article"
	ContentTypeBook    ContentType = "book"
)

// Valid reports whether t is one of the known content types.
func (t ContentType) Valid() bool {
	return t == ContentTypeArticle || t == ContentTypeBook
}

// PurchaseRecord is the only proof of entitlement. At most one exists per
// (UserIdentifier, ContentID); it is created once and never updated.
type PurchaseRecord struct {
	ID                 string    `json:"id"`
	UserIdentifier     string    `json:"user_identifier"`
	ContentID          string    `json:"content_id"`
	PaymentReferenceID string    `json:"payment_reference_id"` // "" when the gateway gave none
	Amount             int64     `json:"amount"`               // smallest currency unit
	CreatedAt          time.Time `json:"created_at"`
}

// NewPurchaseRecord validates and constructs a record. id may be empty; the
// store assigns one in that case.
func NewPurchaseRecord(id, userIdentifier, contentID, paymentRef string, amount int64) (*PurchaseRecord, error) {
	if userIdentifier == "" || contentID == "" || amount < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &PurchaseRecord{
		ID:                 id,
		UserIdentifier:     userIdentifier,
		ContentID:          contentID,
		PaymentReferenceID: paymentRef,
		Amount:             amount,
		CreatedAt:          time.Now().UTC(),
	}, nil
}

// InsertStatus tags the outcome of a conflict-safe insert.
type InsertStatus int

const (
	Inserted InsertStatus = iota + 1
	AlreadyExists
)

func (s InsertStatus) String() string {
	switch s {
	case Inserted:
		return "inserted"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// InsertResult is returned by PurchaseRepository.Insert. Record is the stored
// row when Status is Inserted, and the existing row (if the backend can read
// it back) when Status is AlreadyExists.
type InsertResult struct {
	Status InsertStatus
	Record *PurchaseRecord
}

// Identity is the authenticated user as supplied by the identity provider.
// Only UserIdentifier matters to the purchase flow.
type Identity struct {
	UserIdentifier string `json:"user_identifier"`
	DisplayName    string `json:"display_name"`
	Email          string `json:"email"`
	AvatarURL      string `json:"avatar_url"`
}

// CheckoutRequest is the transient body of a checkout call.
type CheckoutRequest struct {
	ContentID   string      `json:"contentId" validate:"required"`
	Price       int64       `json:"price" validate:"gt=0"`
	Title       string      `json:"title" validate:"required"`
	ContentType ContentType `json:"contentType" validate:"required,oneof=article book"`
}

// Metadata keys attached to a payment session and echoed back on completion.
const (
	MetaUserIdentifier = "user-identifier"
	MetaContentID      = "content-id"
	MetaPrice          = "price"
	MetaVersion        = "version"

	MetadataVersion = "v1"
)

// PaymentSessionMetadata travels opaquely through the gateway.
type PaymentSessionMetadata struct {
	UserIdentifier string
	ContentID      string
	Price          string
	SchemaVersion  string
}

// NewSessionMetadata builds the metadata for a checkout at the current schema version.
func NewSessionMetadata(userIdentifier, contentID string, price int64) PaymentSessionMetadata {
	return PaymentSessionMetadata{
		UserIdentifier: userIdentifier,
		ContentID:      contentID,
		Price:          strconv.FormatInt(price, 10),
		SchemaVersion:  MetadataVersion,
	}
}

// Map renders the metadata in the gateway's key/value form.
func (m PaymentSessionMetadata) Map() map[string]string {
	return map[string]string{
		MetaUserIdentifier: m.UserIdentifier,
		MetaContentID:      m.ContentID,
		MetaPrice:          m.Price,
		MetaVersion:        m.SchemaVersion,
	}
}

// Amount parses Price. It only succeeds for non-negative integers.
func (m PaymentSessionMetadata) Amount() (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(m.Price), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: price %q", domain.ErrMalformedMetadata, m.Price)
	}
	return n, nil
}

// ParseSessionMetadata re-validates metadata echoed back by the gateway. The
// round trip is not trusted: every field is checked again.
func ParseSessionMetadata(raw map[string]string) (PaymentSessionMetadata, error) {
	if raw == nil {
		return PaymentSessionMetadata{}, fmt.Errorf("%w: metadata absent", domain.ErrMalformedMetadata)
	}
	m := PaymentSessionMetadata{
		UserIdentifier: strings.TrimSpace(raw[MetaUserIdentifier]),
		ContentID:      strings.TrimSpace(raw[MetaContentID]),
		Price:          raw[MetaPrice],
		SchemaVersion:  raw[MetaVersion],
	}
	if m.UserIdentifier == "" {
		return PaymentSessionMetadata{}, fmt.Errorf("%w: %s missing", domain.ErrMalformedMetadata, MetaUserIdentifier)
	}
	if m.ContentID == "" {
		return PaymentSessionMetadata{}, fmt.Errorf("%w: %s missing", domain.ErrMalformedMetadata, MetaContentID)
	}
	if _, err := m.Amount(); err != nil {
		return PaymentSessionMetadata{}, err
	}
	return m, nil
}

// PaymentStatusPaid is the only status that creates an entitlement.
const PaymentStatusPaid = "paid"

// EventTypeCheckoutCompleted is the completed-payment event type.
const EventTypeCheckoutCompleted = "checkout.session.completed"

// PaymentEvent is a verified inbound gateway event.
type PaymentEvent struct {
	ID                 string
	Type               string
	SessionID          string
	PaymentStatus      string
	PaymentReferenceID string            // optional
	Metadata           map[string]string // may be nil or malformed
}

// IsCompletedPayment reports whether the event is of the completed-payment type.
func (e *PaymentEvent) IsCompletedPayment() bool {
	return e != nil && e.Type == EventTypeCheckoutCompleted
}
