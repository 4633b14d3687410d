package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	registrationdomain "github.com/campbright/enroll/internal/registration/domain"
	"gorm.io/datatypes"
)

// EventRecord is the dedup ledger row for webhook deliveries. The unique
// (provider, provider_event_id) pair makes redelivery a no-op.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	RegistrationID  *snowflake.ID  `json:"registration_id"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

// Canonical event types parsed out of provider payloads.
const (
	EventTypeCheckoutCompleted = "checkout_completed"
	EventTypeCheckoutExpired   = "checkout_expired"
)

// Event is the canonical webhook event parsed by the gateway.
type Event struct {
	Provider        string
	ProviderEventID string
	Type            string
	SessionID       string
	RegistrationID  string
	Amount          int64
	Currency        string
	OccurredAt      time.Time
	RawPayload      []byte
}

// CheckoutSession is a provider-hosted payment page reference.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

type CreateSessionInput struct {
	RegistrationID string
	Amount         int64
	Currency       string
	Description    string
}

// Gateway is the payment-provider client. Implementations own transport
// timeouts; callers own no retries.
type Gateway interface {
	Provider() string
	CreateCheckoutSession(ctx context.Context, input CreateSessionInput) (CheckoutSession, error)

	// VerifyWebhook checks the signature over the raw, unparsed request
	// bytes. It must run before any JSON decoding of the payload.
	VerifyWebhook(payload []byte, signatureHeader string) error

	// ParseWebhook maps a verified payload to a canonical event.
	// Recognized-but-irrelevant event types yield ErrEventIgnored.
	ParseWebhook(payload []byte) (*Event, error)
}

type CheckoutSessionResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// StatusProjection is the read-only view clients poll after redirect.
type StatusProjection struct {
	PaymentStatus registrationdomain.PaymentStatus `json:"payment_status"`
	PaymentMethod registrationdomain.PaymentMethod `json:"payment_method"`
	PaymentID     *string                          `json:"payment_id"`
}

// ManualOverrideRequest mutates payment fields without guards. Nil fields
// are left untouched.
type ManualOverrideRequest struct {
	PaymentStatus *string `json:"payment_status"`
	PaymentID     *string `json:"payment_id"`
	PaymentMethod *string `json:"payment_method"`
}

type Service interface {
	CreateCheckoutSession(ctx context.Context, registrationID string) (CheckoutSessionResponse, error)
	ProcessMobileMoney(ctx context.Context, registrationID string, phone string) (registrationdomain.Registration, error)
	IngestWebhook(ctx context.Context, payload []byte, signatureHeader string) error
	PaymentStatus(ctx context.Context, registrationID string) (StatusProjection, error)
	ManualOverride(ctx context.Context, registrationID string, req ManualOverrideRequest) (registrationdomain.Registration, error)
}

var (
	ErrAlreadyPaid           = errors.New("already_paid")
	ErrMissingPhone          = errors.New("missing_phone")
	ErrInvalidStatus         = errors.New("invalid_payment_status")
	ErrInvalidMethod         = errors.New("invalid_payment_method")
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrInvalidPayload        = errors.New("invalid_payload")
	ErrInvalidEvent          = errors.New("invalid_event")
	ErrEventIgnored          = errors.New("event_ignored")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
	ErrGatewayUnavailable    = errors.New("gateway_unavailable")
)
