package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/campbright/enroll/internal/config"
	"github.com/campbright/enroll/internal/payment/domain"
)

// Client talks to a Stripe-compatible hosted checkout API and verifies
// its webhook signatures.
type Client struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	successURL    string
	cancelURL     string
	client        *http.Client
}

func New(cfg config.GatewayConfig) *Client {
	return &Client{
		baseURL:       strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:        strings.TrimSpace(cfg.APIKey),
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		client:        &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *Client) Provider() string { return "stripe" }

type checkoutSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type gatewayErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) CreateCheckoutSession(ctx context.Context, input domain.CreateSessionInput) (domain.CheckoutSession, error) {
	if c.apiKey == "" {
		return domain.CheckoutSession{}, errors.New("gateway_api_key_missing")
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = "Program registration"
	}

	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("success_url", c.successURL)
	values.Set("cancel_url", c.cancelURL)
	values.Set("line_items[0][quantity]", "1")
	values.Set("line_items[0][price_data][currency]", strings.ToLower(input.Currency))
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(input.Amount, 10))
	values.Set("line_items[0][price_data][product_data][name]", description)
	values.Set("metadata[registration_id]", input.RegistrationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", strings.NewReader(values.Encode()))
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", "registration:"+input.RegistrationID)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var gatewayErr gatewayErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&gatewayErr); err != nil {
			return domain.CheckoutSession{}, errors.New("gateway_request_failed")
		}
		message := strings.TrimSpace(gatewayErr.Error.Message)
		if message == "" {
			message = "gateway_request_failed"
		}
		return domain.CheckoutSession{}, errors.New(message)
	}

	var session checkoutSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return domain.CheckoutSession{}, err
	}
	if session.ID == "" || session.URL == "" {
		return domain.CheckoutSession{}, errors.New("gateway_response_invalid")
	}

	return domain.CheckoutSession{ID: session.ID, RedirectURL: session.URL}, nil
}

// VerifyWebhook checks the t=<ts>,v1=<hmac> signature scheme over the raw
// payload bytes. Decoding and re-serializing before verification would
// produce signature mismatches, so callers must pass transport bytes as-is.
func (c *Client) VerifyWebhook(payload []byte, signatureHeader string) error {
	if c.webhookSecret == "" {
		return domain.ErrInvalidSignature
	}
	sigHeader := strings.TrimSpace(signatureHeader)
	if sigHeader == "" {
		return domain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return domain.ErrInvalidSignature
}

type webhookEvent struct {
	ID      string           `json:"id"`
	Type    string           `json:"type"`
	Created int64            `json:"created"`
	Data    webhookEventData `json:"data"`
}

type webhookEventData struct {
	Object json.RawMessage `json:"object"`
}

type checkoutSessionObject struct {
	ID          string            `json:"id"`
	AmountTotal int64             `json:"amount_total"`
	Currency    string            `json:"currency"`
	Created     int64             `json:"created"`
	Metadata    map[string]string `json:"metadata"`
}

func (c *Client) ParseWebhook(payload []byte) (*domain.Event, error) {
	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	var eventType string
	switch strings.TrimSpace(event.Type) {
	case "checkout.session.completed":
		eventType = domain.EventTypeCheckoutCompleted
	case "checkout.session.expired":
		eventType = domain.EventTypeCheckoutExpired
	default:
		return nil, domain.ErrEventIgnored
	}

	var session checkoutSessionObject
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	return &domain.Event{
		Provider:        c.Provider(),
		ProviderEventID: event.ID,
		Type:            eventType,
		SessionID:       session.ID,
		RegistrationID:  strings.TrimSpace(session.Metadata["registration_id"]),
		Amount:          session.AmountTotal,
		Currency:        strings.ToUpper(strings.TrimSpace(session.Currency)),
		OccurredAt:      timestamp(session.Created, event.Created),
		RawPayload:      payload,
	}, nil
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}
