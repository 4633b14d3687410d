package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/campbright/enroll/internal/payment/domain"
	programdomain "github.com/campbright/enroll/internal/program/domain"
	registrationdomain "github.com/campbright/enroll/internal/registration/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePaymentService struct {
	ingestErr  error
	gotPayload []byte
	gotSig     string
}

func (f *fakePaymentService) CreateCheckoutSession(ctx context.Context, registrationID string) (paymentdomain.CheckoutSessionResponse, error) {
	return paymentdomain.CheckoutSessionResponse{}, registrationdomain.ErrNotFound
}

func (f *fakePaymentService) ProcessMobileMoney(ctx context.Context, registrationID string, phone string) (registrationdomain.Registration, error) {
	return registrationdomain.Registration{}, registrationdomain.ErrNotFound
}

func (f *fakePaymentService) IngestWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	f.gotPayload = append([]byte(nil), payload...)
	f.gotSig = signatureHeader
	return f.ingestErr
}

func (f *fakePaymentService) PaymentStatus(ctx context.Context, registrationID string) (paymentdomain.StatusProjection, error) {
	return paymentdomain.StatusProjection{}, registrationdomain.ErrNotFound
}

func (f *fakePaymentService) ManualOverride(ctx context.Context, registrationID string, req paymentdomain.ManualOverrideRequest) (registrationdomain.Registration, error) {
	return registrationdomain.Registration{}, registrationdomain.ErrNotFound
}

type stubRegistrationService struct{}

func (stubRegistrationService) Create(ctx context.Context, req registrationdomain.CreateRegistrationRequest) (registrationdomain.Registration, error) {
	return registrationdomain.Registration{}, registrationdomain.ErrNotFound
}

func (stubRegistrationService) GetByID(ctx context.Context, id string) (registrationdomain.Registration, error) {
	return registrationdomain.Registration{}, registrationdomain.ErrNotFound
}

type stubProgramService struct{}

func (stubProgramService) Create(ctx context.Context, req programdomain.CreateProgramRequest) (programdomain.Program, error) {
	return programdomain.Program{}, programdomain.ErrNotFound
}

func (stubProgramService) GetByID(ctx context.Context, id string) (programdomain.Program, error) {
	return programdomain.Program{}, programdomain.ErrNotFound
}

func (stubProgramService) List(ctx context.Context) ([]programdomain.Program, error) {
	return nil, nil
}

func (stubProgramService) UpdateRates(ctx context.Context, id string, req programdomain.UpdateRatesRequest) (programdomain.Program, error) {
	return programdomain.Program{}, programdomain.ErrNotFound
}

type stubAuditService struct{}

func (stubAuditService) AuditLog(ctx context.Context, actorType string, actorID string, action string, targetType string, targetID *string, metadata map[string]any) error {
	return nil
}

func newTestServer(t *testing.T, paymentSvc paymentdomain.Service) *Server {
	t.Helper()

	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	svc := &Server{
		engine:          engine,
		log:             zap.NewNop(),
		genID:           node,
		registrationSvc: stubRegistrationService{},
		programSvc:      stubProgramService{},
		paymentSvc:      paymentSvc,
	}
	svc.registerAPIRoutes()
	return svc
}

func TestWebhookHandlerPassesRawBodyAndSignature(t *testing.T) {
	paymentSvc := &fakePaymentService{}
	srv := newTestServer(t, paymentSvc)

	body := []byte(`{"id": "evt_1", "type": "checkout.session.completed"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()

	srv.Engine().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(paymentSvc.gotPayload, body) {
		t.Fatalf("handler must pass through raw body bytes, got %q", paymentSvc.gotPayload)
	}
	if paymentSvc.gotSig != "t=1,v1=abc" {
		t.Fatalf("unexpected signature header %q", paymentSvc.gotSig)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["received"] != true {
		t.Fatalf("expected received ack, got %v", resp)
	}
}

func TestWebhookHandlerRejectsInvalidSignature(t *testing.T) {
	paymentSvc := &fakePaymentService{ingestErr: paymentdomain.ErrInvalidSignature}
	srv := newTestServer(t, paymentSvc)

	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=wrong")
	rec := httptest.NewRecorder()

	srv.Engine().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCheckoutEndpointMapsNotFound(t *testing.T) {
	srv := newTestServer(t, &fakePaymentService{})

	req := httptest.NewRequest(http.MethodPost, "/api/payment/12345", nil)
	rec := httptest.NewRecorder()

	srv.Engine().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestManualOverrideRequiresBody(t *testing.T) {
	srv := newTestServer(t, &fakePaymentService{})

	req := httptest.NewRequest(http.MethodPut, "/api/payment/manual/12345", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Engine().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty override, got %d: %s", rec.Code, rec.Body.String())
	}
}
