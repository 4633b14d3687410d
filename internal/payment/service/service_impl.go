package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/campbright/enroll/internal/audit/domain"
	obsmetrics "github.com/campbright/enroll/internal/observability/metrics"
	paymentdomain "github.com/campbright/enroll/internal/payment/domain"
	"github.com/campbright/enroll/internal/providers/email"
	registrationdomain "github.com/campbright/enroll/internal/registration/domain"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       paymentdomain.Repository
	RegRepo    registrationdomain.Repository
	Gateway    paymentdomain.Gateway
	Email      email.Provider
	AuditSvc   auditdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       paymentdomain.Repository
	regRepo    registrationdomain.Repository
	gateway    paymentdomain.Gateway
	email      email.Provider
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		regRepo:    p.RegRepo,
		gateway:    p.Gateway,
		email:      p.Email,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) CreateCheckoutSession(ctx context.Context, registrationID string) (paymentdomain.CheckoutSessionResponse, error) {
	registration, err := s.loadRegistration(ctx, registrationID)
	if err != nil {
		return paymentdomain.CheckoutSessionResponse{}, err
	}
	if registration.PaymentStatus == registrationdomain.PaymentStatusCompleted {
		return paymentdomain.CheckoutSessionResponse{}, paymentdomain.ErrAlreadyPaid
	}

	children, err := s.regRepo.FindChildren(ctx, s.db, registration.ID)
	if err != nil {
		return paymentdomain.CheckoutSessionResponse{}, err
	}
	description := sessionDescription(children)

	session, err := s.gateway.CreateCheckoutSession(ctx, paymentdomain.CreateSessionInput{
		RegistrationID: registration.ID.String(),
		Amount:         registration.TotalAmount,
		Currency:       registration.Currency,
		Description:    description,
	})
	if err != nil {
		s.log.Error("checkout session creation failed",
			zap.String("registration_id", registration.ID.String()),
			zap.Error(err),
		)
		return paymentdomain.CheckoutSessionResponse{}, paymentdomain.ErrGatewayUnavailable
	}

	// The registration is not mutated here. Status stays pending until the
	// provider confirms through the webhook.
	s.audit(ctx, "payment.checkout_session_created", "system", registration.ID, map[string]any{
		"session_id": session.ID,
		"amount":     registration.TotalAmount,
		"currency":   registration.Currency,
	})

	return paymentdomain.CheckoutSessionResponse{
		SessionID:   session.ID,
		RedirectURL: session.RedirectURL,
	}, nil
}

func (s *Service) ProcessMobileMoney(ctx context.Context, registrationID string, phone string) (registrationdomain.Registration, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return registrationdomain.Registration{}, paymentdomain.ErrMissingPhone
	}

	registration, err := s.loadRegistration(ctx, registrationID)
	if err != nil {
		return registrationdomain.Registration{}, err
	}
	if registration.PaymentStatus == registrationdomain.PaymentStatusCompleted {
		return registrationdomain.Registration{}, paymentdomain.ErrAlreadyPaid
	}

	paymentID := "mm_" + uuid.NewString()
	now := time.Now().UTC()
	changed, err := s.regRepo.MarkCompleted(ctx, s.db, registration.ID, paymentID, registrationdomain.PaymentMethodMobileMoney, now)
	if err != nil {
		return registrationdomain.Registration{}, err
	}
	if !changed {
		// Lost the race against another writer.
		current, err := s.regRepo.FindByID(ctx, s.db, registration.ID)
		if err != nil {
			return registrationdomain.Registration{}, err
		}
		if current != nil && current.PaymentStatus == registrationdomain.PaymentStatusCompleted {
			return registrationdomain.Registration{}, paymentdomain.ErrAlreadyPaid
		}
		return registrationdomain.Registration{}, paymentdomain.ErrInvalidStatus
	}

	s.recordTransition("mobile_money", string(registrationdomain.PaymentStatusCompleted))
	s.audit(ctx, "payment.completed", "system", registration.ID, map[string]any{
		"channel":    "mobile_money",
		"payment_id": paymentID,
		"phone":      phone,
		"amount":     registration.TotalAmount,
		"currency":   registration.Currency,
	})

	updated, err := s.regRepo.FindByID(ctx, s.db, registration.ID)
	if err != nil || updated == nil {
		return registrationdomain.Registration{}, errors.New("registration_reload_failed")
	}
	children, err := s.regRepo.FindChildren(ctx, s.db, updated.ID)
	if err == nil {
		updated.Children = children
	}

	s.sendConfirmationEmail(ctx, updated)
	return *updated, nil
}

// IngestWebhook verifies the signature over the raw payload, then applies
// the event. Once the signature has passed, internal reconciliation problems
// are logged and swallowed so the provider's retry loop is keyed only on
// delivery (and signature) failures.
func (s *Service) IngestWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	if err := s.gateway.VerifyWebhook(payload, signatureHeader); err != nil {
		s.log.Warn("webhook signature verification failed",
			zap.String("provider", s.gateway.Provider()),
			zap.Int("payload_bytes", len(payload)),
		)
		s.recordWebhook("signature_failure")
		return paymentdomain.ErrInvalidSignature
	}

	event, err := s.gateway.ParseWebhook(payload)
	if err != nil {
		switch {
		case errors.Is(err, paymentdomain.ErrEventIgnored):
			s.recordWebhook("ignored")
			return nil
		case errors.Is(err, paymentdomain.ErrInvalidEvent):
			// A recognized event type with a malformed object. Retrying the
			// identical payload can never succeed, so acknowledge it.
			s.log.Warn("webhook event malformed",
				zap.String("provider", s.gateway.Provider()),
				zap.Int("payload_bytes", len(payload)),
			)
			s.recordWebhook("invalid_event")
			return nil
		default:
			s.recordWebhook("invalid_payload")
			return err
		}
	}

	if err := s.reconcile(ctx, event, payload); err != nil {
		if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
			s.recordWebhook("duplicate")
			return nil
		}
		s.log.Error("webhook reconciliation failed",
			zap.String("provider", event.Provider),
			zap.String("provider_event_id", event.ProviderEventID),
			zap.Error(err),
		)
		s.recordWebhook("error")
		return nil
	}

	s.recordWebhook("processed")
	return nil
}

func (s *Service) reconcile(ctx context.Context, event *paymentdomain.Event, payload []byte) error {
	if event == nil {
		return paymentdomain.ErrInvalidEvent
	}

	now := time.Now().UTC()
	received := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}
	if id, err := snowflake.ParseString(event.RegistrationID); err == nil && event.RegistrationID != "" {
		received.RegistrationID = &id
	}

	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return paymentdomain.ErrInvalidEvent
		}
		if stored.ProcessedAt != nil {
			return paymentdomain.ErrEventAlreadyProcessed
		}
	}

	if err := s.applyEvent(ctx, event, now); err != nil {
		return err
	}

	return s.repo.MarkProcessed(ctx, s.db, stored.ID, now)
}

func (s *Service) applyEvent(ctx context.Context, event *paymentdomain.Event, now time.Time) error {
	if event.RegistrationID == "" {
		// Possibly an event for another system sharing the provider account.
		s.log.Info("webhook event carries no registration metadata",
			zap.String("provider_event_id", event.ProviderEventID),
			zap.String("event_type", event.Type),
		)
		return nil
	}

	registrationID, err := snowflake.ParseString(event.RegistrationID)
	if err != nil {
		s.log.Warn("webhook event carries unparseable registration metadata",
			zap.String("provider_event_id", event.ProviderEventID),
			zap.String("registration_id", event.RegistrationID),
		)
		return nil
	}

	registration, err := s.regRepo.FindByID(ctx, s.db, registrationID)
	if err != nil {
		return err
	}
	if registration == nil {
		// Retrying an unknown id is never useful; acknowledge and move on.
		s.log.Warn("webhook references unknown registration",
			zap.String("provider_event_id", event.ProviderEventID),
			zap.String("registration_id", event.RegistrationID),
		)
		return nil
	}

	switch event.Type {
	case paymentdomain.EventTypeCheckoutCompleted:
		return s.settleCheckout(ctx, registration, event, now)
	case paymentdomain.EventTypeCheckoutExpired:
		return s.expireCheckout(ctx, registration, event, now)
	default:
		return paymentdomain.ErrInvalidEvent
	}
}

func (s *Service) settleCheckout(ctx context.Context, registration *registrationdomain.Registration, event *paymentdomain.Event, now time.Time) error {
	changed, err := s.regRepo.MarkCompleted(ctx, s.db, registration.ID, event.SessionID, registrationdomain.PaymentMethodCard, now)
	if err != nil {
		return err
	}
	if !changed {
		current, err := s.regRepo.FindByID(ctx, s.db, registration.ID)
		if err != nil {
			return err
		}
		if current != nil && current.PaymentStatus == registrationdomain.PaymentStatusCompleted {
			if current.PaymentID == nil || *current.PaymentID != event.SessionID {
				s.log.Warn("completed registration confirmed with a different payment reference",
					zap.String("registration_id", registration.ID.String()),
					zap.String("session_id", event.SessionID),
				)
			}
			// Idempotent redelivery; no state change, no email.
			return nil
		}
		s.log.Warn("checkout confirmation arrived for a non-pending registration",
			zap.String("registration_id", registration.ID.String()),
		)
		return nil
	}

	s.recordTransition("card", string(registrationdomain.PaymentStatusCompleted))
	s.audit(ctx, "payment.completed", "system", registration.ID, map[string]any{
		"channel":           "card",
		"payment_id":        event.SessionID,
		"provider_event_id": event.ProviderEventID,
		"amount":            event.Amount,
		"currency":          event.Currency,
	})

	updated, err := s.regRepo.FindByID(ctx, s.db, registration.ID)
	if err == nil && updated != nil {
		s.sendConfirmationEmail(ctx, updated)
	}
	return nil
}

func (s *Service) expireCheckout(ctx context.Context, registration *registrationdomain.Registration, event *paymentdomain.Event, now time.Time) error {
	changed, err := s.regRepo.MarkFailed(ctx, s.db, registration.ID, event.SessionID, now)
	if err != nil {
		return err
	}
	if !changed {
		// Completed registrations are never demoted by a stale expiry.
		return nil
	}

	s.recordTransition("card", string(registrationdomain.PaymentStatusFailed))
	s.audit(ctx, "payment.failed", "system", registration.ID, map[string]any{
		"channel":           "card",
		"provider_event_id": event.ProviderEventID,
		"session_id":        event.SessionID,
	})
	return nil
}

func (s *Service) PaymentStatus(ctx context.Context, registrationID string) (paymentdomain.StatusProjection, error) {
	registration, err := s.loadRegistration(ctx, registrationID)
	if err != nil {
		return paymentdomain.StatusProjection{}, err
	}
	return paymentdomain.StatusProjection{
		PaymentStatus: registration.PaymentStatus,
		PaymentMethod: registration.PaymentMethod,
		PaymentID:     registration.PaymentID,
	}, nil
}

func (s *Service) ManualOverride(ctx context.Context, registrationID string, req paymentdomain.ManualOverrideRequest) (registrationdomain.Registration, error) {
	registration, err := s.loadRegistration(ctx, registrationID)
	if err != nil {
		return registrationdomain.Registration{}, err
	}

	fields := registrationdomain.OverrideFields{}
	if req.PaymentStatus != nil {
		status := registrationdomain.PaymentStatus(strings.TrimSpace(*req.PaymentStatus))
		if !status.Valid() {
			return registrationdomain.Registration{}, paymentdomain.ErrInvalidStatus
		}
		fields.PaymentStatus = &status
	}
	if req.PaymentMethod != nil {
		method := registrationdomain.PaymentMethod(strings.TrimSpace(*req.PaymentMethod))
		if !method.Valid() {
			return registrationdomain.Registration{}, paymentdomain.ErrInvalidMethod
		}
		fields.PaymentMethod = &method
	}
	if req.PaymentID != nil {
		paymentID := strings.TrimSpace(*req.PaymentID)
		fields.PaymentID = &paymentID
	}

	now := time.Now().UTC()
	if err := s.regRepo.Override(ctx, s.db, registration.ID, fields, now); err != nil {
		return registrationdomain.Registration{}, err
	}

	metadata := map[string]any{
		"previous_status": string(registration.PaymentStatus),
	}
	if fields.PaymentStatus != nil {
		metadata["payment_status"] = string(*fields.PaymentStatus)
		s.recordTransition("manual", string(*fields.PaymentStatus))
	}
	if fields.PaymentID != nil {
		metadata["payment_id"] = *fields.PaymentID
	}
	if fields.PaymentMethod != nil {
		metadata["payment_method"] = string(*fields.PaymentMethod)
	}
	s.audit(ctx, "payment.manual_override", "admin", registration.ID, metadata)

	updated, err := s.regRepo.FindByID(ctx, s.db, registration.ID)
	if err != nil || updated == nil {
		return registrationdomain.Registration{}, errors.New("registration_reload_failed")
	}
	children, err := s.regRepo.FindChildren(ctx, s.db, updated.ID)
	if err == nil {
		updated.Children = children
	}
	return *updated, nil
}

func (s *Service) loadRegistration(ctx context.Context, raw string) (*registrationdomain.Registration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, registrationdomain.ErrNotFound
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return nil, registrationdomain.ErrNotFound
	}

	registration, err := s.regRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if registration == nil {
		return nil, registrationdomain.ErrNotFound
	}
	return registration, nil
}

// sendConfirmationEmail is best effort. Failures are logged and never
// propagated; the payment state is already committed by the time this runs.
func (s *Service) sendConfirmationEmail(ctx context.Context, registration *registrationdomain.Registration) {
	if s.email == nil || registration == nil {
		return
	}

	subject := "Registration payment confirmed"
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your payment of %s %s has been received. Your registration is confirmed.</p>",
		registration.ParentName,
		formatAmount(registration.TotalAmount),
		registration.Currency,
	)
	if err := s.email.Send(ctx, []string{registration.ParentEmail}, subject, body); err != nil {
		s.log.Warn("confirmation email delivery failed",
			zap.String("registration_id", registration.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) audit(ctx context.Context, action string, actorType string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	target := targetID.String()
	if err := s.auditSvc.AuditLog(ctx, actorType, "", action, "registration", &target, metadata); err != nil {
		s.log.Warn("failed to write payment audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) recordTransition(channel string, status string) {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordPaymentTransition(channel, status)
	}
}

func (s *Service) recordWebhook(outcome string) {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordWebhookEvent(s.gateway.Provider(), outcome)
	}
}

func sessionDescription(children []registrationdomain.Child) string {
	if len(children) == 0 {
		return "Program registration"
	}
	name := strings.TrimSpace(children[0].ProgramName)
	if name == "" {
		return "Program registration"
	}
	if len(children) == 1 {
		return fmt.Sprintf("%s - 1 child", name)
	}
	return fmt.Sprintf("%s - %d children", name, len(children))
}

func formatAmount(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}
