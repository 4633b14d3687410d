package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/campbright/enroll/internal/audit/domain"
	programdomain "github.com/campbright/enroll/internal/program/domain"
	"github.com/campbright/enroll/internal/registration/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	ProgramSvc programdomain.Service
	AuditSvc   auditdomain.Service
	Fallback   domain.SlotFallback `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	programSvc programdomain.Service
	auditSvc   auditdomain.Service
	fallback   domain.SlotFallback
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("registration.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		programSvc: p.ProgramSvc,
		auditSvc:   p.AuditSvc,
		fallback:   p.Fallback,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRegistrationRequest) (domain.Registration, error) {
	parentName := strings.TrimSpace(req.ParentName)
	if parentName == "" {
		return domain.Registration{}, domain.ErrInvalidParentName
	}
	email := strings.ToLower(strings.TrimSpace(req.ParentEmail))
	if email == "" || !strings.Contains(email, "@") {
		return domain.Registration{}, domain.ErrInvalidEmail
	}
	phone := strings.TrimSpace(req.ParentPhone)
	if phone == "" {
		return domain.Registration{}, domain.ErrInvalidPhone
	}
	if len(req.Children) == 0 {
		return domain.Registration{}, domain.ErrNoChildren
	}

	// A phone already associated with a different email is rejected.
	existing, err := s.repo.FindByPhone(ctx, s.db, phone)
	if err != nil {
		return domain.Registration{}, err
	}
	if existing != nil && !strings.EqualFold(existing.ParentEmail, email) {
		return domain.Registration{}, domain.ErrPhoneInUse
	}

	program, err := s.programSvc.GetByID(ctx, req.ProgramID)
	if err != nil {
		return domain.Registration{}, err
	}

	slots := make([]string, 0, len(req.Children))
	for _, child := range req.Children {
		if strings.TrimSpace(child.Name) == "" {
			return domain.Registration{}, domain.ErrInvalidChild
		}
		slots = append(slots, strings.TrimSpace(child.TimeSlot))
	}

	quote, err := domain.PriceQuote(slots, program.Rates(), s.fallback)
	if err != nil {
		return domain.Registration{}, err
	}

	now := time.Now().UTC()
	registration := domain.Registration{
		ID:            s.genID.Generate(),
		ParentName:    parentName,
		ParentEmail:   email,
		ParentPhone:   phone,
		ProgramID:     program.ID,
		TotalAmount:   quote.Total,
		Currency:      program.Currency,
		PaymentMethod: domain.PaymentMethodCard,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	children := make([]domain.Child, 0, len(req.Children))
	for i, child := range req.Children {
		children = append(children, domain.Child{
			ID:             s.genID.Generate(),
			RegistrationID: registration.ID,
			Name:           strings.TrimSpace(child.Name),
			Age:            child.Age,
			TimeSlot:       slots[i],
			Amount:         quote.PerChild[i],
			ProgramName:    program.Name,
			Position:       i,
		})
	}
	registration.Children = children

	if err := s.repo.Insert(ctx, s.db, &registration); err != nil {
		return domain.Registration{}, err
	}

	s.audit(ctx, "registration.created", registration.ID, map[string]any{
		"program_id":   program.ID.String(),
		"total_amount": registration.TotalAmount,
		"currency":     registration.Currency,
		"children":     len(children),
	})

	return registration, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Registration, error) {
	parsed, err := parseID(id)
	if err != nil {
		return domain.Registration{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Registration{}, err
	}
	if item == nil {
		return domain.Registration{}, domain.ErrNotFound
	}

	children, err := s.repo.FindChildren(ctx, s.db, item.ID)
	if err != nil {
		return domain.Registration{}, err
	}
	item.Children = children
	return *item, nil
}

func (s *Service) audit(ctx context.Context, action string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	target := targetID.String()
	if err := s.auditSvc.AuditLog(ctx, "system", "", action, "registration", &target, metadata); err != nil {
		s.log.Warn("failed to write registration audit log", zap.String("action", action), zap.Error(err))
	}
}

func parseID(raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, domain.ErrInvalidID
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
