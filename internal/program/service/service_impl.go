package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campbright/enroll/internal/config"
	"github.com/campbright/enroll/internal/program/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Cfg   config.Config
	Repo  domain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	currency string
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("program.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		currency: p.Cfg.Currency,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProgramRequest) (domain.Program, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Program{}, domain.ErrInvalidName
	}
	if req.HalfDayMorningAmount < 0 || req.HalfDayAfternoonAmount < 0 || req.FullDayAmount < 0 {
		return domain.Program{}, domain.ErrInvalidAmount
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency
	}

	now := time.Now().UTC()
	program := domain.Program{
		ID:                     s.genID.Generate(),
		Name:                   name,
		Description:            strings.TrimSpace(req.Description),
		Currency:               currency,
		HalfDayMorningAmount:   req.HalfDayMorningAmount,
		HalfDayAfternoonAmount: req.HalfDayAfternoonAmount,
		FullDayAmount:          req.FullDayAmount,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := s.repo.Insert(ctx, s.db, &program); err != nil {
		return domain.Program{}, err
	}
	return program, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Program, error) {
	parsed, err := parseID(id)
	if err != nil {
		return domain.Program{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Program{}, err
	}
	if item == nil {
		return domain.Program{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Program, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	programs := make([]domain.Program, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		programs = append(programs, *item)
	}
	return programs, nil
}

func (s *Service) UpdateRates(ctx context.Context, id string, req domain.UpdateRatesRequest) (domain.Program, error) {
	parsed, err := parseID(id)
	if err != nil {
		return domain.Program{}, err
	}
	if req.HalfDayMorningAmount < 0 || req.HalfDayAfternoonAmount < 0 || req.FullDayAmount < 0 {
		return domain.Program{}, domain.ErrInvalidAmount
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Program{}, err
	}
	if item == nil {
		return domain.Program{}, domain.ErrNotFound
	}

	rates := domain.RateTable{
		HalfDayMorning:   req.HalfDayMorningAmount,
		HalfDayAfternoon: req.HalfDayAfternoonAmount,
		FullDay:          req.FullDayAmount,
	}
	if err := s.repo.UpdateRates(ctx, s.db, parsed, rates); err != nil {
		return domain.Program{}, err
	}

	updated, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Program{}, err
	}
	if updated == nil {
		return domain.Program{}, domain.ErrNotFound
	}
	return *updated, nil
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
