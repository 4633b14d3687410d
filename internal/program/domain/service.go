package domain

import (
	"context"
	"errors"
)

type CreateProgramRequest struct {
	Name                   string `json:"name" binding:"required"`
	Description            string `json:"description"`
	Currency               string `json:"currency"`
	HalfDayMorningAmount   int64  `json:"half_day_morning_amount"`
	HalfDayAfternoonAmount int64  `json:"half_day_afternoon_amount"`
	FullDayAmount          int64  `json:"full_day_amount"`
}

type UpdateRatesRequest struct {
	HalfDayMorningAmount   int64 `json:"half_day_morning_amount"`
	HalfDayAfternoonAmount int64 `json:"half_day_afternoon_amount"`
	FullDayAmount          int64 `json:"full_day_amount"`
}

type Service interface {
	Create(ctx context.Context, req CreateProgramRequest) (Program, error)
	GetByID(ctx context.Context, id string) (Program, error)
	List(ctx context.Context) ([]Program, error)
	UpdateRates(ctx context.Context, id string, req UpdateRatesRequest) (Program, error)
}

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
)
