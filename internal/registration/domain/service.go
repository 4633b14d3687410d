package domain

import (
	"context"
	"errors"
)

type ChildSelection struct {
	Name     string `json:"name" binding:"required"`
	Age      int    `json:"age"`
	TimeSlot string `json:"time_slot" binding:"required"`
}

type CreateRegistrationRequest struct {
	ParentName  string           `json:"parent_name" binding:"required"`
	ParentEmail string           `json:"parent_email" binding:"required"`
	ParentPhone string           `json:"parent_phone" binding:"required"`
	ProgramID   string           `json:"program_id" binding:"required"`
	Children    []ChildSelection `json:"children" binding:"required"`
}

type Service interface {
	Create(ctx context.Context, req CreateRegistrationRequest) (Registration, error)
	GetByID(ctx context.Context, id string) (Registration, error)
}

var (
	ErrInvalidParentName = errors.New("invalid_parent_name")
	ErrInvalidEmail      = errors.New("invalid_parent_email")
	ErrInvalidPhone      = errors.New("invalid_parent_phone")
	ErrPhoneInUse        = errors.New("phone_in_use")
	ErrNoChildren        = errors.New("no_children")
	ErrInvalidChild      = errors.New("invalid_child")
	ErrInvalidTimeSlot   = errors.New("invalid_time_slot")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
)
