package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	default:
		return false
	}
}

type PaymentMethod string

const (
	PaymentMethodCard        PaymentMethod = "card"
	PaymentMethodMobileMoney PaymentMethod = "mobile_money"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodMobileMoney:
		return true
	default:
		return false
	}
}

// Registration is one submission enrolling one or more children in a program.
// TotalAmount always equals the sum of the children's snapshot amounts.
type Registration struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	ParentName    string        `gorm:"not null" json:"parent_name"`
	ParentEmail   string        `gorm:"not null;index" json:"parent_email"`
	ParentPhone   string        `gorm:"not null;index" json:"parent_phone"`
	ProgramID     snowflake.ID  `gorm:"not null;index" json:"program_id"`
	TotalAmount   int64         `gorm:"not null" json:"total_amount"`
	Currency      string        `gorm:"not null" json:"currency"`
	PaymentMethod PaymentMethod `gorm:"not null" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"not null" json:"payment_status"`
	PaymentID     *string       `json:"payment_id,omitempty"`
	CreatedAt     time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null" json:"updated_at"`

	Children []Child `gorm:"-" json:"children,omitempty"`
}

func (Registration) TableName() string { return "registrations" }

// Child carries the per-child amount snapshot taken from the program's rate
// table at registration-creation time. Later rate edits never change it.
type Child struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	RegistrationID snowflake.ID `gorm:"not null;index" json:"registration_id"`
	Name           string       `gorm:"not null" json:"name"`
	Age            int          `json:"age"`
	TimeSlot       string       `gorm:"not null" json:"time_slot"`
	Amount         int64        `gorm:"not null" json:"amount"`
	ProgramName    string       `json:"program_name"`
	Position       int          `gorm:"not null" json:"position"`
}

func (Child) TableName() string { return "registration_children" }
