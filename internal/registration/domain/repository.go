package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// OverrideFields is the admin-trusted partial mutation applied without
// state-machine guards. Nil fields are left untouched.
type OverrideFields struct {
	PaymentStatus *PaymentStatus
	PaymentID     *string
	PaymentMethod *PaymentMethod
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, registration *Registration) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Registration, error)
	FindChildren(ctx context.Context, db *gorm.DB, registrationID snowflake.ID) ([]Child, error)
	FindByPhone(ctx context.Context, db *gorm.DB, phone string) (*Registration, error)

	// MarkCompleted transitions pending -> completed in a single conditional
	// update. It reports whether the row actually changed, so callers can
	// gate side effects on genuinely new transitions.
	MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentID string, method PaymentMethod, now time.Time) (bool, error)

	// MarkFailed transitions pending -> failed. Completed rows are never demoted.
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentID string, now time.Time) (bool, error)

	// Override applies fields unconditionally.
	Override(ctx context.Context, db *gorm.DB, id snowflake.ID, fields OverrideFields, now time.Time) error
}
