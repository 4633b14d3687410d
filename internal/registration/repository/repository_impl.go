package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campbright/enroll/internal/registration/domain"
	pkgdb "github.com/campbright/enroll/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, registration *domain.Registration) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := claimPhone(tx, registration.ParentPhone, registration.ParentEmail, registration.CreatedAt); err != nil {
			return err
		}

		if err := tx.Exec(
			`INSERT INTO registrations (id, parent_name, parent_email, parent_phone, program_id,
				total_amount, currency, payment_method, payment_status, payment_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			registration.ID,
			registration.ParentName,
			registration.ParentEmail,
			registration.ParentPhone,
			registration.ProgramID,
			registration.TotalAmount,
			registration.Currency,
			registration.PaymentMethod,
			registration.PaymentStatus,
			registration.PaymentID,
			registration.CreatedAt,
			registration.UpdatedAt,
		).Error; err != nil {
			return err
		}

		for _, child := range registration.Children {
			if err := tx.Exec(
				`INSERT INTO registration_children (id, registration_id, name, age, time_slot,
					amount, program_name, position)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				child.ID,
				child.RegistrationID,
				child.Name,
				child.Age,
				child.TimeSlot,
				child.Amount,
				child.ProgramName,
				child.Position,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// claimPhone records the phone's owning email. The primary key on phone makes
// the phone-per-email invariant hold under concurrent creates; the service's
// read check only provides the friendlier early error.
func claimPhone(tx *gorm.DB, phone string, email string, now time.Time) error {
	err := tx.Exec(
		`INSERT INTO registration_phones (phone, email, created_at) VALUES (?, ?, ?)`,
		phone,
		email,
		now,
	).Error
	if err == nil {
		return nil
	}
	if !pkgdb.IsDuplicateKeyErr(err) {
		return err
	}

	var owner string
	if err := tx.Raw(
		`SELECT email FROM registration_phones WHERE phone = ?`,
		phone,
	).Scan(&owner).Error; err != nil {
		return err
	}
	if !strings.EqualFold(owner, email) {
		return domain.ErrPhoneInUse
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Registration, error) {
	var registration domain.Registration
	err := db.WithContext(ctx).Raw(
		`SELECT id, parent_name, parent_email, parent_phone, program_id, total_amount,
			currency, payment_method, payment_status, payment_id, created_at, updated_at
		 FROM registrations WHERE id = ?`,
		id,
	).Scan(&registration).Error
	if err != nil {
		return nil, err
	}
	if registration.ID == 0 {
		return nil, nil
	}
	return &registration, nil
}

func (r *repo) FindChildren(ctx context.Context, db *gorm.DB, registrationID snowflake.ID) ([]domain.Child, error) {
	var children []domain.Child
	err := db.WithContext(ctx).Raw(
		`SELECT id, registration_id, name, age, time_slot, amount, program_name, position
		 FROM registration_children
		 WHERE registration_id = ?
		 ORDER BY position ASC`,
		registrationID,
	).Scan(&children).Error
	if err != nil {
		return nil, err
	}
	return children, nil
}

func (r *repo) FindByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Registration, error) {
	var registration domain.Registration
	err := db.WithContext(ctx).Raw(
		`SELECT id, parent_name, parent_email, parent_phone, program_id, total_amount,
			currency, payment_method, payment_status, payment_id, created_at, updated_at
		 FROM registrations WHERE parent_phone = ?
		 ORDER BY created_at ASC
		 LIMIT 1`,
		phone,
	).Scan(&registration).Error
	if err != nil {
		return nil, err
	}
	if registration.ID == 0 {
		return nil, nil
	}
	return &registration, nil
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentID string, method domain.PaymentMethod, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE registrations
		 SET payment_status = ?, payment_id = ?, payment_method = ?, updated_at = ?
		 WHERE id = ? AND payment_status = ?`,
		domain.PaymentStatusCompleted,
		paymentID,
		method,
		now,
		id,
		domain.PaymentStatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, paymentID string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE registrations
		 SET payment_status = ?, payment_id = COALESCE(NULLIF(?, ''), payment_id), updated_at = ?
		 WHERE id = ? AND payment_status = ?`,
		domain.PaymentStatusFailed,
		paymentID,
		now,
		id,
		domain.PaymentStatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Override(ctx context.Context, db *gorm.DB, id snowflake.ID, fields domain.OverrideFields, now time.Time) error {
	updates := map[string]any{"updated_at": now}
	if fields.PaymentStatus != nil {
		updates["payment_status"] = *fields.PaymentStatus
	}
	if fields.PaymentID != nil {
		updates["payment_id"] = *fields.PaymentID
	}
	if fields.PaymentMethod != nil {
		updates["payment_method"] = *fields.PaymentMethod
	}

	return db.WithContext(ctx).
		Table("registrations").
		Where("id = ?", id).
		Updates(updates).Error
}
