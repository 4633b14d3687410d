package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campbright/enroll/internal/program/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, program *domain.Program) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO programs (id, name, description, currency, half_day_morning_amount,
			half_day_afternoon_amount, full_day_amount, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		program.ID,
		program.Name,
		program.Description,
		program.Currency,
		program.HalfDayMorningAmount,
		program.HalfDayAfternoonAmount,
		program.FullDayAmount,
		program.CreatedAt,
		program.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Program, error) {
	var program domain.Program
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, description, currency, half_day_morning_amount,
			half_day_afternoon_amount, full_day_amount, created_at, updated_at
		 FROM programs WHERE id = ?`,
		id,
	).Scan(&program).Error
	if err != nil {
		return nil, err
	}
	if program.ID == 0 {
		return nil, nil
	}
	return &program, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Program, error) {
	var programs []*domain.Program
	err := db.WithContext(ctx).
		Model(&domain.Program{}).
		Order("created_at desc, id desc").
		Find(&programs).Error
	if err != nil {
		return nil, err
	}
	return programs, nil
}

func (r *repo) UpdateRates(ctx context.Context, db *gorm.DB, id snowflake.ID, rates domain.RateTable) error {
	return db.WithContext(ctx).Exec(
		`UPDATE programs
		 SET half_day_morning_amount = ?, half_day_afternoon_amount = ?, full_day_amount = ?, updated_at = ?
		 WHERE id = ?`,
		rates.HalfDayMorning,
		rates.HalfDayAfternoon,
		rates.FullDay,
		time.Now().UTC(),
		id,
	).Error
}
