package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, program *Program) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Program, error)
	List(ctx context.Context, db *gorm.DB) ([]*Program, error)
	UpdateRates(ctx context.Context, db *gorm.DB, id snowflake.ID, rates RateTable) error
}
