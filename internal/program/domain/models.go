package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Program is a bookable program with a per-slot rate table.
// Amounts are minor currency units.
type Program struct {
	ID                     snowflake.ID `gorm:"primaryKey" json:"id"`
	Name                   string       `gorm:"not null" json:"name"`
	Description            string       `json:"description,omitempty"`
	Currency               string       `gorm:"not null" json:"currency"`
	HalfDayMorningAmount   int64        `gorm:"not null" json:"half_day_morning_amount"`
	HalfDayAfternoonAmount int64        `gorm:"not null" json:"half_day_afternoon_amount"`
	FullDayAmount          int64        `gorm:"not null" json:"full_day_amount"`
	CreatedAt              time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time    `gorm:"not null" json:"updated_at"`
}

func (Program) TableName() string { return "programs" }

// RateTable is the pricing snapshot source used by the fee calculator.
type RateTable struct {
	HalfDayMorning   int64
	HalfDayAfternoon int64
	FullDay          int64
}

func (p Program) Rates() RateTable {
	return RateTable{
		HalfDayMorning:   p.HalfDayMorningAmount,
		HalfDayAfternoon: p.HalfDayAfternoonAmount,
		FullDay:          p.FullDayAmount,
	}
}
