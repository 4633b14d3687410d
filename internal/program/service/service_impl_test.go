package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/campbright/enroll/internal/config"
	"github.com/campbright/enroll/internal/program/domain"
	"github.com/campbright/enroll/internal/program/repository"
	"github.com/campbright/enroll/internal/program/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBCounter int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:program_svc_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.Exec(`CREATE TABLE programs (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL,
		half_day_morning_amount INTEGER NOT NULL,
		half_day_afternoon_amount INTEGER NOT NULL,
		full_day_amount INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func newProgramService(t *testing.T) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	return service.New(service.Params{
		DB:    newTestDB(t),
		Log:   zap.NewNop(),
		GenID: node,
		Cfg:   config.Config{Currency: "USD"},
		Repo:  repository.Provide(),
	})
}

func TestCreateProgramDefaultsCurrency(t *testing.T) {
	svc := newProgramService(t)

	created, err := svc.Create(context.Background(), domain.CreateProgramRequest{
		Name:                   "Summer Camp",
		HalfDayMorningAmount:   1500,
		HalfDayAfternoonAmount: 1500,
		FullDayAmount:          2500,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if created.Currency != "USD" {
		t.Fatalf("expected default currency USD, got %q", created.Currency)
	}
	if created.ID == 0 {
		t.Fatal("expected generated id")
	}

	found, err := svc.GetByID(context.Background(), created.ID.String())
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if found.Rates() != (domain.RateTable{HalfDayMorning: 1500, HalfDayAfternoon: 1500, FullDay: 2500}) {
		t.Fatalf("unexpected rate table: %+v", found.Rates())
	}
}

func TestCreateProgramValidation(t *testing.T) {
	svc := newProgramService(t)

	if _, err := svc.Create(context.Background(), domain.CreateProgramRequest{Name: "  "}); !errors.Is(err, domain.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}

	if _, err := svc.Create(context.Background(), domain.CreateProgramRequest{
		Name:          "Camp",
		FullDayAmount: -1,
	}); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestUpdateRates(t *testing.T) {
	svc := newProgramService(t)

	created, err := svc.Create(context.Background(), domain.CreateProgramRequest{
		Name:                   "Summer Camp",
		Currency:               "eur",
		HalfDayMorningAmount:   1500,
		HalfDayAfternoonAmount: 1500,
		FullDayAmount:          2500,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.Currency != "EUR" {
		t.Fatalf("expected uppercased currency, got %q", created.Currency)
	}

	updated, err := svc.UpdateRates(context.Background(), created.ID.String(), domain.UpdateRatesRequest{
		HalfDayMorningAmount:   1800,
		HalfDayAfternoonAmount: 1600,
		FullDayAmount:          3000,
	})
	if err != nil {
		t.Fatalf("UpdateRates returned error: %v", err)
	}
	if updated.FullDayAmount != 3000 || updated.HalfDayMorningAmount != 1800 {
		t.Fatalf("rates not updated: %+v", updated)
	}

	if _, err := svc.UpdateRates(context.Background(), created.ID.String(), domain.UpdateRatesRequest{
		FullDayAmount: -5,
	}); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestGetProgramNotFound(t *testing.T) {
	svc := newProgramService(t)

	node, _ := snowflake.NewNode(4)
	if _, err := svc.GetByID(context.Background(), node.Generate().String()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetByID(context.Background(), "nope"); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}
