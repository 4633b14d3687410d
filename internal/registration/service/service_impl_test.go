package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	programdomain "github.com/campbright/enroll/internal/program/domain"
	"github.com/campbright/enroll/internal/registration/domain"
	"github.com/campbright/enroll/internal/registration/repository"
	"github.com/campbright/enroll/internal/registration/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBCounter int64

var testSchema = []string{
	`CREATE TABLE registrations (
		id INTEGER PRIMARY KEY,
		parent_name TEXT NOT NULL,
		parent_email TEXT NOT NULL,
		parent_phone TEXT NOT NULL,
		program_id INTEGER NOT NULL,
		total_amount INTEGER NOT NULL,
		currency TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		payment_status TEXT NOT NULL DEFAULT 'pending',
		payment_id TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE registration_children (
		id INTEGER PRIMARY KEY,
		registration_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		age INTEGER NOT NULL DEFAULT 0,
		time_slot TEXT NOT NULL,
		amount INTEGER NOT NULL,
		program_name TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE registration_phones (
		phone TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:registration_svc_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range testSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

// fakePrograms serves a single in-memory program keyed by its string id.
type fakePrograms struct {
	program programdomain.Program
}

func (f *fakePrograms) Create(ctx context.Context, req programdomain.CreateProgramRequest) (programdomain.Program, error) {
	return programdomain.Program{}, errors.New("not implemented")
}

func (f *fakePrograms) GetByID(ctx context.Context, id string) (programdomain.Program, error) {
	if id != f.program.ID.String() {
		return programdomain.Program{}, programdomain.ErrNotFound
	}
	return f.program, nil
}

func (f *fakePrograms) List(ctx context.Context) ([]programdomain.Program, error) {
	return []programdomain.Program{f.program}, nil
}

func (f *fakePrograms) UpdateRates(ctx context.Context, id string, req programdomain.UpdateRatesRequest) (programdomain.Program, error) {
	return programdomain.Program{}, errors.New("not implemented")
}

type noopAudit struct{}

func (noopAudit) AuditLog(ctx context.Context, actorType string, actorID string, action string, targetType string, targetID *string, metadata map[string]any) error {
	return nil
}

type registrationFixture struct {
	db       *gorm.DB
	svc      domain.Service
	programs *fakePrograms
	node     *snowflake.Node
}

func newRegistrationFixture(t *testing.T, fallback domain.SlotFallback) *registrationFixture {
	t.Helper()

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	programs := &fakePrograms{
		program: programdomain.Program{
			ID:                     node.Generate(),
			Name:                   "Summer Camp",
			Currency:               "USD",
			HalfDayMorningAmount:   1500,
			HalfDayAfternoonAmount: 1500,
			FullDayAmount:          2500,
			CreatedAt:              time.Now().UTC(),
			UpdatedAt:              time.Now().UTC(),
		},
	}

	db := newTestDB(t)
	svc := service.New(service.Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       repository.Provide(),
		ProgramSvc: programs,
		AuditSvc:   noopAudit{},
		Fallback:   fallback,
	})

	return &registrationFixture{db: db, svc: svc, programs: programs, node: node}
}

func validRequest(programID string) domain.CreateRegistrationRequest {
	return domain.CreateRegistrationRequest{
		ParentName:  "Jordan Doe",
		ParentEmail: "Jordan@Example.com",
		ParentPhone: "+15550100",
		ProgramID:   programID,
		Children: []domain.ChildSelection{
			{Name: "Alex", Age: 7, TimeSlot: "morning"},
			{Name: "Sam", Age: 9, TimeSlot: "fullDay"},
		},
	}
}

func TestCreateRegistrationSnapshotsRates(t *testing.T) {
	f := newRegistrationFixture(t, nil)

	created, err := f.svc.Create(context.Background(), validRequest(f.programs.program.ID.String()))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if created.TotalAmount != 4000 {
		t.Fatalf("expected total 4000, got %d", created.TotalAmount)
	}
	if created.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("expected pending status, got %q", created.PaymentStatus)
	}
	if created.ParentEmail != "jordan@example.com" {
		t.Fatalf("expected lowercased email, got %q", created.ParentEmail)
	}
	if len(created.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(created.Children))
	}
	if created.Children[0].Amount != 1500 || created.Children[1].Amount != 2500 {
		t.Fatalf("unexpected child amounts: %+v", created.Children)
	}

	var sum int64
	for _, child := range created.Children {
		sum += child.Amount
	}
	if created.TotalAmount != sum {
		t.Fatalf("total %d does not equal child sum %d", created.TotalAmount, sum)
	}

	// Raising the rates afterwards must not touch the stored snapshot.
	f.programs.program.FullDayAmount = 9900
	reloaded, err := f.svc.GetByID(context.Background(), created.ID.String())
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if reloaded.TotalAmount != 4000 {
		t.Fatalf("rate edit leaked into stored total: %d", reloaded.TotalAmount)
	}
	if reloaded.Children[1].Amount != 2500 {
		t.Fatalf("rate edit leaked into stored child amount: %d", reloaded.Children[1].Amount)
	}
}

func TestCreateRegistrationValidation(t *testing.T) {
	f := newRegistrationFixture(t, nil)
	programID := f.programs.program.ID.String()

	cases := []struct {
		name    string
		mutate  func(*domain.CreateRegistrationRequest)
		wantErr error
	}{
		{"empty parent name", func(r *domain.CreateRegistrationRequest) { r.ParentName = "  " }, domain.ErrInvalidParentName},
		{"bad email", func(r *domain.CreateRegistrationRequest) { r.ParentEmail = "not-an-email" }, domain.ErrInvalidEmail},
		{"empty phone", func(r *domain.CreateRegistrationRequest) { r.ParentPhone = "" }, domain.ErrInvalidPhone},
		{"no children", func(r *domain.CreateRegistrationRequest) { r.Children = nil }, domain.ErrNoChildren},
		{"unnamed child", func(r *domain.CreateRegistrationRequest) { r.Children[0].Name = " " }, domain.ErrInvalidChild},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest(programID)
			tc.mutate(&req)
			if _, err := f.svc.Create(context.Background(), req); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateRegistrationUnknownProgram(t *testing.T) {
	f := newRegistrationFixture(t, nil)

	req := validRequest(f.node.Generate().String())
	if _, err := f.svc.Create(context.Background(), req); !errors.Is(err, programdomain.ErrNotFound) {
		t.Fatalf("expected program ErrNotFound, got %v", err)
	}
}

func TestCreateRegistrationPhoneGuard(t *testing.T) {
	f := newRegistrationFixture(t, nil)
	programID := f.programs.program.ID.String()

	if _, err := f.svc.Create(context.Background(), validRequest(programID)); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// Same phone with the same email is a resubmission, not a conflict.
	if _, err := f.svc.Create(context.Background(), validRequest(programID)); err != nil {
		t.Fatalf("resubmission with same email: %v", err)
	}

	conflicting := validRequest(programID)
	conflicting.ParentEmail = "someone.else@example.com"
	if _, err := f.svc.Create(context.Background(), conflicting); !errors.Is(err, domain.ErrPhoneInUse) {
		t.Fatalf("expected ErrPhoneInUse, got %v", err)
	}
}

func TestCreateRegistrationPhoneClaimBacksReadGuard(t *testing.T) {
	f := newRegistrationFixture(t, nil)

	// A concurrent create can claim the phone after our read check passes:
	// the claim row exists while no registration row does yet, so
	// FindByPhone sees nothing. The insert must still fail on the claim.
	if err := f.db.Exec(
		`INSERT INTO registration_phones (phone, email, created_at) VALUES (?, ?, ?)`,
		"+15550100", "rival@example.com", time.Now().UTC(),
	).Error; err != nil {
		t.Fatalf("seed phone claim: %v", err)
	}

	_, err := f.svc.Create(context.Background(), validRequest(f.programs.program.ID.String()))
	if !errors.Is(err, domain.ErrPhoneInUse) {
		t.Fatalf("expected ErrPhoneInUse from claim conflict, got %v", err)
	}

	var count int64
	if err := f.db.Raw(`SELECT COUNT(1) FROM registrations`).Scan(&count).Error; err != nil {
		t.Fatalf("count registrations: %v", err)
	}
	if count != 0 {
		t.Fatalf("conflicting create must not leave a registration row, got %d", count)
	}
}

func TestCreateRegistrationUnknownSlotFallsBackToFullDay(t *testing.T) {
	f := newRegistrationFixture(t, nil)

	req := validRequest(f.programs.program.ID.String())
	req.Children = []domain.ChildSelection{{Name: "Alex", TimeSlot: "eveningClub"}}

	created, err := f.svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.TotalAmount != 2500 {
		t.Fatalf("expected full-day fallback total 2500, got %d", created.TotalAmount)
	}
}

func TestCreateRegistrationStrictSlotPolicy(t *testing.T) {
	f := newRegistrationFixture(t, domain.RejectUnknownSlots)

	req := validRequest(f.programs.program.ID.String())
	req.Children = []domain.ChildSelection{{Name: "Alex", TimeSlot: "eveningClub"}}

	if _, err := f.svc.Create(context.Background(), req); !errors.Is(err, domain.ErrInvalidTimeSlot) {
		t.Fatalf("expected ErrInvalidTimeSlot, got %v", err)
	}
}

func TestGetRegistrationByID(t *testing.T) {
	f := newRegistrationFixture(t, nil)

	created, err := f.svc.Create(context.Background(), validRequest(f.programs.program.ID.String()))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	found, err := f.svc.GetByID(context.Background(), created.ID.String())
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if found.ID != created.ID || len(found.Children) != 2 {
		t.Fatalf("unexpected registration: %+v", found)
	}
	if found.Children[0].Position != 0 || found.Children[1].Position != 1 {
		t.Fatalf("children out of order: %+v", found.Children)
	}

	if _, err := f.svc.GetByID(context.Background(), "garbage"); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := f.svc.GetByID(context.Background(), f.node.Generate().String()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
