package service_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/campbright/enroll/internal/audit/domain"
	"github.com/campbright/enroll/internal/audit/repository"
	"github.com/campbright/enroll/internal/audit/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBCounter int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:audit_svc_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE audit_logs (
		id INTEGER PRIMARY KEY,
		actor_type TEXT NOT NULL,
		actor_id TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT,
		metadata TEXT,
		created_at DATETIME NOT NULL
	)`).Error)
	return db
}

func newAuditService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(6)
	require.NoError(t, err)

	return service.NewService(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestAuditLogPersistsEntry(t *testing.T) {
	db := newTestDB(t)
	svc := newAuditService(t, db)

	target := "12345"
	err := svc.AuditLog(context.Background(), "admin", "ops-1", "payment.manual_override", "registration", &target, map[string]any{
		"payment_status": "completed",
	})
	require.NoError(t, err)

	var row struct {
		ActorType  string
		ActorID    string
		Action     string
		TargetType string
		TargetID   string
	}
	require.NoError(t, db.Raw(`SELECT actor_type, actor_id, action, target_type, target_id FROM audit_logs`).Scan(&row).Error)
	assert.Equal(t, "admin", row.ActorType)
	assert.Equal(t, "ops-1", row.ActorID)
	assert.Equal(t, "payment.manual_override", row.Action)
	assert.Equal(t, "registration", row.TargetType)
	assert.Equal(t, "12345", row.TargetID)
}

func TestAuditLogDefaultsActorType(t *testing.T) {
	db := newTestDB(t)
	svc := newAuditService(t, db)

	require.NoError(t, svc.AuditLog(context.Background(), "  ", "", "payment.completed", "registration", nil, nil))

	var actorType string
	require.NoError(t, db.Raw(`SELECT actor_type FROM audit_logs`).Scan(&actorType).Error)
	assert.Equal(t, "system", actorType)
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	db := newTestDB(t)
	svc := newAuditService(t, db)

	err := svc.AuditLog(context.Background(), "system", "", "   ", "registration", nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAction)
}
