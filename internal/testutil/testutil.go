// Package testutil provides an in-memory database and seed helpers shared by
// the repo and service tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/piyingxi/shadowplay-backend/internal/db"
	"github.com/piyingxi/shadowplay-backend/internal/logger"
)

var dbSeq atomic.Int64

// DB opens a fresh in-memory sqlite database migrated with every model. Each
// call gets its own database, so tests never share state.
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// One connection keeps the memory database alive and serializes access.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := gdb.AutoMigrate(db.AllModels()...); err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}
	return gdb
}

// Logger returns a development logger for tests.
func Logger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	return log
}
