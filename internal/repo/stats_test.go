package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-premium-backend/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestHistoryStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, _, err := HistoryStats(context.Background(), db, "app", "u1")
	if err == nil {
		t.Fatalf("expected error due to missing prediction_history table")
	}
}

func TestHistoryStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.HistoryRecord{})
	count, newest, err := HistoryStats(context.Background(), db, "app", "u1")
	if err != nil {
		t.Fatalf("HistoryStats error: %v", err)
	}
	if count != 0 || newest != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, newest)
	}
}

func TestHistoryStats_FilterAndNewest(t *testing.T) {
	db := newTestDB(t, &domain.HistoryRecord{})

	c1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	c2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // newest for u1
	c3 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)   // other owner
	c4 := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)   // other tenant

	seed := []domain.HistoryRecord{
		{ID: "a", Tenant: "app", OwnerID: "u1", Output: 1, Timestamp: c1, CreatedAt: c1},
		{ID: "b", Tenant: "app", OwnerID: "u1", Output: 2, Timestamp: c1, CreatedAt: c2},
		{ID: "c", Tenant: "app", OwnerID: "u2", Output: 3, Timestamp: c3, CreatedAt: c3},
		{ID: "d", Tenant: "other", OwnerID: "u1", Output: 4, Timestamp: c4, CreatedAt: c4},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed %s: %v", seed[i].ID, err)
		}
	}

	count, newest, err := HistoryStats(context.Background(), db, "app", "u1")
	if err != nil {
		t.Fatalf("HistoryStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count=2, got %d", count)
	}
	if newest == nil || !newest.Equal(c2) {
		t.Fatalf("expected newest=%v, got %v", c2, newest)
	}
}
