// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// HistoryRecord model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition. Records are append-only, so there is no
// update or delete here.
//
// Scoping: every query is filtered by (tenant, owner_id). The owner id is
// whatever the caller passes; verifying it is the caller's job.
//
// Functions:
//
//   - CreateHistory(ctx, db, rec) -> error
//     Inserts a record, assigning a UUID and UTC timestamps when missing.
//
//   - ListHistory(ctx, db, tenant, ownerID, limit) -> []domain.HistoryRecord, error
//     Returns the owner's records newest first; limit <= 0 means no limit.
//
//   - GetHistory(ctx, db, tenant, ownerID, id) -> *domain.HistoryRecord, error
//     Fetches one record owned by ownerID, or ErrNotFound.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-premium-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateHistory inserts rec. ID defaults to a random UUID and the
// timestamps are normalized to UTC.
func CreateHistory(ctx context.Context, db *gorm.DB, rec *domain.HistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Timestamp = rec.Timestamp.UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(rec).Error
}

// ListHistory returns the owner's records ordered by timestamp descending,
// newest first. Ties are broken by insertion time then id so the order is
// deterministic. An owner without records yields an empty, non-nil slice.
func ListHistory(ctx context.Context, db *gorm.DB, tenant, ownerID string, limit int) ([]domain.HistoryRecord, error) {
	out := []domain.HistoryRecord{}
	q := db.WithContext(ctx).
		Where("tenant = ? AND owner_id = ?", tenant, ownerID).
		Order("timestamp desc, created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// GetHistory fetches a single record by id scoped to its owner. If the
// record does not exist (or belongs to someone else) it returns ErrNotFound.
func GetHistory(ctx context.Context, db *gorm.DB, tenant, ownerID, id string) (*domain.HistoryRecord, error) {
	var rec domain.HistoryRecord
	err := db.WithContext(ctx).
		Where("tenant = ? AND owner_id = ? AND id = ?", tenant, ownerID, id).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
