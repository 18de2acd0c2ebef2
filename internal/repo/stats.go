// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the aggregate query used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-premium-backend/internal/domain"
)

// HistoryStats returns aggregate metadata for an owner's history: the total
// number of records and the newest CreatedAt among them.
//
// Records are immutable, so (count, newest created_at) changes whenever the
// list does. When the owner has no records, count is 0 and newest is nil.
func HistoryStats(ctx context.Context, db *gorm.DB, tenant, ownerID string) (count int64, newest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.HistoryRecord{}).Where("tenant = ? AND owner_id = ?", tenant, ownerID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
