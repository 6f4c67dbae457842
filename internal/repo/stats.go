// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

// ShipmentsStats returns the number of shipments matching search and the
// greatest UpdatedAt among them. maxUpdatedAt is nil when nothing matches.
//
// Any tracking update bumps UpdatedAt, so (count, maxUpdatedAt) changes
// whenever a listed row changes.
func ShipmentsStats(ctx context.Context, db *gorm.DB, search string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := applySearch(db.WithContext(ctx).Model(&domain.Shipment{}), search)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	q = applySearch(db.WithContext(ctx).Model(&domain.Shipment{}), search)
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
