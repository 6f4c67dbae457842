// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// append-only TrackingEvent log.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

// eventPrecision is the resolution at which event timestamps are stored.
// Both supported drivers keep at least microseconds.
const eventPrecision = time.Microsecond

// AppendEvent inserts ev into the shipment's log. If ev.Timestamp is zero it
// is set to now. The stored timestamp is strictly greater than every earlier
// event of the same shipment, so most-recent-first ordering never ties.
func AppendEvent(ctx context.Context, db *gorm.DB, ev *domain.TrackingEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC().Truncate(eventPrecision)

	last, err := latestEventTimestamp(ctx, db, ev.ShipmentID)
	if err != nil {
		return err
	}
	if last != nil && !ts.After(*last) {
		ts = last.Add(eventPrecision)
	}
	ev.Timestamp = ts

	return db.WithContext(ctx).Create(ev).Error
}

func latestEventTimestamp(ctx context.Context, db *gorm.DB, shipmentID string) (*time.Time, error) {
	var row domain.TrackingEvent
	err := db.WithContext(ctx).
		Select("timestamp").
		Where("shipment_id = ?", shipmentID).
		Order("timestamp DESC").
		Limit(1).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t := row.Timestamp.UTC()
	return &t, nil
}

// ListEventsByShipment returns the shipment's events, most recent first.
func ListEventsByShipment(ctx context.Context, db *gorm.DB, shipmentID string) ([]domain.TrackingEvent, error) {
	var out []domain.TrackingEvent
	err := db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("timestamp DESC, id DESC").
		Find(&out).Error
	return out, err
}

// CountEvents returns the number of events recorded for a shipment.
func CountEvents(ctx context.Context, db *gorm.DB, shipmentID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.TrackingEvent{}).
		Where("shipment_id = ?", shipmentID).
		Count(&n).Error
	return n, err
}

// LatestEvents returns the most recent event of each given shipment keyed by
// shipment id. Shipments without events are absent from the map.
func LatestEvents(ctx context.Context, db *gorm.DB, shipmentIDs []string) (map[string]domain.TrackingEvent, error) {
	out := make(map[string]domain.TrackingEvent, len(shipmentIDs))
	if len(shipmentIDs) == 0 {
		return out, nil
	}
	var rows []domain.TrackingEvent
	err := db.WithContext(ctx).
		Where("shipment_id IN ?", shipmentIDs).
		Order("shipment_id, timestamp DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	// rows are grouped by shipment with the newest first in each group
	for _, r := range rows {
		if _, seen := out[r.ShipmentID]; !seen {
			out[r.ShipmentID] = r
		}
	}
	return out, nil
}
