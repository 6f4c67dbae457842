// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Shipment
// and Sender models.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a shipment is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - A unique violation on tracking_id is reported as ErrDuplicate.
//   - A failed compare-and-swap on Shipment.Version is ErrVersionConflict.
//   - On other DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrVersionConflict is returned when a shipment changed between read and write.
var ErrVersionConflict = errors.New("shipment version conflict")

// CreateSender inserts a sender row, assigning an ID and CreatedAt when unset.
func CreateSender(ctx context.Context, db *gorm.DB, s *domain.Sender) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(s).Error
}

// GetSenderByID fetches a sender row.
func GetSenderByID(ctx context.Context, db *gorm.DB, id string) (*domain.Sender, error) {
	var s domain.Sender
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateShipment inserts a shipment row. Associations are not written.
// A duplicate tracking id yields ErrDuplicate.
func CreateShipment(ctx context.Context, db *gorm.DB, s *domain.Shipment) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = s.CreatedAt
	if s.Version == 0 {
		s.Version = 1
	}
	if err := db.WithContext(ctx).Omit("Sender", "Events").Create(s).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// TrackingIDExists reports whether a shipment already uses trackingID.
func TrackingIDExists(ctx context.Context, db *gorm.DB, trackingID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Shipment{}).
		Where("tracking_id = ?", trackingID).
		Count(&n).Error
	return n > 0, err
}

// GetShipmentByTrackingID fetches a shipment by its customer-facing id.
func GetShipmentByTrackingID(ctx context.Context, db *gorm.DB, trackingID string) (*domain.Shipment, error) {
	var s domain.Shipment
	if err := db.WithContext(ctx).Where("tracking_id = ?", trackingID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ShipmentVersion returns the current version of the shipment with
// trackingID, or ErrNotFound.
func ShipmentVersion(ctx context.Context, db *gorm.DB, trackingID string) (int, error) {
	var versions []int
	err := db.WithContext(ctx).
		Model(&domain.Shipment{}).
		Where("tracking_id = ?", trackingID).
		Limit(1).
		Pluck("version", &versions).Error
	if err != nil {
		return 0, err
	}
	if len(versions) == 0 {
		return 0, ErrNotFound
	}
	return versions[0], nil
}

// GetShipmentByID fetches a shipment by its internal id.
func GetShipmentByID(ctx context.Context, db *gorm.DB, id string) (*domain.Shipment, error) {
	var s domain.Shipment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetShipmentWithHistory fetches a shipment by tracking id together with its
// sender and full event log (most recent first).
func GetShipmentWithHistory(ctx context.Context, db *gorm.DB, trackingID string) (*domain.Shipment, error) {
	var s domain.Shipment
	err := db.WithContext(ctx).
		Preload("Sender").
		Preload("Events", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("timestamp DESC, id DESC")
		}).
		Where("tracking_id = ?", trackingID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// applySearch filters by a case-insensitive substring of tracking id,
// recipient name, or destination.
func applySearch(q *gorm.DB, search string) *gorm.DB {
	search = strings.TrimSpace(search)
	if search == "" {
		return q
	}
	like := "%" + strings.ToLower(search) + "%"
	return q.Where(
		"LOWER(tracking_id) LIKE ? OR LOWER(recipient_name) LIKE ? OR LOWER(destination) LIKE ?",
		like, like, like,
	)
}

// CountShipments returns the number of shipments matching search.
func CountShipments(ctx context.Context, db *gorm.DB, search string) (int64, error) {
	var total int64
	q := applySearch(db.WithContext(ctx).Model(&domain.Shipment{}), search)
	err := q.Count(&total).Error
	return total, err
}

// ListShipmentsPage returns shipments newest-created first, each with its
// sender and at most its latest tracking event in Events.
func ListShipmentsPage(ctx context.Context, db *gorm.DB, search string, offset, limit int) ([]domain.Shipment, error) {
	var out []domain.Shipment
	q := applySearch(db.WithContext(ctx).Model(&domain.Shipment{}), search).
		Preload("Sender", func(tx *gorm.DB) *gorm.DB {
			return tx.Select("id", "name", "email", "company", "phone")
		}).
		Order("created_at DESC, id DESC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	latest, err := LatestEvents(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if ev, ok := latest[out[i].ID]; ok {
			out[i].Events = []domain.TrackingEvent{ev}
		} else {
			out[i].Events = []domain.TrackingEvent{}
		}
	}
	return out, nil
}

// UpdateShipmentTracking applies the denormalized fields of a tracking update
// with compare-and-swap on version. actualDelivery is written only when
// non-nil. Returns ErrVersionConflict when no row matched (id, version).
func UpdateShipmentTracking(ctx context.Context, db *gorm.DB, id string, version int, status domain.ShipmentStatus, location string, actualDelivery *time.Time) error {
	updates := map[string]any{
		"status":           status,
		"current_location": location,
		"version":          gorm.Expr("version + 1"),
		"updated_at":       time.Now().UTC(),
	}
	if actualDelivery != nil {
		updates["actual_delivery"] = *actualDelivery
	}
	res := db.WithContext(ctx).
		Model(&domain.Shipment{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// DeleteShipment removes a shipment and all of its tracking events. The
// sender row is kept. Callers should run it inside a transaction. Returns
// ErrNotFound when no shipment has id.
func DeleteShipment(ctx context.Context, db *gorm.DB, id string) error {
	tx := db.WithContext(ctx)
	if err := tx.Where("shipment_id = ?", id).Delete(&domain.TrackingEvent{}).Error; err != nil {
		return err
	}
	res := tx.Where("id = ?", id).Delete(&domain.Shipment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
