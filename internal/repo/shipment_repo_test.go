package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

func newShipmentRepoDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("shipment_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if migrate {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedShipment(t *testing.T, db *gorm.DB, trackingID string, createdAt time.Time) *domain.Shipment {
	t.Helper()
	ctx := context.Background()

	snd := &domain.Sender{Name: "Ann Sender", Phone: "555-0100", Company: "Acme"}
	if err := CreateSender(ctx, db, snd); err != nil {
		t.Fatalf("CreateSender: %v", err)
	}
	sid := snd.ID
	sh := &domain.Shipment{
		TrackingID:        trackingID,
		Status:            domain.StatusPending,
		Origin:            "Chicago, IL",
		Destination:       "Denver, CO",
		CurrentLocation:   "Chicago, IL",
		EstimatedDelivery: createdAt.Add(72 * time.Hour),
		Service:           "Ground Shipping",
		Weight:            "N/A",
		Dimensions:        "N/A",
		NextUpdate:        "Awaiting pickup",
		RecipientName:     "Rita Recipient " + trackingID,
		RecipientAddress:  "1 Main St",
		RecipientPhone:    "555-0199",
		SenderID:          &sid,
		CreatedAt:         createdAt,
	}
	if err := CreateShipment(ctx, db, sh); err != nil {
		t.Fatalf("CreateShipment: %v", err)
	}
	return sh
}

func TestCreateShipment_Error_NoTable(t *testing.T) {
	db := newShipmentRepoDB(t, false)
	err := CreateShipment(context.Background(), db, &domain.Shipment{TrackingID: "LF1"})
	if err == nil {
		t.Fatalf("expected error creating without table")
	}
}

func TestCreateShipment_SetsDefaults_AndRoundTrips(t *testing.T) {
	db := newShipmentRepoDB(t, true)
	now := time.Now().UTC().Truncate(time.Second)

	sh := seedShipment(t, db, "LF123456789", now)
	if sh.ID == "" || sh.Version != 1 || !sh.UpdatedAt.Equal(sh.CreatedAt) {
		t.Fatalf("unexpected defaults: %+v", sh)
	}

	got, err := GetShipmentByTrackingID(context.Background(), db, "LF123456789")
	if err != nil {
		t.Fatalf("GetShipmentByTrackingID: %v", err)
	}
	if got.ID != sh.ID || got.Status != domain.StatusPending || got.ActualDelivery != nil {
		t.Fatalf("round-trip mismatch: %+v", got)
	}

	byID, err := GetShipmentByID(context.Background(), db, sh.ID)
	if err != nil || byID.TrackingID != "LF123456789" {
		t.Fatalf("GetShipmentByID: got=%+v err=%v", byID, err)
	}
}

func TestCreateShipment_DuplicateTrackingID(t *testing.T) {
	db := newShipmentRepoDB(t, true)
	seedShipment(t, db, "LF000000001", time.Now().UTC())

	dup := &domain.Shipment{
		TrackingID: "LF000000001", Status: domain.StatusPending,
		Origin: "A", Destination: "B", CurrentLocation: "A",
		EstimatedDelivery: time.Now().UTC(),
		Service:           "Ground Shipping", Weight: "N/A", Dimensions: "N/A",
		RecipientName: "R", RecipientAddress: "X", RecipientPhone: "1",
	}
	if err := CreateShipment(context.Background(), db, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
}

func TestTrackingIDExists(t *testing.T) {
	db := newShipmentRepoDB(t, true)
	seedShipment(t, db, "LF000000002", time.Now().UTC())

	ok, err := TrackingIDExists(context.Background(), db, "LF000000002")
	if err != nil || !ok {
		t.Fatalf("expected existing id, got ok=%v err=%v", ok, err)
	}
	ok, err = TrackingIDExists(context.Background(), db, "LF999999999")
	if err != nil || ok {
		t.Fatalf("expected missing id, got ok=%v err=%v", ok, err)
	}
}

func TestGetShipmentByTrackingID_NotFound(t *testing.T) {
	db := newShipmentRepoDB(t, true)
	_, err := GetShipmentByTrackingID(context.Background(), db, "LF404")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestListShipmentsPage_OrderSearchAndLatestEvent(t *testing.T) {
	db := newShipmentRepoDB(t, true)
	ctx := context.Background()

	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	a := seedShipment(t, db, "LF000000010", t1)
	b := seedShipment(t, db, "LF000000020", t1.Add(time.Hour))
	c := seedShipment(t, db, "LF000000030", t1.Add(2*time.Hour))

	for _, ev := range []*domain.TrackingEvent{
		{ShipmentID: a.ID, Status: "Shipment Created", Description: "d", Location: "X", Timestamp: t1, Completed: true},
		{ShipmentID: a.ID, Status: "In Transit", Description: "d", Location: "Y", Timestamp: t1.Add(time.Minute), Completed: true},
		{ShipmentID: b.ID, Status: "Shipment Created", Description: "d", Location: "X", Timestamp: t1, Completed: true},
	} {
		if err := AppendEvent(ctx, db, ev); err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
	}

	all, err := ListShipmentsPage(ctx, db, "", 0, 10)
	if err != nil {
		t.Fatalf("ListShipmentsPage: %v", err)
	}
	if len(all) != 3 || all[0].ID != c.ID || all[1].ID != b.ID || all[2].ID != a.ID {
		t.Fatalf("want newest-first [c b a], got %d rows", len(all))
	}
	if len(all[0].Events) != 0 {
		t.Fatalf("c has no events, got %d", len(all[0].Events))
	}
	if len(all[2].Events) != 1 || all[2].Events[0].Status != "In Transit" {
		t.Fatalf("a should carry only its latest event, got %+v", all[2].Events)
	}
	if all[2].Sender == nil || all[2].Sender.Name != "Ann Sender" {
		t.Fatalf("sender not preloaded: %+v", all[2].Sender)
	}

	page, err := ListShipmentsPage(ctx, db, "", 1, 1)
	if err != nil || len(page) != 1 || page[0].ID != b.ID {
		t.Fatalf("page 2 size 1 should be b, got %v err=%v", page, err)
	}

	hits, err := ListShipmentsPage(ctx, db, "lf000000020", 0, 10)
	if err != nil || len(hits) != 1 || hits[0].ID != b.ID {
		t.Fatalf("search should match b, got %v err=%v", hits, err)
	}
	n, err := CountShipments(ctx, db, "denver")
	if err != nil || n != 3 {
		t.Fatalf("CountShipments(denver) = %d, %v; want 3", n, err)
	}
}

func TestUpdateShipmentTracking_CASAndActualDelivery(t *testing.T) {
	db := newShipmentRepoDB(t, true)
	ctx := context.Background()
	sh := seedShipment(t, db, "LF000000040", time.Now().UTC())

	if err := UpdateShipmentTracking(ctx, db, sh.ID, 1, domain.StatusInTransit, "Omaha, NE", nil); err != nil {
		t.Fatalf("first update: %v", err)
	}
	// stale version
	if err := UpdateShipmentTracking(ctx, db, sh.ID, 1, domain.StatusDelayed, "Lincoln, NE", nil); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("want ErrVersionConflict, got %v", err)
	}

	delivered := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := UpdateShipmentTracking(ctx, db, sh.ID, 2, domain.StatusDelivered, "Denver, CO", &delivered); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	got, err := GetShipmentByID(ctx, db, sh.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Version != 3 || got.Status != domain.StatusDelivered || got.CurrentLocation != "Denver, CO" {
		t.Fatalf("unexpected row after updates: %+v", got)
	}
	if got.ActualDelivery == nil || !got.ActualDelivery.Equal(delivered) {
		t.Fatalf("actual delivery not stored: %v", got.ActualDelivery)
	}

	// nil actualDelivery leaves the stored value untouched
	if err := UpdateShipmentTracking(ctx, db, sh.ID, 3, domain.StatusException, "Denver, CO", nil); err != nil {
		t.Fatalf("post-delivery update: %v", err)
	}
	got, _ = GetShipmentByID(ctx, db, sh.ID)
	if got.ActualDelivery == nil || !got.ActualDelivery.Equal(delivered) {
		t.Fatalf("actual delivery must not change, got %v", got.ActualDelivery)
	}
}

func TestShipmentVersion(t *testing.T) {
	db := newShipmentRepoDB(t, true)
	ctx := context.Background()
	sh := seedShipment(t, db, "LF000000041", time.Now().UTC())

	if v, err := ShipmentVersion(ctx, db, sh.TrackingID); err != nil || v != 1 {
		t.Fatalf("initial version = %d err=%v", v, err)
	}
	if err := UpdateShipmentTracking(ctx, db, sh.ID, 1, domain.StatusInTransit, "Omaha, NE", nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	if v, err := ShipmentVersion(ctx, db, sh.TrackingID); err != nil || v != 2 {
		t.Fatalf("version after update = %d err=%v", v, err)
	}
	if _, err := ShipmentVersion(ctx, db, "LF404"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDeleteShipment_RemovesEvents_KeepsSender(t *testing.T) {
	db := newShipmentRepoDB(t, true)
	ctx := context.Background()
	sh := seedShipment(t, db, "LF000000050", time.Now().UTC())
	if err := AppendEvent(ctx, db, &domain.TrackingEvent{ShipmentID: sh.ID, Status: "Shipment Created", Description: "d", Location: "X", Completed: true}); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error { return DeleteShipment(ctx, tx, sh.ID) })
	if err != nil {
		t.Fatalf("DeleteShipment: %v", err)
	}

	if n, _ := CountEvents(ctx, db, sh.ID); n != 0 {
		t.Fatalf("events should be gone, got %d", n)
	}
	var senders int64
	db.Model(&domain.Sender{}).Where("id = ?", *sh.SenderID).Count(&senders)
	if senders != 1 {
		t.Fatalf("sender must survive, got %d", senders)
	}

	if err := DeleteShipment(ctx, db, sh.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: want ErrNotFound, got %v", err)
	}
}

func TestGetShipmentWithHistory_PreloadsOrdered(t *testing.T) {
	db := newShipmentRepoDB(t, true)
	ctx := context.Background()
	sh := seedShipment(t, db, "LF000000060", time.Now().UTC())

	base := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)
	for i, label := range []string{"Shipment Created", "Package Received", "In Transit"} {
		ev := &domain.TrackingEvent{ShipmentID: sh.ID, Status: label, Description: "d", Location: "L", Timestamp: base.Add(time.Duration(i) * time.Hour), Completed: true}
		if err := AppendEvent(ctx, db, ev); err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
	}

	got, err := GetShipmentWithHistory(ctx, db, "LF000000060")
	if err != nil {
		t.Fatalf("GetShipmentWithHistory: %v", err)
	}
	if got.Sender == nil || got.Sender.Company != "Acme" {
		t.Fatalf("sender not preloaded: %+v", got.Sender)
	}
	if len(got.Events) != 3 || got.Events[0].Status != "In Transit" || got.Events[2].Status != "Shipment Created" {
		t.Fatalf("events not most-recent-first: %+v", got.Events)
	}
}
