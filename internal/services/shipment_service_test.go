package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/repo"
	"github.com/tbourn/go-shipment-tracker/internal/trackid"
)

func TestShipmentService_Create_RequiresAdmin(t *testing.T) {
	s := NewShipmentService(newSvcDB(t), nil, nil)

	if _, err := s.Create(context.Background(), anon, minimalInput()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("anon: want ErrUnauthorized, got %v", err)
	}
	if _, err := s.Create(context.Background(), viewer, minimalInput()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("viewer: want ErrForbidden, got %v", err)
	}
}

func TestShipmentService_Create_ValidationFields(t *testing.T) {
	s := NewShipmentService(newSvcDB(t), nil, nil)
	in := minimalInput()
	in.Origin = "   "
	in.SenderPhone = ""
	in.SenderEmail = "not-an-email"
	in.EstimatedDelivery = time.Time{}

	_, err := s.Create(context.Background(), admin, in)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want *ValidationError, got %T %v", err, err)
	}
	for _, f := range []string{"origin", "senderPhone", "senderEmail", "estimatedDelivery"} {
		if _, ok := ve.Fields[f]; !ok {
			t.Errorf("expected field %q in %v", f, ve.Fields)
		}
	}
}

func TestShipmentService_Create_DefaultsAndCreationEvent(t *testing.T) {
	db := newSvcDB(t)
	gen := trackid.New("LF")
	gen.Now = func() time.Time { return time.UnixMilli(1_700_000_000_123) }
	s := NewShipmentService(db, gen, nil)

	sh, err := s.Create(context.Background(), admin, minimalInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sh.TrackingID != "LF000000123" {
		t.Fatalf("generated tracking id = %q", sh.TrackingID)
	}
	if sh.Weight != "N/A" || sh.Dimensions != "N/A" || sh.Service != "Ground Shipping" || sh.NextUpdate != "Awaiting pickup" {
		t.Fatalf("defaults not applied: %+v", sh)
	}
	if sh.Status != domain.StatusPending || sh.CurrentLocation != "New York, NY" {
		t.Fatalf("unexpected initial state: status=%s loc=%s", sh.Status, sh.CurrentLocation)
	}

	evs, err := repo.ListEventsByShipment(context.Background(), db, sh.ID)
	if err != nil {
		t.Fatalf("ListEventsByShipment: %v", err)
	}
	if len(evs) != 1 {
		t.Fatalf("want exactly 1 event, got %d", len(evs))
	}
	ev := evs[0]
	if ev.Status != "Shipment Created" || !ev.Completed || ev.Location != "New York, NY" ||
		ev.Description != "Shipment created and awaiting pickup from New York, NY" {
		t.Fatalf("unexpected creation event: %+v", ev)
	}

	snd, err := repo.GetSenderByID(context.Background(), db, *sh.SenderID)
	if err != nil || snd.Name != "Sam Sender" || snd.Company != "" {
		t.Fatalf("sender not stored as given: %+v err=%v", snd, err)
	}
}

func TestShipmentService_Create_DuplicateTrackingID_NoWrite(t *testing.T) {
	db := newSvcDB(t)
	s := NewShipmentService(db, nil, nil)

	in := minimalInput()
	in.TrackingID = "lf123456789"
	first, err := s.Create(context.Background(), admin, in)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if first.TrackingID != "LF123456789" {
		t.Fatalf("tracking id should be upper-cased, got %q", first.TrackingID)
	}

	var senders, events int64
	db.Model(&domain.Sender{}).Count(&senders)
	db.Model(&domain.TrackingEvent{}).Count(&events)

	in.TrackingID = "LF123456789"
	if _, err := s.Create(context.Background(), admin, in); !errors.Is(err, ErrDuplicateTrackingID) {
		t.Fatalf("want ErrDuplicateTrackingID, got %v", err)
	}

	var senders2, events2, shipments int64
	db.Model(&domain.Sender{}).Count(&senders2)
	db.Model(&domain.TrackingEvent{}).Count(&events2)
	db.Model(&domain.Shipment{}).Count(&shipments)
	if senders2 != senders || events2 != events || shipments != 1 {
		t.Fatalf("failed create must not write: senders %d->%d events %d->%d shipments=%d",
			senders, senders2, events, events2, shipments)
	}
}

func TestShipmentService_Create_GeneratorRetriesOnCollision(t *testing.T) {
	db := newSvcDB(t)
	gen := trackid.New("LF")
	gen.Now = func() time.Time { return time.UnixMilli(42) }
	gen.Rand = func() (int64, error) { return 777, nil }
	s := NewShipmentService(db, gen, nil)

	a, err := s.Create(context.Background(), admin, minimalInput())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := s.Create(context.Background(), admin, minimalInput())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if a.TrackingID != "LF000000042" || b.TrackingID != "LF000000777" {
		t.Fatalf("unexpected ids: %s %s", a.TrackingID, b.TrackingID)
	}
}

func TestShipmentService_Create_RegeneratesWhenInsertLosesRace(t *testing.T) {
	db := newSvcDB(t)
	gen := trackid.New("LF")
	gen.Now = func() time.Time { return time.UnixMilli(42) }
	gen.Rand = func() (int64, error) { return 777, nil }
	s := NewShipmentService(db, gen, nil)
	ctx := context.Background()

	if _, err := s.Create(ctx, admin, minimalInput()); err != nil {
		t.Fatalf("first: %v", err)
	}
	// a concurrent create committed the same id after the pre-check ran
	s.exists = func(context.Context, string) (bool, error) { return false, nil }

	b, err := s.Create(ctx, admin, minimalInput())
	if err != nil {
		t.Fatalf("generated id must not surface as a duplicate: %v", err)
	}
	if b.TrackingID != "LF000000777" {
		t.Fatalf("want regenerated id LF000000777, got %s", b.TrackingID)
	}

	// caller-supplied ids still conflict
	in := minimalInput()
	in.TrackingID = "LF000000777"
	if _, err := s.Create(ctx, admin, in); !errors.Is(err, ErrDuplicateTrackingID) {
		t.Fatalf("want ErrDuplicateTrackingID, got %v", err)
	}
}

func TestShipmentService_ListPage(t *testing.T) {
	db := newSvcDB(t)
	s := NewShipmentService(db, nil, nil)
	ctx := context.Background()

	for i, dest := range []string{"Austin, TX", "Boston, MA", "Austin, TX"} {
		in := minimalInput()
		in.TrackingID = []string{"LF000000001", "LF000000002", "LF000000003"}[i]
		in.Destination = dest
		if _, err := s.Create(ctx, admin, in); err != nil {
			t.Fatalf("seed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	if _, _, err := s.ListPage(ctx, viewer, "", 1, 10); !errors.Is(err, ErrForbidden) {
		t.Fatalf("viewer list: want ErrForbidden, got %v", err)
	}

	items, total, err := s.ListPage(ctx, admin, "", 1, 2)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 3 || len(items) != 2 || items[0].TrackingID != "LF000000003" {
		t.Fatalf("unexpected page: total=%d len=%d first=%s", total, len(items), items[0].TrackingID)
	}
	if len(items[0].Events) != 1 || items[0].Events[0].Status != "Shipment Created" || items[0].Sender == nil {
		t.Fatalf("list rows must carry latest event and sender: %+v", items[0])
	}

	items, total, err = s.ListPage(ctx, admin, "austin", 0, 0)
	if err != nil || total != 2 || len(items) != 2 {
		t.Fatalf("search: total=%d len=%d err=%v", total, len(items), err)
	}

	items, total, err = s.ListPage(ctx, admin, "nowhere", 1, 10)
	if err != nil || total != 0 || items == nil || len(items) != 0 {
		t.Fatalf("empty search should return empty slice, got %v %d %v", items, total, err)
	}

	count, maxAt, err := s.Stats(ctx, "")
	if err != nil || count != 3 || maxAt == nil {
		t.Fatalf("Stats: %d %v %v", count, maxAt, err)
	}
}

func TestShipmentService_Delete_CascadesEvents_KeepsSender(t *testing.T) {
	db := newSvcDB(t)
	cache := newFakeCache()
	s := NewShipmentService(db, nil, cache)
	ts := NewTrackingService(db, cache, nil, false, nil)
	ctx := context.Background()

	in := minimalInput()
	in.TrackingID = "LF000000500"
	sh, err := s.Create(ctx, admin, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := ts.UpdateTracking(ctx, admin, UpdateTrackingInput{TrackingID: sh.TrackingID, Label: domain.LabelInTransit, Description: "d", Location: "Chicago, IL"}); err != nil {
		t.Fatalf("UpdateTracking: %v", err)
	}

	if err := s.Delete(ctx, viewer, sh.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("viewer delete: want ErrForbidden, got %v", err)
	}
	if err := s.Delete(ctx, admin, sh.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	evs, err := repo.ListEventsByShipment(ctx, db, sh.ID)
	if err != nil || len(evs) != 0 {
		t.Fatalf("events should be gone, got %d err=%v", len(evs), err)
	}
	if _, err := repo.GetShipmentByID(ctx, db, sh.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("shipment still retrievable by id: %v", err)
	}
	if _, err := repo.GetShipmentByTrackingID(ctx, db, sh.TrackingID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("shipment still retrievable by tracking id: %v", err)
	}
	if _, err := repo.GetSenderByID(ctx, db, *sh.SenderID); err != nil {
		t.Fatalf("sender must survive delete: %v", err)
	}
	if got := cache.deleted[len(cache.deleted)-1]; got != ViewKey(sh.TrackingID, 2) {
		t.Fatalf("view cache not invalidated, last delete=%q", got)
	}

	if err := s.Delete(ctx, admin, sh.ID); !errors.Is(err, ErrShipmentNotFound) {
		t.Fatalf("second delete: want ErrShipmentNotFound, got %v", err)
	}
}
