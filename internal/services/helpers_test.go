package services

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-shipment-tracker/internal/auth"
	"github.com/tbourn/go-shipment-tracker/internal/mailer"
	"github.com/tbourn/go-shipment-tracker/internal/repo"
)

// ---------- test helpers ----------

var (
	admin  = auth.Principal{UserID: "admin-1", Role: auth.RoleAdmin}
	viewer = auth.Principal{UserID: "viewer-1", Role: "viewer"}
	anon   = auth.Principal{}
)

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "svc_"+uuid.NewString()+".db")
	db, err := repo.OpenSQLite(path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	t.Cleanup(func() { _ = repo.Close(db) })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func minimalInput() CreateShipmentInput {
	return CreateShipmentInput{
		Origin:            "New York, NY",
		Destination:       "Los Angeles, CA",
		EstimatedDelivery: time.Date(2025, 6, 1, 17, 0, 0, 0, time.UTC),
		RecipientName:     "Rita Recipient",
		RecipientAddress:  "1 Sunset Blvd",
		RecipientPhone:    "555-0199",
		SenderName:        "Sam Sender",
		SenderPhone:       "555-0100",
	}
}

type fakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
	getErr  error
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (f *fakeCache) Get(_ context.Context, id string, dst any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return false, f.getErr
	}
	b, ok := f.data[id]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (f *fakeCache) Set(_ context.Context, id string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.data[id] = b
	return nil
}

func (f *fakeCache) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	// failOn makes the n-th send (1-based) fail; 0 never fails.
	failOn int
	err    error
}

func (f *fakeMailer) Send(_ context.Context, m mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.sent) + 1
	if f.failOn == n {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func inline(f func()) { f() }
