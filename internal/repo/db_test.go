package repo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/config"
	"github.com/tbourn/go-shipment-tracker/internal/domain"
)

func TestOpenSQLite_ErrorOnBadPath(t *testing.T) {
	base := t.TempDir()
	bad := filepath.Join(base, "does-not-exist", "app.db")

	db, err := OpenSQLite(bad)
	if err == nil || db != nil {
		t.Fatalf("expected error opening %q, got db=%v err=%v", bad, db, err)
	}

	// Be tolerant across platforms/drivers:
	// - Windows: *os.PathError ("CreateFile ... cannot find the file specified")
	// - SQLite:  "unable to open database file" / "out of memory (14)"
	// - Unix:    "no such file or directory"
	lower := strings.ToLower(err.Error())
	if !(os.IsNotExist(err) ||
		strings.Contains(lower, "unable to open database file") ||
		strings.Contains(lower, "no such file or directory") ||
		strings.Contains(lower, "out of memory")) {
		t.Fatalf("unexpected error opening %q: %v", bad, err)
	}
}

func TestOpenSQLite_SetsPragmas_Pool_AndAutoMigrate(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "app.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	// --- Verify PRAGMAs set by OpenSQLite ---
	var (
		journalMode string
		syncVal     int
		fkOn        int
		busyMS      int
	)

	if err := db.Raw("PRAGMA journal_mode;").Row().Scan(&journalMode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if strings.ToLower(journalMode) != "wal" {
		t.Fatalf("expected journal_mode=wal, got %q", journalMode)
	}

	if err := db.Raw("PRAGMA synchronous;").Row().Scan(&syncVal); err != nil {
		t.Fatalf("PRAGMA synchronous: %v", err)
	}
	// NORMAL == 1
	if syncVal != 1 {
		t.Fatalf("expected synchronous=1 (NORMAL), got %d", syncVal)
	}

	if err := db.Raw("PRAGMA foreign_keys;").Row().Scan(&fkOn); err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if fkOn != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fkOn)
	}

	if err := db.Raw("PRAGMA busy_timeout;").Row().Scan(&busyMS); err != nil {
		t.Fatalf("PRAGMA busy_timeout: %v", err)
	}
	if busyMS != 5000 {
		t.Fatalf("expected busy_timeout=5000, got %d", busyMS)
	}

	// --- Verify pool tuning applied ---
	if stats := sqlDB.Stats(); stats.MaxOpenConnections != 10 {
		t.Fatalf("expected MaxOpenConnections=10, got %d", stats.MaxOpenConnections)
	}

	// --- AutoMigrate should create all tables ---
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	m := db.Migrator()
	for _, tbl := range []any{&domain.Sender{}, &domain.Shipment{}, &domain.TrackingEvent{}, &domain.Idempotency{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}

	// Quick insert round-trip to prove schema is usable.
	now := time.Now().UTC()
	snd := &domain.Sender{ID: "s1", Name: "Ann", Phone: "1", CreatedAt: now}
	if err := db.Create(snd).Error; err != nil {
		t.Fatalf("insert sender: %v", err)
	}
	sid := snd.ID
	sh := &domain.Shipment{
		ID: "sh1", TrackingID: "LF123456789", Status: domain.StatusPending,
		Origin: "A", Destination: "B", CurrentLocation: "A", EstimatedDelivery: now,
		Service: "Ground Shipping", Weight: "N/A", Dimensions: "N/A",
		RecipientName: "R", RecipientAddress: "X", RecipientPhone: "2",
		SenderID: &sid, Version: 1, CreatedAt: now, UpdatedAt: now,
	}
	if err := db.Omit("Sender", "Events").Create(sh).Error; err != nil {
		t.Fatalf("insert shipment: %v", err)
	}
	idem := &domain.Idempotency{ID: "i1", Key: "k1", UserID: "u1", Scope: "/x", Status: 200, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(idem).Error; err != nil {
		t.Fatalf("insert idempotency: %v", err)
	}

	var got domain.Shipment
	if err := db.First(&got, "tracking_id = ?", "LF123456789").Error; err != nil || got.Origin != "A" {
		t.Fatalf("readback shipment failed: err=%v got=%+v", err, got)
	}
}

func TestOpen_SelectsDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open.db")
	db, err := Open(config.DBConfig{Driver: "sqlite", Path: path})
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	if err := Close(db); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := Open(config.DBConfig{Driver: "oracle"}); err != ErrUnsupportedDriver {
		t.Fatalf("expected ErrUnsupportedDriver, got %v", err)
	}
	if err := Close(nil); err != nil {
		t.Fatalf("Close(nil) should be a no-op, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := map[string]bool{
		"UNIQUE constraint failed: shipments.tracking_id":             true,
		"constraint failed: UNIQUE constraint failed (2067)":          true,
		`ERROR: duplicate key value violates unique constraint "ux"`: true,
		"database is locked": false,
	}
	for msg, want := range cases {
		if got := isUniqueViolation(errString(msg)); got != want {
			t.Errorf("isUniqueViolation(%q) = %v; want %v", msg, got, want)
		}
	}
	if !isUniqueViolation(gorm.ErrDuplicatedKey) {
		t.Errorf("gorm.ErrDuplicatedKey should be a unique violation")
	}
	if isUniqueViolation(nil) {
		t.Errorf("nil is not a violation")
	}
}

type errString string

func (e errString) Error() string { return string(e) }

// Compile-time guard to ensure signature stability.
var _ func(string) (*gorm.DB, error) = OpenSQLite

func TestIsTransient(t *testing.T) {
	for _, msg := range []string{
		"database is locked (5) (SQLITE_BUSY)",
		"ERROR: could not serialize access due to concurrent update (SQLSTATE 40001)",
		"ERROR: deadlock detected (SQLSTATE 40P01)",
	} {
		if !IsTransient(errString(msg)) {
			t.Errorf("expected transient: %q", msg)
		}
	}
	for _, err := range []error{nil, ErrNotFound, errString("syntax error")} {
		if IsTransient(err) {
			t.Errorf("did not expect transient: %v", err)
		}
	}
}
