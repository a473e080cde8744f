package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the devices table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// Each new connection to :memory: would see an empty database.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE devices (
			id            TEXT PRIMARY KEY,
			address       TEXT NOT NULL,
			address_type  TEXT NOT NULL CHECK (address_type IN ('ble', 'basic')),
			name          TEXT NOT NULL,
			protocol      TEXT NOT NULL,
			adapter_ids   TEXT NOT NULL DEFAULT '[]',
			capabilities  TEXT NOT NULL DEFAULT '{}',
			created_at    TEXT NOT NULL,
			last_updated  TEXT NOT NULL,
			UNIQUE (address, address_type)
		) STRICT;
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// testDevice creates a device for testing.
func testDevice(id, name, address string) *Device {
	return &Device{
		ID:          id,
		Address:     address,
		AddressType: AddressBLE,
		Name:        name,
		Protocol:    ProtocolBTHome,
		AdapterIDs:  []string{"homekit-adapter"},
		Capabilities: map[CapabilityType]Capability{
			CapTemperature: {Name: CapTemperature, Value: 21.5, Type: ValueFloat, Unit: UnitCelsius},
		},
	}
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := testDevice("dev-1", "Living Room", "AA:BB:CC:DD:EE:01")
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if d.CreatedAt.IsZero() || d.LastUpdated.IsZero() {
		t.Error("Create() should stamp created_at and last_updated")
	}

	got, err := repo.GetByID(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Living Room" || got.AddressType != AddressBLE || got.Protocol != ProtocolBTHome {
		t.Errorf("GetByID() = %+v", got)
	}
	if len(got.AdapterIDs) != 1 || got.AdapterIDs[0] != "homekit-adapter" {
		t.Errorf("AdapterIDs = %v, want [homekit-adapter]", got.AdapterIDs)
	}
	temp, ok := got.Capabilities[CapTemperature]
	if !ok {
		t.Fatal("temperature capability missing after round trip")
	}
	if temp.Value != 21.5 || temp.Unit != UnitCelsius {
		t.Errorf("temperature = %+v", temp)
	}
	if !got.CreatedAt.Equal(d.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, d.CreatedAt)
	}
}

func TestSQLiteRepository_GetByID_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_CreateDuplicateAddress(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testDevice("dev-1", "A", "AA:BB:CC:DD:EE:01")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := repo.Create(ctx, testDevice("dev-2", "B", "AA:BB:CC:DD:EE:01"))
	if !errors.Is(err, ErrDeviceExists) {
		t.Errorf("Create() duplicate address error = %v, want ErrDeviceExists", err)
	}
}

func TestSQLiteRepository_GetByAddress(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testDevice("dev-1", "A", "AA:BB:CC:DD:EE:01")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByAddress(ctx, "AA:BB:CC:DD:EE:01", AddressBLE)
	if err != nil {
		t.Fatalf("GetByAddress() error = %v", err)
	}
	if got.ID != "dev-1" {
		t.Errorf("GetByAddress() ID = %q, want dev-1", got.ID)
	}

	_, err = repo.GetByAddress(ctx, "AA:BB:CC:DD:EE:01", AddressBasic)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByAddress() wrong type error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_ListOrderedByName(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	for _, d := range []*Device{
		testDevice("dev-1", "Kitchen", "AA:BB:CC:DD:EE:01"),
		testDevice("dev-2", "Attic", "AA:BB:CC:DD:EE:02"),
	} {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	devices, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("List() returned %d devices, want 2", len(devices))
	}
	if devices[0].Name != "Attic" || devices[1].Name != "Kitchen" {
		t.Errorf("List() order = [%s %s], want [Attic Kitchen]", devices[0].Name, devices[1].Name)
	}
}

func TestSQLiteRepository_ListEmpty(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	devices, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if devices == nil || len(devices) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", devices)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testDevice("dev-1", "A", "AA:BB:CC:DD:EE:01")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Delete(ctx, "dev-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "dev-1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second Delete() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_SetAdapters(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testDevice("dev-1", "A", "AA:BB:CC:DD:EE:01")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.SetAdapters(ctx, "dev-1", nil); err != nil {
		t.Fatalf("SetAdapters() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.AdapterIDs == nil || len(got.AdapterIDs) != 0 {
		t.Errorf("AdapterIDs = %v, want empty non-nil slice", got.AdapterIDs)
	}

	if err := repo.SetAdapters(ctx, "missing", []string{"x"}); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("SetAdapters() missing device error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_UpdateCapabilities(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testDevice("dev-1", "A", "AA:BB:CC:DD:EE:01")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	caps := map[CapabilityType]Capability{
		CapHumidity: {Name: CapHumidity, Value: 55.0, Type: ValueFloat, Unit: UnitPercent},
	}
	if err := repo.UpdateCapabilities(ctx, "dev-1", caps, stamp); err != nil {
		t.Fatalf("UpdateCapabilities() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !got.LastUpdated.Equal(stamp) {
		t.Errorf("LastUpdated = %v, want %v", got.LastUpdated, stamp)
	}
	if _, ok := got.Capabilities[CapTemperature]; ok {
		t.Error("UpdateCapabilities() should replace the whole map")
	}
	if got.Capabilities[CapHumidity].Value != 55.0 {
		t.Errorf("humidity = %v, want 55", got.Capabilities[CapHumidity].Value)
	}
}
