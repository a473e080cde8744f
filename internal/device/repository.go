package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// GetByAddress retrieves a device by its on-air address.
	// Returns ErrDeviceNotFound if no device has that address.
	GetByAddress(ctx context.Context, address string, addressType AddressType) (*Device, error)

	// List retrieves all devices ordered by name.
	List(ctx context.Context) ([]Device, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if the address is already registered.
	Create(ctx context.Context, device *Device) error

	// Delete removes a device by ID.
	// Returns ErrDeviceNotFound if the device does not exist.
	Delete(ctx context.Context, id string) error

	// SetAdapters replaces the adapter links of a device.
	SetAdapters(ctx context.Context, id string, adapterIDs []string) error

	// UpdateCapabilities stores the capability map and last-updated stamp.
	UpdateCapabilities(ctx context.Context, id string, caps map[CapabilityType]Capability, lastUpdated time.Time) error
}

// SQLiteRepository implements Repository using SQLite.
// Adapter links and capabilities are stored as JSON columns.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectDevice = `
	SELECT id, address, address_type, name, protocol, adapter_ids,
		capabilities, created_at, last_updated
	FROM devices`

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	device, err := scanDevice(r.db.QueryRowContext(ctx, selectDevice+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return device, nil
}

// GetByAddress retrieves a device by address and address type.
func (r *SQLiteRepository) GetByAddress(ctx context.Context, address string, addressType AddressType) (*Device, error) {
	row := r.db.QueryRowContext(ctx, selectDevice+" WHERE address = ? AND address_type = ?", address, string(addressType))
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by address: %w", err)
	}
	return device, nil
}

// List retrieves all devices.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, selectDevice+" ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	adaptersJSON, err := json.Marshal(nonNilIDs(device.AdapterIDs))
	if err != nil {
		return fmt.Errorf("marshalling adapter_ids: %w", err)
	}
	capsJSON, err := json.Marshal(nonNilCaps(device.Capabilities))
	if err != nil {
		return fmt.Errorf("marshalling capabilities: %w", err)
	}

	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	if device.LastUpdated.IsZero() {
		device.LastUpdated = device.CreatedAt
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO devices (
			id, address, address_type, name, protocol, adapter_ids,
			capabilities, created_at, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.ID,
		device.Address,
		string(device.AddressType),
		device.Name,
		device.Protocol,
		string(adaptersJSON),
		string(capsJSON),
		device.CreatedAt.Format(time.RFC3339Nano),
		device.LastUpdated.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return requireOneRow(result)
}

// SetAdapters replaces the adapter links of a device.
func (r *SQLiteRepository) SetAdapters(ctx context.Context, id string, adapterIDs []string) error {
	adaptersJSON, err := json.Marshal(nonNilIDs(adapterIDs))
	if err != nil {
		return fmt.Errorf("marshalling adapter_ids: %w", err)
	}
	result, err := r.db.ExecContext(ctx,
		"UPDATE devices SET adapter_ids = ? WHERE id = ?",
		string(adaptersJSON), id,
	)
	if err != nil {
		return fmt.Errorf("updating adapter links: %w", err)
	}
	return requireOneRow(result)
}

// UpdateCapabilities stores the capability map and last-updated stamp.
func (r *SQLiteRepository) UpdateCapabilities(ctx context.Context, id string, caps map[CapabilityType]Capability, lastUpdated time.Time) error {
	capsJSON, err := json.Marshal(nonNilCaps(caps))
	if err != nil {
		return fmt.Errorf("marshalling capabilities: %w", err)
	}
	result, err := r.db.ExecContext(ctx,
		"UPDATE devices SET capabilities = ?, last_updated = ? WHERE id = ?",
		string(capsJSON), lastUpdated.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("updating capabilities: %w", err)
	}
	return requireOneRow(result)
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var (
		d                         Device
		addressType               string
		adaptersJSON, capsJSON    string
		createdAt, lastUpdatedStr string
	)

	if err := row.Scan(
		&d.ID, &d.Address, &addressType, &d.Name, &d.Protocol,
		&adaptersJSON, &capsJSON, &createdAt, &lastUpdatedStr,
	); err != nil {
		return nil, err
	}
	d.AddressType = AddressType(addressType)

	if err := json.Unmarshal([]byte(adaptersJSON), &d.AdapterIDs); err != nil {
		return nil, fmt.Errorf("unmarshalling adapter_ids: %w", err)
	}
	if err := json.Unmarshal([]byte(capsJSON), &d.Capabilities); err != nil {
		return nil, fmt.Errorf("unmarshalling capabilities: %w", err)
	}
	d.AdapterIDs = nonNilIDs(d.AdapterIDs)
	d.Capabilities = nonNilCaps(d.Capabilities)

	var err error
	if d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.LastUpdated, err = time.Parse(time.RFC3339Nano, lastUpdatedStr); err != nil {
		return nil, fmt.Errorf("parsing last_updated: %w", err)
	}
	return &d, nil
}

func requireOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// nonNilIDs keeps "adapter_ids" a JSON array rather than null.
func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func nonNilCaps(caps map[CapabilityType]Capability) map[CapabilityType]Capability {
	if caps == nil {
		return map[CapabilityType]Capability{}
	}
	return caps
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
