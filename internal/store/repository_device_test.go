package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/models"
)

func newTestDeviceRepo(t *testing.T) (*deviceRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.Nop()
	repo := &deviceRepository{
		db:     &DB{DB: db, logger: l},
		logger: l,
	}
	return repo, mock, db
}

func TestCreateDevice_Success(t *testing.T) {
	repo, mock, db := newTestDeviceRepo(t)
	defer db.Close()

	device := models.Device{
		AccountID:      uuid.New(),
		DeviceID:       1,
		Name:           "phone",
		RegistrationID: 4321,
		CreatedAt:      time.Now(),
		PasswordHash:   []byte("hash"),
		PasswordSalt:   []byte("salt"),
	}

	mock.ExpectExec("INSERT INTO devices").
		WithArgs(device.AccountID, device.DeviceID, device.Name, device.RegistrationID,
			device.CreatedAt, device.PasswordHash, device.PasswordSalt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.CreateDevice(context.Background(), device); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateDevice_UniqueViolation(t *testing.T) {
	repo, mock, db := newTestDeviceRepo(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO devices").
		WillReturnError(pgError(pgerrcode.UniqueViolation))

	err := repo.CreateDevice(context.Background(), models.Device{AccountID: uuid.New(), DeviceID: 1})
	if !errors.Is(err, ErrDeviceExists) {
		t.Fatalf("expected ErrDeviceExists, got %v", err)
	}
}

func TestGetDevice_Success(t *testing.T) {
	repo, mock, db := newTestDeviceRepo(t)
	defer db.Close()

	addr := models.Address{AccountID: uuid.New(), DeviceID: 2}
	now := time.Now()

	rows := sqlmock.
		NewRows([]string{"account_id", "device_id", "name", "registration_id", "created_at", "password_hash", "password_salt"}).
		AddRow(addr.AccountID.String(), addr.DeviceID, "tablet", 4321, now, []byte("hash"), []byte("salt"))

	mock.ExpectQuery("SELECT account_id").
		WithArgs(addr.AccountID, addr.DeviceID).
		WillReturnRows(rows)

	device, err := repo.GetDevice(context.Background(), addr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if device.DeviceID != addr.DeviceID {
		t.Errorf("expected device id %d, got %d", addr.DeviceID, device.DeviceID)
	}
	if device.Name != "tablet" {
		t.Errorf("expected name tablet, got %s", device.Name)
	}
}

func TestGetDevice_NotFound(t *testing.T) {
	repo, mock, db := newTestDeviceRepo(t)
	defer db.Close()

	addr := models.Address{AccountID: uuid.New(), DeviceID: 2}

	mock.ExpectQuery("SELECT account_id").
		WithArgs(addr.AccountID, addr.DeviceID).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetDevice(context.Background(), addr)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestGetDevices_Success(t *testing.T) {
	repo, mock, db := newTestDeviceRepo(t)
	defer db.Close()

	accountID := uuid.New()
	now := time.Now()

	rows := sqlmock.
		NewRows([]string{"account_id", "device_id", "name", "registration_id", "created_at", "password_hash", "password_salt"}).
		AddRow(accountID.String(), 1, "phone", 4321, now, []byte("h1"), []byte("s1")).
		AddRow(accountID.String(), 2, "tablet", 8765, now, []byte("h2"), []byte("s2"))

	mock.ExpectQuery("SELECT account_id").
		WithArgs(accountID).
		WillReturnRows(rows)

	devices, err := repo.GetDevices(context.Background(), accountID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
	if devices[0].DeviceID != 1 || devices[1].DeviceID != 2 {
		t.Errorf("expected device ids 1 and 2, got %d and %d", devices[0].DeviceID, devices[1].DeviceID)
	}
}

func TestGetDevices_QueryError(t *testing.T) {
	repo, mock, db := newTestDeviceRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT account_id").
		WillReturnError(errors.New("db failure"))

	_, err := repo.GetDevices(context.Background(), uuid.New())
	if !errors.Is(err, ErrExecutingQuery) {
		t.Fatalf("expected ErrExecutingQuery, got %v", err)
	}
}

func TestDeleteDevice_Success(t *testing.T) {
	repo, mock, db := newTestDeviceRepo(t)
	defer db.Close()

	addr := models.Address{AccountID: uuid.New(), DeviceID: 2}

	mock.ExpectExec("DELETE FROM devices").
		WithArgs(addr.AccountID, addr.DeviceID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeleteDevice(context.Background(), addr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteDevice_NotFound(t *testing.T) {
	repo, mock, db := newTestDeviceRepo(t)
	defer db.Close()

	addr := models.Address{AccountID: uuid.New(), DeviceID: 2}

	mock.ExpectExec("DELETE FROM devices").
		WithArgs(addr.AccountID, addr.DeviceID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteDevice(context.Background(), addr)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}
