package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/eskills-store/backend/internal/infrastructure/persistence"
)

func TestMaintenanceRunsSweepOnStart(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })

	auth := NewAuthService(persistence.NewUserRepository(db), persistence.NewSessionRepository(db), nil)
	service := NewMaintenanceService(auth, persistence.NewOrderRepository(db), "@hourly")

	mock.ExpectExec("DELETE FROM sessions").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE orders").
		WithArgs("expired", "pending", 24).
		WillReturnResult(sqlmock.NewResult(0, 1))

	go service.Start()

	// The first sweep fires immediately
	assert.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil
	}, 2*time.Second, 20*time.Millisecond)

	service.Stop()
	// Stopping twice must not panic
	service.Stop()
}

func TestMaintenanceDisabledOnBadSchedule(t *testing.T) {
	service := NewMaintenanceService(nil, nil, "not a schedule")

	// Start returns instead of looping when the schedule cannot be parsed
	done := make(chan struct{})
	go func() {
		service.Start()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return for an invalid schedule")
	}
}
