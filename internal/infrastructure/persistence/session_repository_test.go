package persistence

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/pkg/constants"
)

func TestCreateSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSessionRepository(db)

	ip := "10.0.0.1"
	ua := "test-agent"
	expires := time.Now().Add(168 * time.Hour)
	session := &models.Session{
		ID:        "jti-1",
		UserID:    "user-1",
		Token:     "token-value",
		ExpiresAt: expires,
		IPAddress: &ip,
		UserAgent: &ua,
	}

	mock.ExpectExec(regexp.QuoteMeta(fmt.Sprintf("INSERT INTO %s", constants.TableSession))).
		WithArgs(session.ID, session.UserID, session.Token, expires, ip, ua).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Create(context.Background(), session)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindSessionByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSessionRepository(db)

	now := time.Now()
	columns := []string{
		constants.FieldID, constants.FieldUserID, constants.FieldExpiresAt,
		constants.FieldIsRevoked, constants.FieldLastActivity,
	}

	// Test Case 1: active session
	mock.ExpectQuery("SELECT (.+) FROM sessions").
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("jti-1", "user-1", now.Add(time.Hour), false, now))

	session, err := repo.FindByID(context.Background(), "jti-1")
	assert.NoError(t, err)
	assert.NotNil(t, session)
	assert.Equal(t, "user-1", session.UserID)
	assert.False(t, session.IsRevoked)

	// Test Case 2: unknown session
	mock.ExpectQuery("SELECT (.+) FROM sessions").
		WithArgs("jti-missing").
		WillReturnRows(sqlmock.NewRows(columns))

	session, err = repo.FindByID(context.Background(), "jti-missing")
	assert.NoError(t, err)
	assert.Nil(t, session)
}

func TestRevokeSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSessionRepository(db)

	query := fmt.Sprintf("UPDATE %s SET %s = 1 WHERE %s = ?",
		constants.TableSession, constants.FieldIsRevoked, constants.FieldID)

	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs("jti-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Revoke(context.Background(), "jti-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpiredSessions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewSessionRepository(db)

	query := fmt.Sprintf("DELETE FROM %s WHERE %s < NOW() OR %s = 1",
		constants.TableSession, constants.FieldExpiresAt, constants.FieldIsRevoked)

	mock.ExpectExec(regexp.QuoteMeta(query)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := repo.DeleteExpired(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}
