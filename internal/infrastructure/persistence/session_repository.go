package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/pkg/constants"
)

// SessionRepository handles the server-side session rows that back JWTs.
// The session id is the token's jti claim.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session row
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES (?, ?, ?, ?, ?, ?, 0, NOW(), NOW())`,
		constants.TableSession,
		constants.FieldID, constants.FieldUserID, constants.FieldToken, constants.FieldExpiresAt,
		constants.FieldIPAddress, constants.FieldUserAgent, constants.FieldIsRevoked,
		constants.FieldLastActivity, constants.FieldCreatedAt)

	var ipAddress, userAgent interface{}
	if session.IPAddress != nil {
		ipAddress = *session.IPAddress
	}
	if session.UserAgent != nil {
		userAgent = *session.UserAgent
	}

	_, err := r.db.ExecContext(ctx, query, session.ID, session.UserID, session.Token,
		session.ExpiresAt, ipAddress, userAgent)
	return err
}

// FindByID retrieves a session by id (jti). Returns nil when no row matches.
func (r *SessionRepository) FindByID(ctx context.Context, sessionID string) (*models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = ? LIMIT 1`,
		constants.FieldID, constants.FieldUserID, constants.FieldExpiresAt,
		constants.FieldIsRevoked, constants.FieldLastActivity,
		constants.TableSession,
		constants.FieldID)

	var s models.Session
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&s.ID,
		&s.UserID,
		&s.ExpiresAt,
		&s.IsRevoked,
		&s.LastActivity,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Revoke marks a session as revoked
func (r *SessionRepository) Revoke(ctx context.Context, sessionID string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = 1 WHERE %s = ?",
		constants.TableSession, constants.FieldIsRevoked, constants.FieldID)
	_, err := r.db.ExecContext(ctx, query, sessionID)
	return err
}

// Touch updates the last activity timestamp for a session
func (r *SessionRepository) Touch(ctx context.Context, sessionID string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = NOW() WHERE %s = ?",
		constants.TableSession, constants.FieldLastActivity, constants.FieldID)
	_, err := r.db.ExecContext(ctx, query, sessionID)
	return err
}

// DeleteExpired removes sessions that have expired or been revoked.
// Returns the number of rows removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s < NOW() OR %s = 1",
		constants.TableSession, constants.FieldExpiresAt, constants.FieldIsRevoked)
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
