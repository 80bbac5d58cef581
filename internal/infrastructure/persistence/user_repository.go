package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/pkg/constants"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CheckUserExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)", constants.TableUser, constants.FieldEmail)
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *UserRepository) CheckUserExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)", constants.TableUser, constants.FieldUsername)
	err := r.db.QueryRowContext(ctx, query, username).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Create inserts a new user row
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES (?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		constants.TableUser,
		constants.FieldID, constants.FieldUsername, constants.FieldEmail, constants.FieldPassword,
		constants.FieldEdxUserID, constants.FieldIsAdmin, constants.FieldCreatedAt, constants.FieldUpdatedAt)

	var edxUserID interface{}
	if user.EdxUserID != nil {
		edxUserID = *user.EdxUserID
	}

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.Password, edxUserID, user.IsAdmin)
	return err
}

// FindByEmail retrieves a user by email, password hash included.
// Returns nil when no user matches.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = ? LIMIT 1`,
		constants.FieldID, constants.FieldUsername, constants.FieldEmail, constants.FieldPassword,
		constants.FieldEdxUserID, constants.FieldIsAdmin, constants.FieldCreatedAt, constants.FieldUpdatedAt,
		constants.TableUser,
		constants.FieldEmail)

	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// FindByID retrieves a user by id. Returns nil when no user matches.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = ? LIMIT 1`,
		constants.FieldID, constants.FieldUsername, constants.FieldEmail, constants.FieldPassword,
		constants.FieldEdxUserID, constants.FieldIsAdmin, constants.FieldCreatedAt, constants.FieldUpdatedAt,
		constants.TableUser,
		constants.FieldID)

	return r.scanUser(r.db.QueryRowContext(ctx, query, userID))
}

// FindByUsername retrieves a user by username. Returns nil when no user matches.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = ? LIMIT 1`,
		constants.FieldID, constants.FieldUsername, constants.FieldEmail, constants.FieldPassword,
		constants.FieldEdxUserID, constants.FieldIsAdmin, constants.FieldCreatedAt, constants.FieldUpdatedAt,
		constants.TableUser,
		constants.FieldUsername)

	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

// UpdatePassword updates the user's password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ?, %s = NOW() WHERE %s = ?",
		constants.TableUser, constants.FieldPassword, constants.FieldUpdatedAt, constants.FieldID)
	_, err := r.db.ExecContext(ctx, query, passwordHash, userID)
	return err
}

func (r *UserRepository) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var password, edxUserID sql.NullString

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&password,
		&edxUserID,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if password.Valid {
		u.Password = password.String
	}
	if edxUserID.Valid {
		u.EdxUserID = &edxUserID.String
	}

	return &u, nil
}
