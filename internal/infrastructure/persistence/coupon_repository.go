package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/pkg/constants"
)

type CouponRepository struct {
	db *sql.DB
}

func NewCouponRepository(db *sql.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

func (r *CouponRepository) CheckCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)", constants.TableCoupon, constants.FieldCode)
	err := r.db.QueryRowContext(ctx, query, code).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Create inserts a new coupon
func (r *CouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		constants.TableCoupon,
		constants.FieldID, constants.FieldCode, constants.FieldDescription, constants.FieldPercentOff,
		constants.FieldRule, constants.FieldIsActive, constants.FieldStartsAt, constants.FieldEndsAt,
		constants.FieldCreatedAt, constants.FieldUpdatedAt)

	_, err := r.db.ExecContext(ctx, query, coupon.ID, coupon.Code, coupon.Description,
		coupon.PercentOff, coupon.Rule, coupon.IsActive, coupon.StartsAt, coupon.EndsAt)
	return err
}

// Update rewrites a coupon's mutable fields
func (r *CouponRepository) Update(ctx context.Context, coupon *models.Coupon) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = ?, %s = ?, %s = ?, %s = ?, %s = ?, %s = ?, %s = ?, %s = NOW()
		WHERE %s = ?`,
		constants.TableCoupon,
		constants.FieldCode, constants.FieldDescription, constants.FieldPercentOff,
		constants.FieldRule, constants.FieldIsActive, constants.FieldStartsAt, constants.FieldEndsAt,
		constants.FieldUpdatedAt,
		constants.FieldID)

	_, err := r.db.ExecContext(ctx, query, coupon.Code, coupon.Description, coupon.PercentOff,
		coupon.Rule, coupon.IsActive, coupon.StartsAt, coupon.EndsAt, coupon.ID)
	return err
}

// Delete removes a coupon.
// Returns the number of rows removed so callers can report a missing coupon.
func (r *CouponRepository) Delete(ctx context.Context, couponID string) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", constants.TableCoupon, constants.FieldID)
	result, err := r.db.ExecContext(ctx, query, couponID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// FindByCode retrieves a coupon by its code. Returns nil when no row matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = ? LIMIT 1`,
		constants.FieldID, constants.FieldCode, constants.FieldDescription, constants.FieldPercentOff,
		constants.FieldRule, constants.FieldIsActive, constants.FieldStartsAt, constants.FieldEndsAt,
		constants.FieldCreatedAt, constants.FieldUpdatedAt,
		constants.TableCoupon,
		constants.FieldCode)

	return r.scanCoupon(r.db.QueryRowContext(ctx, query, code))
}

// FindByID retrieves a coupon by id. Returns nil when no row matches.
func (r *CouponRepository) FindByID(ctx context.Context, couponID string) (*models.Coupon, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = ? LIMIT 1`,
		constants.FieldID, constants.FieldCode, constants.FieldDescription, constants.FieldPercentOff,
		constants.FieldRule, constants.FieldIsActive, constants.FieldStartsAt, constants.FieldEndsAt,
		constants.FieldCreatedAt, constants.FieldUpdatedAt,
		constants.TableCoupon,
		constants.FieldID)

	return r.scanCoupon(r.db.QueryRowContext(ctx, query, couponID))
}

// FindAll retrieves all coupons, newest first
func (r *CouponRepository) FindAll(ctx context.Context) ([]models.Coupon, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		ORDER BY %s DESC`,
		constants.FieldID, constants.FieldCode, constants.FieldDescription, constants.FieldPercentOff,
		constants.FieldRule, constants.FieldIsActive, constants.FieldStartsAt, constants.FieldEndsAt,
		constants.FieldCreatedAt, constants.FieldUpdatedAt,
		constants.TableCoupon,
		constants.FieldCreatedAt)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	coupons := make([]models.Coupon, 0)
	for rows.Next() {
		var c models.Coupon
		var description, rule sql.NullString
		var startsAt, endsAt sql.NullTime

		if err := rows.Scan(&c.ID, &c.Code, &description, &c.PercentOff, &rule, &c.IsActive,
			&startsAt, &endsAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			continue
		}

		if description.Valid {
			c.Description = &description.String
		}
		if rule.Valid {
			c.Rule = &rule.String
		}
		if startsAt.Valid {
			c.StartsAt = &startsAt.Time
		}
		if endsAt.Valid {
			c.EndsAt = &endsAt.Time
		}

		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

func (r *CouponRepository) scanCoupon(row *sql.Row) (*models.Coupon, error) {
	var c models.Coupon
	var description, rule sql.NullString
	var startsAt, endsAt sql.NullTime

	err := row.Scan(&c.ID, &c.Code, &description, &c.PercentOff, &rule, &c.IsActive,
		&startsAt, &endsAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if description.Valid {
		c.Description = &description.String
	}
	if rule.Valid {
		c.Rule = &rule.String
	}
	if startsAt.Valid {
		c.StartsAt = &startsAt.Time
	}
	if endsAt.Valid {
		c.EndsAt = &endsAt.Time
	}

	return &c, nil
}
