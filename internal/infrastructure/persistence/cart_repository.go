package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/pkg/constants"
)

// CartRepository handles carts and their items. Each item keeps a JSON
// snapshot of the course taken when it was added.
type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

// Create inserts a new empty cart for a user
func (r *CartRepository) Create(ctx context.Context, cart *models.Cart) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES (?, ?, NOW(), NOW())`,
		constants.TableCart,
		constants.FieldID, constants.FieldUserID, constants.FieldCreatedAt, constants.FieldUpdatedAt)

	_, err := r.db.ExecContext(ctx, query, cart.ID, cart.UserID)
	return err
}

// FindByUserID retrieves a user's cart with its items.
// Returns nil when the user has no cart yet.
func (r *CartRepository) FindByUserID(ctx context.Context, userID string) (*models.Cart, error) {
	query := fmt.Sprintf("SELECT %s, %s, %s, %s FROM %s WHERE %s = ? LIMIT 1",
		constants.FieldID, constants.FieldUserID, constants.FieldCreatedAt, constants.FieldUpdatedAt,
		constants.TableCart, constants.FieldUserID)

	return r.findCart(ctx, query, userID)
}

// FindByID retrieves a cart by id with its items.
// Returns nil when no cart matches.
func (r *CartRepository) FindByID(ctx context.Context, cartID string) (*models.Cart, error) {
	query := fmt.Sprintf("SELECT %s, %s, %s, %s FROM %s WHERE %s = ? LIMIT 1",
		constants.FieldID, constants.FieldUserID, constants.FieldCreatedAt, constants.FieldUpdatedAt,
		constants.TableCart, constants.FieldID)

	return r.findCart(ctx, query, cartID)
}

func (r *CartRepository) findCart(ctx context.Context, query string, arg interface{}) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	items, err := r.GetItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items

	return &cart, nil
}

// GetItems retrieves all items in a cart, oldest first
func (r *CartRepository) GetItems(ctx context.Context, cartID string) ([]models.CartItem, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = ?
		ORDER BY %s ASC`,
		constants.FieldID, constants.FieldCartID, constants.FieldCourseID, constants.FieldMode,
		constants.FieldPrice, constants.FieldCurrency, constants.FieldCourseJSON, constants.FieldCreatedAt,
		constants.TableCartItem,
		constants.FieldCartID,
		constants.FieldCreatedAt)

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.CartItem, 0)
	for rows.Next() {
		var item models.CartItem
		var price sql.NullFloat64
		var courseJSON sql.NullString

		if err := rows.Scan(&item.ID, &item.CartID, &item.CourseID, &item.Mode,
			&price, &item.Currency, &courseJSON, &item.CreatedAt); err != nil {
			continue
		}

		if price.Valid {
			item.Price = &price.Float64
		}
		if courseJSON.Valid && courseJSON.String != "" {
			var course models.Course
			if err := json.Unmarshal([]byte(courseJSON.String), &course); err == nil {
				item.Course = &course
			}
		}

		items = append(items, item)
	}
	return items, rows.Err()
}

// HasItem reports whether the cart already contains a course
func (r *CartRepository) HasItem(ctx context.Context, cartID, courseID string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ? AND %s = ?)",
		constants.TableCartItem, constants.FieldCartID, constants.FieldCourseID)
	err := r.db.QueryRowContext(ctx, query, cartID, courseID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// AddItem inserts a cart item with its course snapshot
func (r *CartRepository) AddItem(ctx context.Context, item *models.CartItem) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES (?, ?, ?, ?, ?, ?, ?, NOW())`,
		constants.TableCartItem,
		constants.FieldID, constants.FieldCartID, constants.FieldCourseID, constants.FieldMode,
		constants.FieldPrice, constants.FieldCurrency, constants.FieldCourseJSON, constants.FieldCreatedAt)

	var courseJSON interface{}
	if item.Course != nil {
		data, err := json.Marshal(item.Course)
		if err != nil {
			return fmt.Errorf("failed to marshal course snapshot: %w", err)
		}
		courseJSON = string(data)
	}

	_, err := r.db.ExecContext(ctx, query, item.ID, item.CartID, item.CourseID, item.Mode,
		item.Price, item.Currency, courseJSON)
	return err
}

// RemoveItem deletes a course from a cart.
// Returns the number of rows removed so callers can report a missing item.
func (r *CartRepository) RemoveItem(ctx context.Context, cartID, courseID string) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
		constants.TableCartItem, constants.FieldCartID, constants.FieldCourseID)
	result, err := r.db.ExecContext(ctx, query, cartID, courseID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ClearItems removes every item from a cart. The executor lets checkout
// fulfillment clear the cart inside its transaction.
func (r *CartRepository) ClearItems(ctx context.Context, exec Executor, cartID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?",
		constants.TableCartItem, constants.FieldCartID)
	_, err := exec.ExecContext(ctx, query, cartID)
	return err
}

// Clear removes every item from a cart outside a transaction
func (r *CartRepository) Clear(ctx context.Context, cartID string) error {
	return r.ClearItems(ctx, r.db, cartID)
}
