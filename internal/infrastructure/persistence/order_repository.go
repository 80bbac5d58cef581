package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/pkg/constants"
)

// OrderRepository handles checkout orders and their line items. Creation
// methods take an Executor so an order and its items commit atomically.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts a new order row
func (r *OrderRepository) Create(ctx context.Context, exec Executor, order *models.Order) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		constants.TableOrder,
		constants.FieldID, constants.FieldUserID, constants.FieldPaymentIntentID,
		constants.FieldAmount, constants.FieldCurrency, constants.FieldStatus,
		constants.FieldCouponCode, constants.FieldDiscount,
		constants.FieldCreatedAt, constants.FieldUpdatedAt)

	var paymentIntentID, couponCode interface{}
	if order.PaymentIntentID != nil {
		paymentIntentID = *order.PaymentIntentID
	}
	if order.CouponCode != nil {
		couponCode = *order.CouponCode
	}

	_, err := exec.ExecContext(ctx, query, order.ID, order.UserID, paymentIntentID,
		order.Amount, order.Currency, order.Status, couponCode, order.Discount)
	return err
}

// CreateItem inserts one order line
func (r *OrderRepository) CreateItem(ctx context.Context, exec Executor, item *models.OrderItem) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES (?, ?, ?, ?, ?, ?, ?, NOW())`,
		constants.TableOrderItem,
		constants.FieldID, constants.FieldOrderID, constants.FieldCourseID, constants.FieldCourseName,
		constants.FieldMode, constants.FieldPrice, constants.FieldCurrency, constants.FieldCreatedAt)

	_, err := exec.ExecContext(ctx, query, item.ID, item.OrderID, item.CourseID, item.CourseName,
		item.Mode, item.Price, item.Currency)
	return err
}

func orderColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		constants.FieldID, constants.FieldUserID, constants.FieldPaymentIntentID,
		constants.FieldAmount, constants.FieldCurrency, constants.FieldStatus,
		constants.FieldCouponCode, constants.FieldDiscount,
		constants.FieldCreatedAt, constants.FieldUpdatedAt)
}

// FindByID retrieves an order with its items.
// Returns nil when no order matches.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1",
		orderColumns(), constants.TableOrder, constants.FieldID)
	return r.findOrder(ctx, query, orderID)
}

// FindByPaymentIntent retrieves the order a Stripe payment intent belongs
// to. Returns nil when no order matches.
func (r *OrderRepository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1",
		orderColumns(), constants.TableOrder, constants.FieldPaymentIntentID)
	return r.findOrder(ctx, query, paymentIntentID)
}

func (r *OrderRepository) findOrder(ctx context.Context, query string, arg interface{}) (*models.Order, error) {
	var o models.Order
	var paymentIntentID, couponCode sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&o.ID, &o.UserID, &paymentIntentID, &o.Amount, &o.Currency, &o.Status,
		&couponCode, &o.Discount, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if paymentIntentID.Valid {
		o.PaymentIntentID = &paymentIntentID.String
	}
	if couponCode.Valid {
		o.CouponCode = &couponCode.String
	}

	items, err := r.GetItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

// FindByUser retrieves a user's orders, newest first, without items
func (r *OrderRepository) FindByUser(ctx context.Context, userID string) ([]models.Order, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s DESC",
		orderColumns(), constants.TableOrder, constants.FieldUserID, constants.FieldCreatedAt)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		var o models.Order
		var paymentIntentID, couponCode sql.NullString

		if err := rows.Scan(&o.ID, &o.UserID, &paymentIntentID, &o.Amount, &o.Currency,
			&o.Status, &couponCode, &o.Discount, &o.CreatedAt, &o.UpdatedAt); err != nil {
			continue
		}

		if paymentIntentID.Valid {
			o.PaymentIntentID = &paymentIntentID.String
		}
		if couponCode.Valid {
			o.CouponCode = &couponCode.String
		}

		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// GetItems retrieves the lines of an order
func (r *OrderRepository) GetItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = ?
		ORDER BY %s ASC`,
		constants.FieldID, constants.FieldOrderID, constants.FieldCourseID, constants.FieldCourseName,
		constants.FieldMode, constants.FieldPrice, constants.FieldCurrency, constants.FieldCreatedAt,
		constants.TableOrderItem,
		constants.FieldOrderID,
		constants.FieldCreatedAt)

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.OrderItem, 0)
	for rows.Next() {
		var item models.OrderItem
		var price sql.NullFloat64

		if err := rows.Scan(&item.ID, &item.OrderID, &item.CourseID, &item.CourseName,
			&item.Mode, &price, &item.Currency, &item.CreatedAt); err != nil {
			continue
		}

		if price.Valid {
			item.Price = &price.Float64
		}

		items = append(items, item)
	}
	return items, rows.Err()
}

// SetPaymentIntent records the Stripe payment intent id on an order
func (r *OrderRepository) SetPaymentIntent(ctx context.Context, orderID, paymentIntentID string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ?, %s = NOW() WHERE %s = ?",
		constants.TableOrder, constants.FieldPaymentIntentID, constants.FieldUpdatedAt, constants.FieldID)
	_, err := r.db.ExecContext(ctx, query, paymentIntentID, orderID)
	return err
}

// UpdateStatus moves an order to a new status
func (r *OrderRepository) UpdateStatus(ctx context.Context, exec Executor, orderID, status string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = ?, %s = NOW() WHERE %s = ?",
		constants.TableOrder, constants.FieldStatus, constants.FieldUpdatedAt, constants.FieldID)
	_, err := exec.ExecContext(ctx, query, status, orderID)
	return err
}

// ExpirePendingByUser expires a user's older pending orders. Called when a
// new payment intent supersedes them.
func (r *OrderRepository) ExpirePendingByUser(ctx context.Context, exec Executor, userID string) (int64, error) {
	query := fmt.Sprintf("UPDATE %s SET %s = ?, %s = NOW() WHERE %s = ? AND %s = ?",
		constants.TableOrder,
		constants.FieldStatus, constants.FieldUpdatedAt,
		constants.FieldUserID, constants.FieldStatus)

	result, err := exec.ExecContext(ctx, query, constants.OrderStatusExpired, userID, constants.OrderStatusPending)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ExpireStalePending expires pending orders older than the given number of
// hours. Returns the number of rows changed.
func (r *OrderRepository) ExpireStalePending(ctx context.Context, hours int) (int64, error) {
	query := fmt.Sprintf("UPDATE %s SET %s = ?, %s = NOW() WHERE %s = ? AND %s < DATE_SUB(NOW(), INTERVAL ? HOUR)",
		constants.TableOrder,
		constants.FieldStatus, constants.FieldUpdatedAt,
		constants.FieldStatus, constants.FieldCreatedAt)

	result, err := r.db.ExecContext(ctx, query, constants.OrderStatusExpired, constants.OrderStatusPending, hours)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
