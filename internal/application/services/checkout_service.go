package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/eskills-store/backend/internal/config"
	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/internal/infrastructure/database"
	"github.com/eskills-store/backend/internal/infrastructure/persistence"
	"github.com/eskills-store/backend/pkg/constants"
	"github.com/eskills-store/backend/pkg/errors"
	"github.com/eskills-store/backend/pkg/utils"
)

// Stripe rejects charges below 50 minor units
const minChargeCents = 50

// txMaxRetries bounds deadlock retries when writing an order
const txMaxRetries = 3

// CheckoutService turns carts into orders and charges them through Stripe.
// The Stripe webhook, not the browser, confirms payment; enrollment happens
// only after a payment_intent.succeeded event.
type CheckoutService struct {
	cfg         config.StripeConfig
	db          *database.MySQLConnection
	txManager   *persistence.TransactionManager
	carts       *persistence.CartRepository
	orders      *persistence.OrderRepository
	users       *persistence.UserRepository
	coupons     *CouponService
	enrollments *EnrollmentService
}

// NewCheckoutService creates a new CheckoutService and installs the Stripe
// API key.
func NewCheckoutService(
	cfg config.StripeConfig,
	db *database.MySQLConnection,
	txManager *persistence.TransactionManager,
	carts *persistence.CartRepository,
	orders *persistence.OrderRepository,
	users *persistence.UserRepository,
	coupons *CouponService,
	enrollments *EnrollmentService,
) *CheckoutService {
	stripe.Key = cfg.SecretKey
	return &CheckoutService{
		cfg:         cfg,
		db:          db,
		txManager:   txManager,
		carts:       carts,
		orders:      orders,
		users:       users,
		coupons:     coupons,
		enrollments: enrollments,
	}
}

// PaymentIntentResult is what the frontend needs to collect payment
type PaymentIntentResult struct {
	OrderID      string  `json:"order_id"`
	ClientSecret string  `json:"client_secret,omitempty"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	PublicKey    string  `json:"public_key,omitempty"`
	Status       string  `json:"status"`
}

// PaymentConfig exposes the publishable key and currency for the frontend
func (s *CheckoutService) PaymentConfig() map[string]string {
	return map[string]string{
		"public_key": s.cfg.PublicKey,
		"currency":   s.cfg.Currency,
	}
}

// CreatePaymentIntent snapshots the cart into a pending order and opens a
// Stripe payment intent for it. Older pending orders of the same user are
// expired so only one checkout is in flight. A fully discounted cart is
// fulfilled immediately without touching Stripe.
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, userID, couponCode string) (*PaymentIntentResult, error) {
	// 1. Load the buyer and the cart
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if user == nil {
		return nil, errors.NewNotFoundError("User", userID)
	}

	cart, err := s.carts.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, errors.NewValidationError("cart", "Your cart is empty")
	}
	if !cart.HasPricedItem() {
		return nil, errors.NewValidationError("cart", "Cart has no items that require payment")
	}

	// 2. Price the order
	total := cart.Total()
	var discount float64
	var couponPtr *string
	if couponCode != "" {
		quote, err := s.coupons.Validate(ctx, couponCode, cart, user.Email)
		if err != nil {
			return nil, err
		}
		discount = quote.Discount
		code := quote.Code
		couponPtr = &code
	}

	amount := round2(total - discount)
	if amount < 0 {
		amount = 0
	}
	amountCents := int64(math.Round(amount * 100))
	if amountCents > 0 && amountCents < minChargeCents {
		return nil, errors.NewValidationError("total", "Order total is below the minimum chargeable amount")
	}

	order := &models.Order{
		ID:         utils.GenerateID(),
		UserID:     userID,
		Amount:     amount,
		Currency:   strings.ToUpper(s.cfg.Currency),
		Status:     constants.OrderStatusPending,
		CouponCode: couponPtr,
		Discount:   discount,
	}

	// 3. Persist the order and its lines atomically, superseding any
	// pending checkout the user abandoned
	var superseded int64
	err = s.txManager.WithRetry(func(tx *sql.Tx) error {
		expired, err := s.orders.ExpirePendingByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		superseded = expired

		if err := s.orders.Create(ctx, tx, order); err != nil {
			return err
		}
		for _, item := range cart.Items {
			name := item.CourseID
			if item.Course != nil && item.Course.Name != "" {
				name = item.Course.Name
			}
			line := &models.OrderItem{
				ID:         utils.GenerateID(),
				OrderID:    order.ID,
				CourseID:   item.CourseID,
				CourseName: name,
				Mode:       item.Mode,
				Price:      item.Price,
				Currency:   item.Currency,
			}
			if err := s.orders.CreateItem(ctx, tx, line); err != nil {
				return err
			}
		}
		return nil
	}, txMaxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if superseded > 0 {
		log.Printf("⏰ Expired %d superseded pending order(s) for user %s", superseded, userID)
	}

	// 4. Fully discounted carts skip Stripe entirely
	if amountCents == 0 {
		if err := s.fulfillOrder(ctx, order.ID); err != nil {
			return nil, err
		}
		return &PaymentIntentResult{
			OrderID:  order.ID,
			Amount:   amount,
			Currency: order.Currency,
			Status:   constants.OrderStatusPaid,
		}, nil
	}

	// 5. Open the payment intent
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(s.cfg.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("order_id", order.ID)
	params.AddMetadata("user_id", userID)
	params.AddMetadata("cart_id", cart.ID)

	pi, err := paymentintent.New(params)
	if err != nil {
		if stErr := s.orders.UpdateStatus(ctx, s.db, order.ID, constants.OrderStatusFailed); stErr != nil {
			log.Printf("❌ Failed to mark order %s failed: %v", order.ID, stErr)
		}
		return nil, errors.NewUpstreamError("stripe payment intent", 0, err.Error())
	}

	if err := s.orders.SetPaymentIntent(ctx, order.ID, pi.ID); err != nil {
		return nil, fmt.Errorf("failed to record payment intent: %w", err)
	}

	log.Printf("📤 Payment intent %s opened for order %s (%.2f %s)", pi.ID, order.ID, amount, order.Currency)
	return &PaymentIntentResult{
		OrderID:      order.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       amount,
		Currency:     order.Currency,
		PublicKey:    s.cfg.PublicKey,
		Status:       constants.OrderStatusPending,
	}, nil
}

// HandleWebhook verifies a Stripe event signature and reacts to payment
// outcomes. Unknown event types are acknowledged and ignored.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.cfg.WebhookSecret)
	if err != nil {
		return errors.NewValidationError("signature", "Invalid webhook signature")
	}

	switch event.Type {
	case "payment_intent.succeeded":
		pi, err := paymentIntentFromEvent(event)
		if err != nil {
			return err
		}
		order, err := s.orderForIntent(ctx, pi)
		if err != nil || order == nil {
			return err
		}
		return s.fulfillOrder(ctx, order.ID)

	case "payment_intent.payment_failed":
		pi, err := paymentIntentFromEvent(event)
		if err != nil {
			return err
		}
		order, err := s.orderForIntent(ctx, pi)
		if err != nil || order == nil {
			return err
		}
		if order.Status != constants.OrderStatusPending {
			return nil
		}
		log.Printf("⚠️ Payment failed for order %s (intent %s)", order.ID, pi.ID)
		return s.orders.UpdateStatus(ctx, s.db, order.ID, constants.OrderStatusFailed)

	default:
		return nil
	}
}

func paymentIntentFromEvent(event stripe.Event) (*stripe.PaymentIntent, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("failed to parse payment intent event: %w", err)
	}
	return &pi, nil
}

// orderForIntent resolves the order an event belongs to, preferring the
// order_id metadata and falling back to the intent id. Events for unknown
// orders are logged and dropped so Stripe stops retrying them.
func (s *CheckoutService) orderForIntent(ctx context.Context, pi *stripe.PaymentIntent) (*models.Order, error) {
	if orderID := pi.Metadata["order_id"]; orderID != "" {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		if order != nil {
			return order, nil
		}
	}

	order, err := s.orders.FindByPaymentIntent(ctx, pi.ID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if order == nil {
		log.Printf("⚠️ Webhook for unknown payment intent %s", pi.ID)
	}
	return order, nil
}

// fulfillOrder enrolls the buyer in every course on a paid order, marks it
// paid, and empties the cart. Fulfilling an already paid order is a no-op,
// which makes webhook retries safe.
func (s *CheckoutService) fulfillOrder(ctx context.Context, orderID string) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if order == nil {
		return errors.NewNotFoundError("Order", orderID)
	}
	if order.Status == constants.OrderStatusPaid {
		return nil
	}

	user, err := s.users.FindByID(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if user == nil {
		return errors.NewNotFoundError("User", order.UserID)
	}

	// Enrollment failures must not void a captured payment. Failed lines
	// are logged and repaired by the next enrollment sync.
	enrolled := 0
	for _, item := range order.Items {
		if _, err := s.enrollments.Grant(ctx, user, item.CourseID, item.Mode); err != nil {
			log.Printf("❌ Failed to enroll %s in %s for order %s: %v", user.Username, item.CourseID, order.ID, err)
			continue
		}
		enrolled++
	}

	if err := s.orders.UpdateStatus(ctx, s.db, order.ID, constants.OrderStatusPaid); err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}

	if cart, err := s.carts.FindByUserID(ctx, order.UserID); err == nil && cart != nil {
		if err := s.carts.Clear(ctx, cart.ID); err != nil {
			log.Printf("⚠️ Failed to clear cart after order %s: %v", order.ID, err)
		}
	}

	log.Printf("✅ Order %s fulfilled: %d/%d enrollment(s) for %s", order.ID, enrolled, len(order.Items), user.Username)
	return nil
}

// GetOrder returns one of the user's orders with its items
func (s *CheckoutService) GetOrder(ctx context.Context, userID, orderID string, isAdmin bool) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if order == nil || (order.UserID != userID && !isAdmin) {
		return nil, errors.NewNotFoundError("Order", orderID)
	}
	return order, nil
}

// ListOrders returns the user's order history with items attached
func (s *CheckoutService) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := s.orders.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	for i := range orders {
		items, err := s.orders.GetItems(ctx, orders[i].ID)
		if err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		orders[i].Items = items
	}
	return orders, nil
}
