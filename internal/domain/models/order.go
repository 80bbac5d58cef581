package models

import (
	"time"
)

// Order represents a checkout attempt. One row per Stripe payment intent;
// status moves pending -> paid on webhook confirmation, pending -> expired
// by the maintenance job when abandoned.
type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	PaymentIntentID *string     `json:"payment_intent_id,omitempty"`
	Amount          float64     `json:"amount"`
	Currency        string      `json:"currency"`
	Status          string      `json:"status"`
	CouponCode      *string     `json:"coupon_code,omitempty"`
	Discount        float64     `json:"discount"`
	Items           []OrderItem `json:"items,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// OrderItem is a line captured from the cart at checkout time
type OrderItem struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	CourseID   string    `json:"course_id"`
	CourseName string    `json:"course_name"`
	Mode       string    `json:"mode"`
	Price      *float64  `json:"price,omitempty"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
}
