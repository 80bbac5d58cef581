package models

import (
	"time"
)

// Coupon represents a percentage discount code. Rule, when set, is an
// expression evaluated against the cart (total, item_count, course_ids,
// modes, email); the coupon only applies when it evaluates to true.
type Coupon struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Description *string    `json:"description,omitempty"`
	PercentOff  float64    `json:"percent_off"`
	Rule        *string    `json:"rule,omitempty"`
	IsActive    bool       `json:"is_active"`
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CouponQuote is the result of validating a coupon against a cart
type CouponQuote struct {
	Code            string  `json:"code"`
	PercentOff      float64 `json:"percent_off"`
	Discount        float64 `json:"discount"`
	Total           float64 `json:"total"`
	DiscountedTotal float64 `json:"discounted_total"`
}
