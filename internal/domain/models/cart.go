package models

import (
	"time"
)

// Cart represents a user's shopping cart. Each user owns at most one cart,
// created lazily on first use.
type Cart struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem represents one course in a cart. Course carries the catalog
// snapshot taken when the item was added; it is stored as JSON so checkout
// does not depend on the catalog being reachable.
type CartItem struct {
	ID        string    `json:"id"`
	CartID    string    `json:"cart_id"`
	CourseID  string    `json:"course_id"`
	Mode      string    `json:"mode"`
	Price     *float64  `json:"price,omitempty"`
	Currency  string    `json:"currency"`
	Course    *Course   `json:"course,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Total sums the priced items. Free items carry a nil price and do not count.
func (c *Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		if item.Price != nil {
			total += *item.Price
		}
	}
	return total
}

// HasPricedItem reports whether any line needs payment. A cart of only free
// courses has nothing to check out; those enroll directly.
func (c *Cart) HasPricedItem() bool {
	for _, item := range c.Items {
		if item.Price != nil && *item.Price > 0 {
			return true
		}
	}
	return false
}
