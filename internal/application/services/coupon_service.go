package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/internal/infrastructure/persistence"
	"github.com/eskills-store/backend/pkg/errors"
	"github.com/eskills-store/backend/pkg/expression"
	"github.com/eskills-store/backend/pkg/utils"
)

// CouponService validates discount codes against carts and manages the
// coupon catalog. Eligibility rules are expressions evaluated against the
// cart, e.g. `total >= 100 && "verified" in modes`.
type CouponService struct {
	coupons *persistence.CouponRepository
	engine  *expression.Engine
}

// NewCouponService creates a new CouponService
func NewCouponService(coupons *persistence.CouponRepository, engine *expression.Engine) *CouponService {
	return &CouponService{
		coupons: coupons,
		engine:  engine,
	}
}

// CouponRequest carries the fields for creating or updating a coupon
type CouponRequest struct {
	Code        string     `json:"code"`
	Description string     `json:"description"`
	PercentOff  float64    `json:"percent_off"`
	Rule        string     `json:"rule"`
	IsActive    bool       `json:"is_active"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

func normalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ruleEnv builds the variables a coupon rule can reference
func ruleEnv(cart *models.Cart, userEmail string) map[string]interface{} {
	courseIDs := make([]string, 0, len(cart.Items))
	modes := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		courseIDs = append(courseIDs, item.CourseID)
		modes = append(modes, item.Mode)
	}
	return map[string]interface{}{
		"total":      cart.Total(),
		"item_count": len(cart.Items),
		"course_ids": courseIDs,
		"modes":      modes,
		"email":      userEmail,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Validate checks a coupon against the cart and quotes the discount it
// would yield at checkout.
func (s *CouponService) Validate(ctx context.Context, code string, cart *models.Cart, userEmail string) (*models.CouponQuote, error) {
	code = normalizeCouponCode(code)
	if code == "" {
		return nil, errors.NewValidationError("code", "Coupon code is required")
	}

	coupon, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if coupon == nil {
		return nil, errors.NewNotFoundError("Coupon", code)
	}

	now := time.Now()
	if !coupon.IsActive {
		return nil, errors.NewValidationError("code", "This coupon is not active")
	}
	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return nil, errors.NewValidationError("code", "This coupon is not valid yet")
	}
	if coupon.EndsAt != nil && now.After(*coupon.EndsAt) {
		return nil, errors.NewValidationError("code", "This coupon has expired")
	}

	if coupon.Rule != nil && *coupon.Rule != "" {
		eligible, err := s.engine.EvaluateBool(*coupon.Rule, ruleEnv(cart, userEmail))
		if err != nil {
			log.Printf("⚠️ Coupon %s rule failed to evaluate: %v", coupon.Code, err)
			return nil, errors.NewValidationError("code", "This coupon does not apply to your cart")
		}
		if !eligible {
			return nil, errors.NewValidationError("code", "This coupon does not apply to your cart")
		}
	}

	total := cart.Total()
	discount := round2(total * coupon.PercentOff / 100)

	return &models.CouponQuote{
		Code:            coupon.Code,
		PercentOff:      coupon.PercentOff,
		Discount:        discount,
		Total:           total,
		DiscountedTotal: round2(total - discount),
	}, nil
}

// validateRequest checks the shared create/update constraints
func (s *CouponService) validateRequest(req *CouponRequest) error {
	req.Code = normalizeCouponCode(req.Code)
	if req.Code == "" {
		return errors.NewValidationError("code", "Coupon code is required")
	}
	if len(req.Code) > 64 {
		return errors.NewValidationError("code", "Coupon code must be at most 64 characters")
	}
	if req.PercentOff <= 0 || req.PercentOff > 100 {
		return errors.NewValidationError("percent_off", "Discount must be between 0 and 100 percent")
	}
	if req.Rule != "" {
		if err := s.engine.Validate(req.Rule); err != nil {
			return errors.NewValidationError("rule", fmt.Sprintf("Invalid rule: %v", err))
		}
	}
	if req.StartsAt != nil && req.EndsAt != nil && req.EndsAt.Before(*req.StartsAt) {
		return errors.NewValidationError("ends_at", "Coupon cannot end before it starts")
	}
	return nil
}

func applyRequest(coupon *models.Coupon, req CouponRequest) {
	coupon.Code = req.Code
	coupon.PercentOff = req.PercentOff
	coupon.IsActive = req.IsActive
	coupon.StartsAt = req.StartsAt
	coupon.EndsAt = req.EndsAt
	coupon.Description = nil
	if req.Description != "" {
		coupon.Description = &req.Description
	}
	coupon.Rule = nil
	if req.Rule != "" {
		coupon.Rule = &req.Rule
	}
}

// CreateCoupon adds a coupon. The rule expression is compile-checked so a
// broken rule cannot reach checkout.
func (s *CouponService) CreateCoupon(ctx context.Context, req CouponRequest) (*models.Coupon, error) {
	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}

	exists, err := s.coupons.CheckCodeExists(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if exists {
		return nil, errors.NewConflictError("Coupon", "code", req.Code)
	}

	coupon := &models.Coupon{ID: utils.GenerateID()}
	applyRequest(coupon, req)

	if err := s.coupons.Create(ctx, coupon); err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	log.Printf("✅ Created coupon %s (%.0f%% off)", coupon.Code, coupon.PercentOff)
	return coupon, nil
}

// UpdateCoupon replaces a coupon's fields
func (s *CouponService) UpdateCoupon(ctx context.Context, id string, req CouponRequest) (*models.Coupon, error) {
	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}

	coupon, err := s.coupons.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if coupon == nil {
		return nil, errors.NewNotFoundError("Coupon", id)
	}

	if req.Code != coupon.Code {
		exists, err := s.coupons.CheckCodeExists(ctx, req.Code)
		if err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		if exists {
			return nil, errors.NewConflictError("Coupon", "code", req.Code)
		}
	}

	applyRequest(coupon, req)
	if err := s.coupons.Update(ctx, coupon); err != nil {
		return nil, fmt.Errorf("failed to update coupon: %w", err)
	}
	return coupon, nil
}

// DeleteCoupon removes a coupon
func (s *CouponService) DeleteCoupon(ctx context.Context, id string) error {
	deleted, err := s.coupons.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete coupon: %w", err)
	}
	if deleted == 0 {
		return errors.NewNotFoundError("Coupon", id)
	}
	log.Printf("✅ Deleted coupon %s", id)
	return nil
}

// GetCoupon retrieves one coupon
func (s *CouponService) GetCoupon(ctx context.Context, id string) (*models.Coupon, error) {
	coupon, err := s.coupons.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if coupon == nil {
		return nil, errors.NewNotFoundError("Coupon", id)
	}
	return coupon, nil
}

// ListCoupons returns all coupons, newest first
func (s *CouponService) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	return s.coupons.FindAll(ctx)
}
