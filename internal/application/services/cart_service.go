package services

import (
	"context"
	"fmt"
	"log"

	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/internal/infrastructure/openedx"
	"github.com/eskills-store/backend/internal/infrastructure/persistence"
	"github.com/eskills-store/backend/pkg/constants"
	"github.com/eskills-store/backend/pkg/errors"
	"github.com/eskills-store/backend/pkg/utils"
)

// CartService manages shopping carts. Items snapshot the course and its
// price at add time so checkout charges what the buyer saw.
type CartService struct {
	carts       *persistence.CartRepository
	enrollments *persistence.EnrollmentRepository
	catalog     *CatalogService
}

// NewCartService creates a new CartService
func NewCartService(carts *persistence.CartRepository, enrollments *persistence.EnrollmentRepository, catalog *CatalogService) *CartService {
	return &CartService{
		carts:       carts,
		enrollments: enrollments,
		catalog:     catalog,
	}
}

// GetCart returns the user's cart, creating an empty one on first use
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if cart != nil {
		return cart, nil
	}

	cart = &models.Cart{
		ID:     utils.GenerateID(),
		UserID: userID,
		Items:  []models.CartItem{},
	}
	if err := s.carts.Create(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return cart, nil
}

// AddItem puts a course in the user's cart. The course must exist on the
// LMS, must not already be in the cart, and the user must not already be
// enrolled in it. An empty mode falls back to the course's purchase mode.
func (s *CartService) AddItem(ctx context.Context, userID, courseID, mode string) (*models.Cart, error) {
	courseID = openedx.NormalizeCourseID(courseID)
	if courseID == "" {
		return nil, errors.NewValidationError("course_id", "Course id is required")
	}

	// 1. The course must exist; this also resolves price and mode
	course, err := s.catalog.GetCourse(ctx, courseID, "")
	if err != nil {
		return nil, err
	}

	// 2. Already enrolled means nothing to buy
	enrolled, err := s.enrollments.HasActiveEnrollment(ctx, userID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if enrolled {
		return nil, errors.NewConflictError("Enrollment", "course_id", course.ID)
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 3. One cart item per course
	exists, err := s.carts.HasItem(ctx, cart.ID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if exists {
		return nil, errors.NewConflictError("Cart item", "course_id", course.ID)
	}

	if mode == "" {
		mode = course.Mode
	}
	if mode == "" {
		mode = constants.ModeAudit
	}

	// Free courses carry no price; checkout skips them
	var price *float64
	if course.Price > 0 {
		p := course.Price
		price = &p
	}
	item := &models.CartItem{
		ID:       utils.GenerateID(),
		CartID:   cart.ID,
		CourseID: course.ID,
		Mode:     mode,
		Price:    price,
		Currency: course.Currency,
		Course:   course,
	}
	if err := s.carts.AddItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	log.Printf("✅ Added %s to cart for user %s (%s %.2f %s)", course.ID, userID, mode, course.Price, course.Currency)
	return s.carts.FindByID(ctx, cart.ID)
}

// RemoveItem takes a course out of the user's cart
func (s *CartService) RemoveItem(ctx context.Context, userID, courseID string) (*models.Cart, error) {
	courseID = openedx.NormalizeCourseID(courseID)

	cart, err := s.carts.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if cart == nil {
		return nil, errors.NewNotFoundError("Cart", "")
	}

	removed, err := s.carts.RemoveItem(ctx, cart.ID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}
	if removed == 0 {
		return nil, errors.NewNotFoundError("Cart item", courseID)
	}

	return s.carts.FindByID(ctx, cart.ID)
}

// Clear empties the user's cart. Clearing a missing cart is a no-op.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	cart, err := s.carts.FindByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if cart == nil {
		return nil
	}
	return s.carts.Clear(ctx, cart.ID)
}
