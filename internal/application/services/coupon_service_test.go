package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/internal/infrastructure/persistence"
	"github.com/eskills-store/backend/pkg/constants"
	"github.com/eskills-store/backend/pkg/errors"
	"github.com/eskills-store/backend/pkg/expression"
)

var couponColumns = []string{
	constants.FieldID, constants.FieldCode, constants.FieldDescription, constants.FieldPercentOff,
	constants.FieldRule, constants.FieldIsActive, constants.FieldStartsAt, constants.FieldEndsAt,
	constants.FieldCreatedAt, constants.FieldUpdatedAt,
}

func newCouponService(t *testing.T) (*CouponService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := persistence.NewCouponRepository(db)
	return NewCouponService(repo, expression.NewEngine()), mock
}

func priced(v float64) *float64 {
	return &v
}

func testCart(items ...models.CartItem) *models.Cart {
	return &models.Cart{
		ID:     "cart-1",
		UserID: "user-1",
		Items:  items,
	}
}

func TestValidateCouponQuotesDiscount(t *testing.T) {
	service, mock := newCouponService(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM coupons").
		WithArgs("WELCOME10").
		WillReturnRows(sqlmock.NewRows(couponColumns).
			AddRow("cpn-1", "WELCOME10", nil, 10.0, "total >= 100", true, nil, nil, now, now))

	cart := testCart(
		models.CartItem{CourseID: "course-v1:ESLSCA+MBA101+2026", Mode: "verified", Price: priced(100)},
		models.CartItem{CourseID: "course-v1:ESLSCA+FIN200+2026", Mode: "verified", Price: priced(49.99)},
	)

	// The code is normalized before lookup
	quote, err := service.Validate(context.Background(), "  welcome10 ", cart, "student@example.com")
	require.NoError(t, err)
	assert.Equal(t, "WELCOME10", quote.Code)
	assert.Equal(t, 149.99, quote.Total)
	assert.Equal(t, 15.0, quote.Discount)
	assert.Equal(t, 134.99, quote.DiscountedTotal)
}

func TestValidateCouponChecksRule(t *testing.T) {
	service, mock := newCouponService(t)
	now := time.Now()

	// Test Case 1: cart does not satisfy the rule
	mock.ExpectQuery("SELECT (.+) FROM coupons").
		WithArgs("BIGSPENDER").
		WillReturnRows(sqlmock.NewRows(couponColumns).
			AddRow("cpn-2", "BIGSPENDER", nil, 25.0, "total >= 500", true, nil, nil, now, now))

	cart := testCart(models.CartItem{CourseID: "course-v1:E+C+R", Mode: "verified", Price: priced(80)})

	_, err := service.Validate(context.Background(), "BIGSPENDER", cart, "student@example.com")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "does not apply")

	// Test Case 2: rule matching on cart modes
	mock.ExpectQuery("SELECT (.+) FROM coupons").
		WithArgs("VERIFIEDONLY").
		WillReturnRows(sqlmock.NewRows(couponColumns).
			AddRow("cpn-3", "VERIFIEDONLY", nil, 15.0, `"verified" in modes`, true, nil, nil, now, now))

	quote, err := service.Validate(context.Background(), "VERIFIEDONLY", cart, "student@example.com")
	require.NoError(t, err)
	assert.Equal(t, 12.0, quote.Discount)
}

func TestValidateCouponTimeWindow(t *testing.T) {
	service, mock := newCouponService(t)
	now := time.Now()

	// Test Case 1: not started yet
	mock.ExpectQuery("SELECT (.+) FROM coupons").
		WithArgs("SOON").
		WillReturnRows(sqlmock.NewRows(couponColumns).
			AddRow("cpn-4", "SOON", nil, 10.0, nil, true, now.Add(time.Hour), nil, now, now))

	cart := testCart(models.CartItem{CourseID: "course-v1:E+C+R", Mode: "audit", Price: priced(50)})

	_, err := service.Validate(context.Background(), "SOON", cart, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid yet")

	// Test Case 2: already over
	mock.ExpectQuery("SELECT (.+) FROM coupons").
		WithArgs("GONE").
		WillReturnRows(sqlmock.NewRows(couponColumns).
			AddRow("cpn-5", "GONE", nil, 10.0, nil, true, nil, now.Add(-time.Hour), now, now))

	_, err = service.Validate(context.Background(), "GONE", cart, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")

	// Test Case 3: disabled by an admin
	mock.ExpectQuery("SELECT (.+) FROM coupons").
		WithArgs("PAUSED").
		WillReturnRows(sqlmock.NewRows(couponColumns).
			AddRow("cpn-6", "PAUSED", nil, 10.0, nil, false, nil, nil, now, now))

	_, err = service.Validate(context.Background(), "PAUSED", cart, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not active")
}

func TestValidateCouponUnknownCode(t *testing.T) {
	service, mock := newCouponService(t)

	mock.ExpectQuery("SELECT (.+) FROM coupons").
		WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows(couponColumns))

	cart := testCart(models.CartItem{CourseID: "course-v1:E+C+R", Mode: "audit", Price: priced(50)})

	_, err := service.Validate(context.Background(), "NOPE", cart, "")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestCreateCouponValidatesRequest(t *testing.T) {
	service, _ := newCouponService(t)
	ctx := context.Background()

	// Test Case 1: discount bounds
	_, err := service.CreateCoupon(ctx, CouponRequest{Code: "X", PercentOff: 0})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = service.CreateCoupon(ctx, CouponRequest{Code: "X", PercentOff: 150})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	// Test Case 2: rules are compile-checked up front
	_, err = service.CreateCoupon(ctx, CouponRequest{Code: "X", PercentOff: 10, Rule: "total >="})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "Invalid rule")

	// Test Case 3: window sanity
	start := time.Now()
	end := start.Add(-time.Hour)
	_, err = service.CreateCoupon(ctx, CouponRequest{Code: "X", PercentOff: 10, StartsAt: &start, EndsAt: &end})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestCreateCouponRejectsDuplicateCode(t *testing.T) {
	service, mock := newCouponService(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("SPRING20").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := service.CreateCoupon(context.Background(), CouponRequest{Code: "spring20", PercentOff: 20})
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestDeleteCouponNotFound(t *testing.T) {
	service, mock := newCouponService(t)

	mock.ExpectExec("DELETE FROM coupons").
		WithArgs("cpn-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := service.DeleteCoupon(context.Background(), "cpn-missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}
