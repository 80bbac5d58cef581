package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eskills-store/backend/internal/infrastructure/database"
	"github.com/eskills-store/backend/pkg/errors"
)

func newReportService(t *testing.T) (*ReportService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewReportService(database.NewWithDB(db), NewQueryGuard()), mock
}

func TestRunQueryExecutesCappedSQL(t *testing.T) {
	service, mock := newReportService(t)

	mock.ExpectQuery("SELECT (.+) FROM `orders`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).
			AddRow("ord-1", "paid").
			AddRow("ord-2", "pending"))

	result, err := service.RunQuery(context.Background(), "SELECT id, status FROM orders", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, []string{"id", "status"}, result.Columns)
	assert.Equal(t, "ord-1", result.Rows[0]["id"])
	assert.Contains(t, result.SQL, "LIMIT 1000")
}

func TestRunQueryBindsParams(t *testing.T) {
	service, mock := newReportService(t)

	mock.ExpectQuery("SELECT (.+) FROM `orders`").
		WithArgs("paid").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ord-1"))

	result, err := service.RunQuery(context.Background(),
		"SELECT id FROM orders WHERE status = ?", []interface{}{"paid"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
}

func TestRunQueryRejectsUnsafeSQL(t *testing.T) {
	service, _ := newReportService(t)
	ctx := context.Background()

	// Test Case 1: mutations never reach the database
	_, err := service.RunQuery(ctx, "UPDATE orders SET status = 'paid'", nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	// Test Case 2: neither do reads of the session table
	_, err = service.RunQuery(ctx, "SELECT token FROM sessions", nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestGetSalesSummary(t *testing.T) {
	service, mock := newReportService(t)

	mock.ExpectQuery("SELECT COUNT(.+) FROM orders").
		WithArgs("paid").
		WillReturnRows(sqlmock.NewRows([]string{"count", "revenue", "discount"}).
			AddRow(12, 1500.50, 120.25))
	mock.ExpectQuery("SELECT COUNT(.+) FROM order_items").
		WithArgs("paid").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))
	mock.ExpectQuery("SELECT COUNT(.+) FROM enrollments").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(45))

	summary, err := service.GetSalesSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), summary.PaidOrders)
	assert.Equal(t, 1500.50, summary.Revenue)
	assert.Equal(t, 120.25, summary.DiscountGiven)
	assert.Equal(t, int64(30), summary.CoursesSold)
	assert.Equal(t, int64(45), summary.ActiveEnrollments)
}

func TestGetTopCourses(t *testing.T) {
	service, mock := newReportService(t)

	// Test Case 1: out-of-range limits fall back to ten
	mock.ExpectQuery("SELECT (.+) FROM order_items").
		WithArgs("paid", 10).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "course_name", "purchases", "revenue"}).
			AddRow("course-v1:ESLSCA+MBA101+2026", "MBA Essentials", 25, 3749.75))

	sales, err := service.GetTopCourses(context.Background(), -1)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "MBA Essentials", sales[0].CourseName)
	assert.Equal(t, int64(25), sales[0].Purchases)

	// Test Case 2: explicit limit passes through
	mock.ExpectQuery("SELECT (.+) FROM order_items").
		WithArgs("paid", 5).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "course_name", "purchases", "revenue"}))

	sales, err = service.GetTopCourses(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, sales)
}
