package services

import (
	"context"
	"fmt"
	"log"

	"github.com/eskills-store/backend/internal/infrastructure/database"
	"github.com/eskills-store/backend/pkg/constants"
	"github.com/eskills-store/backend/pkg/errors"
)

// ReportService runs admin reporting: canned sales aggregates plus guarded
// ad hoc SELECT queries.
type ReportService struct {
	db    *database.MySQLConnection
	guard *QueryGuard
}

// NewReportService creates a new ReportService
func NewReportService(db *database.MySQLConnection, guard *QueryGuard) *ReportService {
	return &ReportService{
		db:    db,
		guard: guard,
	}
}

// QueryResult carries the rows of an ad hoc report query along with the
// SQL that actually ran after the guard rewrote it.
type QueryResult struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
	Count   int                      `json:"count"`
	SQL     string                   `json:"sql"`
}

// RunQuery executes an ad hoc SELECT after the guard validates and caps it.
// Placeholder params are passed through to the driver so report queries can
// be parameterized instead of interpolated.
func (s *ReportService) RunQuery(ctx context.Context, sqlText string, params []interface{}) (*QueryResult, error) {
	safeSQL, err := s.guard.ValidateAndCap(sqlText)
	if err != nil {
		return nil, errors.NewValidationError("sql", err.Error())
	}

	log.Printf("🔧 Report query: %s", safeSQL)

	rows, err := s.db.QueryContext(ctx, safeSQL, params...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	result := &QueryResult{
		Columns: cols,
		Rows:    make([]map[string]interface{}, 0),
		SQL:     safeSQL,
	}

	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() && len(result.Rows) < maxReportRows {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.Count = len(result.Rows)
	return result, nil
}

// SalesSummary aggregates the store's paid orders
type SalesSummary struct {
	PaidOrders        int64   `json:"paid_orders"`
	Revenue           float64 `json:"revenue"`
	DiscountGiven     float64 `json:"discount_given"`
	CoursesSold       int64   `json:"courses_sold"`
	ActiveEnrollments int64   `json:"active_enrollments"`
}

// GetSalesSummary computes the storefront totals
func (s *ReportService) GetSalesSummary(ctx context.Context) (*SalesSummary, error) {
	summary := &SalesSummary{}

	orderQuery := fmt.Sprintf(
		"SELECT COUNT(*), COALESCE(SUM(%s), 0), COALESCE(SUM(%s), 0) FROM %s WHERE %s = ?",
		constants.FieldAmount, constants.FieldDiscount, constants.TableOrder, constants.FieldStatus)
	err := s.db.QueryRowContext(ctx, orderQuery, constants.OrderStatusPaid).Scan(
		&summary.PaidOrders, &summary.Revenue, &summary.DiscountGiven)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate orders: %w", err)
	}

	itemQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM %s i JOIN %s o ON i.%s = o.%s WHERE o.%s = ?",
		constants.TableOrderItem, constants.TableOrder,
		constants.FieldOrderID, constants.FieldID, constants.FieldStatus)
	err = s.db.QueryRowContext(ctx, itemQuery, constants.OrderStatusPaid).Scan(&summary.CoursesSold)
	if err != nil {
		return nil, fmt.Errorf("failed to count sold courses: %w", err)
	}

	enrollQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = 1",
		constants.TableEnrollment, constants.FieldIsActive)
	err = s.db.QueryRowContext(ctx, enrollQuery).Scan(&summary.ActiveEnrollments)
	if err != nil {
		return nil, fmt.Errorf("failed to count enrollments: %w", err)
	}

	return summary, nil
}

// CourseSales is one row of the best-seller report
type CourseSales struct {
	CourseID   string  `json:"course_id"`
	CourseName string  `json:"course_name"`
	Purchases  int64   `json:"purchases"`
	Revenue    float64 `json:"revenue"`
}

// GetTopCourses lists the best selling courses by paid purchases
func (s *ReportService) GetTopCourses(ctx context.Context, limit int) ([]CourseSales, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	query := fmt.Sprintf(`
		SELECT i.%s, i.%s, COUNT(*), COALESCE(SUM(i.%s), 0)
		FROM %s i
		JOIN %s o ON i.%s = o.%s
		WHERE o.%s = ?
		GROUP BY i.%s, i.%s
		ORDER BY COUNT(*) DESC
		LIMIT ?`,
		constants.FieldCourseID, constants.FieldCourseName, constants.FieldPrice,
		constants.TableOrderItem,
		constants.TableOrder, constants.FieldOrderID, constants.FieldID,
		constants.FieldStatus,
		constants.FieldCourseID, constants.FieldCourseName)

	rows, err := s.db.QueryContext(ctx, query, constants.OrderStatusPaid, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top courses: %w", err)
	}
	defer rows.Close()

	sales := make([]CourseSales, 0)
	for rows.Next() {
		var cs CourseSales
		if err := rows.Scan(&cs.CourseID, &cs.CourseName, &cs.Purchases, &cs.Revenue); err != nil {
			return nil, err
		}
		sales = append(sales, cs)
	}
	return sales, rows.Err()
}
