package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/pkg/constants"
)

// EnrollmentRepository handles local enrollment records. The OpenEdX
// enrollment API remains the source of truth; these rows mirror it.
type EnrollmentRepository struct {
	db *sql.DB
}

func NewEnrollmentRepository(db *sql.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Upsert inserts an enrollment or refreshes an existing (user, course) row.
// Re-enrolling reactivates a previously dropped enrollment.
func (r *EnrollmentRepository) Upsert(ctx context.Context, enrollment *models.Enrollment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES (?, ?, ?, ?, ?, ?, NOW(), NOW(), NOW())
		ON DUPLICATE KEY UPDATE
			%s = VALUES(%s),
			%s = VALUES(%s),
			%s = VALUES(%s),
			%s = NOW()`,
		constants.TableEnrollment,
		constants.FieldID, constants.FieldUserID, constants.FieldCourseID, constants.FieldMode,
		constants.FieldStatus, constants.FieldIsActive, constants.FieldEnrolledAt,
		constants.FieldCreatedAt, constants.FieldUpdatedAt,
		constants.FieldMode, constants.FieldMode,
		constants.FieldStatus, constants.FieldStatus,
		constants.FieldIsActive, constants.FieldIsActive,
		constants.FieldUpdatedAt)

	_, err := r.db.ExecContext(ctx, query, enrollment.ID, enrollment.UserID, enrollment.CourseID,
		enrollment.Mode, enrollment.Status, enrollment.IsActive)
	return err
}

// FindByUser retrieves a user's enrollments, newest first
func (r *EnrollmentRepository) FindByUser(ctx context.Context, userID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = ?
		ORDER BY %s DESC`,
		constants.FieldID, constants.FieldUserID, constants.FieldCourseID, constants.FieldMode,
		constants.FieldStatus, constants.FieldIsActive, constants.FieldEnrolledAt,
		constants.FieldLastAccessed, constants.FieldCreatedAt, constants.FieldUpdatedAt,
		constants.TableEnrollment,
		constants.FieldUserID,
		constants.FieldEnrolledAt)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enrollments := make([]models.Enrollment, 0)
	for rows.Next() {
		var e models.Enrollment
		var lastAccessed sql.NullTime

		if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.Mode, &e.Status, &e.IsActive,
			&e.EnrolledAt, &lastAccessed, &e.CreatedAt, &e.UpdatedAt); err != nil {
			continue
		}

		if lastAccessed.Valid {
			e.LastAccessed = &lastAccessed.Time
		}

		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

// FindByUserAndCourse retrieves one enrollment row.
// Returns nil when no row matches.
func (r *EnrollmentRepository) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = ? AND %s = ? LIMIT 1`,
		constants.FieldID, constants.FieldUserID, constants.FieldCourseID, constants.FieldMode,
		constants.FieldStatus, constants.FieldIsActive, constants.FieldEnrolledAt,
		constants.FieldLastAccessed, constants.FieldCreatedAt, constants.FieldUpdatedAt,
		constants.TableEnrollment,
		constants.FieldUserID, constants.FieldCourseID)

	var e models.Enrollment
	var lastAccessed sql.NullTime

	err := r.db.QueryRowContext(ctx, query, userID, courseID).Scan(
		&e.ID, &e.UserID, &e.CourseID, &e.Mode, &e.Status, &e.IsActive,
		&e.EnrolledAt, &lastAccessed, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if lastAccessed.Valid {
		e.LastAccessed = &lastAccessed.Time
	}

	return &e, nil
}

// HasActiveEnrollment reports whether a user has an active enrollment in a course
func (r *EnrollmentRepository) HasActiveEnrollment(ctx context.Context, userID, courseID string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ? AND %s = ? AND %s = 1)",
		constants.TableEnrollment, constants.FieldUserID, constants.FieldCourseID, constants.FieldIsActive)
	err := r.db.QueryRowContext(ctx, query, userID, courseID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ActiveCourseIDs retrieves the course ids of a user's active enrollments
func (r *EnrollmentRepository) ActiveCourseIDs(ctx context.Context, userID string) ([]string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = 1",
		constants.FieldCourseID, constants.TableEnrollment, constants.FieldUserID, constants.FieldIsActive)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courseIDs := make([]string, 0)
	for rows.Next() {
		var courseID string
		if err := rows.Scan(&courseID); err != nil {
			continue
		}
		courseIDs = append(courseIDs, courseID)
	}
	return courseIDs, rows.Err()
}

// Deactivate marks an enrollment dropped locally.
// Returns the number of rows changed so callers can report a missing enrollment.
func (r *EnrollmentRepository) Deactivate(ctx context.Context, userID, courseID string) (int64, error) {
	query := fmt.Sprintf("UPDATE %s SET %s = 0, %s = ?, %s = NOW() WHERE %s = ? AND %s = ? AND %s = 1",
		constants.TableEnrollment,
		constants.FieldIsActive, constants.FieldStatus, constants.FieldUpdatedAt,
		constants.FieldUserID, constants.FieldCourseID, constants.FieldIsActive)

	result, err := r.db.ExecContext(ctx, query, constants.EnrollmentStatusDropped, userID, courseID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
