package persistence

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/pkg/constants"
)

func TestUpsertEnrollment(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewEnrollmentRepository(db)

	enrollment := &models.Enrollment{
		ID:       "enr-1",
		UserID:   "user-1",
		CourseID: "course-v1:ORG+CS101+2024",
		Mode:     "audit",
		Status:   constants.EnrollmentStatusActive,
		IsActive: true,
	}

	mock.ExpectExec(regexp.QuoteMeta(fmt.Sprintf("INSERT INTO %s", constants.TableEnrollment))).
		WithArgs(enrollment.ID, enrollment.UserID, enrollment.CourseID, enrollment.Mode,
			enrollment.Status, enrollment.IsActive).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Upsert(context.Background(), enrollment)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasActiveEnrollment(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewEnrollmentRepository(db)

	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ? AND %s = ? AND %s = 1)",
		constants.TableEnrollment, constants.FieldUserID, constants.FieldCourseID, constants.FieldIsActive)

	// Test Case 1: enrolled
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("user-1", "course-v1:ORG+CS101+2024").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	enrolled, err := repo.HasActiveEnrollment(context.Background(), "user-1", "course-v1:ORG+CS101+2024")
	assert.NoError(t, err)
	assert.True(t, enrolled)

	// Test Case 2: not enrolled
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("user-1", "course-v1:ORG+CS999+2024").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	enrolled, err = repo.HasActiveEnrollment(context.Background(), "user-1", "course-v1:ORG+CS999+2024")
	assert.NoError(t, err)
	assert.False(t, enrolled)
}

func TestFindEnrollmentsByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewEnrollmentRepository(db)

	now := time.Now()
	columns := []string{
		constants.FieldID, constants.FieldUserID, constants.FieldCourseID, constants.FieldMode,
		constants.FieldStatus, constants.FieldIsActive, constants.FieldEnrolledAt,
		constants.FieldLastAccessed, constants.FieldCreatedAt, constants.FieldUpdatedAt,
	}

	mock.ExpectQuery("SELECT (.+) FROM enrollments").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("enr-2", "user-1", "course-v1:ORG+CS102+2024", "verified", "active", true, now, now, now, now).
			AddRow("enr-1", "user-1", "course-v1:ORG+CS101+2024", "audit", "dropped", false, now.Add(-time.Hour), nil, now, now))

	enrollments, err := repo.FindByUser(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.Len(t, enrollments, 2)
	assert.Equal(t, "enr-2", enrollments[0].ID)
	assert.NotNil(t, enrollments[0].LastAccessed)
	assert.Nil(t, enrollments[1].LastAccessed)
	assert.False(t, enrollments[1].IsActive)
}

func TestActiveCourseIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewEnrollmentRepository(db)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = 1",
		constants.FieldCourseID, constants.TableEnrollment, constants.FieldUserID, constants.FieldIsActive)

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{constants.FieldCourseID}).
			AddRow("course-v1:ORG+CS101+2024").
			AddRow("course-v1:ORG+CS102+2024"))

	courseIDs, err := repo.ActiveCourseIDs(context.Background(), "user-1")
	assert.NoError(t, err)
	assert.Equal(t, []string{"course-v1:ORG+CS101+2024", "course-v1:ORG+CS102+2024"}, courseIDs)
}

func TestDeactivateEnrollment(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewEnrollmentRepository(db)

	// Test Case 1: active enrollment dropped
	mock.ExpectExec(regexp.QuoteMeta(fmt.Sprintf("UPDATE %s SET", constants.TableEnrollment))).
		WithArgs(constants.EnrollmentStatusDropped, "user-1", "course-v1:ORG+CS101+2024").
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repo.Deactivate(context.Background(), "user-1", "course-v1:ORG+CS101+2024")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	// Test Case 2: nothing to drop
	mock.ExpectExec(regexp.QuoteMeta(fmt.Sprintf("UPDATE %s SET", constants.TableEnrollment))).
		WithArgs(constants.EnrollmentStatusDropped, "user-1", "course-v1:ORG+CS999+2024").
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err = repo.Deactivate(context.Background(), "user-1", "course-v1:ORG+CS999+2024")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), changed)
}
