package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/internal/infrastructure/openedx"
	"github.com/eskills-store/backend/internal/infrastructure/persistence"
	"github.com/eskills-store/backend/pkg/constants"
	"github.com/eskills-store/backend/pkg/errors"
	"github.com/eskills-store/backend/pkg/utils"
)

// EnrollmentService enrolls users in courses. The LMS owns enrollment
// truth; local rows mirror it for fast catalog and dashboard reads.
type EnrollmentService struct {
	edx         *openedx.Client
	enrollments *persistence.EnrollmentRepository
	users       *persistence.UserRepository
}

// NewEnrollmentService creates a new EnrollmentService
func NewEnrollmentService(edx *openedx.Client, enrollments *persistence.EnrollmentRepository, users *persistence.UserRepository) *EnrollmentService {
	return &EnrollmentService{
		edx:         edx,
		enrollments: enrollments,
		users:       users,
	}
}

// Enroll signs the user up for a course in a free mode. The course must
// exist on the LMS. Paid modes are purchased through checkout.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseID, mode string) (*models.Enrollment, error) {
	courseID = openedx.NormalizeCourseID(courseID)
	if courseID == "" {
		return nil, errors.NewValidationError("course_id", "Course id is required")
	}
	if mode == "" {
		mode = constants.ModeAudit
	}
	if mode != constants.ModeAudit && mode != constants.ModeHonor {
		return nil, errors.NewValidationError("mode", "Paid enrollment modes are purchased through checkout")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if user == nil {
		return nil, errors.NewNotFoundError("User", userID)
	}

	if _, err := s.edx.GetCourse(ctx, courseID); err != nil {
		if openedx.IsNotFound(err) {
			return nil, errors.NewNotFoundError("Course", courseID)
		}
		if apiErr, ok := err.(*openedx.APIError); ok {
			return nil, errors.NewUpstreamError("openedx course detail", apiErr.StatusCode, apiErr.Body)
		}
		return nil, errors.NewUpstreamError("openedx course detail", 0, err.Error())
	}

	enrolled, err := s.enrollments.HasActiveEnrollment(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if enrolled {
		return nil, errors.NewConflictError("Enrollment", "course_id", courseID)
	}

	return s.grant(ctx, user, courseID, mode)
}

// Grant enrolls a user without the free-mode guard. Checkout fulfillment
// uses it for purchased modes.
func (s *EnrollmentService) Grant(ctx context.Context, user *models.User, courseID, mode string) (*models.Enrollment, error) {
	return s.grant(ctx, user, openedx.NormalizeCourseID(courseID), mode)
}

func (s *EnrollmentService) grant(ctx context.Context, user *models.User, courseID, mode string) (*models.Enrollment, error) {
	if err := s.edx.Enroll(ctx, user.Username, courseID, mode); err != nil {
		if apiErr, ok := err.(*openedx.APIError); ok {
			return nil, errors.NewUpstreamError("openedx enrollment", apiErr.StatusCode, apiErr.Body)
		}
		return nil, errors.NewUpstreamError("openedx enrollment", 0, err.Error())
	}

	enrollment := &models.Enrollment{
		ID:         utils.GenerateID(),
		UserID:     user.ID,
		CourseID:   courseID,
		Mode:       mode,
		Status:     constants.EnrollmentStatusActive,
		IsActive:   true,
		EnrolledAt: time.Now(),
	}
	if err := s.enrollments.Upsert(ctx, enrollment); err != nil {
		// The LMS enrollment stuck; the next sync will repair the mirror
		log.Printf("⚠️ Failed to mirror enrollment %s/%s locally: %v", user.ID, courseID, err)
		return enrollment, nil
	}
	return enrollment, nil
}

// ListEnrollments returns the user's enrollments, newest first. With
// syncRemote set the LMS list is pulled and mirrored first.
func (s *EnrollmentService) ListEnrollments(ctx context.Context, userID string, syncRemote bool) ([]models.Enrollment, error) {
	if syncRemote {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		if user == nil {
			return nil, errors.NewNotFoundError("User", userID)
		}
		if _, err := s.SyncFromLMS(ctx, user); err != nil {
			// Stale local data beats a failed listing
			log.Printf("⚠️ Enrollment sync failed for %s: %v", user.Username, err)
		}
	}

	return s.enrollments.FindByUser(ctx, userID)
}

// SyncFromLMS mirrors the user's LMS enrollment list into the local table.
// Returns the number of enrollments seen.
func (s *EnrollmentService) SyncFromLMS(ctx context.Context, user *models.User) (int, error) {
	remote, err := s.edx.GetUserEnrollments(ctx, user.Username)
	if err != nil {
		if apiErr, ok := err.(*openedx.APIError); ok {
			return 0, errors.NewUpstreamError("openedx enrollment list", apiErr.StatusCode, apiErr.Body)
		}
		return 0, errors.NewUpstreamError("openedx enrollment list", 0, err.Error())
	}

	for _, e := range remote {
		if e.CourseDetails.CourseID == "" {
			continue
		}
		status := constants.EnrollmentStatusActive
		if !e.IsActive {
			status = constants.EnrollmentStatusDropped
		}
		enrollment := &models.Enrollment{
			ID:         utils.GenerateID(),
			UserID:     user.ID,
			CourseID:   e.CourseDetails.CourseID,
			Mode:       e.Mode,
			Status:     status,
			IsActive:   e.IsActive,
			EnrolledAt: time.Now(),
		}
		if err := s.enrollments.Upsert(ctx, enrollment); err != nil {
			return 0, fmt.Errorf("failed to mirror enrollment: %w", err)
		}
	}

	return len(remote), nil
}

// Drop deactivates the local mirror of an enrollment. The LMS record is
// left alone; auditing back in is free.
func (s *EnrollmentService) Drop(ctx context.Context, userID, courseID string) error {
	courseID = openedx.NormalizeCourseID(courseID)

	dropped, err := s.enrollments.Deactivate(ctx, userID, courseID)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if dropped == 0 {
		return errors.NewNotFoundError("Enrollment", courseID)
	}

	log.Printf("✅ Dropped enrollment %s for user %s", courseID, userID)
	return nil
}
