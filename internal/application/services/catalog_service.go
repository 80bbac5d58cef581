package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/internal/infrastructure/openedx"
	"github.com/eskills-store/backend/internal/infrastructure/persistence"
	"github.com/eskills-store/backend/pkg/constants"
	"github.com/eskills-store/backend/pkg/errors"
)

// priceWorkers bounds the concurrent price lookups per catalog page so a
// single listing cannot flood the LMS.
const priceWorkers = 8

// CatalogService serves the course catalog. Course data lives on the LMS;
// this service enriches it with prices, purchase modes, and the caller's
// enrollment state.
type CatalogService struct {
	edx         *openedx.Client
	enrollments *persistence.EnrollmentRepository
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(edx *openedx.Client, enrollments *persistence.EnrollmentRepository) *CatalogService {
	return &CatalogService{
		edx:         edx,
		enrollments: enrollments,
	}
}

// ListCourses returns one page of the catalog with prices resolved.
// userID may be empty for anonymous browsing; when set, courses the user
// is enrolled in are flagged.
func (s *CatalogService) ListCourses(ctx context.Context, page, pageSize int, userID string) (*models.CourseList, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}

	courses, total, err := s.edx.GetCourses(ctx, page, pageSize)
	if err != nil {
		if apiErr, ok := err.(*openedx.APIError); ok {
			return nil, errors.NewUpstreamError("openedx course list", apiErr.StatusCode, apiErr.Body)
		}
		return nil, errors.NewUpstreamError("openedx course list", 0, err.Error())
	}

	s.enrichPrices(ctx, courses)

	if userID != "" {
		if err := s.markEnrolled(ctx, courses, userID); err != nil {
			return nil, err
		}
	}

	return &models.CourseList{
		Results: courses,
		Pagination: models.Pagination{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	}, nil
}

// enrichPrices resolves the price of every course on a page with a bounded
// worker pool. Lookups that fail leave the course free rather than failing
// the whole page.
func (s *CatalogService) enrichPrices(ctx context.Context, courses []models.Course) {
	sem := make(chan struct{}, priceWorkers)
	var wg sync.WaitGroup

	for i := range courses {
		wg.Add(1)
		sem <- struct{}{}
		go func(course *models.Course) {
			defer wg.Done()
			defer func() { <-sem }()

			info := s.edx.GetCoursePrice(ctx, course.ID)
			course.Price = info.Price
			course.Currency = info.Currency
		}(&courses[i])
	}
	wg.Wait()
}

// markEnrolled flags the courses the user holds an active enrollment in
func (s *CatalogService) markEnrolled(ctx context.Context, courses []models.Course, userID string) error {
	courseIDs, err := s.enrollments.ActiveCourseIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if len(courseIDs) == 0 {
		return nil
	}

	enrolled := make(map[string]bool, len(courseIDs))
	for _, id := range courseIDs {
		enrolled[id] = true
	}
	for i := range courses {
		if enrolled[courses[i].ID] {
			courses[i].IsEnrolled = true
		}
	}
	return nil
}

// GetCourse returns the full detail of one course with its price, purchase
// mode, and display defaults applied. userID may be empty.
func (s *CatalogService) GetCourse(ctx context.Context, courseID, userID string) (*models.Course, error) {
	courseID = openedx.NormalizeCourseID(courseID)
	if courseID == "" {
		return nil, errors.NewValidationError("course_id", "Course id is required")
	}

	course, err := s.edx.GetCourse(ctx, courseID)
	if err != nil {
		if openedx.IsNotFound(err) {
			return nil, errors.NewNotFoundError("Course", courseID)
		}
		if apiErr, ok := err.(*openedx.APIError); ok {
			return nil, errors.NewUpstreamError("openedx course detail", apiErr.StatusCode, apiErr.Body)
		}
		return nil, errors.NewUpstreamError("openedx course detail", 0, err.Error())
	}

	price := s.edx.GetCoursePrice(ctx, course.ID)
	course.Price = price.Price
	course.Currency = price.Currency

	mode := s.edx.GetCourseMode(ctx, course.ID)
	course.Mode = mode.Name

	course.ApplyDisplayDefaults()

	if userID != "" {
		enrolled, err := s.enrollments.HasActiveEnrollment(ctx, userID, course.ID)
		if err != nil {
			return nil, fmt.Errorf("database error: %w", err)
		}
		course.IsEnrolled = enrolled
	}

	return course, nil
}
