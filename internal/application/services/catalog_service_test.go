package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eskills-store/backend/internal/config"
	"github.com/eskills-store/backend/internal/infrastructure/openedx"
	"github.com/eskills-store/backend/internal/infrastructure/persistence"
	"github.com/eskills-store/backend/pkg/errors"
)

func newCatalogService(t *testing.T, mux *http.ServeMux) (*CatalogService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })

	mux.HandleFunc("/oauth2/access_token/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "stub-token", "expires_in": 3600})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	edx := openedx.NewClient(config.OpenEdXConfig{
		BaseURL:      server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		VerifySSL:    true,
		TimeoutSec:   5,
	})
	return NewCatalogService(edx, persistence.NewEnrollmentRepository(db)), mock
}

func TestListCoursesEnrichesPricesAndEnrollment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/courses/v1/courses/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"id": "course-v1:ESLSCA+MBA101+2026", "name": "MBA Essentials"},
				{"id": "course-v1:ESLSCA+FIN200+2026", "name": "Corporate Finance"},
			},
			"pagination": map[string]interface{}{"count": 2, "num_pages": 1},
		})
	})
	mux.HandleFunc("/api/commerce/v1/courses/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "MBA101") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"modes": []map[string]interface{}{
				{"name": "verified", "price": "149.00", "currency": "usd"},
			},
		})
	})
	mux.HandleFunc("/api/enrollment/v1/course/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	})

	service, mock := newCatalogService(t, mux)

	mock.ExpectQuery("SELECT (.+) FROM enrollments").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"course_id"}).
			AddRow("course-v1:ESLSCA+FIN200+2026"))

	list, err := service.ListCourses(context.Background(), 1, 12, "user-1")
	require.NoError(t, err)
	require.Len(t, list.Results, 2)
	assert.Equal(t, 2, list.Pagination.Total)

	byID := make(map[string]int, len(list.Results))
	for i, course := range list.Results {
		byID[course.ID] = i
	}

	mba := list.Results[byID["course-v1:ESLSCA+MBA101+2026"]]
	assert.Equal(t, 149.0, mba.Price)
	assert.Equal(t, "USD", mba.Currency)
	assert.False(t, mba.IsEnrolled)

	fin := list.Results[byID["course-v1:ESLSCA+FIN200+2026"]]
	assert.Equal(t, 0.0, fin.Price)
	assert.True(t, fin.IsEnrolled)
}

func TestListCoursesClampsPaging(t *testing.T) {
	var gotPage, gotPageSize string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/courses/v1/courses/", func(w http.ResponseWriter, r *http.Request) {
		gotPage = r.URL.Query().Get("page")
		gotPageSize = r.URL.Query().Get("page_size")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results":    []map[string]interface{}{},
			"pagination": map[string]interface{}{"count": 0},
		})
	})

	service, _ := newCatalogService(t, mux)

	list, err := service.ListCourses(context.Background(), -3, 5000, "")
	require.NoError(t, err)
	assert.Equal(t, "1", gotPage)
	assert.Equal(t, "100", gotPageSize)
	assert.Equal(t, 1, list.Pagination.Page)
	assert.Equal(t, 100, list.Pagination.PageSize)
}

func TestGetCourseAppliesDefaults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/courses/v1/courses/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":   "course-v1:ESLSCA+MBA101+2026",
			"name": "MBA Essentials",
		})
	})
	mux.HandleFunc("/api/commerce/v1/courses/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"modes": []map[string]interface{}{
				{"name": "verified", "price": "149.00"},
			},
		})
	})
	mux.HandleFunc("/api/course_modes/v1/courses/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"mode_slug": "verified", "min_price": 149, "currency": "usd"},
		})
	})

	service, mock := newCatalogService(t, mux)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-1", "course-v1:ESLSCA+MBA101+2026").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	course, err := service.GetCourse(context.Background(), "ESLSCA+MBA101+2026", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "course-v1:ESLSCA+MBA101+2026", course.ID)
	assert.Equal(t, 149.0, course.Price)
	assert.Equal(t, "verified", course.Mode)
	assert.True(t, course.IsEnrolled)

	// Display defaults cover the fields the payload omitted
	assert.Equal(t, "No overview available.", course.Overview)
	assert.Equal(t, "Self-paced", course.Pacing)
	assert.NotNil(t, course.Media)
	if assert.NotNil(t, course.MobileAvailable) {
		assert.True(t, *course.MobileAvailable)
	}
}

func TestGetCourseNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/courses/v1/courses/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	service, _ := newCatalogService(t, mux)

	_, err := service.GetCourse(context.Background(), "course-v1:Missing+X+Y", "")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestGetCourseRequiresID(t *testing.T) {
	service, _ := newCatalogService(t, http.NewServeMux())

	_, err := service.GetCourse(context.Background(), "", "")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}
