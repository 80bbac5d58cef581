package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eskills-store/backend/internal/application/services"
	"github.com/eskills-store/backend/internal/infrastructure/persistence"
	"github.com/eskills-store/backend/pkg/auth"
	"github.com/eskills-store/backend/pkg/constants"
)

var sessionColumns = []string{
	constants.FieldID, constants.FieldUserID, constants.FieldExpiresAt,
	constants.FieldIsRevoked, constants.FieldLastActivity,
}

func newTestAuth(t *testing.T) (*services.AuthService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := services.NewAuthService(
		persistence.NewUserRepository(db),
		persistence.NewSessionRepository(db),
		nil,
	)
	return svc, mock
}

func newTestRouter(authSvc *services.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	echoUser := func(c *gin.Context) {
		userInterface, exists := c.Get(constants.ContextKeyUser)
		if !exists {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		user := userInterface.(auth.UserSession)
		c.JSON(http.StatusOK, gin.H{"anonymous": false, "id": user.ID})
	}

	router.GET("/me", RequireAuth(authSvc), echoUser)
	router.GET("/admin", RequireAuth(authSvc), RequireAdmin(), echoUser)
	router.GET("/courses", OptionalAuth(authSvc), echoUser)
	return router
}

func issueToken(t *testing.T, isAdmin bool) string {
	t.Helper()
	token, err := auth.GenerateToken(auth.UserSession{
		ID:       "user-1",
		Username: "student",
		Email:    "student@example.com",
		IsAdmin:  isAdmin,
	})
	require.NoError(t, err)
	return token
}

func expectActiveSession(mock sqlmock.Sqlmock) {
	rows := sqlmock.NewRows(sessionColumns).
		AddRow("sess-1", "user-1", time.Now().Add(time.Hour), false, time.Now())
	mock.ExpectQuery("SELECT (.+) FROM sessions").WillReturnRows(rows)
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	authSvc, _ := newTestAuth(t)
	router := newTestRouter(authSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/me", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "No authorization token provided")
}

func TestRequireAuthRejectsMalformedHeader(t *testing.T) {
	authSvc, _ := newTestAuth(t)
	router := newTestRouter(authSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(constants.HeaderAuthorization, "Token abc123")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid authorization header format")
}

func TestRequireAuthAcceptsValidSession(t *testing.T) {
	authSvc, mock := newTestAuth(t)
	router := newTestRouter(authSvc)

	token := issueToken(t, false)
	expectActiveSession(mock)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["anonymous"])
	assert.Equal(t, "user-1", body["id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireAuthRejectsRevokedSession(t *testing.T) {
	authSvc, mock := newTestAuth(t)
	router := newTestRouter(authSvc)

	token := issueToken(t, false)
	rows := sqlmock.NewRows(sessionColumns).
		AddRow("sess-1", "user-1", time.Now().Add(time.Hour), true, time.Now())
	mock.ExpectQuery("SELECT (.+) FROM sessions").WillReturnRows(rows)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "revoked")
}

func TestRequireAdminForbidsNonAdmin(t *testing.T) {
	authSvc, mock := newTestAuth(t)
	router := newTestRouter(authSvc)

	token := issueToken(t, false)
	expectActiveSession(mock)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Only administrators")
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	authSvc, mock := newTestAuth(t)
	router := newTestRouter(authSvc)

	token := issueToken(t, true)
	expectActiveSession(mock)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalAuthAllowsAnonymous(t *testing.T) {
	authSvc, _ := newTestAuth(t)
	router := newTestRouter(authSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/courses", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"anonymous":true`)
}

func TestOptionalAuthDegradesBadTokenToAnonymous(t *testing.T) {
	authSvc, _ := newTestAuth(t)
	router := newTestRouter(authSvc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/courses", nil)
	req.Header.Set(constants.HeaderAuthorization, "Bearer not-a-jwt")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"anonymous":true`)
}

func TestOptionalAuthAttachesUser(t *testing.T) {
	authSvc, mock := newTestAuth(t)
	router := newTestRouter(authSvc)

	token := issueToken(t, false)
	expectActiveSession(mock)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/courses", nil)
	req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"user-1"`)
}
