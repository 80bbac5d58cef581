package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eskills-store/backend/internal/application/services"
	"github.com/eskills-store/backend/pkg/auth"
	"github.com/eskills-store/backend/pkg/constants"
	"github.com/eskills-store/backend/pkg/errors"
)

type AuthHandler struct {
	svcMgr *services.ServiceManager
}

func NewAuthHandler(svcMgr *services.ServiceManager) *AuthHandler {
	return &AuthHandler{
		svcMgr: svcMgr,
	}
}

// RegisterRequest represents signup request body
type RegisterRequest struct {
	Username             string `json:"username" binding:"required"`
	Email                string `json:"email" binding:"required"`
	Password             string `json:"password" binding:"required"`
	Name                 string `json:"name"`
	Country              string `json:"country"`
	Gender               string `json:"gender"`
	LevelOfEducation     string `json:"level_of_education"`
	HonorCode            bool   `json:"honor_code"`
	MarketingEmailsOptIn bool   `json:"marketing_emails_opt_in"`
}

// LoginRequest represents login request body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents login response
type LoginResponse struct {
	Success   bool                   `json:"success"`
	Token     string                 `json:"token,omitempty"`
	User      map[string]interface{} `json:"user,omitempty"`
	ExpiresAt string                 `json:"expires_at,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Message   string                 `json:"message,omitempty"`
}

func sessionUserData(user auth.UserSession) map[string]interface{} {
	return map[string]interface{}{
		constants.FieldID:       user.ID,
		constants.FieldUsername: user.Username,
		constants.FieldEmail:    user.Email,
		constants.FieldIsAdmin:  user.IsAdmin,
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !BindJSON(c, &req) {
		return
	}

	result, err := h.svcMgr.Auth.Register(c.Request.Context(), services.RegisterRequest{
		Username:             req.Username,
		Email:                req.Email,
		Password:             req.Password,
		Name:                 req.Name,
		Country:              req.Country,
		Gender:               req.Gender,
		LevelOfEducation:     req.LevelOfEducation,
		MarketingEmailsOptIn: req.MarketingEmailsOptIn,
	}, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, LoginResponse{
		Success:   true,
		Token:     result.Token,
		User:      sessionUserData(result.User),
		ExpiresAt: result.ExpiresAt.Format(time.RFC3339),
	})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !BindJSON(c, &req) {
		return
	}

	// Validate email format
	if !auth.IsValidEmail(req.Email) {
		RespondError(c, http.StatusBadRequest, "Invalid email format")
		return
	}

	// Delegate to AuthService
	result, err := h.svcMgr.Auth.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Success:   true,
		Token:     result.Token,
		User:      sessionUserData(result.User),
		ExpiresAt: result.ExpiresAt.Format(time.RFC3339),
	})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	// Get token from context (set by auth middleware)
	tokenString, exists := c.Get(constants.ContextKeyToken)
	if !exists {
		RespondError(c, http.StatusUnauthorized, "No token provided")
		return
	}

	HandleDeleteEnvelope(c, "Logged out successfully", func() error {
		return h.svcMgr.Auth.Logout(c.Request.Context(), tokenString.(string))
	})
}

// GetMe handles GET /api/auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	user := GetUserFromContext(c)
	if user == nil {
		RespondError(c, http.StatusUnauthorized, "User not found")
		return
	}

	// The session token only carries the basics; the full row adds
	// edx_user_id and timestamps.
	HandleGetEnvelope(c, "user", func() (interface{}, error) {
		return h.svcMgr.Auth.GetUserByID(c.Request.Context(), user.ID)
	})
}

// ChangePasswordRequest represents change password request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	HandleUpdateEnvelope(c, "", "Password changed successfully", &req, func() error {
		user := GetUserFromContext(c)
		if user == nil {
			return errors.NewUnauthorizedError("User not found")
		}

		return h.svcMgr.Auth.ChangePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword)
	})
}
