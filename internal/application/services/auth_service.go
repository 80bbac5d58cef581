package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/internal/infrastructure/openedx"
	"github.com/eskills-store/backend/internal/infrastructure/persistence"
	"github.com/eskills-store/backend/pkg/auth"
	"github.com/eskills-store/backend/pkg/errors"
	"github.com/eskills-store/backend/pkg/utils"
)

// AuthService handles registration, authentication, session management,
// and password operations. Accounts are created on the LMS first and then
// mirrored locally.
type AuthService struct {
	users    *persistence.UserRepository
	sessions *persistence.SessionRepository
	edx      *openedx.Client
}

// NewAuthService creates a new AuthService
func NewAuthService(users *persistence.UserRepository, sessions *persistence.SessionRepository, edx *openedx.Client) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		edx:      edx,
	}
}

// RegisterRequest carries the signup form fields
type RegisterRequest struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	Name                 string `json:"name"`
	Country              string `json:"country"`
	Gender               string `json:"gender"`
	LevelOfEducation     string `json:"level_of_education"`
	MarketingEmailsOptIn bool   `json:"marketing_emails_opt_in"`
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	Token     string
	User      auth.UserSession
	ExpiresAt time.Time
}

// Register creates an account on the LMS, mirrors it locally, and logs the
// new user in. The username stored locally is the sanitized form the LMS
// accepted, which may differ from the requested one.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, ip, userAgent string) (*LoginResult, error) {
	// 1. Validate input
	if err := auth.ValidateUsername(req.Username); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(req.Email)
	if !auth.IsValidEmail(email) {
		return nil, errors.NewValidationError("email", "Invalid email address")
	}
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		return nil, err
	}

	username := openedx.SanitizeUsername(req.Username)
	if username == "" {
		return nil, errors.NewValidationError("username", "Username must contain letters or digits")
	}

	// 2. Reject duplicates before touching the LMS
	emailExists, err := s.users.CheckUserExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if emailExists {
		return nil, errors.NewConflictError("User", "email", email)
	}
	usernameExists, err := s.users.CheckUserExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if usernameExists {
		return nil, errors.NewConflictError("User", "username", username)
	}

	// 3. Create the LMS account
	created, err := s.edx.CreateUser(ctx, openedx.RegistrationRequest{
		Username:             req.Username,
		Email:                email,
		Password:             req.Password,
		Name:                 req.Name,
		Country:              req.Country,
		Gender:               req.Gender,
		LevelOfEducation:     req.LevelOfEducation,
		MarketingEmailsOptIn: req.MarketingEmailsOptIn,
	})
	if err != nil {
		return nil, mapRegistrationError(err)
	}

	// 4. Mirror the account locally
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:        utils.GenerateID(),
		Username:  created.Username,
		Email:     email,
		Password:  hash,
		EdxUserID: created.EdxUserID,
		IsAdmin:   false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// The LMS account exists at this point; the next login against
		// the same email will still fail until this row lands.
		log.Printf("❌ Failed to mirror LMS account %s locally: %v", created.Username, err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("✅ Registered user %s (%s)", user.Username, user.Email)

	// 5. Log the new user in
	return s.issueSession(ctx, user, ip, userAgent)
}

// mapRegistrationError turns LMS registration failures into API errors.
// Field rejections surface with the LMS messages intact.
func mapRegistrationError(err error) error {
	if regErr, ok := err.(*openedx.RegistrationError); ok {
		if regErr.StatusCode >= 400 && regErr.StatusCode < 500 {
			return errors.NewValidationError("registration", regErr.Message)
		}
		return errors.NewUpstreamError("openedx registration", regErr.StatusCode, regErr.Message)
	}
	if apiErr, ok := err.(*openedx.APIError); ok {
		return errors.NewUpstreamError("openedx registration", apiErr.StatusCode, apiErr.Body)
	}
	return errors.NewUpstreamError("openedx registration", 0, err.Error())
}

// Login authenticates a user and creates a session
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	// 1. Find user by email
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if user == nil {
		log.Printf("⚠️ Login failed for %s: user not found", email)
		return nil, errors.NewUnauthorizedError("Invalid email or password")
	}

	// 2. Verify password
	if !auth.VerifyPassword(password, user.Password) {
		log.Printf("⚠️ Login failed for %s: invalid password", email)
		return nil, errors.NewUnauthorizedError("Invalid email or password")
	}

	result, err := s.issueSession(ctx, user, ip, userAgent)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ User logged in: %s", user.Username)
	return result, nil
}

// issueSession generates a JWT and stores the matching session row
func (s *AuthService) issueSession(ctx context.Context, user *models.User, ip, userAgent string) (*LoginResult, error) {
	userSession := auth.UserSession{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsAdmin:  user.IsAdmin,
	}

	token, err := auth.GenerateToken(userSession)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	claims, err := auth.DecodeToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	expiresAt := claims.ExpiresAt.Time

	var ipPtr, uaPtr *string
	if ip != "" {
		ipPtr = &ip
	}
	if userAgent != "" {
		uaPtr = &userAgent
	}

	session := &models.Session{
		ID:           claims.RegisteredClaims.ID,
		UserID:       user.ID,
		Token:        token,
		ExpiresAt:    expiresAt,
		IPAddress:    ipPtr,
		UserAgent:    uaPtr,
		IsRevoked:    false,
		LastActivity: time.Now(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	return &LoginResult{
		Token:     token,
		User:      userSession,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateSession checks if a session token is valid and active in the database
func (s *AuthService) ValidateSession(ctx context.Context, tokenString string) (*auth.Claims, error) {
	// 1. Verify JWT signature and claims
	claims, err := auth.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	// 2. Check DB for revocation
	session, err := s.sessions.FindByID(ctx, claims.RegisteredClaims.ID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if session == nil {
		return nil, errors.NewUnauthorizedError("Session not found")
	}
	if session.IsRevoked {
		return nil, errors.NewUnauthorizedError("Session has been revoked")
	}

	return claims, nil
}

// TouchSession updates the last activity timestamp for a session
func (s *AuthService) TouchSession(sessionID string) {
	// Fire and forget - errors are acceptable for non-critical activity timestamps
	go func() {
		_ = s.sessions.Touch(context.Background(), sessionID)
	}()
}

// Logout revokes a session
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := auth.DecodeToken(tokenString)
	if err != nil {
		return errors.NewValidationError("token", "Invalid token")
	}

	err = s.sessions.Revoke(ctx, claims.RegisteredClaims.ID)
	if err == nil {
		log.Printf("👋 User logged out: %s (Session: %s)", claims.Subject, claims.RegisteredClaims.ID)
	}
	return err
}

// ChangePassword updates a user's password after verifying the current one
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	// 1. Validate strength
	if err := auth.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	// 2. Load the user
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to retrieve user: %w", err)
	}
	if user == nil {
		return errors.NewNotFoundError("User", userID)
	}

	// 3. Verify
	if !auth.VerifyPassword(currentPassword, user.Password) {
		return errors.NewUnauthorizedError("Current password is incorrect")
	}

	// 4. Hash and update
	newHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	err = s.users.UpdatePassword(ctx, userID, newHash)
	if err == nil {
		log.Printf("🔐 Password changed for user: %s", userID)
	}
	return err
}

// GetUserByID retrieves a user profile
func (s *AuthService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if user == nil {
		return nil, errors.NewNotFoundError("User", userID)
	}
	return user, nil
}

// CleanupExpiredSessions deletes expired and revoked sessions.
// Returns the number of rows removed.
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}
