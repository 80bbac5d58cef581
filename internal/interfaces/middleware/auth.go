package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eskills-store/backend/internal/application/services"
	"github.com/eskills-store/backend/pkg/auth"
	"github.com/eskills-store/backend/pkg/constants"
)

// RequireAuth is a middleware that validates JWT tokens
func RequireAuth(authSvc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get token from Authorization header
		authHeader := c.GetHeader(constants.HeaderAuthorization)
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				constants.ResponseError:   "Unauthorized",
				constants.ResponseMessage: "No authorization token provided",
				"code":                    "UNAUTHORIZED",
				"data":                    nil,
			})
			c.Abort()
			return
		}

		// Extract token (format: "Bearer <token>")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				constants.ResponseError:   "Unauthorized",
				constants.ResponseMessage: "Invalid authorization header format",
				"code":                    "UNAUTHORIZED",
				"data":                    nil,
			})
			c.Abort()
			return
		}

		tokenString := parts[1]

		// Validate token and session via AuthService
		claims, err := authSvc.ValidateSession(c.Request.Context(), tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				constants.ResponseError:   "Unauthorized",
				constants.ResponseMessage: err.Error(),
				"code":                    "UNAUTHORIZED",
				"data":                    nil,
			})
			c.Abort()
			return
		}

		// Update last activity (Fire and forget)
		authSvc.TouchSession(claims.RegisteredClaims.ID)

		// Set user session in context
		c.Set(constants.ContextKeyUser, claims.User)
		c.Set(constants.ContextKeyToken, tokenString)

		c.Next()
	}
}

// OptionalAuth validates a Bearer token when one is present but never rejects
// the request. Catalog endpoints use it so anonymous visitors can browse while
// logged-in students see their enrollment state on the same routes.
func OptionalAuth(authSvc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(constants.HeaderAuthorization)
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Next()
			return
		}

		claims, err := authSvc.ValidateSession(c.Request.Context(), parts[1])
		if err != nil {
			// Stale or revoked token on a public route degrades to anonymous
			c.Next()
			return
		}

		authSvc.TouchSession(claims.RegisteredClaims.ID)
		c.Set(constants.ContextKeyUser, claims.User)
		c.Set(constants.ContextKeyToken, parts[1])

		c.Next()
	}
}

// RequireAdmin checks if the user is a store administrator
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userInterface, exists := c.Get(constants.ContextKeyUser)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				constants.ResponseError:   "Unauthorized",
				constants.ResponseMessage: "User not authenticated",
				"code":                    "UNAUTHORIZED",
				"data":                    nil,
			})
			c.Abort()
			return
		}

		user := userInterface.(auth.UserSession)
		if !user.IsAdmin {
			c.JSON(http.StatusForbidden, gin.H{
				constants.ResponseError:   "Forbidden",
				constants.ResponseMessage: "Only administrators can access this resource",
				"code":                    "FORBIDDEN",
				"data":                    nil,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
