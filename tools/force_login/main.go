package main

import (
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/eskills-store/backend/internal/infrastructure/database"
	"github.com/eskills-store/backend/pkg/auth"
	"github.com/eskills-store/backend/pkg/constants"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: force_login <user_id>")
	}
	userID := os.Args[1]

	// Initialize DB
	dbConn, err := database.GetInstance()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Fetch User
	var user struct {
		ID       string
		Username string
		Email    string
		IsAdmin  bool
	}
	query := fmt.Sprintf("SELECT %s, %s, %s, %s FROM %s WHERE %s = ? LIMIT 1",
		constants.FieldID, constants.FieldUsername, constants.FieldEmail, constants.FieldIsAdmin,
		constants.TableUser, constants.FieldID)

	err = dbConn.QueryRow(query, userID).Scan(&user.ID, &user.Username, &user.Email, &user.IsAdmin)
	if err != nil {
		log.Fatalf("Failed to find user %s: %v", userID, err)
	}

	// Create Session Object
	userSession := auth.UserSession{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsAdmin:  user.IsAdmin,
	}

	// Generate Token
	token, err := auth.GenerateToken(userSession)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	// Decode to get Claims (JTI/Expiry)
	claims, _ := auth.DecodeToken(token)
	expiresAt := time.Unix(claims.ExpiresAt.Unix(), 0)

	// Manual SQL Insert to avoid pulling the session repository into this script
	insertQuery := fmt.Sprintf(`
		INSERT INTO %s
		(id, user_id, token, expires_at, ip_address, user_agent, is_revoked, last_activity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW())
	`, constants.TableSession)

	_, err = dbConn.Exec(insertQuery,
		claims.RegisteredClaims.ID,
		user.ID,
		token,
		expiresAt,
		"127.0.0.1",
		"E2E Test Force Login",
		false,
		time.Now(),
	)

	if err != nil {
		log.Fatalf("Failed to persist session: %v", err)
	}

	// Output Token to stdout
	fmt.Print(token)
}
