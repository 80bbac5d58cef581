package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/go-sql-driver/mysql"

	"github.com/eskills-store/backend/internal/infrastructure/database"
	"github.com/eskills-store/backend/pkg/auth"
	"github.com/eskills-store/backend/pkg/constants"
	"github.com/eskills-store/backend/pkg/utils"
)

// EnsureTestUser creates or updates the E2E test admin
func main() {
	// Get database connection
	db, err := database.GetInstance()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	testEmail := "admin@test.com"
	testPassword := "Admin123!"
	testUsername := "e2e.admin"

	// Hash password
	hashedPassword, err := auth.HashPassword(testPassword)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	// Check if user exists
	var existingUserID string
	err = db.QueryRow(fmt.Sprintf("SELECT id FROM %s WHERE email = ?", constants.TableUser), testEmail).Scan(&existingUserID)

	if err == sql.ErrNoRows {
		// Create new user
		userID := utils.GenerateID()
		_, err = db.Exec(fmt.Sprintf(`
			INSERT INTO %s (id, username, email, password, is_admin)
			VALUES (?, ?, ?, ?, 1)
		`, constants.TableUser), userID, testUsername, testEmail, hashedPassword)

		if err != nil {
			log.Fatalf("Failed to create test user: %v", err)
		}

		fmt.Printf("✅ Created test user: %s (ID: %s)\n", testEmail, userID)
	} else if err != nil {
		log.Fatalf("Database error: %v", err)
	} else {
		// Update existing user's password AND admin flag (to ensure consistency)
		_, err = db.Exec(fmt.Sprintf(`
			UPDATE %s
			SET password = ?,
			    username = ?,
			    is_admin = 1
			WHERE email = ?
		`, constants.TableUser), hashedPassword, testUsername, testEmail)

		if err != nil {
			log.Fatalf("Failed to update test user: %v", err)
		}

		fmt.Printf("✅ Updated test user: %s (ID: %s)\n", testEmail, existingUserID)
	}

	fmt.Println("\nTest user credentials:")
	fmt.Printf("  Email: %s\n", testEmail)
	fmt.Printf("  Password: %s\n", testPassword)
	fmt.Println("\nTest data setup complete! 🎉")
	os.Exit(0)
}
