package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/eskills-store/backend/internal/application/services"
	"github.com/eskills-store/backend/internal/config"
	"github.com/eskills-store/backend/internal/domain/models"
	"github.com/eskills-store/backend/pkg/auth"
	"github.com/eskills-store/backend/pkg/utils"
)

// InitializeSystemData ensures required system data exists
// This should be called during server startup BEFORE accepting requests
func InitializeSystemData(svcMgr *services.ServiceManager, admin config.AdminConfig) error {
	log.Println("🔧 Initializing system data...")

	if admin.Email == "" {
		log.Println("⏭️  No admin account configured (ADMIN_EMAIL unset), skipping seed")
		return nil
	}
	if admin.Password == "" {
		log.Println("⚠️  ADMIN_EMAIL set but ADMIN_PASSWORD empty, skipping admin seed")
		return nil
	}

	ctx := context.Background()
	existing, err := svcMgr.Users.FindByEmail(ctx, admin.Email)
	if err != nil {
		return fmt.Errorf("failed to look up admin account: %w", err)
	}
	if existing != nil {
		log.Printf("   ✅ Admin account present: %s", admin.Email)
		return nil
	}

	hash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	user := &models.User{
		ID:       utils.GenerateID(),
		Username: admin.Username,
		Email:    admin.Email,
		Password: hash,
		IsAdmin:  true,
	}
	if err := svcMgr.Users.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	log.Printf("   ✅ Seeded admin account: %s", admin.Email)
	return nil
}
