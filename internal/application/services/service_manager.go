package services

import (
	"github.com/eskills-store/backend/internal/config"
	"github.com/eskills-store/backend/internal/infrastructure/database"
	"github.com/eskills-store/backend/internal/infrastructure/openedx"
	"github.com/eskills-store/backend/internal/infrastructure/persistence"
	"github.com/eskills-store/backend/pkg/expression"
)

// ServiceManager orchestrates all services with dependency injection
type ServiceManager struct {
	db *database.MySQLConnection

	// Infrastructure
	TxManager *persistence.TransactionManager
	EdxClient *openedx.Client

	// Repositories
	Users        *persistence.UserRepository
	Sessions     *persistence.SessionRepository
	Carts        *persistence.CartRepository
	Enrollments  *persistence.EnrollmentRepository
	Orders       *persistence.OrderRepository
	CouponsStore *persistence.CouponRepository

	// Application services
	Auth        *AuthService
	Catalog     *CatalogService
	Cart        *CartService
	Coupon      *CouponService
	Enrollment  *EnrollmentService
	Checkout    *CheckoutService
	Report      *ReportService
	Maintenance *MaintenanceService
}

// NewServiceManager creates a new service manager with all dependencies wired
func NewServiceManager(db *database.MySQLConnection, cfg *config.AppConfig) *ServiceManager {
	sm := &ServiceManager{
		db: db,
	}

	// Initialize services in dependency order
	sm.TxManager = persistence.NewTransactionManager(db)
	sm.EdxClient = openedx.NewClient(cfg.OpenEdX)

	sm.Users = persistence.NewUserRepository(db.DB())
	sm.Sessions = persistence.NewSessionRepository(db.DB())
	sm.Carts = persistence.NewCartRepository(db.DB())
	sm.Enrollments = persistence.NewEnrollmentRepository(db.DB())
	sm.Orders = persistence.NewOrderRepository(db.DB())
	sm.CouponsStore = persistence.NewCouponRepository(db.DB())

	sm.Auth = NewAuthService(sm.Users, sm.Sessions, sm.EdxClient)
	sm.Catalog = NewCatalogService(sm.EdxClient, sm.Enrollments)
	sm.Cart = NewCartService(sm.Carts, sm.Enrollments, sm.Catalog)
	sm.Coupon = NewCouponService(sm.CouponsStore, expression.NewEngine())
	sm.Enrollment = NewEnrollmentService(sm.EdxClient, sm.Enrollments, sm.Users)
	sm.Checkout = NewCheckoutService(cfg.Stripe, db, sm.TxManager, sm.Carts, sm.Orders, sm.Users, sm.Coupon, sm.Enrollment)
	sm.Report = NewReportService(db, NewQueryGuard())
	sm.Maintenance = NewMaintenanceService(sm.Auth, sm.Orders, cfg.MaintenanceSchedule)

	return sm
}

// StartMaintenance starts the background maintenance loop.
// Call this during server startup.
func (sm *ServiceManager) StartMaintenance() {
	if sm.Maintenance != nil {
		go sm.Maintenance.Start()
	}
}

// StopMaintenance stops the background maintenance loop gracefully.
// Call this during server shutdown.
func (sm *ServiceManager) StopMaintenance() {
	if sm.Maintenance != nil {
		sm.Maintenance.Stop()
	}
}
