package main

import (
	"context"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eskills-store/backend/internal/application/services"
	"github.com/eskills-store/backend/internal/bootstrap"
	"github.com/eskills-store/backend/internal/config"
	"github.com/eskills-store/backend/internal/infrastructure/database"
	"github.com/eskills-store/backend/internal/interfaces/middleware"
	"github.com/eskills-store/backend/internal/interfaces/rest"
)

func main() {
	// Load .env if present; real environment variables win
	if err := godotenv.Load(); err != nil {
		log.Println("📝 No .env file found, using environment variables")
	}

	cfg := config.Load()
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database connection
	db, err := database.GetInstance()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✅ Database connection established")

	// Create the storefront tables
	if err := bootstrap.InitializeSchema(db); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// Initialize service manager
	svcMgr := services.NewServiceManager(db, cfg)
	log.Println("🔧 Service manager initialized")

	// Seed the admin account when configured
	if err := bootstrap.InitializeSystemData(svcMgr, cfg.Admin); err != nil {
		log.Fatalf("Failed to initialize system data: %v", err)
	}

	// Create Gin router
	router := gin.Default()

	// CORS middleware - Allow credentials from any origin
	router.Use(middleware.Cors())
	router.Use(middleware.RequestID())

	// Prometheus metrics
	registry := prometheus.NewRegistry()
	promMiddleware, err := middleware.NewPrometheusMiddleware(registry)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}
	router.Use(promMiddleware.Handler())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"server": "golang",
		})
	})

	// Debug/pprof endpoints for goroutine debugging
	// Access: http://localhost:5000/debug/pprof/
	// Goroutine stacks: http://localhost:5000/debug/pprof/goroutine?debug=2
	debug := router.Group("/debug/pprof")
	{
		debug.GET("/", gin.WrapF(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/debug/pprof/", http.StatusMovedPermanently)
		})))
		debug.GET("/goroutine", gin.WrapH(http.DefaultServeMux))
		debug.GET("/heap", gin.WrapH(http.DefaultServeMux))
		debug.GET("/threadcreate", gin.WrapH(http.DefaultServeMux))
		debug.GET("/block", gin.WrapH(http.DefaultServeMux))
		debug.GET("/mutex", gin.WrapH(http.DefaultServeMux))
		debug.GET("/profile", gin.WrapH(http.DefaultServeMux))
		debug.GET("/trace", gin.WrapH(http.DefaultServeMux))
	}

	// Initialize handlers
	authHandler := rest.NewAuthHandler(svcMgr)
	catalogHandler := rest.NewCatalogHandler(svcMgr)
	cartHandler := rest.NewCartHandler(svcMgr)
	enrollmentHandler := rest.NewEnrollmentHandler(svcMgr)
	couponHandler := rest.NewCouponHandler(svcMgr)
	checkoutHandler := rest.NewCheckoutHandler(svcMgr)
	reportHandler := rest.NewReportHandler(svcMgr)

	// Initialize middleware
	requireAuth := middleware.RequireAuth(svcMgr.Auth)
	optionalAuth := middleware.OptionalAuth(svcMgr.Auth)
	requireAdmin := middleware.RequireAdmin()

	// API routes
	api := router.Group("/api")
	{
		// Auth routes (register and login are public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", requireAuth, authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetMe)
			auth.POST("/change-password", requireAuth, authHandler.ChangePassword)
		}

		// Catalog routes; anonymous browsing works, a valid token adds
		// per-course enrollment flags
		courses := api.Group("/courses")
		{
			courses.GET("", optionalAuth, catalogHandler.ListCourses)
			courses.GET("/:course_id", optionalAuth, catalogHandler.GetCourse)
			courses.POST("/:course_id/enroll", requireAuth, enrollmentHandler.Enroll)
		}

		// Protected enrollment routes
		enrollments := api.Group("/enrollments")
		enrollments.Use(requireAuth)
		{
			enrollments.GET("", enrollmentHandler.List)
			enrollments.POST("/sync", enrollmentHandler.Sync)
			enrollments.DELETE("/:course_id", enrollmentHandler.Drop)
		}

		// Protected cart routes
		cart := api.Group("/cart")
		cart.Use(requireAuth)
		{
			cart.GET("", cartHandler.GetCart)
			cart.POST("/items/:course_id", cartHandler.AddItem)
			cart.DELETE("/items/:course_id", cartHandler.RemoveItem)
			cart.DELETE("", cartHandler.Clear)
		}

		// Coupon validation against the caller's cart
		coupons := api.Group("/coupons")
		coupons.Use(requireAuth)
		{
			coupons.POST("/validate", couponHandler.Validate)
		}

		// Checkout routes; the webhook is public, its signature is the auth
		checkout := api.Group("/checkout")
		{
			checkout.GET("/config", requireAuth, checkoutHandler.GetConfig)
			checkout.POST("/payment-intent", requireAuth, checkoutHandler.CreatePaymentIntent)
			checkout.POST("/webhook", checkoutHandler.Webhook)
		}

		// Order history
		orders := api.Group("/orders")
		orders.Use(requireAuth)
		{
			orders.GET("", checkoutHandler.ListOrders)
			orders.GET("/:order_id", checkoutHandler.GetOrder)
		}

		// Admin routes (store admin only)
		admin := api.Group("/admin")
		admin.Use(requireAuth, requireAdmin)
		{
			admin.POST("/coupons", couponHandler.Create)
			admin.GET("/coupons", couponHandler.List)
			admin.GET("/coupons/:id", couponHandler.Get)
			admin.PUT("/coupons/:id", couponHandler.Update)
			admin.DELETE("/coupons/:id", couponHandler.Delete)

			admin.POST("/reports/query", reportHandler.Query)
			admin.GET("/reports/summary", reportHandler.Summary)
			admin.GET("/reports/top-courses", reportHandler.TopCourses)
		}
	}

	// Start background maintenance (session purge, stale order expiry)
	svcMgr.StartMaintenance()
	log.Printf("⏰ Maintenance service started (%s)", cfg.MaintenanceSchedule)

	// Start server
	log.Println("\n═══════════════════════════════════════════════════════════════════════════")
	log.Println("🚀 EDX Store Backend Started Successfully")
	log.Println("═══════════════════════════════════════════════════════════════════════════")
	log.Printf("\n📍 Server:         http://localhost:%s", cfg.Port)
	log.Printf("🔐 Auth API:       http://localhost:%s/api/auth", cfg.Port)
	log.Printf("📚 Catalog API:    http://localhost:%s/api/courses", cfg.Port)
	log.Printf("🛒 Cart API:       http://localhost:%s/api/cart", cfg.Port)
	log.Printf("💳 Checkout API:   http://localhost:%s/api/checkout", cfg.Port)
	log.Printf("📊 Metrics:        http://localhost:%s/metrics", cfg.Port)
	log.Printf("💚 Health check:   http://localhost:%s/health\n", cfg.Port)

	// Create HTTP Server
	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	quit := make(chan os.Signal, 1)
	// kill (no param) default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be caught, so don't need to add it
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop background workers
	svcMgr.StopMaintenance()
	log.Println("🛑 Maintenance service stopped")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
