package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/eskills-store/backend/internal/infrastructure/persistence"
)

const (
	maintenanceCheckInterval = time.Minute
	maintenanceMaxRuntime    = 5 * time.Minute

	// Pending orders older than this never got their webhook; expire them
	staleOrderHours = 24
)

// MaintenanceService periodically purges expired sessions and expires
// stale pending orders. The cadence is a cron expression from config.
type MaintenanceService struct {
	auth     *AuthService
	orders   *persistence.OrderRepository
	schedule string
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	stopped  bool // Prevents double-close of stopChan
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(auth *AuthService, orders *persistence.OrderRepository, schedule string) *MaintenanceService {
	return &MaintenanceService{
		auth:     auth,
		orders:   orders,
		schedule: schedule,
		stopChan: make(chan struct{}),
	}
}

// Start begins the maintenance background loop
func (s *MaintenanceService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(s.schedule)
	if err != nil {
		log.Printf("⚠️ Invalid maintenance schedule %q, maintenance disabled: %v", s.schedule, err)
		return
	}

	log.Printf("⏰ Maintenance service starting (schedule: %s)", s.schedule)

	ticker := time.NewTicker(maintenanceCheckInterval)
	defer ticker.Stop()

	// Run immediately on start
	s.runJobs()
	next := sched.Next(time.Now())

	for {
		select {
		case now := <-ticker.C:
			if !now.Before(next) {
				s.runJobs()
				next = sched.Next(now)
			}
		case <-s.stopChan:
			log.Println("⏰ Maintenance service stopping...")
			s.wg.Wait() // Wait for a running sweep to complete
			log.Println("⏰ Maintenance service stopped")
			return
		}
	}
}

// Stop gracefully stops the maintenance loop
func (s *MaintenanceService) Stop() {
	s.mu.Lock()
	if !s.running || s.stopped {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.stopped = true
	s.mu.Unlock()

	close(s.stopChan)
}

// runJobs executes one maintenance sweep in the background
func (s *MaintenanceService) runJobs() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("🔥 Panic in maintenance sweep: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), maintenanceMaxRuntime)
		defer cancel()

		removed, err := s.auth.CleanupExpiredSessions(ctx)
		if err != nil {
			log.Printf("⚠️ Session cleanup failed: %v", err)
		} else if removed > 0 {
			log.Printf("⏰ Purged %d expired session(s)", removed)
		}

		expired, err := s.orders.ExpireStalePending(ctx, staleOrderHours)
		if err != nil {
			log.Printf("⚠️ Stale order sweep failed: %v", err)
		} else if expired > 0 {
			log.Printf("⏰ Expired %d stale pending order(s)", expired)
		}
	}()
}
