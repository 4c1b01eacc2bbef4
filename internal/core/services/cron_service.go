package services

import (
	"context"
	"log"

	"unilib-circ/internal/adapters/persistence/repositories"
	"unilib-circ/internal/config"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// sweepSchedule runs the overdue sweep daily at 08:30 server time.
const sweepSchedule = "30 8 * * *"

// CronService schedules the daily overdue sweep
type CronService struct {
	cron         *cron.Cron
	sweepService *SweepService
}

// NewCronService creates a cron service with its own sweep pipeline
func NewCronService(db *gorm.DB, cfg *config.Config) *CronService {
	userRepo := repositories.NewUserRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	fineRepo := repositories.NewFineRepository(db)
	reservationRepo := repositories.NewReservationRepository(db)

	notifyService := NewNotificationService(cfg.Notify.LineToken)
	fineService := NewFineService(fineRepo, loanRepo)
	reservationService := NewReservationService(userRepo, bookRepo, loanRepo, reservationRepo, notifyService)
	sweepService := NewSweepService(userRepo, loanRepo, fineService, reservationService, notifyService)

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))
	return &CronService{
		cron:         c,
		sweepService: sweepService,
	}
}

// Start registers the sweep job and starts the scheduler
func (s *CronService) Start() error {
	_, err := s.cron.AddFunc(sweepSchedule, func() {
		if _, err := s.sweepService.Run(context.Background()); err != nil {
			log.Printf("❌ Scheduled overdue sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("⏰ Cron started: overdue sweep scheduled at %q", sweepSchedule)
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("⏰ Cron stopped")
}
