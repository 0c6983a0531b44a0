package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"wayfare/api/internal/repository"
	"wayfare/api/internal/service"
)

// Scheduler runs the periodic maintenance work: lifting expired suspensions
// and keeping the reference-data cache warm.
type Scheduler struct {
	cron     *cron.Cron
	accounts *repository.AccountRepository
	catalog  *service.CatalogService
	log      zerolog.Logger
}

func NewScheduler(accounts *repository.AccountRepository, catalog *service.CatalogService, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		accounts: accounts,
		catalog:  catalog,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 */1 * * *", s.sweepSuspensions); err != nil { // hourly
		return err
	}
	if _, err := s.cron.AddFunc("0 */10 * * * *", s.warmCatalog); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for in-flight jobs to finish, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) sweepSuspensions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lifted, err := s.accounts.SweepExpiredSuspensions(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error().Err(err).Msg("suspension sweep failed")
		return
	}
	if lifted > 0 {
		s.log.Info().Int64("lifted", lifted).Msg("expired suspensions cleared")
	}
}

func (s *Scheduler) warmCatalog() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.catalog.WarmCache(ctx)
}
