// Package retention purges old notifications on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"time"

	"taskchat/internal/config"
	"taskchat/internal/metrics"
	"taskchat/pkg/logger"

	"github.com/robfig/cron/v3"
)

const sweepTimeout = time.Minute

var cronParser = cron.NewParser(
	cron.SecondOptional |
		cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow |
		cron.Descriptor,
)

// Purger deletes notifications older than maxAge.
type Purger interface {
	DeleteOld(ctx context.Context, maxAge time.Duration) (int64, error)
}

type Sweeper struct {
	purger Purger
	cfg    config.RetentionConfig
	cron   *cron.Cron
}

func NewSweeper(purger Purger, cfg config.RetentionConfig) *Sweeper {
	return &Sweeper{
		purger: purger,
		cfg:    cfg,
		cron:   cron.New(cron.WithParser(cronParser)),
	}
}

// ValidateSchedule reports whether schedule is a usable schedule.
func ValidateSchedule(schedule string) error {
	if _, err := cronParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	return nil
}

// Start schedules the sweep and returns immediately.
func (s *Sweeper) Start() error {
	if err := ValidateSchedule(s.cfg.Schedule); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.Schedule, s.run); err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}
	s.cron.Start()
	logger.Info("Retention sweep scheduled %q, max age %s", s.cfg.Schedule, s.cfg.MaxAge)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.purger.DeleteOld(ctx, s.cfg.MaxAge)
	if err != nil {
		return 0, err
	}
	metrics.RetentionDeleted.Add(float64(n))
	return n, nil
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.RunOnce(ctx)
	if err != nil {
		logger.Error("Retention sweep failed: %v", err)
		return
	}
	logger.Info("Retention sweep removed %d notifications", n)
}
