package services

import (
	"context"
	"fmt"
	"time"

	"wattschain/internal/config"
	"wattschain/pkg/logger"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler drives the periodic maintenance jobs: the commission unlock
// sweep and the nightly tree integrity audit. A redis lease keeps one
// instance at a time running each job when the service scales out.
type Scheduler struct {
	mlmService   MLMService
	fraudService FraudService
	cache        CacheService
	config       *config.MLMConfig
	logger       *logger.Logger
	scheduler    gocron.Scheduler
}

func NewScheduler(
	mlmService MLMService,
	fraudService FraudService,
	cache CacheService,
	cfg *config.MLMConfig,
	logger *logger.Logger,
) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		mlmService:   mlmService,
		fraudService: fraudService,
		cache:        cache,
		config:       cfg,
		logger:       logger,
		scheduler:    sched,
	}, nil
}

func (s *Scheduler) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.config.UnlockSweepInterval),
		gocron.NewTask(s.runUnlockSweep),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule unlock sweep: %w", err)
	}

	_, err = s.scheduler.NewJob(
		gocron.DurationJob(s.config.TreeAuditInterval),
		gocron.NewTask(s.runTreeAudit),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule tree audit: %w", err)
	}

	s.scheduler.Start()
	s.logger.WithFields(map[string]interface{}{
		"unlock_sweep_interval": s.config.UnlockSweepInterval.String(),
		"tree_audit_interval":   s.config.TreeAuditInterval.String(),
	}).Info("Maintenance scheduler started")

	return nil
}

func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}

func (s *Scheduler) runUnlockSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.UnlockSweepInterval)
	defer cancel()

	if !s.acquireLease(ctx, "mlm:lease:unlock_sweep", s.config.UnlockSweepInterval/2) {
		return
	}

	result, err := s.mlmService.UnlockExpiredCommissions(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Unlock sweep failed")
		return
	}

	if result.UnlockedCount > 0 {
		s.logger.WithFields(map[string]interface{}{
			"unlocked": result.UnlockedCount,
			"amount":   result.TotalAmount,
		}).Info("Unlock sweep finished")
	}
}

func (s *Scheduler) runTreeAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if !s.acquireLease(ctx, "mlm:lease:tree_audit", time.Hour) {
		return
	}

	report, err := s.fraudService.AuditTreeIntegrity(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Tree integrity audit failed")
		return
	}

	s.logger.WithFields(map[string]interface{}{
		"issues": len(report.Issues),
		"fixed":  report.FixedCount,
	}).Info("Scheduled tree audit finished")
}

func (s *Scheduler) acquireLease(ctx context.Context, key string, ttl time.Duration) bool {
	if s.cache == nil {
		return true
	}

	acquired, err := s.cache.SetNX(ctx, key, time.Now().Unix(), ttl)
	if err != nil {
		// Redis being down should not stop maintenance on a single node.
		s.logger.WithError(err).WithField("lease", key).Warn("Lease check failed, running anyway")
		return true
	}
	return acquired
}
