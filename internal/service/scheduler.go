package service

import (
	"context"
	"time"

	"telemedia/internal/constants"

	"github.com/sirupsen/logrus"
)

// MaintenanceRunner is a periodic job the scheduler drives.
type MaintenanceRunner interface {
	Run(ctx context.Context) (*ResyncReport, error)
}

// DeliveryCleaner prunes old webhook delivery log rows.
type DeliveryCleaner interface {
	CleanupOldDeliveries(ctx context.Context, retentionDays int) (int64, error)
}

// Scheduler runs the periodic resync pass and delivery log cleanup.
type Scheduler struct {
	resync        MaintenanceRunner
	cleaner       DeliveryCleaner
	retentionDays int
	intervalHours int
	logger        *logrus.Logger
	stopCh        chan struct{}
}

func NewScheduler(resync MaintenanceRunner, cleaner DeliveryCleaner, retentionDays, intervalHours int, logger *logrus.Logger) *Scheduler {
	if intervalHours <= 0 {
		intervalHours = constants.DefaultResyncIntervalHours
	}
	if retentionDays <= 0 {
		retentionDays = constants.DefaultRetentionDays
	}
	return &Scheduler{
		resync:        resync,
		cleaner:       cleaner,
		retentionDays: retentionDays,
		intervalHours: intervalHours,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.intervalHours) * time.Hour)
	defer ticker.Stop()

	s.logger.Info("Starting maintenance scheduler")

	s.runMaintenance(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler context cancelled, stopping")
			return
		case <-s.stopCh:
			s.logger.Info("Scheduler stop signal received, stopping")
			return
		case <-ticker.C:
			s.runMaintenance(ctx)
		}
	}
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) runMaintenance(ctx context.Context) {
	s.logger.WithField("retentionDays", s.retentionDays).Info("Running scheduled maintenance")

	if _, err := s.resync.Run(ctx); err != nil {
		s.logger.WithError(err).Error("Failed to run resync pass")
	}

	if removed, err := s.cleaner.CleanupOldDeliveries(ctx, s.retentionDays); err != nil {
		s.logger.WithError(err).Error("Failed to cleanup old delivery records")
	} else if removed > 0 {
		s.logger.WithField("removed", removed).Info("Pruned old delivery records")
	}
}
