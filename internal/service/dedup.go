package service

import (
	"context"
	"fmt"

	"telemedia/internal/errors"
	"telemedia/internal/models"
	"telemedia/pkg/storage"

	"github.com/sirupsen/logrus"
)

// DedupStore is the slice of the database the cleanup pass needs.
type DedupStore interface {
	ListDuplicateGroups(ctx context.Context, keep models.DedupKeepPolicy) ([][]*models.MediaRecord, error)
	DeleteMediaRecord(ctx context.Context, id string) error
}

// DedupReport summarizes one duplicate cleanup pass.
type DedupReport struct {
	Groups  int `json:"groups"`
	Removed int `json:"removed"`
	Errors  int `json:"errors"`
}

// DedupService removes redundant records that share a content hash, keeping
// one canonical row per group as selected by the keep policy. The row is
// deleted before its bytes: a failed byte removal leaves an orphaned object,
// never a dangling record.
type DedupService struct {
	store  DedupStore
	router storage.Router
	keep   models.DedupKeepPolicy
	logger *logrus.Logger
}

func NewDedupService(store DedupStore, router storage.Router, keep models.DedupKeepPolicy, logger *logrus.Logger) *DedupService {
	if keep == "" {
		keep = models.DedupKeepNewest
	}
	return &DedupService{
		store:  store,
		router: router,
		keep:   keep,
		logger: logger,
	}
}

// Run performs one cleanup pass. Per-record failures are counted and the
// pass continues; the canonical record of each group is never touched.
func (s *DedupService) Run(ctx context.Context) (*DedupReport, error) {
	groups, err := s.store.ListDuplicateGroups(ctx, s.keep)
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicate groups: %w", err)
	}

	report := &DedupReport{Groups: len(groups)}
	for _, group := range groups {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}
		if len(group) < 2 {
			continue
		}

		canonical := group[0]
		for _, dup := range group[1:] {
			if err := s.removeDuplicate(ctx, canonical, dup); err != nil {
				report.Errors++
				errors.LogWarn(s.logger, err, "dedup", "Failed to remove duplicate record")
				continue
			}
			report.Removed++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"component": "dedup",
		"keep":      string(s.keep),
		"groups":    report.Groups,
		"removed":   report.Removed,
		"errors":    report.Errors,
	}).Info("Duplicate cleanup pass completed")

	return report, nil
}

func (s *DedupService) removeDuplicate(ctx context.Context, canonical, dup *models.MediaRecord) error {
	if err := s.store.DeleteMediaRecord(ctx, dup.ID); err != nil {
		return fmt.Errorf("failed to delete duplicate row: %w", err)
	}

	// Rows can point at the same object when an earlier byte removal failed.
	// Never delete the object the canonical record still references.
	if dup.StorageBucket == canonical.StorageBucket && dup.StorageObject == canonical.StorageObject {
		return nil
	}
	if dup.StorageObject == "" {
		return nil
	}

	if err := s.router.Remove(ctx, dup.StorageBucket, dup.StorageObject); err != nil {
		return fmt.Errorf("deleted row but failed to remove object: %w", err)
	}
	return nil
}
