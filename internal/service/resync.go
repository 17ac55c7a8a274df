package service

import (
	"context"
	"fmt"

	"telemedia/internal/errors"
	"telemedia/internal/models"
	"telemedia/pkg/storage"

	"github.com/sirupsen/logrus"
)

// ResyncStore is the slice of the database the repair pass needs.
type ResyncStore interface {
	ListMediaRecords(ctx context.Context) ([]*models.MediaRecord, error)
	UpdateMediaLocation(ctx context.Context, id, bucket, object, publicURL string) error
	UpdateErrorMessage(ctx context.Context, id, msg string) error
}

// ResyncReport summarizes one repair pass over the catalog.
type ResyncReport struct {
	Scanned       int `json:"scanned"`
	Intact        int `json:"intact"`
	Restored      int `json:"restored"`
	Relocated     int `json:"relocated"`
	Unrecoverable int `json:"unrecoverable"`
	Errors        int `json:"errors"`
}

// ResyncService verifies that every record's bytes still exist in storage,
// re-fetching lost objects from the platform and moving misplaced ones into
// the bucket their kind demands. Records are never deleted here; an asset
// that cannot be recovered gets its error message set and stays in the
// catalog.
type ResyncService struct {
	store    ResyncStore
	telegram MediaDownloader
	router   storage.Router
	logger   *logrus.Logger
}

func NewResyncService(store ResyncStore, tg MediaDownloader, router storage.Router, logger *logrus.Logger) *ResyncService {
	return &ResyncService{
		store:    store,
		telegram: tg,
		router:   router,
		logger:   logger,
	}
}

// Run walks the full catalog once. Per-record failures are counted and
// skipped so one bad record never stops the pass.
func (s *ResyncService) Run(ctx context.Context) (*ResyncReport, error) {
	records, err := s.store.ListMediaRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list media records: %w", err)
	}

	report := &ResyncReport{}
	for _, rec := range records {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}
		report.Scanned++

		if err := s.checkRecord(ctx, rec, report); err != nil {
			report.Errors++
			errors.LogWarn(s.logger, err, "resync", "Failed to repair record")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"component":     "resync",
		"scanned":       report.Scanned,
		"intact":        report.Intact,
		"restored":      report.Restored,
		"relocated":     report.Relocated,
		"unrecoverable": report.Unrecoverable,
		"errors":        report.Errors,
	}).Info("Resync pass completed")

	return report, nil
}

func (s *ResyncService) checkRecord(ctx context.Context, rec *models.MediaRecord, report *ResyncReport) error {
	exists, err := s.router.Exists(ctx, rec.StorageBucket, rec.StorageObject)
	if err != nil {
		return fmt.Errorf("failed to check object existence: %w", err)
	}

	if !exists {
		return s.restore(ctx, rec, report)
	}

	expected := s.router.BucketFor(rec.MediaKind)
	if expected != rec.StorageBucket {
		return s.relocate(ctx, rec, report)
	}

	report.Intact++
	return nil
}

// restore re-fetches lost bytes from the platform and uploads them again. A
// record without a stored file ID, or whose file the platform no longer
// serves, is marked unrecoverable but kept.
func (s *ResyncService) restore(ctx context.Context, rec *models.MediaRecord, report *ResyncReport) error {
	if rec.FileID == "" {
		report.Unrecoverable++
		return s.markUnrecoverable(ctx, rec, "object missing and no file ID to re-fetch")
	}

	file, err := s.telegram.GetFile(ctx, rec.FileID)
	if err != nil {
		report.Unrecoverable++
		return s.markUnrecoverable(ctx, rec, fmt.Sprintf("object missing and re-fetch failed: %v", err))
	}

	data, err := s.telegram.DownloadFile(ctx, file.FilePath)
	if err != nil {
		report.Unrecoverable++
		return s.markUnrecoverable(ctx, rec, fmt.Sprintf("object missing and download failed: %v", err))
	}

	location, err := s.router.Place(ctx, rec.MediaKind, rec.StorageObject, data, rec.MimeType)
	if err != nil {
		return fmt.Errorf("failed to re-upload restored bytes: %w", err)
	}

	if err := s.store.UpdateMediaLocation(ctx, rec.ID, location.Bucket, location.Object, location.PublicURL); err != nil {
		return fmt.Errorf("failed to update restored location: %w", err)
	}

	report.Restored++
	s.logger.WithFields(logrus.Fields{
		"component": "resync",
		"recordID":  rec.ID,
		"bucket":    location.Bucket,
	}).Info("Restored missing object")
	return nil
}

// relocate moves an object out of a bucket that no longer matches its kind.
func (s *ResyncService) relocate(ctx context.Context, rec *models.MediaRecord, report *ResyncReport) error {
	location, err := s.router.Move(ctx, rec.MediaKind, rec.StorageBucket, rec.StorageObject)
	if err != nil {
		return fmt.Errorf("failed to move misplaced object: %w", err)
	}

	if err := s.store.UpdateMediaLocation(ctx, rec.ID, location.Bucket, location.Object, location.PublicURL); err != nil {
		return fmt.Errorf("failed to update relocated record: %w", err)
	}

	report.Relocated++
	s.logger.WithFields(logrus.Fields{
		"component": "resync",
		"recordID":  rec.ID,
		"from":      rec.StorageBucket,
		"to":        location.Bucket,
	}).Info("Relocated misplaced object")
	return nil
}

func (s *ResyncService) markUnrecoverable(ctx context.Context, rec *models.MediaRecord, msg string) error {
	if err := s.store.UpdateErrorMessage(ctx, rec.ID, msg); err != nil {
		return fmt.Errorf("failed to record unrecoverable state: %w", err)
	}
	return nil
}
