package service

import (
	"context"
	"fmt"

	"telemedia/internal/constants"
	"telemedia/internal/errors"
	"telemedia/internal/models"

	"github.com/sirupsen/logrus"
)

// CaptionStore is the slice of the database caption sync reads and writes.
type CaptionStore interface {
	ListMediaMissingCaption(ctx context.Context, channelID int64, limit int) ([]*models.MediaRecord, error)
	UpdateCaption(ctx context.Context, id, caption string) error
}

// MessageFetcher retrieves the current content of a platform message.
type MessageFetcher interface {
	GetMessage(ctx context.Context, chatID int64, messageID int64) (*models.Message, error)
}

// SyncReport summarizes one caption sync pass.
type SyncReport struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// CaptionSyncService backfills captions that arrived after media ingestion,
// typically via message edits. It only ever touches the caption column.
type CaptionSyncService struct {
	store     CaptionStore
	telegram  MessageFetcher
	batchSize int
	logger    *logrus.Logger
}

func NewCaptionSyncService(store CaptionStore, tg MessageFetcher, batchSize int, logger *logrus.Logger) *CaptionSyncService {
	if batchSize <= 0 {
		batchSize = constants.DefaultCaptionSyncBatchSize
	}
	return &CaptionSyncService{
		store:     store,
		telegram:  tg,
		batchSize: batchSize,
		logger:    logger,
	}
}

// SyncChannel refetches up to one batch of caption-less records for a channel
// and writes back any caption found upstream. Per-record failures are counted
// and skipped; the pass continues.
func (s *CaptionSyncService) SyncChannel(ctx context.Context, channelID int64) (*SyncReport, error) {
	records, err := s.store.ListMediaMissingCaption(ctx, channelID, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list records missing captions: %w", err)
	}

	report := &SyncReport{}
	for _, rec := range records {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}
		report.Checked++

		msg, err := s.telegram.GetMessage(ctx, rec.ChannelID, rec.MessageID)
		if err != nil {
			report.Errors++
			errors.LogWarn(s.logger, err, "captionsync", "Failed to fetch message for caption sync")
			continue
		}
		if msg == nil || msg.Caption == "" {
			continue
		}

		if err := s.store.UpdateCaption(ctx, rec.ID, msg.Caption); err != nil {
			report.Errors++
			errors.LogWarn(s.logger, err, "captionsync", "Failed to write synced caption")
			continue
		}
		report.Updated++
	}

	s.logger.WithFields(logrus.Fields{
		"component": "captionsync",
		"channelID": SanitizeChannelID(channelID),
		"checked":   report.Checked,
		"updated":   report.Updated,
		"errors":    report.Errors,
	}).Info("Caption sync pass completed")

	return report, nil
}

// SyncChannels runs one pass over each channel in turn and aggregates the
// per-channel reports. A failed channel listing counts as an error and the
// remaining channels are still processed.
func (s *CaptionSyncService) SyncChannels(ctx context.Context, channelIDs []int64) (*SyncReport, error) {
	total := &SyncReport{}
	for _, channelID := range channelIDs {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}

		report, err := s.SyncChannel(ctx, channelID)
		if err != nil {
			total.Errors++
			errors.LogWarn(s.logger, err, "captionsync", "Caption sync pass failed for channel")
			continue
		}
		total.Checked += report.Checked
		total.Updated += report.Updated
		total.Errors += report.Errors
	}
	return total, nil
}
