package service

import (
	"context"
	"fmt"
	"testing"

	"telemedia/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptionSyncUpdatesMissingCaptions(t *testing.T) {
	store := newMockStore()
	store.missing = []*models.MediaRecord{
		{ID: "rec-1", ChannelID: -100, MessageID: 1},
		{ID: "rec-2", ChannelID: -100, MessageID: 2},
	}

	tg := &mockTelegram{getMessageResp: &models.Message{Caption: "found upstream"}}
	svc := NewCaptionSyncService(store, tg, 50, testLogger())

	report, err := svc.SyncChannel(context.Background(), -100)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, 0, report.Errors)
	assert.Equal(t, "found upstream", store.captions["rec-1"])
	assert.Equal(t, "found upstream", store.captions["rec-2"])
}

func TestCaptionSyncSkipsStillCaptionless(t *testing.T) {
	store := newMockStore()
	store.missing = []*models.MediaRecord{{ID: "rec-1", ChannelID: -100, MessageID: 1}}

	tg := &mockTelegram{getMessageResp: &models.Message{}}
	svc := NewCaptionSyncService(store, tg, 50, testLogger())

	report, err := svc.SyncChannel(context.Background(), -100)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 0, report.Updated)
	assert.Empty(t, store.captions)
}

func TestCaptionSyncCountsFetchErrors(t *testing.T) {
	store := newMockStore()
	store.missing = []*models.MediaRecord{
		{ID: "rec-1", ChannelID: -100, MessageID: 1},
	}

	tg := &mockTelegram{getMessageErr: fmt.Errorf("message not found")}
	svc := NewCaptionSyncService(store, tg, 50, testLogger())

	report, err := svc.SyncChannel(context.Background(), -100)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 0, report.Updated)
}

func TestCaptionSyncChannelsAggregatesReports(t *testing.T) {
	store := newMockStore()
	store.missing = []*models.MediaRecord{{ID: "rec-1", ChannelID: -100, MessageID: 1}}

	tg := &mockTelegram{getMessageResp: &models.Message{Caption: "found upstream"}}
	svc := NewCaptionSyncService(store, tg, 50, testLogger())

	report, err := svc.SyncChannels(context.Background(), []int64{-100, -200})
	require.NoError(t, err)

	// One batch per channel, totals summed across both passes.
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, 0, report.Errors)
}

func TestCaptionSyncChannelsCountsFailedChannels(t *testing.T) {
	store := newMockStore()
	store.lookupErr = fmt.Errorf("db gone")

	svc := NewCaptionSyncService(store, &mockTelegram{}, 50, testLogger())

	report, err := svc.SyncChannels(context.Background(), []int64{-100, -200})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Errors)
	assert.Equal(t, 0, report.Checked)
}

func TestCaptionSyncListFailure(t *testing.T) {
	store := newMockStore()
	store.lookupErr = fmt.Errorf("db gone")

	svc := NewCaptionSyncService(store, &mockTelegram{}, 50, testLogger())

	_, err := svc.SyncChannel(context.Background(), -100)
	require.Error(t, err)
}
