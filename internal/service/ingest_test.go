package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"telemedia/internal/models"
	"telemedia/internal/retry"
	"telemedia/pkg/transcode"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func testBackoff() *retry.Backoff {
	return retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  3,
		Jitter:       false,
	})
}

func newTestIngest(store *mockStore, tg *mockTelegram, router *mockRouter, conv *mockConverter, fwd *mockForwarder) *IngestService {
	return NewIngestService(store, tg, router, conv, fwd, testBackoff(), testLogger())
}

func videoUpdate(t *testing.T, fileID, fileUniqueID, mime, caption string) json.RawMessage {
	t.Helper()
	update := models.Update{
		UpdateID: 42,
		ChannelPost: &models.Message{
			MessageID: 7,
			Chat:      models.Chat{ID: -100123456789, Type: "channel"},
			Caption:   caption,
			Video: &models.Video{
				FileID:       fileID,
				FileUniqueID: fileUniqueID,
				MimeType:     mime,
				FileName:     "clip.mov",
			},
		},
	}
	raw, err := json.Marshal(update)
	require.NoError(t, err)
	return raw
}

func photoUpdate(t *testing.T, fileID, fileUniqueID string) json.RawMessage {
	t.Helper()
	update := models.Update{
		UpdateID: 43,
		ChannelPost: &models.Message{
			MessageID: 8,
			Chat:      models.Chat{ID: -100123456789, Type: "channel"},
			Photo: []models.PhotoSize{
				{FileID: fileID, FileUniqueID: fileUniqueID, Width: 800, Height: 600},
			},
		},
	}
	raw, err := json.Marshal(update)
	require.NoError(t, err)
	return raw
}

func TestProcessUpdateStoresNewPhoto(t *testing.T) {
	store := newMockStore()
	tg := &mockTelegram{downloadData: []byte("jpeg bytes")}
	router := newMockRouter()
	conv := &mockConverter{}
	fwd := &mockForwarder{}
	svc := newTestIngest(store, tg, router, conv, fwd)

	result, err := svc.ProcessUpdate(context.Background(), photoUpdate(t, "p1", "up1"))
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, models.ResolutionNew, result.Resolution)
	require.NotNil(t, result.Record)
	assert.Equal(t, "up1", result.Record.FileUniqueID)
	assert.Equal(t, "p1", result.Record.FileID)
	assert.Equal(t, models.MediaKindPhoto, result.Record.MediaKind)
	assert.Equal(t, "pictures", result.Record.StorageBucket)
	assert.Equal(t, HashBytes([]byte("jpeg bytes")), result.Record.ContentHash)

	require.Len(t, store.saved, 1)
	require.Len(t, router.placed, 1)
	assert.Equal(t, "pictures/up1.jpg", router.placed[0])

	// Photos never enter the conversion pipeline
	assert.Zero(t, conv.calls)

	require.Len(t, fwd.envelopes, 1)
	require.NotNil(t, fwd.envelopes[0].Media)
	assert.False(t, fwd.envelopes[0].Media.Duplicate)
}

func TestProcessUpdateResendSkipsDownload(t *testing.T) {
	store := newMockStore()
	existing := &models.MediaRecord{ID: "rec-1", FileUniqueID: "up1", MediaKind: models.MediaKindPhoto}
	store.byUniqueID["up1"] = existing

	tg := &mockTelegram{downloadData: []byte("jpeg bytes")}
	router := newMockRouter()
	fwd := &mockForwarder{}
	svc := newTestIngest(store, tg, router, &mockConverter{}, fwd)

	result, err := svc.ProcessUpdate(context.Background(), photoUpdate(t, "p1", "up1"))
	require.NoError(t, err)

	assert.Equal(t, StateSkippedDuplicate, result.State)
	assert.Equal(t, models.ResolutionDuplicateByID, result.Resolution)
	assert.Same(t, existing, result.Record)

	assert.Zero(t, tg.downloadCalls)
	assert.Empty(t, router.placed)
	assert.Empty(t, store.saved)

	require.Len(t, fwd.envelopes, 1)
	require.NotNil(t, fwd.envelopes[0].Media)
	assert.True(t, fwd.envelopes[0].Media.Duplicate)
}

func TestProcessUpdateDuplicateByHash(t *testing.T) {
	store := newMockStore()
	data := []byte("same bytes, new identifier")
	existing := &models.MediaRecord{ID: "rec-1", FileUniqueID: "old-id", ContentHash: HashBytes(data)}
	store.byHash[HashBytes(data)] = existing

	tg := &mockTelegram{downloadData: data}
	router := newMockRouter()
	fwd := &mockForwarder{}
	svc := newTestIngest(store, tg, router, &mockConverter{}, fwd)

	result, err := svc.ProcessUpdate(context.Background(), photoUpdate(t, "p2", "rotated-id"))
	require.NoError(t, err)

	assert.Equal(t, StateSkippedDuplicate, result.State)
	assert.Equal(t, models.ResolutionDuplicateByHash, result.Resolution)
	assert.Same(t, existing, result.Record)
	assert.Empty(t, router.placed)
	assert.Empty(t, store.saved)
}

func TestProcessUpdateDuplicateMergesMissingCaption(t *testing.T) {
	store := newMockStore()
	existing := &models.MediaRecord{ID: "rec-1", FileUniqueID: "uv1"}
	store.byUniqueID["uv1"] = existing

	fwd := &mockForwarder{}
	svc := newTestIngest(store, &mockTelegram{}, newMockRouter(), &mockConverter{}, fwd)

	result, err := svc.ProcessUpdate(context.Background(), videoUpdate(t, "v1", "uv1", "video/mp4", "late caption"))
	require.NoError(t, err)

	assert.Equal(t, StateSkippedDuplicate, result.State)
	assert.Equal(t, "late caption", store.captions["rec-1"])
	require.NotNil(t, existing.Caption)
	assert.Equal(t, "late caption", *existing.Caption)
}

func TestProcessUpdateDuplicateKeepsExistingCaption(t *testing.T) {
	store := newMockStore()
	caption := "original"
	existing := &models.MediaRecord{ID: "rec-1", FileUniqueID: "uv1", Caption: &caption}
	store.byUniqueID["uv1"] = existing

	svc := newTestIngest(store, &mockTelegram{}, newMockRouter(), &mockConverter{}, &mockForwarder{})

	_, err := svc.ProcessUpdate(context.Background(), videoUpdate(t, "v1", "uv1", "video/mp4", "newer caption"))
	require.NoError(t, err)

	// A plain resend never overwrites a caption that is already set.
	_, updated := store.captions["rec-1"]
	assert.False(t, updated)
	assert.Equal(t, "original", *existing.Caption)
}

func TestProcessUpdateTextForwardedNotPersisted(t *testing.T) {
	store := newMockStore()
	router := newMockRouter()
	fwd := &mockForwarder{}
	svc := newTestIngest(store, &mockTelegram{}, router, &mockConverter{}, fwd)

	update := models.Update{
		UpdateID: 44,
		Message: &models.Message{
			MessageID: 9,
			Chat:      models.Chat{ID: 55},
			Text:      "just text",
		},
	}
	raw, err := json.Marshal(update)
	require.NoError(t, err)

	result, err := svc.ProcessUpdate(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.Nil(t, result.Record)
	assert.Empty(t, store.saved)
	assert.Empty(t, router.placed)

	require.Len(t, fwd.envelopes, 1)
	assert.Nil(t, fwd.envelopes[0].Media)
}

func TestProcessUpdateVideoConverted(t *testing.T) {
	store := newMockStore()
	tg := &mockTelegram{downloadData: []byte("quicktime bytes")}
	router := newMockRouter()
	conv := &mockConverter{outcome: &transcode.Outcome{
		Bytes:    []byte("mp4 bytes"),
		MimeType: "video/mp4",
		Status:   models.ConversionSuccess,
		JobRef:   "job-1",
	}}
	fwd := &mockForwarder{}
	svc := newTestIngest(store, tg, router, conv, fwd)

	result, err := svc.ProcessUpdate(context.Background(), videoUpdate(t, "v1", "uv1", "video/quicktime", ""))
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	require.NotNil(t, result.Record)
	assert.Equal(t, models.ConversionSuccess, result.Record.ConversionStatus)
	assert.Equal(t, "job-1", result.Record.ConversionJobRef)
	assert.Equal(t, "video/mp4", result.Record.MimeType)
	assert.Equal(t, "clip.mp4", result.Record.StorageObject)

	// Original upload plus converted copy, original removed after the swap.
	require.Len(t, router.placed, 2)
	assert.Equal(t, "video/clip.mov", router.placed[0])
	assert.Equal(t, "video/clip.mp4", router.placed[1])
	require.Len(t, router.removed, 1)
	assert.Equal(t, "video/clip.mov", router.removed[0])

	assert.Equal(t, []string{"processing", "success"}, store.statusUpdates)
}

func TestProcessUpdateVideoAlreadyCanonical(t *testing.T) {
	store := newMockStore()
	tg := &mockTelegram{downloadData: []byte("mp4 bytes")}
	router := newMockRouter()
	conv := &mockConverter{}
	svc := newTestIngest(store, tg, router, conv, &mockForwarder{})

	result, err := svc.ProcessUpdate(context.Background(), videoUpdate(t, "v1", "uv1", "video/mp4", ""))
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, models.ConversionNone, result.Record.ConversionStatus)
	require.Len(t, router.placed, 1)
	assert.Empty(t, router.removed)

	// A canonical video is never handed to a converter, and its record never
	// leaves status none: the only persisted transitions are
	// none -> processing -> success and none -> processing -> error.
	assert.Equal(t, 0, conv.calls)
	assert.Empty(t, store.statusUpdates)
}

func TestProcessUpdateVideoConversionFailureKeepsOriginal(t *testing.T) {
	store := newMockStore()
	tg := &mockTelegram{downloadData: []byte("webm bytes")}
	router := newMockRouter()
	conv := &mockConverter{outcome: &transcode.Outcome{
		Bytes:        []byte("webm bytes"),
		MimeType:     "video/webm",
		Status:       models.ConversionError,
		ErrorMessage: "no strategy could convert",
	}}
	fwd := &mockForwarder{}
	svc := newTestIngest(store, tg, router, conv, fwd)

	result, err := svc.ProcessUpdate(context.Background(), videoUpdate(t, "v1", "uv1", "video/webm", ""))
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, models.ConversionError, result.Record.ConversionStatus)
	assert.Equal(t, "no strategy could convert", result.Record.ErrorMessage)

	// The original object stays as the record's location.
	require.Len(t, router.placed, 1)
	assert.Empty(t, router.removed)
	assert.Equal(t, []string{"processing", "error"}, store.statusUpdates)

	require.Len(t, fwd.envelopes, 1)
	assert.Equal(t, models.ConversionError, fwd.envelopes[0].Media.ConversionStatus)
}

func TestProcessUpdateLostInsertRace(t *testing.T) {
	store := newMockStore()
	// The winner's row appears only once our insert hits the constraint.
	store.raceWinner = &models.MediaRecord{ID: "winner", FileUniqueID: "up1"}

	router := newMockRouter()
	tg := &mockTelegram{downloadData: []byte("bytes")}
	fwd := &mockForwarder{}
	svc := newTestIngest(store, tg, router, &mockConverter{}, fwd)

	result, err := svc.ProcessUpdate(context.Background(), photoUpdate(t, "p1", "up1"))
	require.NoError(t, err)

	assert.Equal(t, StateSkippedDuplicate, result.State)
	assert.Equal(t, "winner", result.Record.ID)

	// The just-uploaded copy is cleaned up after losing the race.
	require.Len(t, router.placed, 1)
	require.Len(t, router.removed, 1)
	assert.Equal(t, router.placed[0], router.removed[0])
}

func TestProcessUpdateSaveFailure(t *testing.T) {
	store := newMockStore()
	store.saveErr = fmt.Errorf("disk full")

	tg := &mockTelegram{downloadData: []byte("bytes")}
	svc := newTestIngest(store, tg, newMockRouter(), &mockConverter{}, &mockForwarder{})

	_, err := svc.ProcessUpdate(context.Background(), photoUpdate(t, "p1", "up1"))
	require.Error(t, err)
}

func TestProcessUpdateInvalidPayload(t *testing.T) {
	svc := newTestIngest(newMockStore(), &mockTelegram{}, newMockRouter(), &mockConverter{}, &mockForwarder{})

	_, err := svc.ProcessUpdate(context.Background(), json.RawMessage(`{not json`))
	require.Error(t, err)

	_, err = svc.ProcessUpdate(context.Background(), json.RawMessage(`{"update_id": 1}`))
	require.Error(t, err)
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		name string
		desc models.MediaDescriptor
		want string
	}{
		{
			name: "platform file name used when safe",
			desc: models.MediaDescriptor{FileUniqueID: "u1", FileName: "report.pdf", MimeType: "application/pdf"},
			want: "report.pdf",
		},
		{
			name: "traversal file name rejected",
			desc: models.MediaDescriptor{FileUniqueID: "u1", FileName: "../../etc/passwd", MimeType: "application/pdf"},
			want: "u1.pdf",
		},
		{
			name: "missing file name falls back to unique id",
			desc: models.MediaDescriptor{FileUniqueID: "u2", MimeType: "image/jpeg"},
			want: "u2.jpg",
		},
		{
			name: "unknown mime gets bin extension",
			desc: models.MediaDescriptor{FileUniqueID: "u3", MimeType: "application/x-custom"},
			want: "u3.bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, objectName(&tt.desc))
		})
	}
}

func TestCanonicalVideoName(t *testing.T) {
	assert.Equal(t, "clip.mp4", canonicalVideoName("clip.mov"))
	assert.Equal(t, "clip.mp4", canonicalVideoName("clip.mp4"))
	assert.Equal(t, "noext.mp4", canonicalVideoName("noext"))
}
