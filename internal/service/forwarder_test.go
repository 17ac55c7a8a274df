package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"telemedia/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnvelope() *models.Envelope {
	return &models.Envelope{
		Update:    json.RawMessage(`{"update_id":1}`),
		Timestamp: 1700000000,
		Media: &models.EnvelopeMedia{
			RecordID:     "rec-1",
			FileUniqueID: "u1",
			MediaKind:    models.MediaKindPhoto,
			PublicURL:    "http://store/pictures/u1.jpg",
		},
	}
}

func TestForwardDeliversToAllDestinations(t *testing.T) {
	var received []map[string]interface{}
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &payload))
		received = append(received, payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "downstream broken", http.StatusBadGateway)
	}))
	defer failing.Close()

	log := &mockDeliveryLog{}
	fwd := NewForwarder([]models.WebhookDestination{
		{Name: "archive", URL: ok.URL},
		{Name: "broken", URL: failing.URL},
	}, log, testLogger())

	outcomes := fwd.Forward(context.Background(), testEnvelope())
	require.Len(t, outcomes, 2)

	// Outcomes are sorted by destination name.
	assert.Equal(t, "archive", outcomes[0].Destination)
	assert.Equal(t, models.DeliveryStatusSuccess, outcomes[0].Status)
	assert.NoError(t, outcomes[0].Err)

	assert.Equal(t, "broken", outcomes[1].Destination)
	assert.Equal(t, models.DeliveryStatusError, outcomes[1].Status)
	assert.Equal(t, http.StatusBadGateway, outcomes[1].HTTPStatus)
	assert.Error(t, outcomes[1].Err)

	// One append-only log row per destination, failure included.
	assert.Len(t, log.records, 2)

	require.Len(t, received, 1)
	assert.Contains(t, received[0], "update")
	assert.Contains(t, received[0], "media")
}

func TestForwardMergesBodyParams(t *testing.T) {
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "archive-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "channel", r.URL.Query().Get("source"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	fwd := NewForwarder([]models.WebhookDestination{{
		Name:        "archive",
		URL:         srv.URL,
		Headers:     map[string]string{"X-Api-Key": "archive-key"},
		QueryParams: map[string]string{"source": "channel"},
		BodyParams:  map[string]string{"tenant": "acme", "timestamp": "should-not-win"},
	}}, &mockDeliveryLog{}, testLogger())

	outcomes := fwd.Forward(context.Background(), testEnvelope())
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.DeliveryStatusSuccess, outcomes[0].Status)

	assert.Equal(t, "acme", payload["tenant"])
	// Envelope fields win over static body params on conflicts.
	assert.Equal(t, float64(1700000000), payload["timestamp"])
}

func TestForwardSkipsDisabledDestinations(t *testing.T) {
	disabled := false
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	fwd := NewForwarder([]models.WebhookDestination{
		{Name: "off", URL: srv.URL, Enabled: &disabled},
	}, &mockDeliveryLog{}, testLogger())

	outcomes := fwd.Forward(context.Background(), testEnvelope())
	assert.Empty(t, outcomes)
	assert.False(t, called)
}

func TestForwardUnreachableDestination(t *testing.T) {
	log := &mockDeliveryLog{}
	fwd := NewForwarder([]models.WebhookDestination{
		{Name: "gone", URL: "http://127.0.0.1:1", TimeoutSec: 1},
	}, log, testLogger())

	outcomes := fwd.Forward(context.Background(), testEnvelope())
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.DeliveryStatusError, outcomes[0].Status)
	assert.Error(t, outcomes[0].Err)

	require.Len(t, log.records, 1)
	assert.Equal(t, models.DeliveryStatusError, log.records[0].Status)
}

func TestForwardTruncatesRecordedResponse(t *testing.T) {
	long := make([]byte, 4096)
	for i := range long {
		long[i] = 'x'
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(long)
	}))
	defer srv.Close()

	log := &mockDeliveryLog{}
	fwd := NewForwarder([]models.WebhookDestination{{Name: "chatty", URL: srv.URL}}, log, testLogger())

	fwd.Forward(context.Background(), testEnvelope())

	require.Len(t, log.records, 1)
	assert.Len(t, log.records[0].ResponseBody, 512)
}
