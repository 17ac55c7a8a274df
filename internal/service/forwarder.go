package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"telemedia/internal/constants"
	"telemedia/internal/models"

	"github.com/sirupsen/logrus"
)

// DeliveryLog records the outcome of each forwarding attempt.
type DeliveryLog interface {
	SaveWebhookDelivery(ctx context.Context, rec *models.WebhookDeliveryRecord) error
}

// Forwarder fans an envelope out to every enabled destination. Destinations
// are independent: one failing never blocks or aborts the others.
type Forwarder struct {
	destinations []models.WebhookDestination
	log          DeliveryLog
	httpClient   *http.Client
	logger       *logrus.Logger
}

func NewForwarder(destinations []models.WebhookDestination, log DeliveryLog, logger *logrus.Logger) *Forwarder {
	return &Forwarder{
		destinations: destinations,
		log:          log,
		httpClient:   &http.Client{},
		logger:       logger,
	}
}

// Forward delivers the envelope to all enabled destinations concurrently and
// returns one outcome per attempted destination. Delivery failures are
// reported in the outcomes, not as an error.
func (f *Forwarder) Forward(ctx context.Context, envelope *models.Envelope) []models.DeliveryOutcome {
	var (
		mu       sync.Mutex
		outcomes []models.DeliveryOutcome
		wg       sync.WaitGroup
	)

	for i := range f.destinations {
		dest := f.destinations[i]
		if !dest.IsEnabled() {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome := f.deliver(ctx, &dest, envelope)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
		}()
	}

	wg.Wait()

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Destination < outcomes[j].Destination
	})
	return outcomes
}

func (f *Forwarder) deliver(ctx context.Context, dest *models.WebhookDestination, envelope *models.Envelope) models.DeliveryOutcome {
	timeout := time.Duration(dest.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = constants.DefaultWebhookDeliverySec * time.Second
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, fields, err := f.buildBody(dest, envelope)
	if err != nil {
		return f.record(ctx, dest.Name, fields, 0, "", 0, err)
	}

	method := dest.Method
	if method == "" {
		method = http.MethodPost
	}

	target, err := appendQueryParams(dest.URL, dest.QueryParams)
	if err != nil {
		return f.record(ctx, dest.Name, fields, 0, "", 0, err)
	}

	req, err := http.NewRequestWithContext(sendCtx, method, target, bytes.NewReader(body))
	if err != nil {
		return f.record(ctx, dest.Name, fields, 0, "", 0, fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range dest.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return f.record(ctx, dest.Name, fields, 0, "", 1, fmt.Errorf("delivery failed: %w", err))
	}
	defer resp.Body.Close()

	respBody := readTruncated(resp.Body, constants.MaxRecordedResponseBytes)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return f.record(ctx, dest.Name, fields, resp.StatusCode, respBody, 1,
			fmt.Errorf("destination returned status %d", resp.StatusCode))
	}

	return f.record(ctx, dest.Name, fields, resp.StatusCode, respBody, 1, nil)
}

// buildBody marshals the envelope and merges the destination's static body
// parameters at the top level. Envelope fields win on key conflicts.
func (f *Forwarder) buildBody(dest *models.WebhookDestination, envelope *models.Envelope) ([]byte, string, error) {
	raw, err := json.Marshal(envelope)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal envelope: %w", err)
	}

	var merged map[string]interface{}
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, "", fmt.Errorf("failed to remarshal envelope: %w", err)
	}
	for k, v := range dest.BodyParams {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}

	body, err := json.Marshal(merged)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal merged body: %w", err)
	}

	fields := make([]string, 0, len(merged))
	for k := range merged {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return body, strings.Join(fields, ","), nil
}

// record writes the append-only delivery row and translates the attempt into
// an outcome. A logging failure never changes the delivery outcome.
func (f *Forwarder) record(ctx context.Context, destName, fields string, httpStatus int, respBody string, itemCount int, deliveryErr error) models.DeliveryOutcome {
	status := models.DeliveryStatusSuccess
	if deliveryErr != nil {
		status = models.DeliveryStatusError
	}

	rec := &models.WebhookDeliveryRecord{
		Destination:  destName,
		FieldsSent:   fields,
		Status:       status,
		HTTPStatus:   httpStatus,
		ResponseBody: respBody,
		ItemCount:    itemCount,
	}
	if err := f.log.SaveWebhookDelivery(ctx, rec); err != nil {
		f.logger.WithFields(logrus.Fields{
			"component":   "forwarder",
			"destination": destName,
		}).WithError(err).Error("Failed to record webhook delivery")
	}

	if deliveryErr != nil {
		f.logger.WithFields(logrus.Fields{
			"component":   "forwarder",
			"destination": destName,
			"httpStatus":  httpStatus,
		}).WithError(deliveryErr).Warn("Webhook delivery failed")
	}

	return models.DeliveryOutcome{
		Destination: destName,
		Status:      status,
		HTTPStatus:  httpStatus,
		Err:         deliveryErr,
	}
}

func appendQueryParams(rawURL string, params map[string]string) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse destination URL: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func readTruncated(r io.Reader, limit int) string {
	data, err := io.ReadAll(io.LimitReader(r, int64(limit)))
	if err != nil {
		return ""
	}
	return string(data)
}
