package models

import (
	"encoding/json"
	"time"
)

// Delivery outcome statuses recorded per destination attempt.
const (
	DeliveryStatusSuccess = "success"
	DeliveryStatusError   = "error"
)

// WebhookDestination is one configured downstream subscriber. Static headers,
// query parameters, and body parameters are merged into every envelope sent
// to it.
type WebhookDestination struct {
	Name        string            `json:"name"`
	URL         string            `json:"url"`
	Method      string            `json:"method,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	QueryParams map[string]string `json:"queryParams,omitempty"`
	BodyParams  map[string]string `json:"bodyParams,omitempty"`
	TimeoutSec  int               `json:"timeoutSec,omitempty"`
	Enabled     *bool             `json:"enabled,omitempty"`
}

// IsEnabled defaults to true when the flag is omitted.
func (d *WebhookDestination) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// WebhookDeliveryRecord is one append-only log row for a forwarding attempt.
// Rows are never mutated after creation.
type WebhookDeliveryRecord struct {
	ID           int64
	Destination  string
	FieldsSent   string
	Status       string
	HTTPStatus   int
	ResponseBody string
	ItemCount    int
	CreatedAt    time.Time
}

// Envelope is the normalized payload shape delivered to downstream webhook
// destinations. Static body parameters from the destination config are merged
// in at send time.
type Envelope struct {
	Update    json.RawMessage `json:"update"`
	Message   *Message        `json:"message,omitempty"`
	Media     *EnvelopeMedia  `json:"media,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// EnvelopeMedia summarizes the media outcome for subscribers.
type EnvelopeMedia struct {
	RecordID         string           `json:"recordId"`
	FileUniqueID     string           `json:"fileUniqueId"`
	MediaKind        MediaKind        `json:"mediaKind"`
	MimeType         string           `json:"mimeType,omitempty"`
	PublicURL        string           `json:"publicUrl,omitempty"`
	ConversionStatus ConversionStatus `json:"conversionStatus"`
	Duplicate        bool             `json:"duplicate"`
}

// DeliveryOutcome is the in-memory result of one destination attempt.
type DeliveryOutcome struct {
	Destination string
	Status      string
	HTTPStatus  int
	Err         error
}
