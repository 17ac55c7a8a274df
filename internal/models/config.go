package models

// Config holds the application configuration
type Config struct {
	Telegram     TelegramConfig       `json:"telegram"`
	Storage      StorageConfig        `json:"storage"`
	Transcode    TranscodeConfig      `json:"transcode"`
	Database     DatabaseConfig       `json:"database"`
	Server       ServerConfig         `json:"server"`
	Retry        RetryConfig          `json:"retry"`
	Dedup        DedupConfig          `json:"dedup"`
	Destinations []WebhookDestination `json:"destinations"`
	Tracing      TracingConfig        `json:"tracing"`
	LogLevel     string               `json:"log_level"`
	// RetentionDays bounds the webhook delivery log, not media records.
	RetentionDays int `json:"retentionDays"`
}

// TelegramConfig holds Bot API related configuration
type TelegramConfig struct {
	APIBaseURL    string `json:"api_base_url"`
	BotToken      string `json:"bot_token"`
	WebhookSecret string `json:"webhook_secret"`
	TimeoutSec    int    `json:"timeoutSec"`
	RetryCount    int    `json:"retryCount"`
}

// StorageConfig holds object store configuration. Bucket names may be
// overridden per media kind; unset names fall back to the defaults.
type StorageConfig struct {
	BaseURL       string `json:"base_url"`
	APIKey        string `json:"api_key"`
	VideoBucket   string `json:"videoBucket"`
	PictureBucket string `json:"pictureBucket"`
	GenericBucket string `json:"genericBucket"`
	TimeoutSec    int    `json:"timeoutSec"`
}

// TranscodeConfig holds transcoding provider configuration.
type TranscodeConfig struct {
	// FFmpegPath locates the local transcoder binary; empty disables the
	// local strategy.
	FFmpegPath string `json:"ffmpegPath"`
	// Remote job-submission provider.
	RemoteBaseURL   string `json:"remote_base_url"`
	RemoteAuthURL   string `json:"remote_auth_url"`
	RemoteAPIKey    string `json:"remote_api_key"`
	JobTimeoutSec   int    `json:"jobTimeoutSec"`
	PollIntervalSec int    `json:"pollIntervalSec"`
}

// DatabaseConfig holds database related configuration
type DatabaseConfig struct {
	Path string `json:"path"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port              int `json:"port"`
	ReadTimeoutSec    int `json:"readTimeoutSec"`
	WriteTimeoutSec   int `json:"writeTimeoutSec"`
	IdleTimeoutSec    int `json:"idleTimeoutSec"`
	RateLimitPerMin   int `json:"rateLimitPerMin"`
	ResyncIntervalHrs int `json:"resyncIntervalHrs"`
}

// RetryConfig holds retry related configuration
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// DedupConfig controls the duplicate-cleanup pass.
type DedupConfig struct {
	// Keep selects the canonical row per duplicate group: "newest" or "oldest".
	Keep DedupKeepPolicy `json:"keep"`
}

// TracingConfig holds OpenTelemetry tracing configuration
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"serviceName"`
	ServiceVersion string  `json:"serviceVersion"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlpEndpoint"`
	SampleRate     float64 `json:"sampleRate"`
	UseStdout      bool    `json:"useStdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
