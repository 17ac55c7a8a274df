package constants

// Default storage bucket names per media kind
const (
	DefaultVideoBucket   = "telegram-video"
	DefaultPictureBucket = "telegram-pictures"
	DefaultGenericBucket = "telegram-media"
)

// Canonical playable video format
const (
	CanonicalVideoMime = "video/mp4"
	CanonicalVideoExt  = "mp4"
)

// Default retry configuration values
const (
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultMaxAttempts           = 5
	DefaultDownloadRetryAttempts = 3
	DefaultDatabaseRetryAttempts = 3
)

// Default timeout values
const (
	DefaultHTTPTimeoutSec          = 30
	DefaultStorageTimeoutSec       = 60
	DefaultTranscodeJobTimeoutSec  = 300
	DefaultTranscodePollSec        = 2
	DefaultWebhookDeliverySec      = 10
	DefaultGracefulShutdownSec     = 30
	DefaultServerReadTimeoutSec    = 15
	DefaultServerWriteTimeoutSec   = 15
	DefaultServerIdleTimeoutSec    = 60
)

// Default scheduler and retention values
const (
	DefaultRetentionDays         = 30
	DefaultResyncIntervalHours   = 24
	DefaultServerPort            = 8084
	DefaultRateLimitPerMin       = 120
	DefaultCaptionSyncBatchSize  = 50
)

// Forwarder limits
const (
	MaxRecordedResponseBytes = 512
)

// Token cache
const (
	DefaultTokenExpirySafetySec = 60
)

// Privacy settings for sanitized logging
const (
	DefaultFileIDMaskLength    = 6
	DefaultChannelIDMaskLength = 4
)
