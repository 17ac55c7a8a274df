package config

import (
	"encoding/json"
	"fmt"
	"os"

	"telemedia/internal/constants"
	"telemedia/internal/models"
	"telemedia/internal/security"
)

var (
	ErrMissingTelegramURL = models.ConfigError{Message: "missing Telegram API base URL"}
	ErrMissingBotToken    = models.ConfigError{Message: "missing Telegram bot token"}
	ErrMissingStorageURL  = models.ConfigError{Message: "missing storage base URL"}
	ErrMissingDBPath      = models.ConfigError{Message: "missing database path"}
)

func LoadConfig(path string) (*models.Config, error) {
	// Validate config file path to prevent directory traversal
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	if err := validateSecurity(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Telegram.APIBaseURL == "" {
		return ErrMissingTelegramURL
	}
	if c.Telegram.BotToken == "" {
		return ErrMissingBotToken
	}
	if c.Storage.BaseURL == "" {
		return ErrMissingStorageURL
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}

	// Validate destinations; a destination with no URL can never deliver
	names := make(map[string]bool)
	for i, dest := range c.Destinations {
		if dest.Name == "" {
			return models.ConfigError{Message: fmt.Sprintf("empty destination name at index %d", i)}
		}
		if dest.URL == "" {
			return models.ConfigError{Message: fmt.Sprintf("empty destination URL for %q", dest.Name)}
		}
		if names[dest.Name] {
			return models.ConfigError{Message: fmt.Sprintf("duplicate destination name: %s", dest.Name)}
		}
		names[dest.Name] = true
	}

	switch c.Dedup.Keep {
	case "":
		c.Dedup.Keep = models.DedupKeepNewest
	case models.DedupKeepNewest, models.DedupKeepOldest:
	default:
		return models.ConfigError{Message: fmt.Sprintf("invalid dedup keep policy: %s (must be newest or oldest)", c.Dedup.Keep)}
	}

	// Default bucket names per media kind
	if c.Storage.VideoBucket == "" {
		c.Storage.VideoBucket = constants.DefaultVideoBucket
	}
	if c.Storage.PictureBucket == "" {
		c.Storage.PictureBucket = constants.DefaultPictureBucket
	}
	if c.Storage.GenericBucket == "" {
		c.Storage.GenericBucket = constants.DefaultGenericBucket
	}
	if c.Storage.TimeoutSec <= 0 {
		c.Storage.TimeoutSec = constants.DefaultStorageTimeoutSec
	}

	if c.Telegram.TimeoutSec <= 0 {
		c.Telegram.TimeoutSec = constants.DefaultHTTPTimeoutSec
	}
	if c.Telegram.RetryCount <= 0 {
		c.Telegram.RetryCount = constants.DefaultDownloadRetryAttempts
	}

	if c.Transcode.JobTimeoutSec <= 0 {
		c.Transcode.JobTimeoutSec = constants.DefaultTranscodeJobTimeoutSec
	}
	if c.Transcode.PollIntervalSec <= 0 {
		c.Transcode.PollIntervalSec = constants.DefaultTranscodePollSec
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}
	if c.Server.RateLimitPerMin <= 0 {
		c.Server.RateLimitPerMin = constants.DefaultRateLimitPerMin
	}
	if c.Server.ResyncIntervalHrs <= 0 {
		c.Server.ResyncIntervalHrs = constants.DefaultResyncIntervalHours
	}

	if c.RetentionDays <= 0 {
		c.RetentionDays = constants.DefaultRetentionDays
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("TELEGRAM_API_URL"); url != "" {
		c.Telegram.APIBaseURL = url
	}

	// SECURITY: credentials should come from environment variables, not the
	// config file checked into deployment tooling.
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		c.Telegram.BotToken = token
	}
	if secret := os.Getenv("TELEMEDIA_WEBHOOK_SECRET"); secret != "" {
		c.Telegram.WebhookSecret = secret
	}

	if url := os.Getenv("STORAGE_BASE_URL"); url != "" {
		c.Storage.BaseURL = url
	}
	if key := os.Getenv("STORAGE_API_KEY"); key != "" {
		c.Storage.APIKey = key
	}

	if key := os.Getenv("TRANSCODE_REMOTE_API_KEY"); key != "" {
		c.Transcode.RemoteAPIKey = key
	}

	if path := os.Getenv("DB_PATH"); path != "" {
		c.Database.Path = path
	}
}

// validateSecurity performs security-specific validation
func validateSecurity(c *models.Config) error {
	isProduction := os.Getenv("TELEMEDIA_ENV") == "production"

	if isProduction {
		// In production, the webhook secret is mandatory
		if c.Telegram.WebhookSecret == "" {
			return models.ConfigError{Message: "webhook secret is required in production (set TELEMEDIA_WEBHOOK_SECRET environment variable)"}
		}

		if len(c.Telegram.WebhookSecret) < 32 {
			return models.ConfigError{Message: "webhook secret must be at least 32 characters long"}
		}

		if c.LogLevel == "debug" {
			return models.ConfigError{Message: "debug logging should not be used in production (security risk)"}
		}
	} else {
		if c.Telegram.WebhookSecret == "" {
			fmt.Fprintf(os.Stderr, "WARNING: webhook secret not set. Set TELEMEDIA_WEBHOOK_SECRET environment variable for security.\n")
		}
	}

	return nil
}
