package transcode

import (
	"context"

	"telemedia/internal/constants"
	"telemedia/internal/models"

	"github.com/sirupsen/logrus"
)

// Strategy is one way of converting video bytes to the canonical format.
// Strategies are tried in order; any error moves on to the next one.
type Strategy interface {
	Name() string
	Convert(ctx context.Context, raw []byte, mimeType string) (out []byte, jobRef string, err error)
}

// Outcome is the result of a conversion attempt. Bytes is never nil: when
// every strategy fails it carries the original bytes so ingestion can still
// complete with a non-canonical asset.
type Outcome struct {
	Bytes        []byte
	MimeType     string
	Status       models.ConversionStatus
	JobRef       string
	ErrorMessage string
}

// Coordinator drives the ordered strategy list and never fails the caller.
type Coordinator struct {
	strategies []Strategy
	logger     *logrus.Logger
}

func NewCoordinator(logger *logrus.Logger, strategies ...Strategy) *Coordinator {
	return &Coordinator{
		strategies: strategies,
		logger:     logger,
	}
}

// Convert turns video bytes into the canonical playable format. Already
// canonical input passes through untouched with status none. Conversion
// failure is non-fatal: the original bytes come back with status error.
func (c *Coordinator) Convert(ctx context.Context, raw []byte, mimeType string) *Outcome {
	if mimeType == constants.CanonicalVideoMime {
		return &Outcome{
			Bytes:    raw,
			MimeType: mimeType,
			Status:   models.ConversionNone,
		}
	}

	var lastErr error
	for _, strategy := range c.strategies {
		out, jobRef, err := strategy.Convert(ctx, raw, mimeType)
		if err != nil {
			lastErr = err
			c.logger.WithFields(logrus.Fields{
				"component": "transcode",
				"strategy":  strategy.Name(),
			}).WithError(err).Warn("Transcoder failed, trying next strategy")
			continue
		}

		c.logger.WithFields(logrus.Fields{
			"component": "transcode",
			"strategy":  strategy.Name(),
			"jobRef":    jobRef,
		}).Info("Conversion succeeded")

		return &Outcome{
			Bytes:    out,
			MimeType: constants.CanonicalVideoMime,
			Status:   models.ConversionSuccess,
			JobRef:   jobRef,
		}
	}

	errMsg := "no transcoding strategies configured"
	if lastErr != nil {
		errMsg = lastErr.Error()
	}

	c.logger.WithFields(logrus.Fields{
		"component": "transcode",
		"status":    string(models.ConversionError),
	}).WithError(lastErr).Error("All transcoding strategies failed, keeping original bytes")

	return &Outcome{
		Bytes:        raw,
		MimeType:     mimeType,
		Status:       models.ConversionError,
		ErrorMessage: errMsg,
	}
}
