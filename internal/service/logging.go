package service

import (
	"context"
	"fmt"

	"telemedia/internal/constants"

	"github.com/sirupsen/logrus"
)

// ContextKey is a package-local type to prevent context key collisions
// See staticcheck SA1029 guidance
type ContextKey string

// VerboseContextKey is the strongly-typed context key for verbose logging flag
const VerboseContextKey ContextKey = "verbose"

// IsVerboseLogging checks if verbose logging is enabled from context
func IsVerboseLogging(ctx context.Context) bool {
	if verbose, ok := ctx.Value(VerboseContextKey).(bool); ok {
		return verbose
	}
	return false
}

// SanitizeFileID masks a Telegram file identifier for logging, keeping only
// the trailing characters so related log lines can still be correlated.
func SanitizeFileID(fileID string) string {
	if fileID == "" {
		return ""
	}
	if len(fileID) > constants.DefaultFileIDMaskLength {
		return "***" + fileID[len(fileID)-constants.DefaultFileIDMaskLength:]
	}
	return "***"
}

// SanitizeChannelID masks a channel identifier, showing only the last digits.
func SanitizeChannelID(channelID int64) string {
	s := fmt.Sprintf("%d", channelID)
	if len(s) > constants.DefaultChannelIDMaskLength {
		return "***" + s[len(s)-constants.DefaultChannelIDMaskLength:]
	}
	return "***"
}

// SanitizeCaption completely hides caption content for privacy
func SanitizeCaption(caption string) string {
	if caption == "" {
		return ""
	}
	return "[hidden]"
}

// LogMediaProcessing logs media handling with appropriate privacy controls
func LogMediaProcessing(ctx context.Context, logger *logrus.Logger, kind string, channelID int64, fileID string) {
	if IsVerboseLogging(ctx) {
		logger.WithFields(logrus.Fields{
			"kind":      kind,
			"channelID": channelID,
			"fileID":    fileID,
		}).Info("Processing media")
	} else {
		logger.WithFields(logrus.Fields{
			"kind":      kind,
			"channelID": SanitizeChannelID(channelID),
			"fileID":    SanitizeFileID(fileID),
		}).Info("Processing media")
	}
}
