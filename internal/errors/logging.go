package errors

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// LogError logs an error with structured context pulled out of an AppError
// chain so outcomes stay queryable after the fact.
func LogError(logger *logrus.Logger, err error, component, message string) {
	entry := logger.WithError(err).WithField("component", component)

	var appErr *AppError
	if errors.As(err, &appErr) {
		entry = entry.WithFields(logrus.Fields{
			"error_code": appErr.Code,
			"retryable":  appErr.Retryable,
		})
		for k, v := range appErr.Context {
			entry = entry.WithField(k, v)
		}
	}

	entry.Error(message)
}

// LogWarn logs a warning with the same structured context as LogError.
func LogWarn(logger *logrus.Logger, err error, component, message string) {
	entry := logger.WithError(err).WithField("component", component)

	var appErr *AppError
	if errors.As(err, &appErr) {
		entry = entry.WithFields(logrus.Fields{
			"error_code": appErr.Code,
			"retryable":  appErr.Retryable,
		})
		for k, v := range appErr.Context {
			entry = entry.WithField(k, v)
		}
	}

	entry.Warn(message)
}
