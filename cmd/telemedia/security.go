package main

import (
	"crypto/hmac"
	"fmt"
	"net/http"
	"os"

	"telemedia/internal/errors"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// verifySecretToken checks the webhook secret the platform echoes back on
// every delivery. An empty configured secret is allowed outside production
// for local development.
func verifySecretToken(r *http.Request, secret string) error {
	if secret == "" {
		if os.Getenv("TELEMEDIA_ENV") == "production" {
			return fmt.Errorf("webhook secret is required in production mode")
		}
		return nil
	}

	provided := r.Header.Get(secretTokenHeader)
	if provided == "" {
		return errors.NewAuthError(fmt.Sprintf("missing %s header", secretTokenHeader))
	}

	if !hmac.Equal([]byte(provided), []byte(secret)) {
		return errors.NewAuthError("secret token mismatch")
	}

	return nil
}
