package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"telemedia/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestVerifySecretToken(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		header  string
		env     string
		wantErr bool
	}{
		{name: "valid token", secret: "s3cret", header: "s3cret", wantErr: false},
		{name: "wrong token", secret: "s3cret", header: "other", wantErr: true},
		{name: "missing header", secret: "s3cret", header: "", wantErr: true},
		{name: "no secret configured in development", secret: "", header: "", wantErr: false},
		{name: "no secret configured in production", secret: "", header: "", env: "production", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TELEMEDIA_ENV", tt.env)

			req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", nil)
			if tt.header != "" {
				req.Header.Set(secretTokenHeader, tt.header)
			}

			err := verifySecretToken(req, tt.secret)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVerifySecretTokenMismatchIsAuthError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", nil)
	req.Header.Set(secretTokenHeader, "other")

	err := verifySecretToken(req, "s3cret")
	assert.Equal(t, errors.ErrCodeAuthentication, errors.GetCode(err))
}
