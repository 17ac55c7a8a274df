package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFileID(t *testing.T) {
	tests := []struct {
		name   string
		fileID string
		want   string
	}{
		{name: "empty", fileID: "", want: ""},
		{name: "short", fileID: "abc", want: "***"},
		{name: "long keeps tail", fileID: "AgACAgIAAxkBAAIB", want: "***kBAAIB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileID(tt.fileID))
		})
	}
}

func TestSanitizeChannelID(t *testing.T) {
	assert.Equal(t, "***6789", SanitizeChannelID(-100123456789))
	assert.Equal(t, "***", SanitizeChannelID(42))
}

func TestSanitizeCaption(t *testing.T) {
	assert.Equal(t, "", SanitizeCaption(""))
	assert.Equal(t, "[hidden]", SanitizeCaption("secret content"))
}

func TestIsVerboseLogging(t *testing.T) {
	assert.False(t, IsVerboseLogging(context.Background()))

	ctx := context.WithValue(context.Background(), VerboseContextKey, true)
	assert.True(t, IsVerboseLogging(ctx))

	ctx = context.WithValue(context.Background(), VerboseContextKey, false)
	assert.False(t, IsVerboseLogging(ctx))
}
