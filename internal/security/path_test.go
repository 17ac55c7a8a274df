package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFilePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "simple relative path", path: "documents/file.pdf", wantErr: false},
		{name: "nested relative path", path: "a/b/c.jpg", wantErr: false},
		{name: "empty", path: "", wantErr: true},
		{name: "parent traversal", path: "../etc/passwd", wantErr: true},
		{name: "embedded traversal", path: "a/../../b", wantErr: true},
		{name: "absolute path", path: "/var/lib/telemedia/db.sqlite", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateObjectName(t *testing.T) {
	tests := []struct {
		name       string
		objectName string
		wantErr    bool
	}{
		{name: "plain file name", objectName: "photo.jpg", wantErr: false},
		{name: "unique id name", objectName: "AgADBAADb6wAAc.mp4", wantErr: false},
		{name: "empty", objectName: "", wantErr: true},
		{name: "forward slash", objectName: "dir/photo.jpg", wantErr: true},
		{name: "backslash", objectName: "dir\\photo.jpg", wantErr: true},
		{name: "traversal", objectName: "..photo.jpg", wantErr: true},
		{name: "null byte", objectName: "photo\x00.jpg", wantErr: true},
		{name: "newline", objectName: "photo\n.jpg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObjectName(tt.objectName)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
