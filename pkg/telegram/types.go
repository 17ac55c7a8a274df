package telegram

import "encoding/json"

// ClientConfig configures the Bot API client.
type ClientConfig struct {
	APIBaseURL string
	BotToken   string
	TimeoutSec int
}

// File is the Bot API file descriptor returned by getFile. FilePath is a
// transient download ticket; it expires and must be re-resolved before each
// download.
type File struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileSize     int64  `json:"file_size,omitempty"`
	FilePath     string `json:"file_path,omitempty"`
}

// apiResponse is the Bot API envelope wrapping every method result.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}
