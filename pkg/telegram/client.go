package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"telemedia/internal/errors"
	"telemedia/internal/models"
)

// Client talks to the Telegram Bot API. File downloads are two-step: getFile
// resolves a transient download path, then DownloadFile fetches the bytes.
type Client interface {
	GetFile(ctx context.Context, fileID string) (*File, error)
	DownloadFile(ctx context.Context, filePath string) ([]byte, error)
	GetMessage(ctx context.Context, chatID int64, messageID int64) (*models.Message, error)
}

type client struct {
	baseURL    string
	botToken   string
	httpClient *http.Client
}

func NewClient(cfg ClientConfig) Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &client{
		baseURL:    cfg.APIBaseURL,
		botToken:   cfg.BotToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetFile resolves file metadata including the transient download path.
func (c *client) GetFile(ctx context.Context, fileID string) (*File, error) {
	params := url.Values{}
	params.Set("file_id", fileID)

	var file File
	if err := c.call(ctx, "getFile", params, &file); err != nil {
		return nil, err
	}
	if file.FilePath == "" {
		return nil, errors.New(errors.ErrCodeTelegramAPI, "getFile returned no download path").
			WithContext("file_id", fileID)
	}
	return &file, nil
}

// DownloadFile fetches raw bytes using a download path from GetFile.
func (c *client) DownloadFile(ctx context.Context, filePath string) ([]byte, error) {
	downloadURL := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.botToken, filePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WrapRetryable(err, errors.ErrCodeMediaDownload, "file download failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAPIError("telegram", "download", resp.StatusCode,
			fmt.Errorf("download failed with status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapRetryable(err, errors.ErrCodeMediaDownload, "failed to read file body")
	}

	return data, nil
}

// GetMessage fetches the current content of a channel message. Used by
// caption sync to pick up captions that arrived after ingestion.
func (c *client) GetMessage(ctx context.Context, chatID int64, messageID int64) (*models.Message, error) {
	params := url.Values{}
	params.Set("chat_id", fmt.Sprintf("%d", chatID))
	params.Set("message_id", fmt.Sprintf("%d", messageID))

	var msg models.Message
	if err := c.call(ctx, "getMessage", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *client) call(ctx context.Context, method string, params url.Values, result interface{}) error {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.botToken, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WrapRetryable(err, errors.ErrCodeTelegramAPI, fmt.Sprintf("%s request failed", method))
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}

	if !envelope.OK {
		return errors.NewAPIError("telegram", method, resp.StatusCode,
			fmt.Errorf("%s failed: %s", method, envelope.Description))
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to unmarshal %s result: %w", method, err)
		}
	}

	return nil
}
