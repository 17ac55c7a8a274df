package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"telemedia/internal/errors"
	"telemedia/internal/security"
)

// Client speaks the object store's REST surface: every object lives at
// {base}/{bucket}/{name} and that URL doubles as its public address.
type Client interface {
	Put(ctx context.Context, bucket, name string, data []byte, contentType string) error
	Get(ctx context.Context, bucket, name string) ([]byte, error)
	Stat(ctx context.Context, bucket, name string) (bool, error)
	Delete(ctx context.Context, bucket, name string) error
	ObjectURL(bucket, name string) string
}

// ClientConfig configures the object store client.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	TimeoutSec int
}

type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(cfg ClientConfig) Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &httpClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) ObjectURL(bucket, name string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, bucket, name)
}

func (c *httpClient) Put(ctx context.Context, bucket, name string, data []byte, contentType string) error {
	if err := security.ValidateObjectName(name); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid object name")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.ObjectURL(bucket, name), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create put request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.WrapRetryable(err, errors.ErrCodeStorageAPI, "object upload failed")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return errors.NewAPIError("storage", "put", resp.StatusCode,
			fmt.Errorf("upload failed with status %d", resp.StatusCode))
	}

	return nil
}

func (c *httpClient) Get(ctx context.Context, bucket, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ObjectURL(bucket, name), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create get request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.WrapRetryable(err, errors.ErrCodeStorageAPI, "object fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.New(errors.ErrCodeNotFound, "object not found").
			WithContext("bucket", bucket).
			WithContext("object", name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAPIError("storage", "get", resp.StatusCode,
			fmt.Errorf("fetch failed with status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapRetryable(err, errors.ErrCodeStorageAPI, "failed to read object body")
	}

	return data, nil
}

// Stat reports whether an object exists without fetching its bytes.
func (c *httpClient) Stat(ctx context.Context, bucket, name string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.ObjectURL(bucket, name), nil)
	if err != nil {
		return false, fmt.Errorf("failed to create stat request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, errors.WrapRetryable(err, errors.ErrCodeStorageAPI, "object stat failed")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, errors.NewAPIError("storage", "stat", resp.StatusCode,
			fmt.Errorf("stat failed with status %d", resp.StatusCode))
	}
}

func (c *httpClient) Delete(ctx context.Context, bucket, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.ObjectURL(bucket, name), nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.WrapRetryable(err, errors.ErrCodeStorageAPI, "object delete failed")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	// A missing object is already deleted
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return errors.NewAPIError("storage", "delete", resp.StatusCode,
			fmt.Errorf("delete failed with status %d", resp.StatusCode))
	}

	return nil
}

func (c *httpClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
}
