package transcode

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"telemedia/internal/tokencache"
)

// RemoteConfig configures the remote job-submission transcoding provider.
type RemoteConfig struct {
	BaseURL         string
	AuthURL         string
	APIKey          string
	JobTimeoutSec   int
	PollIntervalSec int
}

// RemoteStrategy submits a conversion job to the provider, polls until it
// finishes, and downloads the result. Auth tokens come from an expiry-aware
// cache rather than ambient global state.
type RemoteStrategy struct {
	cfg        RemoteConfig
	tokens     *tokencache.Cache
	httpClient *http.Client
}

type jobRequest struct {
	Input        string `json:"input"`
	InputFormat  string `json:"input_format"`
	OutputFormat string `json:"output_format"`
}

type jobStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	OutputURL string `json:"output_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func NewRemoteStrategy(cfg RemoteConfig) *RemoteStrategy {
	s := &RemoteStrategy{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	s.tokens = tokencache.New(s.fetchToken, time.Minute)
	return s
}

func (s *RemoteStrategy) Name() string {
	return "remote"
}

func (s *RemoteStrategy) Convert(ctx context.Context, raw []byte, mimeType string) ([]byte, string, error) {
	if s.cfg.BaseURL == "" {
		return nil, "", fmt.Errorf("remote transcoder not configured")
	}

	jobTimeout := time.Duration(s.cfg.JobTimeoutSec) * time.Second
	if jobTimeout <= 0 {
		jobTimeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	jobID, err := s.submit(ctx, raw, mimeType)
	if err != nil {
		return nil, "", err
	}

	outputURL, err := s.await(ctx, jobID)
	if err != nil {
		return nil, jobID, err
	}

	out, err := s.download(ctx, outputURL)
	if err != nil {
		return nil, jobID, err
	}

	return out, jobID, nil
}

func (s *RemoteStrategy) submit(ctx context.Context, raw []byte, mimeType string) (string, error) {
	token, err := s.tokens.GetValidToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get provider token: %w", err)
	}

	payload, err := json.Marshal(jobRequest{
		Input:        base64.StdEncoding.EncodeToString(raw),
		InputFormat:  formatFromMime(mimeType),
		OutputFormat: "mp4",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal job request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/jobs", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create job request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("job submission failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		s.tokens.Invalidate()
		return "", fmt.Errorf("job submission rejected: provider token expired")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("job submission failed with status %d", resp.StatusCode)
	}

	var job jobStatus
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return "", fmt.Errorf("failed to decode job response: %w", err)
	}
	if job.ID == "" {
		return "", fmt.Errorf("provider returned no job id")
	}

	return job.ID, nil
}

func (s *RemoteStrategy) await(ctx context.Context, jobID string) (string, error) {
	interval := time.Duration(s.cfg.PollIntervalSec) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := s.poll(ctx, jobID)
		if err != nil {
			return "", err
		}

		switch job.Status {
		case "finished":
			if job.OutputURL == "" {
				return "", fmt.Errorf("job %s finished without output URL", jobID)
			}
			return job.OutputURL, nil
		case "error":
			return "", fmt.Errorf("job %s failed: %s", jobID, job.Error)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("job %s timed out: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (s *RemoteStrategy) poll(ctx context.Context, jobID string) (*jobStatus, error) {
	token, err := s.tokens.GetValidToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get provider token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("job poll failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("job poll failed with status %d", resp.StatusCode)
	}

	var job jobStatus
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to decode poll response: %w", err)
	}

	return &job, nil
}

func (s *RemoteStrategy) download(ctx context.Context, outputURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, outputURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("result download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("result download failed with status %d", resp.StatusCode)
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read result body: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("provider returned empty result")
	}

	return out, nil
}

func (s *RemoteStrategy) fetchToken(ctx context.Context) (string, time.Duration, error) {
	if s.cfg.AuthURL == "" {
		// Providers without an auth endpoint take the API key directly.
		return s.cfg.APIKey, 24 * time.Hour, nil
	}

	payload := strings.NewReader(url.Values{"api_key": {s.cfg.APIKey}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.AuthURL, payload)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("auth request failed with status %d", resp.StatusCode)
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", 0, fmt.Errorf("failed to decode auth response: %w", err)
	}

	return auth.AccessToken, time.Duration(auth.ExpiresIn) * time.Second, nil
}

func formatFromMime(mimeType string) string {
	if idx := strings.Index(mimeType, "/"); idx >= 0 && idx+1 < len(mimeType) {
		return mimeType[idx+1:]
	}
	return mimeType
}
