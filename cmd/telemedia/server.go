package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"telemedia/internal/constants"
	"telemedia/internal/errors"
	"telemedia/internal/middleware"
	"telemedia/internal/models"
	"telemedia/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router      *mux.Router
	logger      *logrus.Logger
	cfg         *models.Config
	ingest      *service.IngestService
	resync      *service.ResyncService
	dedup       *service.DedupService
	captionSync *service.CaptionSyncService
	limiter     *middleware.RateLimiter
	server      *http.Server
}

func NewServer(cfg *models.Config, ingest *service.IngestService, resync *service.ResyncService, dedup *service.DedupService, captionSync *service.CaptionSyncService, logger *logrus.Logger) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		logger:      logger,
		cfg:         cfg,
		ingest:      ingest,
		resync:      resync,
		dedup:       dedup,
		captionSync: captionSync,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))

	rateLimit := s.cfg.Server.RateLimitPerMin
	if rateLimit <= 0 {
		rateLimit = constants.DefaultRateLimitPerMin
	}
	s.limiter = middleware.NewRateLimiter(rateLimit, s.logger)
	limiter := s.limiter

	// Health check
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)

	// Platform webhook
	webhook := s.router.PathPrefix("/webhook/telegram").Subrouter()
	webhook.Use(limiter.Middleware)
	webhook.HandleFunc("", s.handleTelegramWebhook()).Methods(http.MethodPost)

	// Admin operations share the webhook secret
	admin := s.router.PathPrefix("/admin").Subrouter()
	admin.Use(limiter.Middleware)
	admin.HandleFunc("/resync", s.handleResync()).Methods(http.MethodPost)
	admin.HandleFunc("/dedup", s.handleDedup()).Methods(http.MethodPost)
	admin.HandleFunc("/caption-sync", s.handleCaptionSync()).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	port := s.cfg.Server.Port
	if port <= 0 {
		port = constants.DefaultServerPort
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			s.logger.WithError(err).Warn("Failed to write health response")
		}
	}
}

// handleTelegramWebhook ingests one platform update. Retryable failures
// return 500 so the platform redelivers; everything else acknowledges with
// 200 to stop redelivery loops.
func (s *Server) handleTelegramWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := verifySecretToken(r, s.cfg.Telegram.WebhookSecret); err != nil {
			s.logger.WithError(err).Warn("Webhook authentication failed")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		result, err := s.ingest.ProcessUpdate(r.Context(), body)
		if err != nil {
			if errors.IsRetryable(err) {
				errors.LogError(s.logger, err, "webhook", "Update processing failed, requesting redelivery")
				http.Error(w, "processing failed", http.StatusInternalServerError)
				return
			}
			errors.LogError(s.logger, err, "webhook", "Update processing failed permanently")
			// Acknowledged so the platform does not redeliver a poison update.
			s.writeJSON(w, map[string]interface{}{"ok": false, "state": string(result.State)})
			return
		}

		s.writeJSON(w, map[string]interface{}{"ok": true, "state": string(result.State)})
	}
}

func (s *Server) handleResync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := verifySecretToken(r, s.cfg.Telegram.WebhookSecret); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		report, err := s.resync.Run(r.Context())
		if err != nil {
			errors.LogError(s.logger, err, "admin", "Resync pass failed")
			http.Error(w, "resync failed", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, report)
	}
}

func (s *Server) handleDedup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := verifySecretToken(r, s.cfg.Telegram.WebhookSecret); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		report, err := s.dedup.Run(r.Context())
		if err != nil {
			errors.LogError(s.logger, err, "admin", "Duplicate cleanup failed")
			http.Error(w, "dedup failed", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, report)
	}
}

func (s *Server) handleCaptionSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := verifySecretToken(r, s.cfg.Telegram.WebhookSecret); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		channelIDs, err := parseChannelIDs(r.URL.Query()["channel_id"])
		if err != nil {
			http.Error(w, "channel_id query parameter is required", http.StatusBadRequest)
			return
		}

		report, err := s.captionSync.SyncChannels(r.Context(), channelIDs)
		if err != nil {
			errors.LogError(s.logger, err, "admin", "Caption sync failed")
			http.Error(w, "caption sync failed", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, report)
	}
}

// parseChannelIDs accepts repeated channel_id parameters as well as a single
// comma-separated list. At least one valid identifier is required.
func parseChannelIDs(values []string) ([]int64, error) {
	var ids []int64
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid channel identifier %q: %w", part, err)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no channel identifiers provided")
	}
	return ids, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Warn("Failed to write response")
	}
}
