package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// MaintenancePath is the API endpoint that refreshes aging cache entries
const MaintenancePath = "/api/scheduled-tasks/cache-maintenance"

// MaintenanceHandler runs cache maintenance by calling the API, which owns
// the in-memory cache
type MaintenanceHandler struct {
	endpoint string
	http     *http.Client
	logger   zerolog.Logger
}

var _ asynq.Handler = (*MaintenanceHandler)(nil)

// NewMaintenanceHandler targets apiURL. A non-empty adminToken is sent as a
// bearer token.
func NewMaintenanceHandler(apiURL, adminToken string, logger zerolog.Logger) (*MaintenanceHandler, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", apiURL)
	}
	u.Path = path.Join(u.Path, MaintenancePath)

	client := &http.Client{Timeout: 30 * time.Second}
	if adminToken != "" {
		client.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: adminToken}),
		}
	}

	return &MaintenanceHandler{
		endpoint: u.String(),
		http:     client,
		logger:   logger,
	}, nil
}

type maintenanceResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Error     string `json:"error"`
	Refreshed int    `json:"refreshed"`
	Timestamp string `json:"timestamp"`
}

// ProcessTask implements asynq.Handler. Server errors are retried, client
// errors are not.
func (h *MaintenanceHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p CacheMaintenancePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("bad payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %v: %w", err, asynq.SkipRetry)
	}
	req.Header.Set("Accept", "application/json")
	if id, ok := asynq.GetTaskID(ctx); ok {
		req.Header.Set("X-Request-Id", id)
	}

	start := time.Now()
	resp, err := h.http.Do(req)
	if err != nil {
		return fmt.Errorf("call maintenance endpoint: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var out maintenanceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		h.logger.Debug().Err(err).Int("status", resp.StatusCode).Msg("unreadable maintenance response")
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("maintenance status %d: %s", resp.StatusCode, out.Error)
	case resp.StatusCode >= 400:
		return fmt.Errorf("maintenance status %d: %s: %w", resp.StatusCode, string(body), asynq.SkipRetry)
	case resp.StatusCode >= 300:
		return fmt.Errorf("maintenance status %d: %w", resp.StatusCode, asynq.SkipRetry)
	}

	h.logger.Info().
		Str("source", p.Source).
		Int("refreshed", out.Refreshed).
		Str("api_timestamp", out.Timestamp).
		Dur("duration", time.Since(start)).
		Msg("cache maintenance done")
	return nil
}
