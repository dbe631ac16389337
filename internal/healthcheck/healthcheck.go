package healthcheck

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Status is the last observed health of the settlement service. It is
// observability only: the engine keeps serving regardless, since custody
// errors already surface synchronously on each call.
type Status struct {
	mutex   sync.Mutex
	healthy bool
}

func NewStatus() *Status {
	return &Status{}
}

func (s *Status) Healthy() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.healthy
}

// set updates the status and reports whether it changed.
func (s *Status) set(healthy bool) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	changed := s.healthy != healthy
	s.healthy = healthy
	return changed
}

// Watch periodically probes the settlement service's /health endpoint and
// records the result in status, logging transitions.
func Watch(
	ctx context.Context,
	settlementURL *url.URL,
	status *Status,
	interval time.Duration,
	logger *slog.Logger,
) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Settlement health check stopped",
				slog.String("settlement", settlementURL.String()))
			return

		case <-ticker.C:
			healthURL := settlementURL.ResolveReference(&url.URL{Path: "/health"})

			req, err := http.NewRequestWithContext(
				ctx, http.MethodGet, healthURL.String(), nil)
			if err != nil {
				continue
			}

			res, err := client.Do(req)
			if err != nil {
				if status.set(false) {
					logger.Warn("Settlement service is down",
						slog.String("settlement", settlementURL.String()),
						slog.String("error", err.Error()))
				}
				continue
			}
			res.Body.Close()

			healthy := res.StatusCode == http.StatusOK
			changed := status.set(healthy)

			if changed {
				if healthy {
					logger.Info("Settlement service is back up",
						slog.String("settlement", settlementURL.String()))
				} else {
					logger.Warn("Settlement service is down",
						slog.String("settlement", settlementURL.String()),
						slog.Int("status", res.StatusCode))
				}
			}
		}
	}
}
