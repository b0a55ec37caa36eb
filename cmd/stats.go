package main

import (
	"time"

	"github.com/malcong/controle/internal/config"
)

type sessionCounter interface {
	Len() int
}

// statsProvider reports process state for GET /api/stats and the ops page.
type statsProvider struct {
	sessions sessionCounter
	started  time.Time
	cfg      *config.Config
}

func newStatsProvider(sessions sessionCounter, cfg *config.Config) *statsProvider {
	return &statsProvider{sessions: sessions, started: time.Now(), cfg: cfg}
}

// GetStats returns a snapshot of the running service.
func (s *statsProvider) GetStats() map[string]any {
	return map[string]any{
		"sessions":      s.sessions.Len(),
		"maxSessions":   s.cfg.MaxSessions,
		"uptimeSeconds": int(time.Since(s.started).Seconds()),
		"apiBaseURL":    s.cfg.APIBaseURL,
		"routeMode":     s.cfg.RouteMode,
		"upstreamRPS":   s.cfg.UpstreamRPS,
	}
}
