// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and CONTROLE_* environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/malcong/controle/internal/domain/types"
)

// Routing modes for share links.
const (
	RouteModePath = "path"
	RouteModeHash = "hash"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// APIBaseURL is the root of the analysis backend.
	APIBaseURL string `koanf:"api_base_url"`

	// AppName is shown in the page title and header.
	AppName string `koanf:"app_name"`

	// RouteMode is "path" or "hash" and shapes share links.
	RouteMode string `koanf:"route_mode"`

	// AnalyticsToken is rendered into the page when set.
	AnalyticsToken string `koanf:"analytics_token"`

	// SecureCookie marks the session cookie Secure. Enable behind TLS.
	SecureCookie bool `koanf:"secure_cookie"`

	// RequestTimeoutMS bounds each call to the analysis backend.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// UpstreamRPS caps calls to the analysis backend per second; 0 disables
	// the limit. UpstreamBurst is the number of calls allowed at once.
	UpstreamRPS   float64 `koanf:"upstream_rps"`
	UpstreamBurst int     `koanf:"upstream_burst"`

	// TimePoints and TimeEnd are the simulation defaults sent with each submission.
	TimePoints int     `koanf:"time_points"`
	TimeEnd    float64 `koanf:"time_end"`

	// MaxSessions caps in-memory dashboard sessions.
	MaxSessions int `koanf:"max_sessions"`

	// ChartWidth and ChartHeight size rendered SVG charts in pixels.
	ChartWidth  int `koanf:"chart_width"`
	ChartHeight int `koanf:"chart_height"`

	// MetricsPrefix is prepended to every metric name after the subsystem.
	MetricsPrefix string `koanf:"metrics_prefix"`

	// MetricsLabels are constant labels on every metric, as "env=prod,region=eu".
	MetricsLabels string `koanf:"metrics_labels"`

	// MetricsUpstream records per-call analysis backend metrics.
	MetricsUpstream bool `koanf:"metrics_upstream"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		APIBaseURL:       "https://controle.malcong.com.br",
		AppName:          "Control Systems",
		RouteMode:        RouteModePath,
		RequestTimeoutMS: 15_000,
		UpstreamRPS:      20,
		UpstreamBurst:    10,
		TimePoints:       40,
		TimeEnd:          3.0,
		MaxSessions:      1000,
		ChartWidth:       640,
		ChartHeight:      320,
		MetricsUpstream:  true,
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.RouteMode != RouteModePath && c.RouteMode != RouteModeHash:
		return fmt.Errorf("%w: route_mode must be path or hash, got %q", ErrInvalidConfig, c.RouteMode)
	case c.RequestTimeoutMS <= 0:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	case c.UpstreamRPS < 0 || c.UpstreamBurst < 0:
		return fmt.Errorf("%w: upstream_rps and upstream_burst must not be negative", ErrInvalidConfig)
	case c.TimePoints < types.MinTimePoints || c.TimePoints > types.MaxTimePoints:
		return fmt.Errorf("%w: time_points must be between %d and %d", ErrInvalidConfig, types.MinTimePoints, types.MaxTimePoints)
	case c.TimeEnd <= 0 || c.TimeEnd > types.MaxTimeEnd:
		return fmt.Errorf("%w: time_end must be in (0, %g]", ErrInvalidConfig, types.MaxTimeEnd)
	case c.MaxSessions <= 0:
		return fmt.Errorf("%w: max_sessions must be positive", ErrInvalidConfig)
	case c.ChartWidth <= 0 || c.ChartHeight <= 0:
		return fmt.Errorf("%w: chart_width and chart_height must be positive", ErrInvalidConfig)
	}
	if _, err := c.ConstLabels(); err != nil {
		return err
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: api_base_url must be an absolute http(s) URL, got %q", ErrInvalidConfig, c.APIBaseURL)
	}
	return nil
}

// ConstLabels parses MetricsLabels. Empty input yields a nil map.
func (c *Config) ConstLabels() (map[string]string, error) {
	var labels map[string]string
	for _, pair := range strings.Split(c.MetricsLabels, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("%w: metrics_labels entry %q must be key=value", ErrInvalidConfig, pair)
		}
		if labels == nil {
			labels = make(map[string]string)
		}
		labels[key] = value
	}
	return labels, nil
}
