package live

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds configuration for the live server.
type Config struct {
	// Address is the address to listen on.
	// Default: ":3000".
	Address string

	// WSPath is the WebSocket endpoint pages connect to.
	// Default: "/_spool/ws".
	WSPath string

	// ActionPath accepts actions posted as JSON or form values.
	// Default: "/_spool/action".
	ActionPath string

	// MetricsPath exposes Prometheus metrics. Empty disables the endpoint;
	// DefaultConfig sets "/metrics".
	MetricsPath string

	// Registry receives the render and server metrics and backs the
	// metrics endpoint. Default: a new registry.
	Registry *prometheus.Registry

	// CheckOrigin validates WebSocket origins.
	// Default: same origin only.
	CheckOrigin func(r *http.Request) bool

	// SendBuffer is the number of pushes queued per client before the
	// client is dropped.
	// Default: 16.
	SendBuffer int

	// WriteTimeout bounds each WebSocket write.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 5 seconds.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":3000",
		WSPath:            "/_spool/ws",
		ActionPath:        "/_spool/action",
		MetricsPath:       "/metrics",
		SendBuffer:        16,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// withDefaults fills unset fields of c from DefaultConfig.
func (c *Config) withDefaults() *Config {
	defaults := DefaultConfig()
	if c == nil {
		return defaults
	}
	out := *c
	if out.Address == "" {
		out.Address = defaults.Address
	}
	if out.WSPath == "" {
		out.WSPath = defaults.WSPath
	}
	if out.ActionPath == "" {
		out.ActionPath = defaults.ActionPath
	}
	if out.SendBuffer <= 0 {
		out.SendBuffer = defaults.SendBuffer
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = defaults.WriteTimeout
	}
	if out.ReadHeaderTimeout == 0 {
		out.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = defaults.ShutdownTimeout
	}
	return &out
}
