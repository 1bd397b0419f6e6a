// Package store persists the named state values read by events.State.
//
// Values are opaque strings; the events package encodes them as JSON. Three
// backends are provided: Memory for tests and single process use, Redis for
// state shared between server instances, and SQLite for state that survives
// restarts without an external service.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get for keys that have no value.
var ErrNotFound = errors.New("store: not found")

// Store is a string key/value store safe for concurrent use.
type Store interface {
	// Get returns the value of key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns every stored key in ascending order.
	Keys(ctx context.Context) ([]string, error)

	// Close releases the resources held by the store.
	Close() error
}

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverSQLite = "sqlite"
)

// Config selects and configures a backend for Open.
type Config struct {
	Driver   string        // memory, redis or sqlite
	Address  string        // redis address
	Password string        // redis password
	DB       int           // redis database
	Prefix   string        // redis key prefix
	TTL      time.Duration // redis value expiration
	DSN      string        // sqlite data source name
}

// Open creates the store selected by cfg.Driver. An empty driver selects
// Memory.
func Open(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverRedis:
		var opts []RedisOption
		if cfg.Prefix != "" {
			opts = append(opts, WithPrefix(cfg.Prefix))
		}
		if cfg.TTL > 0 {
			opts = append(opts, WithTTL(cfg.TTL))
		}
		return NewRedis(cfg.Address, cfg.Password, cfg.DB, opts...), nil
	case DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		return OpenSQLite(dsn)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
