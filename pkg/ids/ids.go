// Package ids supplies the unique identifiers injected by unique requests.
//
// A Source is injected into the renderer rather than read from a global so
// tests can substitute a deterministic Counter. Default is the process-wide
// source used when a renderer is configured without one.
package ids

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Source supplies a distinct identifier on every call.
// Implementations must be safe for concurrent use.
type Source interface {
	NextID() string
}

// Func adapts a function to Source.
type Func func() string

// NextID implements Source.
func (f Func) NextID() string {
	return f()
}

// Counter returns sequential identifiers "<prefix><n>" starting at 1.
type Counter struct {
	prefix string
	suffix string
	n      atomic.Uint64
}

// NewCounter creates a Counter with the given prefix.
func NewCounter(prefix string) *Counter {
	return &Counter{prefix: prefix}
}

// NewWrappedCounter creates a Counter whose identifiers are wrapped in
// prefix and suffix, such as "|UNIQUE1|".
func NewWrappedCounter(prefix, suffix string) *Counter {
	return &Counter{prefix: prefix, suffix: suffix}
}

// NextID implements Source.
func (c *Counter) NextID() string {
	return c.prefix + strconv.FormatUint(c.n.Add(1), 10) + c.suffix
}

// Reset restarts the sequence at 1.
func (c *Counter) Reset() {
	c.n.Store(0)
}

// Clock returns identifiers "<prefix>-<unix millis>-<random>".
type Clock struct {
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	last string
}

// NewClock creates a Clock source.
func NewClock(prefix string) *Clock {
	return &Clock{prefix: prefix, now: time.Now}
}

// NextID implements Source.
func (c *Clock) NextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		id := fmt.Sprintf("%s-%d-%s", c.prefix, c.now().UnixMilli(),
			strconv.FormatFloat(rand.Float64(), 'f', -1, 64))
		if id != c.last {
			c.last = id
			return id
		}
	}
}

// UUID returns random version 4 UUIDs, optionally prefixed.
type UUID struct {
	prefix string
}

// NewUUID creates a UUID source.
func NewUUID(prefix string) *UUID {
	return &UUID{prefix: prefix}
}

// NextID implements Source.
func (u *UUID) NextID() string {
	return u.prefix + uuid.NewString()
}

var (
	defaultMu     sync.RWMutex
	defaultSource Source = NewClock("spool")
)

// Default returns the process-wide source.
func Default() Source {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultSource
}

// SetDefault replaces the process-wide source. A nil source restores the
// clock based default.
func SetDefault(s Source) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if s == nil {
		s = NewClock("spool")
	}
	defaultSource = s
}

// Kinds lists the names accepted by New.
var Kinds = []string{"clock", "counter", "uuid"}

// New creates a source by kind name: "clock", "counter" or "uuid".
func New(kind, prefix string) (Source, error) {
	switch strings.ToLower(kind) {
	case "", "clock":
		if prefix == "" {
			prefix = "spool"
		}
		return NewClock(prefix), nil
	case "counter":
		return NewCounter(prefix), nil
	case "uuid":
		return NewUUID(prefix), nil
	default:
		return nil, fmt.Errorf("ids: unknown source kind %q", kind)
	}
}
