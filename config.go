package vellum

import (
	"crypto/tls"
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"
)

// KeepAliveParams configures connection reuse (spec.md §6 "keepAlive").
// The zero value (Enabled: false) disables keep-alive, matching the
// spec's "disabled" default.
type KeepAliveParams struct {
	Enabled bool
	Timeout time.Duration
	Max     int
}

// TLSMaterial is the external TLS factory input spec.md §1 treats as an
// out-of-scope collaborator: the core only distinguishes secure vs
// plain. Config.Secure just carries the already-built *tls.Config
// through to the listener.
type TLSMaterial struct {
	Config *tls.Config
}

// Config is the server configuration accumulator, built by the caller
// and passed into NewServer (spec.md §2 "Server application builder",
// §6 configuration table), following the teacher's Config struct shape
// generalized from fasthttp.Server fields to this engine's own pools and
// framing.
type Config struct {
	Addr string

	BacklogSize int
	PoolSize    int
	QueueSize   int
	BufferSize  int
	ReadTimeout time.Duration
	HeaderLimit int

	KeepAlive KeepAliveParams

	TLS *TLSMaterial

	Logger       Logger
	ErrorHandler ErrorHandler
	NotFound     RequestHandler

	RequestHandlers []RequestHandler
	ResponseFilters []ResponseFilter

	// Hosts dispatches by Host header to a dedicated pipeline before the
	// default handlers run (SPEC_FULL.md §6 "Virtual hosts").
	Hosts map[string]RequestHandler

	// GracefulShutdown installs a signal handler that calls Shutdown on
	// the listed signals (SPEC_FULL.md §6).
	GracefulShutdown        bool
	GracefulShutdownSignals []os.Signal

	// Reuseport enables SO_REUSEPORT on the listening socket
	// (SPEC_FULL.md §6).
	Reuseport bool

	// PoolFactor bounds the dynamic pools (keepAlive/upgrade/encoder) at
	// PoolSize × PoolFactor (spec.md §5 table).
	PoolFactor int
}

// DefaultConfig returns the spec.md §6 configuration defaults.
func DefaultConfig() Config {
	cpus := runtime.NumCPU()
	return Config{
		BacklogSize:  50,
		PoolSize:     cpus,
		QueueSize:    4 * cpus,
		BufferSize:   8192,
		ReadTimeout:  5000 * time.Millisecond,
		HeaderLimit:  100,
		Logger:       NewLogger(),
		ErrorHandler: DefaultErrorHandler,
		NotFound:     func(req Request) Result { return Respond(DefaultNotFoundHandler(req)) },
		PoolFactor:   4,
	}
}

// Validate fills unset fields from DefaultConfig and checks invariants.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.BacklogSize == 0 {
		c.BacklogSize = def.BacklogSize
	}
	if c.PoolSize == 0 {
		c.PoolSize = def.PoolSize
	}
	if c.QueueSize == 0 {
		c.QueueSize = def.QueueSize
	}
	if c.BufferSize == 0 {
		c.BufferSize = def.BufferSize
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.HeaderLimit == 0 {
		c.HeaderLimit = def.HeaderLimit
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
	if c.ErrorHandler == nil {
		c.ErrorHandler = def.ErrorHandler
	}
	if c.NotFound == nil {
		c.NotFound = def.NotFound
	}
	if c.PoolFactor == 0 {
		c.PoolFactor = def.PoolFactor
	}
	if c.KeepAlive.Enabled && c.KeepAlive.Max <= 0 {
		return errors.New("vellum: KeepAlive.Max must be positive when enabled")
	}
	if c.Addr == "" {
		return errors.New("vellum: Addr is required")
	}
	return nil
}
