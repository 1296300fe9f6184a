package mcp

import (
	"net/http"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// DefaultConnectTimeout bounds the transport setup and the initialize handshake
	DefaultConnectTimeout = 30 * time.Second
	// DefaultCallTimeout bounds a single list or call request
	DefaultCallTimeout = 60 * time.Second
	// DefaultConcurrency is the number of servers connected in parallel
	DefaultConcurrency = 4
)

// TransportFactory creates the client transport for the server.
type TransportFactory func(cfg ServerConfig) (sdkmcp.Transport, error)

// Option configures connections and the pool.
type Option func(*Options)

// Options for connections and the pool.
type Options struct {
	ConnectTimeout time.Duration
	CallTimeout    time.Duration
	Concurrency    int
	ClientName     string
	ClientVersion  string
	HTTPClient     *http.Client
	Transport      TransportFactory
}

func newOptions(opts []Option) Options {
	o := Options{
		ConnectTimeout: DefaultConnectTimeout,
		CallTimeout:    DefaultCallTimeout,
		Concurrency:    DefaultConcurrency,
		ClientName:     "mcphub",
		ClientVersion:  "v1.0.0",
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Transport == nil {
		o.Transport = func(cfg ServerConfig) (sdkmcp.Transport, error) {
			return NewTransport(cfg, o.HTTPClient)
		}
	}
	return o
}

// WithConnectTimeout sets the timeout of the initialize handshake.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ConnectTimeout = d
	}
}

// WithCallTimeout sets the timeout of a single tool list or call.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.CallTimeout = d
	}
}

// WithConcurrency sets the number of servers connected in parallel.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		o.Concurrency = n
	}
}

// WithClientInfo sets the client implementation reported in the handshake.
func WithClientInfo(name, version string) Option {
	return func(o *Options) {
		o.ClientName = name
		o.ClientVersion = version
	}
}

// WithHTTPClient sets the HTTP client for remote servers.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = c
	}
}

// WithTransport overrides how transports are created.
func WithTransport(f TransportFactory) Option {
	return func(o *Options) {
		o.Transport = f
	}
}
