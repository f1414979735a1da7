// Package runeq is a client SDK for the Rune health-data platform. It
// bundles transports for the GraphQL metadata API and the V2 Stream API;
// the resources package provides eager query functions over them and the
// session package provides cached, freeze-time-aware query objects.
package runeq

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/runelabs/runeq-go/internal/graph"
	"github.com/runelabs/runeq-go/internal/streamapi"
)

// Client bundles the metadata and stream transports for one set of
// credentials. Construct with NewClient; a Client is safe to share across
// the eager and lazy query façades.
type Client struct {
	cfg    *Config
	http   *http.Client
	graph  *graph.Client
	stream *streamapi.Client
	strive *streamapi.Client
}

// NewClient validates cfg and builds the transports.
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, Usagef("config cannot be nil")
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.graph = graph.New(cfg.GraphURL, cfg, c.http)
	c.stream = streamapi.New(cfg.StreamURL, cfg, c.http)
	c.strive = streamapi.New(cfg.StriveURL, cfg, c.http)
	return c, nil
}

// Config returns the client's configuration.
func (c *Client) Config() *Config { return c.cfg }

// Graph returns the metadata transport. Intended for the resources and
// session packages; external callers use the query façades.
func (c *Client) Graph() *graph.Client { return c.graph }

// Stream returns the stream-data transport. Intended for the resources and
// session packages; external callers use the query façades.
func (c *Client) Stream() *streamapi.Client { return c.stream }

// Strive returns the Strive API transport, a plain REST GET surface sharing
// the stream transport's auth and error handling.
func (c *Client) Strive() *streamapi.Client { return c.strive }

// defaultClient is the process-wide client installed by Initialize.
var defaultClient atomic.Pointer[Client]

// Initialize builds a Client from cfg and installs it as the process
// default, for the convenience top-level query functions. Explicit
// dependency injection (passing a Client) is preferred in library code.
func Initialize(cfg *Config, opts ...Option) (*Client, error) {
	c, err := NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}
	defaultClient.Store(c)
	return c, nil
}

// Default returns the client installed by Initialize, or ErrNotInitialized
// if none has been installed yet.
func Default() (*Client, error) {
	if c := defaultClient.Load(); c != nil {
		return c, nil
	}
	return nil, ErrNotInitialized
}
