// Package telemetry sends anonymous, opt-in usage events to PostHog.
// Only counts and phase keys are recorded, never field values.
package telemetry

import (
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/posthog/posthog-go"
)

// Client tracks usage events.
type Client interface {
	// Track sends an event asynchronously. It never blocks a request.
	Track(event string, properties map[string]any)

	// Close flushes pending events.
	Close() error
}

// Properties is a type alias for event properties.
type Properties = map[string]any

// enqueuer is the part of the PostHog client we use.
type enqueuer interface {
	io.Closer
	Enqueue(msg posthog.Message) error
}

// PostHogClient wraps the PostHog SDK.
type PostHogClient struct {
	client  enqueuer
	id      string
	version string

	mu     sync.RWMutex
	closed bool
}

// Options configure New.
type Options struct {
	Enabled  bool
	APIKey   string
	Endpoint string
	Version  string
	// DataDir holds telemetry.json with the anonymous install id.
	DataDir string
}

// New returns a PostHog client, or a NoopClient when telemetry is disabled
// or no API key is configured.
func New(opts Options) (Client, error) {
	if !opts.Enabled || opts.APIKey == "" {
		return NewNoopClient(), nil
	}

	state, err := LoadState(opts.DataDir)
	if err != nil {
		return nil, err
	}

	cfg := posthog.Config{
		BatchSize: 20,
		Interval:  5 * time.Second,
		Logger:    quietPostHogLogger{},
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = opts.Endpoint
	}
	ph, err := posthog.NewWithConfig(opts.APIKey, cfg)
	if err != nil {
		return nil, err
	}
	return newPostHogClient(ph, state.AnonymousID, opts.Version), nil
}

func newPostHogClient(enq enqueuer, id, version string) *PostHogClient {
	return &PostHogClient{client: enq, id: id, version: version}
}

// Track implements Client.
func (c *PostHogClient) Track(event string, properties map[string]any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}

	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}
	props.Set("os", runtime.GOOS)
	props.Set("arch", runtime.GOARCH)
	props.Set("app_version", c.version)
	// No person profiles: events stay anonymous.
	props.Set("$process_person_profile", false)

	_ = c.client.Enqueue(posthog.Capture{
		DistinctId: c.id,
		Event:      event,
		Properties: props,
	})
}

// Close implements Client.
func (c *PostHogClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.client.Close()
}

// NoopClient drops every event.
type NoopClient struct{}

// NewNoopClient returns a client that does nothing.
func NewNoopClient() *NoopClient { return &NoopClient{} }

// Track is a no-op.
func (*NoopClient) Track(string, map[string]any) {}

// Close is a no-op.
func (*NoopClient) Close() error { return nil }

type quietPostHogLogger struct{}

func (quietPostHogLogger) Debugf(string, ...interface{}) {}
func (quietPostHogLogger) Logf(string, ...interface{})   {}
func (quietPostHogLogger) Warnf(string, ...interface{})  {}
func (quietPostHogLogger) Errorf(string, ...interface{}) {}
