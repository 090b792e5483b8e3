// Package queue runs chat completions one at a time in the background so
// bursts of client requests back off together when the provider rate limits.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/google/uuid"

	"github.com/josephgoksu/PhaseWing/internal/llm"
)

// Status of a queued request.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusProcessing  Status = "processing"
	StatusSuccess     Status = "success"
	StatusRateLimited Status = "rate_limited"
	StatusError       Status = "error"
)

// DefaultSystemPrompt frames every queued completion.
const DefaultSystemPrompt = "You are an expert Business Analyst assistant. Provide clear, actionable, and professional responses to help with business analysis tasks."

// Defaults applied to zero Options fields.
const (
	DefaultRateLimitDelay = 60 * time.Second
	DefaultResultTTL      = time.Hour
	DefaultTimeout        = 15 * time.Second
	DefaultPollInterval   = time.Second
)

var (
	ErrNotFound    = errors.New("request not found")
	ErrEmptyPrompt = errors.New("prompt is required")
)

// Completer answers one prompt.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ModelCompleter adapts an Eino chat model to Completer.
type ModelCompleter struct {
	Model model.BaseChatModel
}

// Complete implements Completer.
func (m ModelCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	return llm.Complete(ctx, m.Model, system, prompt)
}

// Options tune the worker.
type Options struct {
	System         string
	RateLimitDelay time.Duration
	ResultTTL      time.Duration
	Timeout        time.Duration
	PollInterval   time.Duration
	Now            func() time.Time
}

func (o Options) withDefaults() Options {
	if o.System == "" {
		o.System = DefaultSystemPrompt
	}
	if o.RateLimitDelay <= 0 {
		o.RateLimitDelay = DefaultRateLimitDelay
	}
	if o.ResultTTL <= 0 {
		o.ResultTTL = DefaultResultTTL
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Ticket acknowledges a submitted prompt.
type Ticket struct {
	RequestID     string `json:"request_id"`
	Status        Status `json:"status"`
	QueuePosition int    `json:"queue_position"`
}

// Result is the state of one request.
type Result struct {
	Status        Status `json:"status"`
	Result        string `json:"result,omitempty"`
	Error         string `json:"error,omitempty"`
	RetryAfter    int    `json:"retry_after,omitempty"`
	QueuePosition int    `json:"queue_position,omitempty"`

	finishedAt time.Time
}

// Stats summarises the queue.
type Stats struct {
	QueueSize        int      `json:"queue_size"`
	Processing       bool     `json:"processing"`
	RateLimitDelay   float64  `json:"rate_limit_delay"`
	AvailableResults []string `json:"available_results"`
}

type request struct {
	id     string
	prompt string
}

// Queue is a FIFO of prompts drained by a single worker.
type Queue struct {
	completer Completer
	opts      Options

	mu          sync.Mutex
	pending     []request
	results     map[string]*Result
	processing  bool
	pausedUntil time.Time
	wake        chan struct{}
}

// New creates a Queue. Call Run to start the worker.
func New(c Completer, opts Options) *Queue {
	return &Queue{
		completer: c,
		opts:      opts.withDefaults(),
		results:   make(map[string]*Result),
		wake:      make(chan struct{}, 1),
	}
}

// Submit enqueues prompt.
func (q *Queue) Submit(prompt string) (Ticket, error) {
	if strings.TrimSpace(prompt) == "" {
		return Ticket{}, ErrEmptyPrompt
	}

	q.mu.Lock()
	q.sweepLocked()
	id := uuid.NewString()
	q.pending = append(q.pending, request{id: id, prompt: prompt})
	q.results[id] = &Result{Status: StatusQueued}
	pos := len(q.pending)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	slog.Debug("completion queued", "request_id", id, "position", pos)
	return Ticket{RequestID: id, Status: StatusQueued, QueuePosition: pos}, nil
}

// Status returns a snapshot of request id.
func (q *Queue) Status(id string) (Result, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sweepLocked()

	r, ok := q.results[id]
	if !ok {
		return Result{}, ErrNotFound
	}
	out := *r
	switch out.Status {
	case StatusQueued:
		out.QueuePosition = q.positionLocked(id)
	case StatusRateLimited:
		out.RetryAfter = q.retryAfterLocked()
		out.QueuePosition = q.positionLocked(id)
	}
	return out, nil
}

// Stats reports queue size, worker state and remaining rate-limit pause.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sweepLocked()

	ids := make([]string, 0, len(q.results))
	for id := range q.results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	delay := q.pausedUntil.Sub(q.opts.Now()).Seconds()
	if delay < 0 {
		delay = 0
	}
	return Stats{
		QueueSize:        len(q.pending),
		Processing:       q.processing,
		RateLimitDelay:   delay,
		AvailableResults: ids,
	}
}

// Run drains the queue until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	slog.Debug("completion queue worker started")
	defer slog.Debug("completion queue worker stopped")

	for {
		req, wait, ok := q.next()
		switch {
		case wait > 0:
			if !sleep(ctx, wait) {
				return
			}
			continue
		case !ok:
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
			case <-time.After(q.opts.PollInterval):
			}
			continue
		}
		q.process(ctx, req)
		if ctx.Err() != nil {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// next pops the head of the queue unless the worker is paused.
func (q *Queue) next() (request, time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		q.processing = false
		return request{}, 0, false
	}
	if wait := q.pausedUntil.Sub(q.opts.Now()); wait > 0 {
		return request{}, wait, false
	}
	req := q.pending[0]
	q.pending = q.pending[1:]
	q.processing = true
	if r, ok := q.results[req.id]; ok {
		r.Status = StatusProcessing
	}
	return req, 0, true
}

func (q *Queue) process(ctx context.Context, req request) {
	cctx, cancel := context.WithTimeout(ctx, q.opts.Timeout)
	out, err := q.completer.Complete(cctx, q.opts.System, req.prompt)
	cancel()

	q.mu.Lock()
	defer q.mu.Unlock()

	r, ok := q.results[req.id]
	if !ok {
		r = &Result{}
		q.results[req.id] = r
	}

	switch {
	case err == nil:
		*r = Result{Status: StatusSuccess, Result: out, finishedAt: q.opts.Now()}
		slog.Debug("completion finished", "request_id", req.id)

	case ctx.Err() != nil:
		// Shutting down: keep the request for the next worker.
		q.pending = append([]request{req}, q.pending...)
		*r = Result{Status: StatusQueued}

	case IsRateLimit(err):
		q.pausedUntil = q.opts.Now().Add(q.opts.RateLimitDelay)
		q.pending = append(q.pending, req)
		*r = Result{Status: StatusRateLimited, RetryAfter: seconds(q.opts.RateLimitDelay)}
		slog.Warn("completion rate limited, pausing queue", "request_id", req.id, "delay", q.opts.RateLimitDelay)

	default:
		*r = Result{Status: StatusError, Error: err.Error(), finishedAt: q.opts.Now()}
		slog.Warn("completion failed", "request_id", req.id, "error", err)
	}
}

// IsRateLimit reports whether err looks like a provider rate limit.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit")
}

func (q *Queue) sweepLocked() {
	cutoff := q.opts.Now().Add(-q.opts.ResultTTL)
	for id, r := range q.results {
		if !r.finishedAt.IsZero() && r.finishedAt.Before(cutoff) {
			delete(q.results, id)
		}
	}
}

func (q *Queue) positionLocked(id string) int {
	for i, req := range q.pending {
		if req.id == id {
			return i + 1
		}
	}
	return 0
}

func (q *Queue) retryAfterLocked() int {
	return seconds(q.pausedUntil.Sub(q.opts.Now()))
}

func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
