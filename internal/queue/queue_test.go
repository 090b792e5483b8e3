package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	mu     sync.Mutex
	calls  []time.Time
	system string
	fn     func(call int, prompt string) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, time.Now())
	f.system = system
	n := len(f.calls)
	f.mu.Unlock()
	return f.fn(n, prompt)
}

func (f *fakeCompleter) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.calls...)
}

func startQueue(t *testing.T, c Completer, opts Options) *Queue {
	t.Helper()
	opts.PollInterval = 5 * time.Millisecond
	q := New(c, opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return q
}

func waitFor(t *testing.T, q *Queue, id string, want Status) Result {
	t.Helper()
	var got Result
	require.Eventually(t, func() bool {
		r, err := q.Status(id)
		if err != nil {
			return false
		}
		got = r
		return r.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestQueue_Success(t *testing.T) {
	c := &fakeCompleter{fn: func(_ int, prompt string) (string, error) { return "answer to " + prompt, nil }}
	q := startQueue(t, c, Options{})

	ticket, err := q.Submit("what are the risks?")
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.RequestID)
	assert.Equal(t, StatusQueued, ticket.Status)

	r := waitFor(t, q, ticket.RequestID, StatusSuccess)
	assert.Equal(t, "answer to what are the risks?", r.Result)
	assert.Equal(t, DefaultSystemPrompt, c.system)
}

func TestQueue_Error(t *testing.T) {
	c := &fakeCompleter{fn: func(int, string) (string, error) { return "", errors.New("invalid api key") }}
	q := startQueue(t, c, Options{})

	ticket, err := q.Submit("hello")
	require.NoError(t, err)

	r := waitFor(t, q, ticket.RequestID, StatusError)
	assert.Equal(t, "invalid api key", r.Error)
}

func TestQueue_RateLimitRequeues(t *testing.T) {
	delay := 60 * time.Millisecond
	c := &fakeCompleter{fn: func(call int, _ string) (string, error) {
		if call == 1 {
			return "", errors.New("error, status code: 429, Rate limit reached")
		}
		return "done", nil
	}}
	q := startQueue(t, c, Options{RateLimitDelay: delay})

	ticket, err := q.Submit("summarise")
	require.NoError(t, err)

	r := waitFor(t, q, ticket.RequestID, StatusSuccess)
	assert.Equal(t, "done", r.Result)

	calls := c.callTimes()
	require.Len(t, calls, 2)
	assert.GreaterOrEqual(t, calls[1].Sub(calls[0]), delay)
}

func TestQueue_FIFO(t *testing.T) {
	var mu sync.Mutex
	var order []string
	c := &fakeCompleter{fn: func(_ int, prompt string) (string, error) {
		mu.Lock()
		order = append(order, prompt)
		mu.Unlock()
		return prompt, nil
	}}
	q := New(c, Options{PollInterval: 5 * time.Millisecond})

	first, err := q.Submit("first")
	require.NoError(t, err)
	second, err := q.Submit("second")
	require.NoError(t, err)
	assert.Equal(t, 1, first.QueuePosition)
	assert.Equal(t, 2, second.QueuePosition)

	st, err := q.Status(second.RequestID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.QueuePosition)
	assert.Equal(t, 2, q.Stats().QueueSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	waitFor(t, q, second.RequestID, StatusSuccess)
	mu.Lock()
	assert.Equal(t, []string{"first", "second"}, order)
	mu.Unlock()
}

func TestQueue_ResultsExpire(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	c := &fakeCompleter{fn: func(int, string) (string, error) { return "ok", nil }}
	q := startQueue(t, c, Options{ResultTTL: time.Hour, Now: clock})

	ticket, err := q.Submit("expire me")
	require.NoError(t, err)
	waitFor(t, q, ticket.RequestID, StatusSuccess)
	assert.Contains(t, q.Stats().AvailableResults, ticket.RequestID)

	mu.Lock()
	now = now.Add(61 * time.Minute)
	mu.Unlock()

	_, err = q.Status(ticket.RequestID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, q.Stats().AvailableResults)
}

func TestQueue_Validation(t *testing.T) {
	q := New(&fakeCompleter{}, Options{})

	_, err := q.Submit("   ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	_, err = q.Status("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	st := q.Stats()
	assert.Equal(t, 0, st.QueueSize)
	assert.False(t, st.Processing)
	assert.Zero(t, st.RateLimitDelay)
}

func TestQueue_RunStopsOnCancel(t *testing.T) {
	q := New(&fakeCompleter{}, Options{PollInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestIsRateLimit(t *testing.T) {
	assert.True(t, IsRateLimit(errors.New("HTTP 429")))
	assert.True(t, IsRateLimit(errors.New("Rate limit exceeded")))
	assert.True(t, IsRateLimit(errors.New("rate_limit_error")))
	assert.False(t, IsRateLimit(errors.New("bad request")))
	assert.False(t, IsRateLimit(nil))
}

type replyModel struct{ input []*schema.Message }

func (m *replyModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.input = input
	return schema.AssistantMessage("from model", nil), nil
}

func (m *replyModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

func TestModelCompleter(t *testing.T) {
	m := &replyModel{}
	out, err := ModelCompleter{Model: m}.Complete(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "from model", out)
	require.Len(t, m.input, 2)
	assert.Equal(t, "sys", m.input[0].Content)
}
