package smtp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

type fakeClient struct {
	mu        sync.Mutex
	from      string
	rcpts     []string
	data      bytes.Buffer
	rcptErr   error
	resetErr  error
	noopErr   error
	resets    int
	quit      bool
	deadlines []time.Time
	// stall makes Mail block until a deadline in the past is set.
	stall   bool
	expired chan struct{}
}

func (f *fakeClient) Mail(from string) error {
	if f.stall {
		<-f.expired
		return errors.New("i/o timeout")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.from = from
	return nil
}

func (f *fakeClient) SetDeadline(t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadlines = append(f.deadlines, t)
	if f.stall && !t.IsZero() && !t.After(time.Now()) {
		select {
		case <-f.expired:
		default:
			close(f.expired)
		}
	}
	return nil
}

func (f *fakeClient) Rcpt(to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rcptErr != nil {
		return f.rcptErr
	}
	f.rcpts = append(f.rcpts, to)
	return nil
}

func (f *fakeClient) Data() (io.WriteCloser, error) {
	return nopCloser{&f.data}, nil
}

func (f *fakeClient) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return f.resetErr
}

func (f *fakeClient) Noop() error { return f.noopErr }

func (f *fakeClient) Quit() error {
	f.quit = true
	return nil
}

func (f *fakeClient) Close() error { return nil }

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

type fakeDialer struct {
	mu      sync.Mutex
	clients []*fakeClient
	dials   atomic.Int32
	err     error
	setup   func(*fakeClient)
}

func (d *fakeDialer) dial(context.Context) (*session, error) {
	d.dials.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	c := &fakeClient{expired: make(chan struct{})}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.setup != nil {
		d.setup(c)
	}
	d.clients = append(d.clients, c)
	return &session{client: c, nc: c}, nil
}

func newTestPool(t *testing.T, cfg Config, d *fakeDialer) *Pool {
	t.Helper()
	if cfg.Host == "" {
		cfg.Host = "smtp.example.com"
	}
	p, err := New(cfg, withDialer(d.dial))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func testMessage() *mailer.Message {
	return &mailer.Message{
		From:    "Team <team@example.com>",
		To:      "bob@example.com",
		Subject: "Sign in",
		Text:    "Hello bob!",
		HTML:    "<p>Hello bob!</p>",
	}
}

func TestPool_SendAndReuse(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{}
	p := newTestPool(t, Config{MaxConns: 1}, d)
	ctx := context.Background()

	for range 3 {
		c, err := p.Acquire(ctx)
		require.NoError(t, err)
		require.NoError(t, c.Send(ctx, testMessage()))
		c.Release()
	}

	require.Equal(t, int32(1), d.dials.Load())
	fc := d.clients[0]
	require.Equal(t, "team@example.com", fc.from)
	require.Equal(t, []string{"bob@example.com", "bob@example.com", "bob@example.com"}, fc.rcpts)
	require.Equal(t, 3, fc.resets)
	require.Contains(t, fc.data.String(), "Subject: Sign in")
}

func TestPool_RecipientRejected_KeepsSession(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{setup: func(c *fakeClient) { c.rcptErr = errors.New("550 mailbox unavailable") }}
	p := newTestPool(t, Config{MaxConns: 1}, d)
	ctx := context.Background()

	c, err := p.Acquire(ctx)
	require.NoError(t, err)
	err = c.Send(ctx, testMessage())
	require.ErrorContains(t, err, "550 mailbox unavailable")
	c.Release()

	c, err = p.Acquire(ctx)
	require.NoError(t, err)
	c.Release()
	require.Equal(t, int32(1), d.dials.Load())
}

func TestPool_BrokenSessionDestroyed(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{setup: func(c *fakeClient) { c.resetErr = errors.New("connection reset") }}
	p := newTestPool(t, Config{MaxConns: 1}, d)
	ctx := context.Background()

	c, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Send(ctx, testMessage()))
	c.Release()

	c, err = p.Acquire(ctx)
	require.NoError(t, err)
	c.Release()
	require.Equal(t, int32(2), d.dials.Load())
}

func TestPool_SendAppliesContextDeadline(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{}
	p := newTestPool(t, Config{MaxConns: 1}, d)

	deadline := time.Now().Add(time.Minute)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	c, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Send(ctx, testMessage()))
	c.Release()

	fc := d.clients[0]
	require.Equal(t, []time.Time{deadline, {}}, fc.deadlines)

	c, err = p.Acquire(context.Background())
	require.NoError(t, err)
	c.Release()
	require.Equal(t, int32(1), d.dials.Load())
}

func TestPool_SendCanceledMidTransaction(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{setup: func(c *fakeClient) { c.stall = true }}
	p := newTestPool(t, Config{MaxConns: 1}, d)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c, err := p.Acquire(context.Background())
	require.NoError(t, err)

	err = c.Send(ctx, testMessage())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.ErrorContains(t, err, "i/o timeout")
	c.Release()

	d.mu.Lock()
	d.setup = nil
	d.mu.Unlock()

	c, err = p.Acquire(context.Background())
	require.NoError(t, err)
	c.Release()
	require.Equal(t, int32(2), d.dials.Load())
}

func TestPool_InvalidEnvelope(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{}
	p := newTestPool(t, Config{}, d)
	ctx := context.Background()

	c, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer c.Release()

	msg := testMessage()
	msg.From = "not an address"
	require.Error(t, c.Send(ctx, msg))
	require.Empty(t, d.clients[0].from)
}

func TestPool_AcquireTimeout(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{}
	p := newTestPool(t, Config{MaxConns: 1, AcquireTimeout: 50 * time.Millisecond}, d)
	ctx := context.Background()

	held, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer held.Release()

	_, err = p.Acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_DialFailure(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{err: errors.New("connection refused")}
	p := newTestPool(t, Config{}, d)

	_, err := p.Acquire(context.Background())
	require.ErrorContains(t, err, "connection refused")
	require.Error(t, p.Ping(context.Background()))
}

func TestPool_StaleSessionReplaced(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{}
	p := newTestPool(t, Config{MaxConns: 1, IdleCheck: time.Millisecond}, d)
	ctx := context.Background()

	c, err := p.Acquire(ctx)
	require.NoError(t, err)
	c.Release()

	d.clients[0].noopErr = errors.New("421 timeout")
	time.Sleep(5 * time.Millisecond)

	c, err = p.Acquire(ctx)
	require.NoError(t, err)
	c.Release()
	require.Equal(t, int32(2), d.dials.Load())
	require.True(t, d.clients[0].quit)
}

func TestPool_Warm(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{}
	p := newTestPool(t, Config{MaxConns: 3}, d)

	require.NoError(t, p.Warm(context.Background(), 5))
	require.Equal(t, int32(3), d.dials.Load())

	total, idle := p.Stats()
	require.Equal(t, int32(3), total)
	require.Equal(t, int32(3), idle)
}

func TestPool_Ping(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{}
	p := newTestPool(t, Config{}, d)
	require.NoError(t, p.Ping(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Host: "smtp.example.com", TLS: "ssl3"})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Config{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPool_WithMailer(t *testing.T) {
	t.Parallel()

	d := &fakeDialer{}
	p := newTestPool(t, Config{MaxConns: 2}, d)

	reg, err := mailer.NewRegistry(mailer.Template{
		Name:   "hello",
		Markup: `<mjml><mj-body><mj-section><mj-column><mj-text>Hello {{name}}!</mj-text></mj-column></mj-section></mj-body></mjml>`,
	})
	require.NoError(t, err)

	m := mailer.New(reg, p, mailer.Config{FallbackSubject: "Hi"})
	err = m.Send(context.Background(), "hello", mailer.Request{From: "a@example.com", To: "b@example.com"})
	require.NoError(t, err)
	require.Contains(t, d.clients[0].data.String(), "Subject: Hi")
}
