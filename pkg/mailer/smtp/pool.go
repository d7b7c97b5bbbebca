// Package smtp implements mailer.Pool over pooled net/smtp sessions.
package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	netsmtp "net/smtp"
	"strconv"
	"time"

	"github.com/jackc/puddle/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

var (
	ErrInvalidConfig    = errors.New("smtp: invalid config")
	ErrStartTLSRequired = errors.New("smtp: server does not support STARTTLS")
)

// client is the part of *net/smtp.Client the pool drives.
type client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Reset() error
	Noop() error
	Quit() error
	Close() error
}

// session is one pooled connection. nc, when set, is the transport under
// the client and bounds each transaction with the caller's context.
type session struct {
	client
	nc interface{ SetDeadline(t time.Time) error }
}

type dialFunc func(ctx context.Context) (*session, error)

// Pool is a bounded pool of authenticated SMTP sessions.
// It implements mailer.Pool.
type Pool struct {
	pool   *puddle.Pool[*session]
	dial   dialFunc
	logger *slog.Logger
	cfg    Config
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

func withDialer(d dialFunc) Option {
	return func(p *Pool) {
		p.dial = d
	}
}

// New creates a pool. No connection is opened until the first Acquire or Warm.
func New(cfg Config, opts ...Option) (*Pool, error) {
	switch cfg.TLS {
	case "":
		cfg.TLS = TLSStartTLS
	case TLSNone, TLSStartTLS, TLSImplicit:
	default:
		return nil, fmt.Errorf("%w: unknown TLS mode %q", ErrInvalidConfig, cfg.TLS)
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 1
	}

	p := &Pool{cfg: cfg, logger: slog.Default()}
	p.dial = p.dialSMTP
	for _, opt := range opts {
		opt(p)
	}

	pool, err := puddle.NewPool(&puddle.Config[*session]{
		Constructor: func(ctx context.Context) (*session, error) {
			return p.dial(ctx)
		},
		Destructor: func(c *session) {
			if err := c.Quit(); err != nil {
				_ = c.Close()
			}
		},
		MaxSize: cfg.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	p.pool = pool
	return p, nil
}

// Acquire checks out a session, dialing one if none is idle.
// Sessions idle longer than Config.IdleCheck are probed first and replaced when dead.
func (p *Pool) Acquire(ctx context.Context) (mailer.Conn, error) {
	if p.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}

	for {
		res, err := p.pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		if p.cfg.IdleCheck > 0 && res.IdleDuration() > p.cfg.IdleCheck {
			if err := res.Value().Noop(); err != nil {
				p.logger.DebugContext(ctx, "dropping stale smtp connection", slog.String("error", err.Error()))
				res.Destroy()
				continue
			}
		}
		return &conn{res: res, logger: p.logger}, nil
	}
}

// Ping checks that a session can be checked out and answers NOOP.
func (p *Pool) Ping(ctx context.Context) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	sc := c.(*conn)
	if err := sc.res.Value().Noop(); err != nil {
		sc.broken = true
		sc.Release()
		return fmt.Errorf("smtp: noop: %w", err)
	}
	sc.Release()
	return nil
}

// Warm opens n sessions up front, bounded by MaxConns.
func (p *Pool) Warm(ctx context.Context, n int) error {
	n = min(n, int(p.cfg.MaxConns))
	g, ctx := errgroup.WithContext(ctx)
	for range n {
		g.Go(func() error {
			return p.pool.CreateResource(ctx)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("smtp: warm pool: %w", err)
	}
	return nil
}

// Stats reports the number of open and idle sessions.
func (p *Pool) Stats() (total, idle int32) {
	s := p.pool.Stat()
	return s.TotalResources(), s.IdleResources()
}

// Close waits for checked-out sessions to be released and closes all of them.
func (p *Pool) Close() error {
	p.pool.Close()
	return nil
}

func (p *Pool) dialSMTP(ctx context.Context) (*session, error) {
	addr := net.JoinHostPort(p.cfg.Host, strconv.Itoa(p.cfg.Port))
	tlsConfig := &tls.Config{ServerName: p.cfg.Host, MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: p.cfg.DialTimeout}

	var (
		nc  net.Conn
		err error
	)
	if p.cfg.TLS == TLSImplicit {
		nc, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		nc, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("smtp: dial %s: %w", addr, err)
	}

	c, err := netsmtp.NewClient(nc, p.cfg.Host)
	if err != nil {
		_ = nc.Close()
		return nil, fmt.Errorf("smtp: greeting: %w", err)
	}
	if err := p.handshake(c, tlsConfig); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &session{client: c, nc: nc}, nil
}

func (p *Pool) handshake(c *netsmtp.Client, tlsConfig *tls.Config) error {
	if err := c.Hello(p.cfg.LocalName); err != nil {
		return fmt.Errorf("smtp: hello: %w", err)
	}
	if p.cfg.TLS == TLSStartTLS {
		if ok, _ := c.Extension("STARTTLS"); !ok {
			return ErrStartTLSRequired
		}
		if err := c.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("smtp: starttls: %w", err)
		}
	}
	if p.cfg.Username != "" {
		auth := netsmtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp: auth: %w", err)
		}
	}
	return nil
}

// conn is a checked-out session.
type conn struct {
	res    *puddle.Resource[*session]
	logger *slog.Logger
	broken bool
}

// Send runs one MAIL/RCPT/DATA transaction and resets the session.
// The transaction is bounded by ctx: its deadline applies to the connection
// and cancellation interrupts blocked I/O. A session that was interrupted or
// cannot be reset is destroyed on Release.
func (c *conn) Send(ctx context.Context, msg *mailer.Message) error {
	from, to, err := msg.Envelope()
	if err != nil {
		return err
	}
	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("smtp: encode message: %w", err)
	}

	cl := c.res.Value()
	if cl.nc != nil {
		if dl, ok := ctx.Deadline(); ok {
			_ = cl.nc.SetDeadline(dl)
		}
		stop := context.AfterFunc(ctx, func() {
			_ = cl.nc.SetDeadline(time.Now())
		})
		defer func() {
			if !stop() {
				c.broken = true
			}
			_ = cl.nc.SetDeadline(time.Time{})
		}()
	}

	sendErr := transaction(cl, from, to, raw)
	if sendErr != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), sendErr)
	}
	if err := cl.Reset(); err != nil {
		c.broken = true
		c.logger.DebugContext(ctx, "smtp session reset failed", slog.String("error", err.Error()))
	}
	return sendErr
}

func transaction(cl client, from string, to []string, raw []byte) error {
	if err := cl.Mail(from); err != nil {
		return fmt.Errorf("smtp: mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := cl.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp: rcpt to %s: %w", rcpt, err)
		}
	}
	w, err := cl.Data()
	if err != nil {
		return fmt.Errorf("smtp: data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp: end data: %w", err)
	}
	return nil
}

func (c *conn) Release() {
	if c.broken {
		c.res.Destroy()
		return
	}
	c.res.Release()
}
