package mailer

import "context"

// Sender defines the minimal interface that email providers must implement.
// It accepts a fully assembled Message and handles the actual delivery.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Conn is a checked-out transport connection.
// Release must be called exactly once, after which the Conn is not used again.
type Conn interface {
	Send(ctx context.Context, msg *Message) error
	Release()
}

// Pool hands out transport connections.
type Pool interface {
	// Acquire blocks until a connection is available or ctx is done.
	Acquire(ctx context.Context) (Conn, error)
	Close() error
}

// Pinger is implemented by pools that can check their upstream.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SenderPool adapts a stateless Sender (an HTTP API client) into a Pool.
type SenderPool struct {
	sender Sender
}

// NewSenderPool wraps s. Every Acquire returns the same underlying sender.
func NewSenderPool(s Sender) *SenderPool {
	return &SenderPool{sender: s}
}

func (p *SenderPool) Acquire(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return senderConn{p.sender}, nil
}

func (p *SenderPool) Close() error { return nil }

type senderConn struct {
	Sender
}

func (senderConn) Release() {}
