package broker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Conn is the subset of a live connection the broker needs: write one
// framed message, or close the connection. The server package owns the
// actual transport (a WebSocket) and satisfies this interface so the
// broker never imports a transport library directly.
type Conn interface {
	WriteMessage(ctx context.Context, data []byte) error
	Close() error
}

// Client is one connected peer: an outbound FIFO queue drained by a single
// writer goroutine, so handler code (and broadcast fan-out) never blocks on
// a slow peer's socket.
type Client struct {
	ID   int
	conn Conn
	log  zerolog.Logger

	outbox  chan []byte
	done    chan struct{}
	once    sync.Once
	onClose func(*Client)
}

const outboxCapacity = 256

func newClient(id int, conn Conn, log zerolog.Logger, onClose func(*Client)) *Client {
	return &Client{
		ID:      id,
		conn:    conn,
		log:     log.With().Int("client_id", id).Logger(),
		outbox:  make(chan []byte, outboxCapacity),
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

// Send enqueues a frame for this client, dropping it silently if the client
// has already disconnected. Never blocks the caller on network I/O.
func (c *Client) Send(data []byte) {
	select {
	case <-c.done:
	case c.outbox <- data:
	}
}

// run drains the outbox until the client disconnects or the context is
// cancelled, writing each frame in turn. Returns once writing has stopped
// for good; onClose is asked to clean up subscriptions and the registry.
func (c *Client) run(ctx context.Context) {
	defer c.closeOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.outbox:
			if err := c.conn.WriteMessage(ctx, data); err != nil {
				c.log.Info().Err(err).Msg("client write failed, disconnecting")
				return
			}
		}
	}
}

func (c *Client) closeOnce() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	})
}

// Disconnect forces this client's writer loop to exit and its cleanup to
// run, as if the peer had closed the connection.
func (c *Client) Disconnect() { c.closeOnce() }
