package clientmirror

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// Conn drives one Mirror against a WebSocket endpoint for the lifetime of
// ctx, reconnecting with exponential backoff whenever the socket drops.
// Every (re)connect calls Mirror.resubscribeAll so the server's view of
// this client's subscriptions is rebuilt from scratch.
type Conn struct {
	url    string
	mirror *Mirror
	log    zerolog.Logger
}

// NewConn binds mirror to url. Run does not connect until called.
func NewConn(url string, mirror *Mirror, log zerolog.Logger) *Conn {
	return &Conn{url: url, mirror: mirror, log: log}
}

// Run connects and serves until ctx is cancelled, reconnecting on every
// drop. It only returns once ctx is done; transient dial/read failures are
// retried forever rather than surfaced as an error.
func (c *Conn) Run(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0 // retry indefinitely; ctx cancellation is the only way out

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		ws, _, err := websocket.Dial(ctx, c.url, nil)
		if err != nil {
			wait := policy.NextBackOff()
			c.log.Warn().Err(err).Dur("retry_in", wait).Msg("dial failed")
			if !sleep(ctx, wait) {
				return ctx.Err()
			}
			continue
		}
		policy.Reset()

		c.mirror.SetSender(func(data []byte) error {
			return ws.Write(ctx, websocket.MessageText, data)
		})
		c.mirror.resubscribeAll()

		err = c.readLoop(ctx, ws)
		c.mirror.SetSender(nil)

		if ctx.Err() != nil {
			_ = ws.Close(websocket.StatusNormalClosure, "shutting down")
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("connection lost, reconnecting")
	}
}

func (c *Conn) readLoop(ctx context.Context, ws *websocket.Conn) error {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return err
		}
		if err := c.mirror.HandleFrame(data); err != nil {
			c.log.Warn().Err(err).Msg("failed to handle frame")
		}
	}
}

// sleep waits for d or ctx cancellation, returning false in the latter
// case so callers can distinguish "done sleeping" from "give up".
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
