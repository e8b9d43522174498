package vrnet

import (
	"context"
	"errors"

	"vrrelay/pkg/vrevent"
)

// Follow hands every received event to handle until a shutdown event
// arrives, ctx is cancelled, or the connection fails. Undecodable frames are
// skipped. The shutdown event itself is passed to handle before Follow
// returns nil.
func (c *Conn) Follow(ctx context.Context, handle func(vrevent.Event)) error {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	for {
		e, err := c.ReceiveEvent(0)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, vrevent.ErrDecode) {
				continue
			}
			return err
		}
		handle(e)
		if vrevent.IsShutdown(e.Name()) {
			return nil
		}
	}
}
