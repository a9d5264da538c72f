package cloudsync

import (
	"context"
	"time"
)

// heartbeatLoop emits a heartbeat envelope every HeartbeatInterval, counted
// from the moment the connection was established. It runs once per
// connection instance and stops when the connection's context is cancelled,
// so no heartbeat is ever attempted against a closed connection.
//
// A failed send is logged and not escalated: the read side is the
// authoritative signal of connection loss.
func (c *Client) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := c.Send(ctx, NewHeartbeat(time.Now())); err != nil {
			c.logger().Warn("heartbeat send failed", "error", err)
			continue
		}
		c.heartbeats.Add(1)
	}
}
