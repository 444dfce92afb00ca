package websocket

import (
	"context"
	"time"

	"taskchat/internal/metrics"
	"taskchat/pkg/logger"
)

// Monitor probes every registered connection on a fixed interval. A
// connection that has not answered the previous ping by the next tick is
// terminated.
type Monitor struct {
	registry *Registry
	interval time.Duration
}

func NewMonitor(registry *Registry, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		registry: registry,
		interval: interval,
	}
}

// Run ticks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Tick runs one liveness pass and returns the number of terminated
// connections.
func (m *Monitor) Tick() int {
	terminated := 0
	for _, c := range m.registry.Clients() {
		if !c.alive.Swap(false) {
			if m.terminate(c) {
				terminated++
			}
			continue
		}
		c.queuePing()
	}
	return terminated
}

func (m *Monitor) terminate(c *Client) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic terminating connection %s: %v", c.ID, r)
			ok = false
		}
	}()

	logger.Info("Terminating unresponsive connection %s for user %d, last pong %s ago",
		c.ID, c.Identity.UserID, time.Since(c.LastPong()).Round(time.Second))
	c.Close()
	metrics.LivenessTerminations.Inc()
	return true
}
