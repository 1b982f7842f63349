package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	controlTimeout = 100 * time.Millisecond
	maxLogLines    = 100
)

// Controller is the editor facing side of an Engine. It updates the
// persisted settings and forwards the change to the running worker through
// the same Channel the realtime path uses.
type Controller struct {
	e *Engine

	mu    sync.Mutex
	lines []string
}

// SetConnection changes the destination host and port.
func (c *Controller) SetConnection(host string, port int) error {
	if port <= 0 || port > 65535 {
		c.logf("Invalid port: %d", port)
		return fmt.Errorf("bridge: invalid port %d", port)
	}

	c.e.mu.Lock()
	c.e.settings.ServerAddress = host
	c.e.settings.ServerPort = port
	c.e.mu.Unlock()

	c.logf("Connecting to: %s:%d", host, port)
	if err := c.send(ConnectionChange(host, port)); err != nil {
		c.logf("Failed change connection: %v", err)
		return err
	}
	return nil
}

// SetAddressBase changes the namespace prepended to every address.
func (c *Controller) SetAddressBase(base string) error {
	c.e.mu.Lock()
	c.e.settings.AddressBase = base
	c.e.mu.Unlock()

	c.logf("Base Address changed to: %s", base)
	if err := c.send(AddressBaseChange(base)); err != nil {
		c.logf("Failed to update base address: %v", err)
		return err
	}
	return nil
}

// Log returns the lines written so far, oldest first.
func (c *Controller) Log() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

// send waits briefly for room in the queue. Without a running worker the
// new settings are used by the next start and nil is returned.
func (c *Controller) send(m Message) error {
	ch := c.e.ch.Load()
	if ch == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()
	return ch.Send(ctx, m)
}

func (c *Controller) logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	c.e.log.Info(line)

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lines) == maxLogLines {
		copy(c.lines, c.lines[1:])
		c.lines = c.lines[:maxLogLines-1]
	}
	c.lines = append(c.lines, line)
}
