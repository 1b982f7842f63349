package bridge

import "sync/atomic"

// Stats counts what happened to messages on their way to the network. All
// counters are safe to read while the bridge is running.
type Stats struct {
	Enqueued        atomic.Uint64
	Dropped         atomic.Uint64
	Sent            atomic.Uint64
	Discarded       atomic.Uint64
	EncodeFailures  atomic.Uint64
	SendFailures    atomic.Uint64
	PartialSends    atomic.Uint64
	ZeroSuppressed  atomic.Uint64
	ConnectFailures atomic.Uint64
}

// StatsSnapshot is a point in time copy of Stats.
type StatsSnapshot struct {
	// Enqueued is the number of data messages accepted by the Channel.
	Enqueued uint64
	// Dropped is the number of data messages rejected by a full or closed Channel.
	Dropped uint64
	// Sent is the number of OSC messages fully written to the socket.
	Sent uint64
	// Discarded is the number of data messages received while disconnected.
	Discarded uint64
	// EncodeFailures is the number of messages that could not be encoded.
	EncodeFailures uint64
	// SendFailures is the number of socket writes that returned an error.
	SendFailures uint64
	// PartialSends is the number of socket writes shorter than the packet.
	PartialSends uint64
	// ZeroSuppressed is the number of zero audio samples not forwarded.
	ZeroSuppressed uint64
	// ConnectFailures is the number of failed destination changes.
	ConnectFailures uint64
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Enqueued:        s.Enqueued.Load(),
		Dropped:         s.Dropped.Load(),
		Sent:            s.Sent.Load(),
		Discarded:       s.Discarded.Load(),
		EncodeFailures:  s.EncodeFailures.Load(),
		SendFailures:    s.SendFailures.Load(),
		PartialSends:    s.PartialSends.Load(),
		ZeroSuppressed:  s.ZeroSuppressed.Load(),
		ConnectFailures: s.ConnectFailures.Load(),
	}
}

// countingSender wraps a Sender and records enqueue outcomes.
type countingSender struct {
	s     Sender
	stats *Stats
}

func (c *countingSender) TrySend(m Message) error {
	if err := c.s.TrySend(m); err != nil {
		c.stats.Dropped.Add(1)
		return err
	}
	c.stats.Enqueued.Add(1)
	return nil
}
