//go:build !unix

package osc

import (
	"net"
	"syscall"
)

// broadcastControl is a no-op, the runtime enables broadcast on datagram
// sockets by default on these platforms.
func broadcastControl(_, _ string, _ syscall.RawConn) error { return nil }

func setBroadcast(_ *net.UDPConn) error { return nil }
