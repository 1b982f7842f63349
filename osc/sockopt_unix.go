//go:build unix

package osc

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// broadcastControl enables SO_BROADCAST on the raw socket.
func broadcastControl(_, _ string, rc syscall.RawConn) error {
	var serr error
	err := rc.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return serr
}

// setBroadcast enables SO_BROADCAST on an already bound socket.
func setBroadcast(c *net.UDPConn) error {
	rc, err := c.SyscallConn()
	if err != nil {
		return err
	}
	return broadcastControl("", "", rc)
}
