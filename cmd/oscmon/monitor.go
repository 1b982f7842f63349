package main

import (
	"fmt"
	"io"
	"net"
	"sort"
	"sync"

	"github.com/chabad360/osc-bridge/bridge"
	"github.com/chabad360/osc-bridge/osc"
)

// monitor prints received packets and counts messages per bridge address.
type monitor struct {
	out     io.Writer
	quiet   bool
	d       osc.Dispatcher
	methods map[string]bool

	mu      sync.Mutex
	counts  map[string]int
	unknown int
}

// newMonitor registers a counting method for every address a bridge with
// the given base and parameter names emits.
func newMonitor(out io.Writer, base string, params []string, quiet bool) (*monitor, error) {
	m := &monitor{out: out, quiet: quiet, methods: make(map[string]bool), counts: make(map[string]int)}

	ns := bridge.FormatNamespace(base)
	addrs := []string{ns + "/note_on", ns + "/note_off", ns + "/audio", ns + "/midi"}
	for _, p := range params {
		addrs = append(addrs, ns+"/param/"+p)
	}
	for _, addr := range addrs {
		addr := addr
		err := m.d.AddMethodFunc(addr, func(*osc.Message) {
			m.mu.Lock()
			m.counts[addr]++
			m.mu.Unlock()
		})
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", addr, err)
		}
		m.methods[addr] = true
	}
	return m, nil
}

// handle is the osc.HandlerFunc of the monitor.
func (m *monitor) handle(packet osc.Packet, addr net.Addr) {
	if !m.quiet {
		m.print(packet, addr, "")
	}
	m.count(packet)
	m.d.Dispatch(packet, addr)
}

func (m *monitor) print(packet osc.Packet, addr net.Addr, indent string) {
	switch p := packet.(type) {
	default:
		fmt.Fprintf(m.out, "%sUnknown packet type %T\n", indent, p)

	case *osc.Message:
		fmt.Fprintf(m.out, "%s-- OSC Message (%s):\t%s\n", indent, addr, p)

	case *osc.Bundle:
		fmt.Fprintf(m.out, "%s-- OSC Bundle (%s):\tTimeTag: %v\tElements: %d\n", indent, addr, p.Timetag.Time(), len(p.Elements))
		for _, e := range p.Elements {
			m.print(e, addr, indent+"\t")
		}
	}
}

// count tracks messages that no registered method will see.
func (m *monitor) count(packet osc.Packet) {
	switch p := packet.(type) {
	case *osc.Message:
		if !m.methods[p.Address] {
			m.mu.Lock()
			m.unknown++
			m.mu.Unlock()
		}
	case *osc.Bundle:
		for _, e := range p.Elements {
			m.count(e)
		}
	}
}

// summary writes the per address counts in address order.
func (m *monitor) summary() {
	m.mu.Lock()
	defer m.mu.Unlock()

	addrs := make([]string, 0, len(m.counts))
	for a := range m.counts {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)

	fmt.Fprintln(m.out, "### summary")
	for _, a := range addrs {
		fmt.Fprintf(m.out, "%-32s %d\n", a, m.counts[a])
	}
	if m.unknown > 0 {
		fmt.Fprintf(m.out, "%-32s %d\n", "(other)", m.unknown)
	}
}

// snapshot returns a copy of the counts.
func (m *monitor) snapshot() (map[string]int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := make(map[string]int, len(m.counts))
	for k, v := range m.counts {
		c[k] = v
	}
	return c, m.unknown
}
