package osc

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// Method is an interface for OSC Methods.
type Method interface {
	HandleMessage(msg *Message)
}

// MethodFunc implements the Method interface. Type definition for an OSC Method function.
type MethodFunc func(msg *Message)

// HandleMessage calls itself with the given OSC Message. Implements the Method interface.
func (f MethodFunc) HandleMessage(msg *Message) {
	f(msg)
}

// Dispatcher handles the dispatching of received OSC Packets to Methods for their given Address.
type Dispatcher struct {
	mu      sync.RWMutex
	methods map[string]Method
}

// AddMethod adds a new OSC Method for the given OSC Address.
func (d *Dispatcher) AddMethod(addr string, method Method) error {
	if strings.ContainsAny(addr, "*?,[]{}# ") {
		return fmt.Errorf("AddMethod: OSC Method may not contain any characters in \"*?,[]{}# \"")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.methods == nil {
		d.methods = make(map[string]Method)
	}

	if _, ok := d.methods[addr]; ok {
		return fmt.Errorf("AddMethod: OSC Method exists already")
	}

	d.methods[addr] = method
	return nil
}

// AddMethodFunc allows you to just pass a MethodFunc.
func (d *Dispatcher) AddMethodFunc(addr string, method MethodFunc) error {
	return d.AddMethod(addr, method)
}

// Dispatch dispatches OSC Packets. Messages are delivered to every method
// whose address matches the message's address pattern, bundles are delivered
// once their time tag expires. It has the signature of a HandlerFunc.
func (d *Dispatcher) Dispatch(packet Packet, a net.Addr) {
	switch p := packet.(type) {
	case *Message:
		r, err := getRegEx(p.Address)
		if err != nil {
			return
		}
		// The OSC Spec mentions that each address is divided into parts, so we could use a radix tree here.
		r.Longest()
		aParts := strings.Count(p.Address, "/")

		d.mu.RLock()
		defer d.mu.RUnlock()
		for addr, method := range d.methods {
			if aParts == strings.Count(addr, "/") && r.FindString(addr) == addr {
				method.HandleMessage(p)
			}
		}

	case *Bundle:
		time.AfterFunc(p.Timetag.ExpiresIn(), func() {
			defer recoverer(a)
			for _, elem := range p.Elements {
				d.Dispatch(elem, a)
			}
		})
	}
}
