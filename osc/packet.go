package osc

import (
	"encoding"
	"fmt"
)

// Packet is the interface for Message and Bundle.
type Packet interface {
	encoding.BinaryMarshaler

	// AppendBinary appends the wire representation of the packet to b.
	AppendBinary(b []byte) ([]byte, error)
}

// ParsePacket parses the given data into an OSC Packet. data is copied, the
// returned Packet does not reference it.
func ParsePacket(data []byte) (Packet, error) {
	d := make([]byte, len(data))
	copy(d, data)
	return parsePacket(d)
}

// parsePacket assumes data may be retained by the returned Packet.
func parsePacket(data []byte) (Packet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("ParsePacket: empty packet")
	}

	switch data[0] {
	case '/':
		m := &Message{}
		if err := m.unmarshalBinary(data); err != nil {
			return nil, err
		}
		return m, nil

	case '#':
		b := &Bundle{}
		if err := b.unmarshalBinary(data); err != nil {
			return nil, err
		}
		return b, nil

	default:
		return nil, fmt.Errorf("ParsePacket: invalid packet start: %q", data[0])
	}
}
