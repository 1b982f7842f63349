package bridge

import (
	"fmt"
	"math"

	"gitlab.com/gomidi/midi/v2"

	"github.com/chabad360/osc-bridge/config"
	"github.com/chabad360/osc-bridge/osc"
)

// NoteEncoding selects how note events are put on the wire.
type NoteEncoding uint8

const (
	// NoteTyped sends {base}/note_on and {base}/note_off with i i f arguments.
	NoteTyped NoteEncoding = iota
	// NoteMIDI sends {base}/midi with a single packed MIDI argument.
	NoteMIDI
)

func (e NoteEncoding) String() string {
	if e == NoteMIDI {
		return config.NoteEncodingMIDI
	}
	return config.NoteEncodingTyped
}

// ParseNoteEncoding converts a settings value into a NoteEncoding. The
// empty string selects NoteTyped.
func ParseNoteEncoding(s string) (NoteEncoding, error) {
	switch s {
	case "", config.NoteEncodingTyped:
		return NoteTyped, nil
	case config.NoteEncodingMIDI:
		return NoteMIDI, nil
	}
	return NoteTyped, fmt.Errorf("bridge: unknown note encoding %q", s)
}

// FormatNamespace turns an address base into the prefix of every outgoing
// address: "" stays empty, anything else gains a leading slash.
func FormatNamespace(base string) string {
	if base == "" {
		return ""
	}
	return "/" + base
}

// Encode builds the OSC message for a data Message under the formatted
// namespace ns.
func Encode(ns string, m Message, enc NoteEncoding) (*osc.Message, error) {
	msg := &osc.Message{}
	if err := encodeInto(msg, ns, m, enc); err != nil {
		return nil, err
	}
	return msg, nil
}

// encodeInto fills dst, reusing its argument storage.
func encodeInto(dst *osc.Message, ns string, m Message, enc NoteEncoding) error {
	dst.Clear()

	switch m.Kind {
	case KindParamChanged:
		if m.Name == "" {
			return fmt.Errorf("bridge: encode %s: empty parameter name", m.Kind)
		}
		dst.Address = ns + "/param/" + m.Name
		dst.Arguments = append(dst.Arguments, m.Value)

	case KindNoteOn, KindNoteOff:
		if enc == NoteMIDI {
			dst.Address = ns + "/midi"
			dst.Arguments = append(dst.Arguments, packMIDI(m))
			return nil
		}
		if m.Kind == KindNoteOn {
			dst.Address = ns + "/note_on"
		} else {
			dst.Address = ns + "/note_off"
		}
		dst.Arguments = append(dst.Arguments, int32(m.Channel), int32(m.Note), m.Velocity)

	case KindAudioSample:
		dst.Address = ns + "/audio"
		dst.Arguments = append(dst.Arguments, m.Value)

	default:
		return fmt.Errorf("bridge: encode: %s is not a data message", m.Kind)
	}

	return nil
}

// packMIDI converts a note event to an OSC MIDI argument on port 0 with a
// 7-bit velocity.
func packMIDI(m Message) osc.MIDI {
	ch, key := m.Channel&0x0f, m.Note&0x7f
	vel := uint8(math.Round(float64(min(max(m.Velocity, 0), 1)) * 127))

	var raw midi.Message
	if m.Kind == KindNoteOn {
		raw = midi.NoteOn(ch, key, vel)
	} else {
		raw = midi.NoteOffVelocity(ch, key, vel)
	}
	return osc.NewMIDI(0, raw)
}
