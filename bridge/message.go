package bridge

import "fmt"

// Kind discriminates a Message.
type Kind uint8

const (
	KindExit Kind = iota
	KindConnectionChange
	KindAddressBaseChange
	KindParamChanged
	KindNoteOn
	KindNoteOff
	KindAudioSample
)

var kindNames = [...]string{
	KindExit:              "exit",
	KindConnectionChange:  "connection_change",
	KindAddressBaseChange: "address_base_change",
	KindParamChanged:      "param_changed",
	KindNoteOn:            "note_on",
	KindNoteOff:           "note_off",
	KindAudioSample:       "audio_sample",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Message is a value passed from producers to the Worker. Only the fields
// belonging to Kind are meaningful. Messages are plain values so sending
// one never allocates.
type Message struct {
	Kind Kind

	// KindConnectionChange
	Host string
	Port int

	// KindAddressBaseChange
	Namespace string

	// KindParamChanged: Name and Value. KindAudioSample: Value.
	Name  string
	Value float32

	// KindNoteOn, KindNoteOff
	Channel  uint8
	Note     uint8
	Velocity float32
}

// Exit returns the terminal message. The Worker stops on it.
func Exit() Message { return Message{Kind: KindExit} }

// ConnectionChange returns a message that moves the Worker's destination.
func ConnectionChange(host string, port int) Message {
	return Message{Kind: KindConnectionChange, Host: host, Port: port}
}

// AddressBaseChange returns a message that replaces the address namespace.
func AddressBaseChange(namespace string) Message {
	return Message{Kind: KindAddressBaseChange, Namespace: namespace}
}

// ParamChanged returns a parameter value update.
func ParamChanged(name string, value float32) Message {
	return Message{Kind: KindParamChanged, Name: name, Value: value}
}

// NoteOn returns a note on event.
func NoteOn(channel, note uint8, velocity float32) Message {
	return Message{Kind: KindNoteOn, Channel: channel, Note: note, Velocity: velocity}
}

// NoteOff returns a note off event.
func NoteOff(channel, note uint8, velocity float32) Message {
	return Message{Kind: KindNoteOff, Channel: channel, Note: note, Velocity: velocity}
}

// AudioSample returns a single downsampled audio value.
func AudioSample(value float32) Message {
	return Message{Kind: KindAudioSample, Value: value}
}

// IsData reports whether m carries telemetry rather than control.
func (m Message) IsData() bool {
	switch m.Kind {
	case KindParamChanged, KindNoteOn, KindNoteOff, KindAudioSample:
		return true
	}
	return false
}

func (m Message) String() string {
	switch m.Kind {
	case KindConnectionChange:
		return fmt.Sprintf("%s{%s:%d}", m.Kind, m.Host, m.Port)
	case KindAddressBaseChange:
		return fmt.Sprintf("%s{%q}", m.Kind, m.Namespace)
	case KindParamChanged:
		return fmt.Sprintf("%s{%s=%g}", m.Kind, m.Name, m.Value)
	case KindNoteOn, KindNoteOff:
		return fmt.Sprintf("%s{ch=%d note=%d vel=%g}", m.Kind, m.Channel, m.Note, m.Velocity)
	case KindAudioSample:
		return fmt.Sprintf("%s{%g}", m.Kind, m.Value)
	}
	return m.Kind.String()
}
