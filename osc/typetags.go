package osc

type TypeTag rune

const (
	TypeString  TypeTag = 's'
	TypeInt32   TypeTag = 'i'
	TypeInt64   TypeTag = 'h'
	TypeFloat32 TypeTag = 'f'
	TypeFloat64 TypeTag = 'd'
	TypeBlob    TypeTag = 'b'
	TypeTimeTag TypeTag = 't'
	TypeMIDI    TypeTag = 'm'
	TypeNil     TypeTag = 'N'
	TypeTrue    TypeTag = 'T'
	TypeFalse   TypeTag = 'F'
	TypeInvalid TypeTag = 0
)

// MIDI is a 4 byte MIDI message argument: port id, status byte, data1, data2.
type MIDI [4]byte

// NewMIDI packs a raw MIDI message of up to three bytes for the given port.
// Bytes beyond the third are ignored.
func NewMIDI(port byte, raw []byte) MIDI {
	m := MIDI{port}
	copy(m[1:], raw)
	return m
}

// Port returns the port id.
func (m MIDI) Port() byte { return m[0] }

// Status returns the MIDI status byte.
func (m MIDI) Status() byte { return m[1] }

// Data returns the two MIDI data bytes.
func (m MIDI) Data() (byte, byte) { return m[2], m[3] }

// ToTypeTag returns the OSC TypeTag for the given argument.
// Returns TypeInvalid if the argument type is unsupported.
func ToTypeTag(arg interface{}) TypeTag {
	switch t := arg.(type) {
	case bool:
		if t {
			return TypeTrue
		}
		return TypeFalse
	case nil:
		return TypeNil
	case int32:
		return TypeInt32
	case float32:
		return TypeFloat32
	case string:
		return TypeString
	case []byte:
		return TypeBlob
	case int64:
		return TypeInt64
	case float64:
		return TypeFloat64
	case Timetag:
		return TypeTimeTag
	case MIDI:
		return TypeMIDI
	default:
		return TypeInvalid
	}
}

// GetTypeTag returns the OSC TypeTag string for the given slice.
func GetTypeTag(i []interface{}) (string, error) {
	tt, err := appendTypeTags(make([]byte, 0, len(i)+4), i)
	if err != nil {
		return "", err
	}
	// drop the terminator and padding
	end := 1 + len(i)
	return string(tt[:end]), nil
}
