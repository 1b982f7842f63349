package osc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unsafe"
)

const (
	bit32Size = 4
	bit64Size = 8

	// MaxPacketSize is the largest payload a single UDP datagram can carry over IPv4.
	MaxPacketSize = 65507
)

////
// De/Encoding functions
////

// parseBlob parses an OSC blob from the blob byte array. Padding bytes are
// consumed but not returned.
func parseBlob(data []byte) ([]byte, int, error) {
	if len(data) < bit32Size {
		return nil, 0, fmt.Errorf("parseBlob: %w", io.ErrUnexpectedEOF)
	}

	// First, get the length
	blobLen := int(binary.BigEndian.Uint32(data[:bit32Size]))
	n := bit32Size + blobLen
	data = data[bit32Size:]

	if blobLen < 0 || blobLen > len(data) {
		return nil, 0, fmt.Errorf("parseBlob: invalid blob length %d", blobLen)
	}

	n += padBytesNeeded(n)
	if n > len(data)+bit32Size {
		return nil, 0, fmt.Errorf("parseBlob: missing padding for blob of length %d", blobLen)
	}

	return data[:blobLen], n, nil
}

// appendBlob appends data as an OSC blob to b. If the length of data isn't
// 32-bit aligned, padding bytes are added.
func appendBlob(b []byte, data []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(data)))
	b = append(b, data...)

	return appendPadding(b, bit32Size+len(data))
}

// parsePaddedString reads a padded string from the given slice and returns the
// string and the number of bytes read. The string shares memory with data.
func parsePaddedString(data []byte) (string, int, error) {
	pos := bytes.IndexByte(data, 0)
	if pos == -1 {
		return "", 0, fmt.Errorf("parsePaddedString: %w", io.EOF)
	}

	str := data[:pos]
	n := pos + 1 + padBytesNeeded(pos+1)
	if n > len(data) {
		return "", 0, fmt.Errorf("parsePaddedString: %w", io.ErrUnexpectedEOF)
	}

	return *(*string)(unsafe.Pointer(&str)), n, nil
}

// appendPaddedString appends a null terminated string with padding bytes to b.
func appendPaddedString(b []byte, str string) []byte {
	b = append(b, str...)
	b = append(b, 0)

	return appendPadding(b, len(str)+1)
}

// appendTypeTags appends the typetag string for elems to b.
func appendTypeTags(b []byte, elems []interface{}) ([]byte, error) {
	start := len(b)
	b = append(b, ',')
	for _, elem := range elems {
		s := ToTypeTag(elem)
		if s == TypeInvalid {
			return b[:start], fmt.Errorf("appendTypeTags: unsupported type: %T", elem)
		}
		b = append(b, byte(s))
	}
	b = append(b, 0)

	return appendPadding(b, len(b)-start), nil
}

// appendArgument appends the binary representation of a single argument to b.
// Arguments that are fully described by their typetag append nothing.
func appendArgument(b []byte, arg interface{}) ([]byte, error) {
	switch t := arg.(type) {
	default:
		return b, fmt.Errorf("appendArgument: unsupported type: %T", t)

	case bool, nil:
		return b, nil
	case int32:
		return binary.BigEndian.AppendUint32(b, uint32(t)), nil
	case float32:
		return binary.BigEndian.AppendUint32(b, math.Float32bits(t)), nil
	case int64:
		return binary.BigEndian.AppendUint64(b, uint64(t)), nil
	case float64:
		return binary.BigEndian.AppendUint64(b, math.Float64bits(t)), nil
	case string:
		return appendPaddedString(b, t), nil
	case []byte:
		return appendBlob(b, t), nil
	case Timetag:
		return binary.BigEndian.AppendUint64(b, uint64(t)), nil
	case MIDI:
		return append(b, t[:]...), nil
	}
}

// appendPadding pads b with zeroes so that an element of elementLen bytes
// ends on a 4 byte boundary.
func appendPadding(b []byte, elementLen int) []byte {
	for i := padBytesNeeded(elementLen); i > 0; i-- {
		b = append(b, 0)
	}
	return b
}

// padBytesNeeded determines how many bytes are needed to fill up to the next 4
// byte length.
func padBytesNeeded(elementLen int) int {
	return (4 - (elementLen % 4)) % 4
}
