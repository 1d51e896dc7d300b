package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PreambleSize is the number of raw bytes the server sends before anything
// else: integer width, then the endianness flag.
const PreambleSize = 2

// Framing is the integer layout negotiated at the start of a session. It is
// a plain value and never changes once read.
type Framing struct {
	Width        int
	LittleEndian bool
}

func (f Framing) Validate() error {
	switch f.Width {
	case 1, 2, 4, 8:
		return nil
	}
	return fmt.Errorf("%w: unsupported integer width %d", ErrProtocol, f.Width)
}

// byteOrder is what binary.LittleEndian and binary.BigEndian both provide.
type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

func (f Framing) order() byteOrder {
	if f.LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Max is the largest value one integer field can carry.
func (f Framing) Max() uint64 {
	if f.Width >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*uint(f.Width)) - 1
}

func (f Framing) String() string {
	endian := "big"
	if f.LittleEndian {
		endian = "little"
	}
	return fmt.Sprintf("%d-byte %s-endian", f.Width, endian)
}

// Append encodes x onto dst.
func (f Framing) Append(dst []byte, x uint64) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return dst, err
	}
	if x > f.Max() {
		return dst, fmt.Errorf("value %d does not fit in %d bytes", x, f.Width)
	}

	switch f.Width {
	case 1:
		return append(dst, byte(x)), nil
	case 2:
		return f.order().AppendUint16(dst, uint16(x)), nil
	case 4:
		return f.order().AppendUint32(dst, uint32(x)), nil
	default:
		return f.order().AppendUint64(dst, x), nil
	}
}

func (f Framing) Encode(x uint64) ([]byte, error) {
	return f.Append(make([]byte, 0, f.Width), x)
}

func (f Framing) Decode(b []byte) (uint64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	if len(b) != f.Width {
		return 0, fmt.Errorf("%w: %d bytes for a %d-byte integer", ErrProtocol, len(b), f.Width)
	}

	switch f.Width {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(f.order().Uint16(b)), nil
	case 4:
		return uint64(f.order().Uint32(b)), nil
	default:
		return f.order().Uint64(b), nil
	}
}

// ParsePreamble turns the two raw preamble bytes into a Framing.
func ParsePreamble(width, endian byte) (Framing, error) {
	f := Framing{Width: int(width), LittleEndian: endian != 0}
	if err := f.Validate(); err != nil {
		return Framing{}, err
	}
	return f, nil
}

func ReadPreamble(r io.Reader) (Framing, error) {
	var raw [PreambleSize]byte
	if err := readFull(r, raw[:]); err != nil {
		return Framing{}, err
	}
	return ParsePreamble(raw[0], raw[1])
}

// AppendPreamble is the server side of ReadPreamble, used by tools and fakes.
func AppendPreamble(dst []byte, f Framing) []byte {
	endian := byte(0)
	if f.LittleEndian {
		endian = 1
	}
	return append(dst, byte(f.Width), endian)
}
