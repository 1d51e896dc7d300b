package wire

import (
	"fmt"
	"io"
)

// Buffer collects one outbound frame. The first encoding error sticks and is
// reported by WriteTo, so callers can chain appends.
type Buffer struct {
	framing Framing
	b       []byte
	err     error
}

func NewBuffer(f Framing) *Buffer {
	return &Buffer{framing: f}
}

func (b *Buffer) Uint(x uint64) *Buffer {
	if b.err != nil {
		return b
	}
	b.b, b.err = b.framing.Append(b.b, x)
	return b
}

func (b *Buffer) Int(x int) *Buffer {
	if x < 0 {
		if b.err == nil {
			b.err = fmt.Errorf("negative value %d cannot be encoded", x)
		}
		return b
	}
	return b.Uint(uint64(x))
}

func (b *Buffer) Name(name string, width int) *Buffer {
	if b.err != nil {
		return b
	}
	b.b = AppendName(b.b, name, width)
	return b
}

func (b *Buffer) Bytes() ([]byte, error) {
	return b.b, b.err
}

func (b *Buffer) Len() int {
	return len(b.b)
}

// WriteTo writes the whole frame with a single Write call.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	if b.err != nil {
		return 0, b.err
	}
	n, err := w.Write(b.b)
	if err != nil {
		return int64(n), fmt.Errorf("%w: write: %w", ErrTransport, err)
	}
	return int64(n), nil
}
