package wire

import (
	"errors"
	"fmt"
	"io"
)

// Reader decodes integers and names from a byte stream. Every read is
// exact-length: it blocks until all bytes arrive or fails with ErrTransport.
type Reader struct {
	r       io.Reader
	framing Framing
	buf     [8]byte
}

func NewReader(r io.Reader, f Framing) *Reader {
	return &Reader{r: r, framing: f}
}

func (r *Reader) Framing() Framing {
	return r.framing
}

func (r *Reader) Uint() (uint64, error) {
	b := r.buf[:r.framing.Width]
	if err := readFull(r.r, b); err != nil {
		return 0, err
	}
	return r.framing.Decode(b)
}

// Int reads one integer field and rejects values above limit, so a corrupt
// count never turns into a huge allocation.
func (r *Reader) Int(field string, limit int) (int, error) {
	v, err := r.Uint()
	if err != nil {
		return 0, err
	}
	if v > uint64(limit) {
		return 0, fmt.Errorf("%w: %s = %d exceeds %d", ErrProtocol, field, v, limit)
	}
	return int(v), nil
}

func (r *Reader) Name(width int) (string, error) {
	block := make([]byte, width)
	if err := readFull(r.r, block); err != nil {
		return "", err
	}
	return ParseName(block), nil
}

func readFull(r io.Reader, b []byte) error {
	n, err := io.ReadFull(r, b)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) && n == 0 {
		return fmt.Errorf("%w: connection closed: %w", ErrTransport, err)
	}
	return fmt.Errorf("%w: read %d of %d bytes: %w", ErrTransport, n, len(b), err)
}
