package wire

import (
	"bytes"
	"unicode/utf8"
)

// AppendName writes name as a block of exactly width bytes. Longer names are
// cut at the last complete UTF-8 sequence that fits; the rest is NUL padding.
func AppendName(dst []byte, name string, width int) []byte {
	b := []byte(name)
	if len(b) > width {
		b = b[:width]
		for len(b) > 0 && !utf8.Valid(b) {
			b = b[:len(b)-1]
		}
	}

	dst = append(dst, b...)
	for i := len(b); i < width; i++ {
		dst = append(dst, 0)
	}
	return dst
}

// ParseName reads a NUL padded name block.
func ParseName(block []byte) string {
	if i := bytes.IndexByte(block, 0); i >= 0 {
		block = block[:i]
	}
	return string(bytes.ToValidUTF8(block, []byte("�")))
}
