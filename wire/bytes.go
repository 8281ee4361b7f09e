package wire

import (
	"unicode/utf8"
)

// ConsumeBytes reads a length-delimited value and returns a view into b
// (no copy) along with the total number of bytes consumed.
func ConsumeBytes(b []byte) ([]byte, int, error) {
	length, n, err := ConsumeVarint32(b)
	if err != nil {
		return nil, 0, err
	}
	if uint64(length) > uint64(len(b)-n) {
		return nil, 0, ErrTruncated
	}
	end := n + int(length)
	return b[n:end:end], end, nil
}

// ValidateUTF8 reports ErrInvalidUTF8 if b is not well-formed UTF-8.
// Encoded surrogate halves (ED A0 80 .. ED BF BF) are rejected.
func ValidateUTF8(b []byte) error {
	if !utf8.Valid(b) {
		return ErrInvalidUTF8
	}
	return nil
}
