package wire

// Varint encoding/decoding. These functions own no buffer; the Decoder and
// Encoder call them against their own storage.

const (
	// MaxVarint32Len is the maximum length of a varint holding a 32-bit value.
	MaxVarint32Len = 5
	// MaxVarintLen is the maximum length of a varint holding a 64-bit value.
	MaxVarintLen = 10
)

// ConsumeVarint32 parses a varint whose value must fit in 32 bits.
//
// It rejects encodings longer than 5 bytes, values of 2^32 or more, and
// non-minimal encodings (a multi-byte varint ending in 0x00). It returns the
// value and the number of bytes consumed.
func ConsumeVarint32(b []byte) (uint32, int, error) {
	var result uint64
	var shift uint
	for i := 0; ; i++ {
		if i >= len(b) {
			return 0, 0, ErrTruncated
		}
		c := b[i]
		result |= uint64(c&0x7F) << shift
		if result >= 1<<32 {
			return 0, 0, ErrVarintOverflow
		}
		if c&0x80 == 0 {
			// A single 0x00 is the only valid encoding of zero.
			if c == 0 && i > 0 {
				return 0, 0, ErrVarintNonMinimal
			}
			return uint32(result), i + 1, nil
		}
		shift += 7
		if shift >= 32 {
			return 0, 0, ErrVarintOverflow
		}
	}
}

// ConsumeVarint parses a varint whose value must fit in 64 bits, with the
// same minimality rules as ConsumeVarint32 and a 10-byte limit.
func ConsumeVarint(b []byte) (uint64, int, error) {
	var result uint64
	var shift uint
	for i := 0; ; i++ {
		if i >= len(b) {
			return 0, 0, ErrTruncated
		}
		c := b[i]
		if shift == 63 && c&0x7F > 1 {
			return 0, 0, ErrVarintOverflow
		}
		result |= uint64(c&0x7F) << shift
		if c&0x80 == 0 {
			if c == 0 && i > 0 {
				return 0, 0, ErrVarintNonMinimal
			}
			return result, i + 1, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, 0, ErrVarintOverflow
		}
	}
}

// AppendVarint appends the varint encoding of v to b.
func AppendVarint(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// PutVarint writes the varint encoding of v at the start of b and returns
// the number of bytes written. b must hold at least SizeVarint(v) bytes.
func PutVarint(b []byte, v uint64) int {
	i := 0
	for v >= 0x80 {
		b[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	b[i] = byte(v)
	return i + 1
}

// SizeVarint returns the number of bytes needed to encode v as a varint.
func SizeVarint(v uint64) int {
	switch {
	case v < 1<<7:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<21:
		return 3
	case v < 1<<28:
		return 4
	case v < 1<<35:
		return 5
	case v < 1<<42:
		return 6
	case v < 1<<49:
		return 7
	case v < 1<<56:
		return 8
	case v < 1<<63:
		return 9
	default:
		return 10
	}
}

// ZIGZAG AND TWO'S COMPLEMENT

// EncodeZigZag32 maps a signed 32-bit integer so small magnitudes stay small:
// (v << 1) ^ (v >> 31).
func EncodeZigZag32(v int32) uint32 {
	return uint32(v<<1) ^ uint32(v>>31)
}

// DecodeZigZag32 inverts EncodeZigZag32: (u >> 1) ^ -(u & 1).
func DecodeZigZag32(u uint32) int32 {
	return int32(u>>1) ^ -int32(u&1)
}

// EncodeZigZag64 is the 64-bit form of EncodeZigZag32.
func EncodeZigZag64(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// DecodeZigZag64 is the 64-bit form of DecodeZigZag32.
func DecodeZigZag64(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// EncodeTwos32 reinterprets the bits of v as unsigned.
func EncodeTwos32(v int32) uint32 { return uint32(v) }

// DecodeTwos32 reinterprets the bits of u as signed.
func DecodeTwos32(u uint32) int32 { return int32(u) }

// EncodeTwos64 reinterprets the bits of v as unsigned.
func EncodeTwos64(v int64) uint64 { return uint64(v) }

// DecodeTwos64 reinterprets the bits of u as signed.
func DecodeTwos64(u uint64) int64 { return int64(u) }
