package wire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

var varintSamples = []uint64{
	0, 1, 127, 128, 255, 300, 16383, 16384, 1<<21 - 1, 1 << 21,
	1<<28 - 1, 1 << 28, math.MaxUint32, 1 << 32, 1<<35 - 1, 1 << 35,
	1<<56 - 1, 1 << 56, 1<<63 - 1, 1 << 63, math.MaxUint64,
}

func TestVarint_MatchesReference(t *testing.T) {
	for _, v := range varintSamples {
		want := protowire.AppendVarint(nil, v)
		got := AppendVarint(nil, v)
		require.Equal(t, want, got, "value %d", v)
		assert.Equal(t, len(want), SizeVarint(v), "size of %d", v)

		buf := make([]byte, MaxVarintLen)
		n := PutVarint(buf, v)
		assert.Equal(t, want, buf[:n])

		dec, n, err := ConsumeVarint(got)
		require.NoError(t, err)
		assert.Equal(t, v, dec)
		assert.Equal(t, len(got), n)
	}
}

func TestConsumeVarint32(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		want    uint32
		n       int
		wantErr error
	}{
		{name: "zero", in: []byte{0x00}, want: 0, n: 1},
		{name: "one byte", in: []byte{0x7f}, want: 127, n: 1},
		{name: "two bytes", in: []byte{0xac, 0x02}, want: 300, n: 2},
		{name: "trailing data ignored", in: []byte{0x01, 0xff}, want: 1, n: 1},
		{name: "max uint32", in: []byte{0xff, 0xff, 0xff, 0xff, 0x0f}, want: math.MaxUint32, n: 5},
		{name: "empty", in: nil, wantErr: ErrTruncated},
		{name: "truncated", in: []byte{0x80, 0x80}, wantErr: ErrTruncated},
		{name: "two byte zero", in: []byte{0x80, 0x00}, wantErr: ErrVarintNonMinimal},
		{name: "padded one", in: []byte{0x81, 0x80, 0x00}, wantErr: ErrVarintNonMinimal},
		{name: "2^32", in: []byte{0x80, 0x80, 0x80, 0x80, 0x10}, wantErr: ErrVarintOverflow},
		{name: "six bytes", in: []byte{0xff, 0xff, 0xff, 0xff, 0x8f, 0x00}, wantErr: ErrVarintOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, err := ConsumeVarint32(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrSyntax)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.n, n)
		})
	}
}

func TestConsumeVarint64(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		want    uint64
		wantErr error
	}{
		{name: "max uint64", in: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}, want: math.MaxUint64},
		{name: "top bit", in: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01}, want: 1 << 63},
		{name: "2^64", in: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x02}, wantErr: ErrVarintOverflow},
		{name: "eleven bytes", in: []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x81, 0x00}, wantErr: ErrVarintOverflow},
		{name: "ten byte zero", in: []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x00}, wantErr: ErrVarintNonMinimal},
		{name: "truncated", in: []byte{0xff, 0xff}, wantErr: ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := ConsumeVarint(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestZigZag(t *testing.T) {
	for _, v := range []int64{0, -1, 1, -2, 2, math.MinInt32, math.MaxInt32, math.MinInt64, math.MaxInt64} {
		assert.Equal(t, protowire.EncodeZigZag(v), EncodeZigZag64(v), "zigzag64(%d)", v)
		assert.Equal(t, v, DecodeZigZag64(EncodeZigZag64(v)))
	}
	for _, v := range []int32{0, -1, 1, -2, 2, math.MinInt32, math.MaxInt32} {
		assert.Equal(t, uint32(protowire.EncodeZigZag(int64(v))), EncodeZigZag32(v), "zigzag32(%d)", v)
		assert.Equal(t, v, DecodeZigZag32(EncodeZigZag32(v)))
	}
	assert.Equal(t, uint32(1), EncodeZigZag32(-1))
	assert.Equal(t, uint32(math.MaxUint32), EncodeZigZag32(math.MinInt32))
}

func TestTwosComplement(t *testing.T) {
	assert.Equal(t, uint32(0xffffffff), EncodeTwos32(-1))
	assert.Equal(t, int32(math.MinInt32), DecodeTwos32(0x80000000))
	assert.Equal(t, uint64(math.MaxUint64), EncodeTwos64(-1))
	assert.Equal(t, int64(math.MinInt64), DecodeTwos64(1<<63))
}
