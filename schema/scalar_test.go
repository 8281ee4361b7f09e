package schema

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/qnighy/minibuf/wire"
)

// roundTrip encodes each value as an optional field and as both forms of a
// repeated field, then checks the decoded values with eq.
func roundTrip[T any](t *testing.T, typ ScalarType[T], eq func(a, b T) bool, values ...T) {
	t.Helper()
	mt := MustDefineMessageType("RoundTrip",
		Optional[T]("value", typ, 1),
		Repeated[T]("packed", typ, 2),
		Repeated[T]("unpacked", typ, 3, Packed(false)),
	)
	for _, v := range values {
		data, err := mt.Marshal(Message{"value": v})
		require.NoError(t, err)
		got, err := mt.Unmarshal(data)
		require.NoError(t, err)
		assert.True(t, eq(v, got["value"].(T)), "value %v decoded as %v", v, got["value"])
	}

	data, err := mt.Marshal(Message{"packed": values, "unpacked": values})
	require.NoError(t, err)
	got, err := mt.Unmarshal(data)
	require.NoError(t, err)
	for _, key := range []string{"packed", "unpacked"} {
		vs := got[key].([]T)
		require.Len(t, vs, len(values), key)
		for i := range values {
			assert.True(t, eq(values[i], vs[i]), "%s[%d]: %v decoded as %v", key, i, values[i], vs[i])
		}
	}
}

func equal[T comparable](a, b T) bool { return a == b }

func TestScalarRoundTrip(t *testing.T) {
	t.Run("bool", func(t *testing.T) { roundTrip(t, Bool, equal[bool], false, true) })
	t.Run("int32", func(t *testing.T) {
		roundTrip(t, Int32, equal[int32], 0, 1, -1, 150, math.MinInt32, math.MaxInt32)
	})
	t.Run("sint32", func(t *testing.T) {
		roundTrip(t, Sint32, equal[int32], 0, 1, -1, math.MinInt32, math.MaxInt32)
	})
	t.Run("sfixed32", func(t *testing.T) {
		roundTrip(t, Sfixed32, equal[int32], 0, -1, math.MinInt32, math.MaxInt32)
	})
	t.Run("uint32", func(t *testing.T) {
		roundTrip(t, Uint32, equal[uint32], 0, 1, 1<<31, math.MaxUint32)
	})
	t.Run("fixed32", func(t *testing.T) {
		roundTrip(t, Fixed32, equal[uint32], 0, 1, math.MaxUint32)
	})
	t.Run("int64", func(t *testing.T) {
		roundTrip(t, Int64, equal[int64], 0, -1, math.MinInt64, math.MaxInt64, 1234567890123456)
	})
	t.Run("sint64", func(t *testing.T) {
		roundTrip(t, Sint64, equal[int64], 0, -1, 1, math.MinInt64, math.MaxInt64)
	})
	t.Run("sfixed64", func(t *testing.T) {
		roundTrip(t, Sfixed64, equal[int64], 0, -1, math.MinInt64, math.MaxInt64)
	})
	t.Run("uint64", func(t *testing.T) {
		roundTrip(t, Uint64, equal[uint64], 0, 1<<63, math.MaxUint64)
	})
	t.Run("fixed64", func(t *testing.T) {
		roundTrip(t, Fixed64, equal[uint64], 0, 1<<63, math.MaxUint64)
	})
	t.Run("float", func(t *testing.T) {
		sameBits := func(a, b float32) bool { return math.Float32bits(a) == math.Float32bits(b) }
		roundTrip(t, Float, sameBits,
			0, float32(math.Copysign(0, -1)), 1.5, -2.25,
			math.MaxFloat32, math.SmallestNonzeroFloat32,
			float32(math.Inf(1)), float32(math.Inf(-1)),
			math.Float32frombits(0x7fc00001), math.Float32frombits(0xffa00000),
		)
	})
	t.Run("double", func(t *testing.T) {
		sameBits := func(a, b float64) bool { return math.Float64bits(a) == math.Float64bits(b) }
		roundTrip(t, Double, sameBits,
			0, math.Copysign(0, -1), 1.5, -2.25,
			math.MaxFloat64, math.SmallestNonzeroFloat64,
			math.Inf(1), math.Inf(-1),
			math.Float64frombits(0x7ff8000000000001), math.Float64frombits(0xfff4000000000000),
		)
	})
	t.Run("string", func(t *testing.T) {
		roundTrip(t, String, equal[string], "", "a", "日本語", "\U0001F600", string(make([]byte, 300)))
	})
	t.Run("bytes", func(t *testing.T) {
		sameBytes := func(a, b []byte) bool { return string(a) == string(b) }
		roundTrip(t, Bytes, sameBytes, []byte{}, []byte{0}, []byte{0xff, 0xfe}, make([]byte, 20000))
	})
}

func TestScalarWireForms(t *testing.T) {
	tests := []struct {
		name string
		msg  *MessageType
		in   Message
		want []byte
	}{
		{
			name: "sint32 -1 is zigzag 1",
			msg:  MustDefineMessageType("M", Required("v", Sint32, 1)),
			in:   Message{"v": int32(-1)},
			want: []byte{0x08, 0x01},
		},
		{
			name: "sint64 min",
			msg:  MustDefineMessageType("M", Required("v", Sint64, 1)),
			in:   Message{"v": int64(math.MinInt64)},
			want: protowire.AppendVarint([]byte{0x08}, math.MaxUint64),
		},
		{
			name: "sfixed32 -2",
			msg:  MustDefineMessageType("M", Required("v", Sfixed32, 1)),
			in:   Message{"v": int32(-2)},
			want: []byte{0x0d, 0xfe, 0xff, 0xff, 0xff},
		},
		{
			name: "float 1.5",
			msg:  MustDefineMessageType("M", Required("v", Float, 1)),
			in:   Message{"v": float32(1.5)},
			want: []byte{0x0d, 0x00, 0x00, 0xc0, 0x3f},
		},
		{
			name: "bool true",
			msg:  MustDefineMessageType("M", Required("v", Bool, 1)),
			in:   Message{"v": true},
			want: []byte{0x08, 0x01},
		},
		{
			name: "string field 2",
			msg:  MustDefineMessageType("M", Required("v", String, 2)),
			in:   Message{"v": "testing"},
			want: []byte{0x12, 0x07, 't', 'e', 's', 't', 'i', 'n', 'g'},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.msg.Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name    string
		convert func() (any, error)
		want    any
		wantErr error
	}{
		{name: "int to int32", convert: func() (any, error) { return Int32.Convert(42) }, want: int32(42)},
		{name: "float64 integral to int64", convert: func() (any, error) { return Int64.Convert(float64(1 << 53)) }, want: int64(1 << 53)},
		{name: "json number to uint64", convert: func() (any, error) { return Uint64.Convert(json.Number("18446744073709551615")) }, want: uint64(math.MaxUint64)},
		{name: "string to sint32", convert: func() (any, error) { return Sint32.Convert("-7") }, want: int32(-7)},
		{name: "string to bool", convert: func() (any, error) { return Bool.Convert("true") }, want: true},
		{name: "base64 to bytes", convert: func() (any, error) { return Bytes.Convert("AAH/") }, want: []byte{0, 1, 0xff}},
		{name: "NaN string to double", convert: func() (any, error) { return Double.Convert("Infinity") }, want: math.Inf(1)},
		{name: "int32 overflow", convert: func() (any, error) { return Int32.Convert(int64(math.MaxInt32) + 1) }, wantErr: wire.ErrRange},
		{name: "uint32 overflow", convert: func() (any, error) { return Uint32.Convert(uint64(1) << 32) }, wantErr: wire.ErrRange},
		{name: "negative to uint64", convert: func() (any, error) { return Uint64.Convert(-1) }, wantErr: wire.ErrRange},
		{name: "fraction to int64", convert: func() (any, error) { return Int64.Convert(1.5) }, wantErr: wire.ErrRange},
		{name: "2^63 to int64", convert: func() (any, error) { return Int64.Convert(float64(1 << 63)) }, wantErr: wire.ErrRange},
		{name: "uint64 past int64", convert: func() (any, error) { return Sfixed64.Convert(uint64(1) << 63) }, wantErr: wire.ErrRange},
		{name: "decimal string overflow", convert: func() (any, error) { return Uint64.Convert("18446744073709551616") }, wantErr: wire.ErrRange},
		{name: "wrong kind", convert: func() (any, error) { return String.Convert(3) }, wantErr: wire.ErrRange},
		{name: "bad base64", convert: func() (any, error) { return Bytes.Convert("!!") }, wantErr: wire.ErrRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.convert()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRangeErrorAbortsEncode(t *testing.T) {
	mt := MustDefineMessageType("M",
		Required("first", String, 1),
		Required("small", Uint32, 2),
	)
	data, err := mt.Marshal(Message{"first": "written before the failure", "small": int64(-5)})
	require.ErrorIs(t, err, wire.ErrRange)
	assert.Nil(t, data)
	assert.Contains(t, err.Error(), "small")
}

func TestLazyType(t *testing.T) {
	calls := 0
	typ := Lazy(func() Type[int64] {
		calls++
		return Sint64
	})
	assert.Equal(t, 0, calls)
	mt := MustDefineMessageType("M", Repeated("v", typ, 1))
	data, err := mt.Marshal(Message{"v": []int64{-1, 1}})
	require.NoError(t, err)
	// Packed through the lazy cell.
	assert.Equal(t, []byte{0x0a, 0x02, 0x01, 0x02}, data)
	_, err = mt.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func FuzzMessageRoundTrip(f *testing.F) {
	inner := MustDefineMessageType("Inner",
		Required("n", Sint64, 1),
		Repeated("tags", String, 2),
	)
	mt := MustDefineMessageType("Fuzz",
		Required("a", Int32, 1),
		Required("b", Uint64, 2),
		Optional("c", Double, 3),
		Required("d", Bytes, 4),
		Repeated("e", Fixed32, 5),
		Optional("f", inner, 6),
		Repeated("g", AsGroup(inner), 7),
	)
	f.Add([]byte{0x08, 0xC0, 0xF5, 0xAA, 0xE4, 0xD3, 0xDA, 0x98, 0x02, 0x10, 0xD2, 0x85, 0xD8, 0xCC, 0x04})
	f.Add([]byte{0x32, 0x02, 0x08, 0x01, 0x3b, 0x12, 0x01, 'x', 0x3c})
	f.Add([]byte{0x2a, 0x04, 0x01, 0x00, 0x00, 0x00})
	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := mt.Unmarshal(data)
		if err != nil {
			return
		}
		// Whatever decodes must re-encode, and the re-encoding is stable.
		first, err := mt.Marshal(m)
		require.NoError(t, err)
		again, err := mt.Unmarshal(first)
		require.NoError(t, err)
		second, err := mt.Marshal(again)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
