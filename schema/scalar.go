package schema

import (
	"bytes"
	"math"

	"github.com/qnighy/minibuf/wire"
)

// Type is a field's element type: a scalar, a message type, or a lazy
// reference to either.
type Type[T any] interface {
	// Flags tells the decoder how to read the wire value.
	Flags() wire.Flags
	// ToScalar converts one decoded wire value.
	ToScalar(typ wire.Type, v wire.Value) (T, error)
	// WriteScalar writes v as one tagged field.
	WriteScalar(s *wire.Sink, num wire.Number, v T) error
	// Convert coerces a loosely typed Go value to T.
	Convert(v any) (T, error)
}

// ScalarType is a Type with a default value, usable for implicit presence.
type ScalarType[T any] interface {
	Type[T]
	DefaultValue() T
	IsDefaultValue(v T) bool
}

// PackedWriter is implemented by types that can write a packed run.
type PackedWriter[T any] interface {
	WritePacked(s *wire.Sink, num wire.Number, values []T) error
}

// GroupFactory is implemented by types that are read from SGROUP/EGROUP
// delimited groups.
type GroupFactory[T any] interface {
	CreateGroup() (T, wire.MessageReader)
}

func wireTypeError(typ wire.Type, typeName string) error {
	return wire.Errorf(wire.ErrWireType, "unexpected wire type %v for %s", typ, typeName)
}

// numeric covers every scalar whose wire form is a single VARINT, I32 or
// I64 value.
type numeric[T bool | int32 | int64 | uint32 | uint64 | float32 | float64] struct {
	name    string
	flags   wire.Flags
	wt      wire.Type
	encode  func(T) uint64
	decode  func(uint64) T
	convert func(any, string) (T, error)

	// isDefault overrides the zero-value check (floats: -0 is not default).
	isDefault func(T) bool
}

func (n *numeric[T]) String() string { return n.name }
func (n *numeric[T]) Flags() wire.Flags { return n.flags }

func (n *numeric[T]) DefaultValue() T {
	var zero T
	return zero
}

func (n *numeric[T]) IsDefaultValue(v T) bool {
	if n.isDefault != nil {
		return n.isDefault(v)
	}
	var zero T
	return v == zero
}

func (n *numeric[T]) ToScalar(typ wire.Type, v wire.Value) (T, error) {
	if typ != n.wt {
		var zero T
		return zero, wireTypeError(typ, n.name)
	}
	return n.decode(v.Num), nil
}

func (n *numeric[T]) WriteScalar(s *wire.Sink, num wire.Number, v T) error {
	switch n.wt {
	case wire.TypeI32:
		return s.WriteFixed32(num, uint32(n.encode(v)))
	case wire.TypeI64:
		return s.WriteFixed64(num, n.encode(v))
	default:
		return s.WriteVarint(num, n.encode(v))
	}
}

func (n *numeric[T]) WritePacked(s *wire.Sink, num wire.Number, values []T) error {
	switch n.wt {
	case wire.TypeI32:
		raw := make([]uint32, len(values))
		for i, v := range values {
			raw[i] = uint32(n.encode(v))
		}
		return s.WritePackedFixed32(num, raw)
	case wire.TypeI64:
		raw := make([]uint64, len(values))
		for i, v := range values {
			raw[i] = n.encode(v)
		}
		return s.WritePackedFixed64(num, raw)
	default:
		raw := make([]uint64, len(values))
		for i, v := range values {
			raw[i] = n.encode(v)
		}
		return s.WritePackedVarint(num, raw)
	}
}

func (n *numeric[T]) Convert(v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}
	return n.convert(v, n.name)
}

var (
	Bool ScalarType[bool] = &numeric[bool]{
		name:  "bool",
		flags: wire.FlagPackable,
		wt:    wire.TypeVarint,
		encode: func(v bool) uint64 {
			if v {
				return 1
			}
			return 0
		},
		decode:  func(u uint64) bool { return u != 0 },
		convert: toBool,
	}

	// Int32 writes negative values sign-extended to ten bytes and keeps the
	// low 32 bits on read, so both the 5- and 10-byte forms decode.
	Int32 ScalarType[int32] = &numeric[int32]{
		name:    "int32",
		flags:   wire.FlagPackable | wire.FlagVarint64,
		wt:      wire.TypeVarint,
		encode:  func(v int32) uint64 { return wire.EncodeTwos64(int64(v)) },
		decode:  func(u uint64) int32 { return wire.DecodeTwos32(uint32(u)) },
		convert: toInt32,
	}

	Int64 ScalarType[int64] = &numeric[int64]{
		name:    "int64",
		flags:   wire.FlagPackable | wire.FlagVarint64,
		wt:      wire.TypeVarint,
		encode:  wire.EncodeTwos64,
		decode:  wire.DecodeTwos64,
		convert: toInt64,
	}

	Uint32 ScalarType[uint32] = &numeric[uint32]{
		name:    "uint32",
		flags:   wire.FlagPackable,
		wt:      wire.TypeVarint,
		encode:  func(v uint32) uint64 { return uint64(v) },
		decode:  func(u uint64) uint32 { return uint32(u) },
		convert: toUint32,
	}

	Uint64 ScalarType[uint64] = &numeric[uint64]{
		name:    "uint64",
		flags:   wire.FlagPackable | wire.FlagVarint64,
		wt:      wire.TypeVarint,
		encode:  func(v uint64) uint64 { return v },
		decode:  func(u uint64) uint64 { return u },
		convert: toUint64,
	}

	Sint32 ScalarType[int32] = &numeric[int32]{
		name:    "sint32",
		flags:   wire.FlagPackable,
		wt:      wire.TypeVarint,
		encode:  func(v int32) uint64 { return uint64(wire.EncodeZigZag32(v)) },
		decode:  func(u uint64) int32 { return wire.DecodeZigZag32(uint32(u)) },
		convert: toInt32,
	}

	Sint64 ScalarType[int64] = &numeric[int64]{
		name:    "sint64",
		flags:   wire.FlagPackable | wire.FlagVarint64,
		wt:      wire.TypeVarint,
		encode:  wire.EncodeZigZag64,
		decode:  wire.DecodeZigZag64,
		convert: toInt64,
	}

	Fixed32 ScalarType[uint32] = &numeric[uint32]{
		name:    "fixed32",
		flags:   wire.FlagPackable | wire.FlagI32 | wire.FlagFixedInt,
		wt:      wire.TypeI32,
		encode:  func(v uint32) uint64 { return uint64(v) },
		decode:  func(u uint64) uint32 { return uint32(u) },
		convert: toUint32,
	}

	Fixed64 ScalarType[uint64] = &numeric[uint64]{
		name:    "fixed64",
		flags:   wire.FlagPackable | wire.FlagI64 | wire.FlagFixedInt,
		wt:      wire.TypeI64,
		encode:  func(v uint64) uint64 { return v },
		decode:  func(u uint64) uint64 { return u },
		convert: toUint64,
	}

	Sfixed32 ScalarType[int32] = &numeric[int32]{
		name:    "sfixed32",
		flags:   wire.FlagPackable | wire.FlagI32 | wire.FlagFixedInt,
		wt:      wire.TypeI32,
		encode:  func(v int32) uint64 { return uint64(wire.EncodeTwos32(v)) },
		decode:  func(u uint64) int32 { return wire.DecodeTwos32(uint32(u)) },
		convert: toInt32,
	}

	Sfixed64 ScalarType[int64] = &numeric[int64]{
		name:    "sfixed64",
		flags:   wire.FlagPackable | wire.FlagI64 | wire.FlagFixedInt,
		wt:      wire.TypeI64,
		encode:  wire.EncodeTwos64,
		decode:  wire.DecodeTwos64,
		convert: toInt64,
	}

	// Float and Double carry raw IEEE bits, so NaN payloads survive a
	// round trip. Only +0 is a default value.
	Float ScalarType[float32] = &numeric[float32]{
		name:      "float",
		flags:     wire.FlagPackable | wire.FlagI32,
		wt:        wire.TypeI32,
		encode:    func(v float32) uint64 { return uint64(math.Float32bits(v)) },
		decode:    func(u uint64) float32 { return math.Float32frombits(uint32(u)) },
		convert:   toFloat32,
		isDefault: func(v float32) bool { return math.Float32bits(v) == 0 },
	}

	Double ScalarType[float64] = &numeric[float64]{
		name:      "double",
		flags:     wire.FlagPackable | wire.FlagI64,
		wt:        wire.TypeI64,
		encode:    math.Float64bits,
		decode:    math.Float64frombits,
		convert:   toFloat64,
		isDefault: func(v float64) bool { return math.Float64bits(v) == 0 },
	}

	Bytes ScalarType[[]byte] = bytesType{}

	String ScalarType[string] = stringType{}
)

type bytesType struct{}

func (bytesType) String() string { return "bytes" }
func (bytesType) Flags() wire.Flags { return 0 }
func (bytesType) DefaultValue() []byte { return []byte{} }
func (bytesType) IsDefaultValue(v []byte) bool { return len(v) == 0 }

// ToScalar copies the value out of the input buffer.
func (bytesType) ToScalar(typ wire.Type, v wire.Value) ([]byte, error) {
	if typ != wire.TypeLen {
		return nil, wireTypeError(typ, "bytes")
	}
	if len(v.Bytes) == 0 {
		return []byte{}, nil
	}
	return bytes.Clone(v.Bytes), nil
}

func (bytesType) WriteScalar(s *wire.Sink, num wire.Number, v []byte) error {
	return s.WriteBytes(num, v)
}

func (bytesType) Convert(v any) ([]byte, error) {
	return toBytes(v, "bytes")
}

type stringType struct{}

func (stringType) String() string { return "string" }
func (stringType) Flags() wire.Flags { return 0 }
func (stringType) DefaultValue() string { return "" }
func (stringType) IsDefaultValue(v string) bool { return v == "" }

func (stringType) ToScalar(typ wire.Type, v wire.Value) (string, error) {
	if typ != wire.TypeLen {
		return "", wireTypeError(typ, "string")
	}
	if err := wire.ValidateUTF8(v.Bytes); err != nil {
		return "", err
	}
	return string(v.Bytes), nil
}

func (stringType) WriteScalar(s *wire.Sink, num wire.Number, v string) error {
	return s.WriteString(num, v)
}

func (stringType) Convert(v any) (string, error) {
	return toString(v, "string")
}
