package wire

// ===== PROTOBUF WIRE FORMAT TYPES =====

// Type represents a protobuf wire type, the low 3 bits of a tag.
type Type uint8

const (
	TypeVarint Type = 0 // int32, int64, uint32, uint64, sint32, sint64, bool
	TypeI64    Type = 1 // fixed64, sfixed64, double
	TypeLen    Type = 2 // string, bytes, embedded messages, packed repeated fields
	TypeSGroup Type = 3 // legacy group start
	TypeEGroup Type = 4 // legacy group end
	TypeI32    Type = 5 // fixed32, sfixed32, float
)

func (t Type) String() string {
	switch t {
	case TypeVarint:
		return "VARINT"
	case TypeI64:
		return "I64"
	case TypeLen:
		return "LEN"
	case TypeSGroup:
		return "SGROUP"
	case TypeEGroup:
		return "EGROUP"
	case TypeI32:
		return "I32"
	default:
		return "INVALID"
	}
}

// Number represents a protobuf field number.
type Number int32

const (
	MinValidNumber      Number = 1
	MaxValidNumber      Number = 1<<29 - 1
	FirstReservedNumber Number = 19000
	LastReservedNumber  Number = 19999
)

// IsValid reports whether n can appear in a tag.
func (n Number) IsValid() bool {
	return MinValidNumber <= n && n <= MaxValidNumber
}

// IsReserved reports whether n falls in the range reserved for the
// protobuf implementation itself.
func (n Number) IsReserved() bool {
	return FirstReservedNumber <= n && n <= LastReservedNumber
}

// Tag represents a protobuf field tag (field number + wire type).
type Tag uint32

// MakeTag creates a tag from field number and wire type.
func MakeTag(num Number, typ Type) Tag {
	return Tag(uint32(num)<<3 | uint32(typ&7))
}

// ParseTag splits a tag into field number and wire type.
func ParseTag(tag Tag) (Number, Type) {
	return Number(tag >> 3), Type(tag & 7)
}

// Flags describe how the decoder should read a field's wire values.
type Flags uint8

const (
	// FlagVarint64 selects the 64-bit varint rules (up to 10 bytes).
	// Without it varints are read with the 32-bit rules.
	FlagVarint64 Flags = 1 << iota
	// FlagFixedInt marks a fixed-width field as an integer rather than IEEE.
	FlagFixedInt
	// FlagI32 marks a 4-byte fixed-width field.
	FlagI32
	// FlagI64 marks an 8-byte fixed-width field.
	FlagI64
	// FlagPackable allows the packed (LEN run) form for repeated scalars.
	FlagPackable
)

// Has reports whether all bits of mask are set.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

// packedType returns the wire type of the elements inside a packed run.
func (f Flags) packedType() Type {
	switch {
	case f.Has(FlagI32):
		return TypeI32
	case f.Has(FlagI64):
		return TypeI64
	default:
		return TypeVarint
	}
}

// Value is a decoded wire value handed to a FieldReader.
//
// For VARINT, Num holds the varint. For I32 and I64, Num holds the raw
// little-endian bits; FlagFixedInt decides whether the scalar type reads
// them as an integer or as IEEE bits. For LEN, Bytes is a view into the
// decoder's input and must be copied if retained past the input's lifetime.
type Value struct {
	Num   uint64
	Bytes []byte

	depth int
}
