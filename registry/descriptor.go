package registry

// Descriptors are the registry's parsed view of .proto files. They are
// built from the go-protoparser AST and then compiled into
// schema.MessageType values.

// ProtoFile represents a single .proto file
type ProtoFile struct {
	Path     string     `json:"path"`
	Package  string     `json:"package"`
	Syntax   string     `json:"syntax"` // proto2 or proto3
	Imports  []string   `json:"imports"`
	Messages []*Message `json:"messages"`
	Enums    []*Enum    `json:"enums"`
}

// Message represents a protobuf message definition
type Message struct {
	Name        string     `json:"name"`      // "User"
	FullName    string     `json:"full_name"` // "example.User"
	Fields      []*Field   `json:"fields"`
	NestedTypes []*Message `json:"nested_types"`
	NestedEnums []*Enum    `json:"nested_enums"`
	MapEntry    bool       `json:"map_entry"` // synthetic entry type of a map field
	Group       bool       `json:"group"`     // body of a proto2 group field

	file *ProtoFile
}

// Field represents a message field
type Field struct {
	Name   string     `json:"name"`   // "user_name"
	Number int32      `json:"number"` // 1
	Label  FieldLabel `json:"label"`
	Type   FieldType  `json:"type"`
	// Packed is the explicit [packed = ...] option, nil when absent.
	Packed *bool  `json:"packed,omitempty"`
	Oneof  string `json:"oneof,omitempty"` // enclosing oneof, if any
}

// FieldLabel represents field labels
type FieldLabel string

const (
	// LabelImplicit is a proto3 singular field without the optional keyword.
	LabelImplicit FieldLabel = "implicit"
	LabelOptional FieldLabel = "optional"
	LabelRequired FieldLabel = "required"
	LabelRepeated FieldLabel = "repeated"
)

// FieldType represents field type information
type FieldType struct {
	Kind          TypeKind      `json:"kind"`
	PrimitiveType PrimitiveType `json:"primitive_type,omitempty"`
	// TypeName is the type as written for message and enum references
	// until resolution, and the fully qualified name afterwards.
	TypeName string `json:"type_name,omitempty"`
}

// TypeKind represents the kind of field type
type TypeKind string

const (
	KindPrimitive TypeKind = "primitive"
	KindMessage   TypeKind = "message"
	KindGroup     TypeKind = "group"
	KindEnum      TypeKind = "enum"
)

// PrimitiveType represents protobuf primitive types
type PrimitiveType string

const (
	TypeDouble   PrimitiveType = "double"
	TypeFloat    PrimitiveType = "float"
	TypeInt64    PrimitiveType = "int64"
	TypeUint64   PrimitiveType = "uint64"
	TypeInt32    PrimitiveType = "int32"
	TypeFixed64  PrimitiveType = "fixed64"
	TypeFixed32  PrimitiveType = "fixed32"
	TypeBool     PrimitiveType = "bool"
	TypeString   PrimitiveType = "string"
	TypeBytes    PrimitiveType = "bytes"
	TypeUint32   PrimitiveType = "uint32"
	TypeSfixed32 PrimitiveType = "sfixed32"
	TypeSfixed64 PrimitiveType = "sfixed64"
	TypeSint32   PrimitiveType = "sint32"
	TypeSint64   PrimitiveType = "sint64"
)

var primitives = map[string]PrimitiveType{
	"double":   TypeDouble,
	"float":    TypeFloat,
	"int64":    TypeInt64,
	"uint64":   TypeUint64,
	"int32":    TypeInt32,
	"fixed64":  TypeFixed64,
	"fixed32":  TypeFixed32,
	"bool":     TypeBool,
	"string":   TypeString,
	"bytes":    TypeBytes,
	"uint32":   TypeUint32,
	"sfixed32": TypeSfixed32,
	"sfixed64": TypeSfixed64,
	"sint32":   TypeSint32,
	"sint64":   TypeSint64,
}

// IsPackedType checks and returns if the Primitive type is packed for repeated label
func IsPackedType(t PrimitiveType) bool {
	switch t {
	case TypeString, TypeBytes, "":
		return false
	}
	_, ok := primitives[string(t)]
	return ok
}

// Enum represents an enum definition. Enum fields travel as int32.
type Enum struct {
	Name     string       `json:"name"`
	FullName string       `json:"full_name"`
	Values   []*EnumValue `json:"values"`
}

// EnumValue represents an enum value
type EnumValue struct {
	Name   string `json:"name"`   // "ACTIVE"
	Number int32  `json:"number"` // 1
}
