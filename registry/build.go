package registry

import (
	"fmt"

	"github.com/qnighy/minibuf/schema"
	"github.com/qnighy/minibuf/wire"
)

// buildMessageType compiles a descriptor. Message references go through
// schema.Lazy and are looked up in types on first use, so recursive and
// forward references need no ordering.
func buildMessageType(msg *Message, types map[string]*schema.MessageType) (*schema.MessageType, error) {
	fields := make([]schema.Field, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		field, err := buildField(msg, f, types)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", msg.FullName, f.Name, err)
		}
		fields = append(fields, field)
	}
	return schema.DefineMessageType(msg.FullName, fields...)
}

func buildField(msg *Message, f *Field, types map[string]*schema.MessageType) (schema.Field, error) {
	num := wire.Number(f.Number)
	switch f.Type.Kind {
	case KindMessage, KindGroup:
		name := f.Type.TypeName
		group := f.Type.Kind == KindGroup
		typ := schema.Lazy(func() schema.Type[schema.Message] {
			t := types[name]
			if group {
				return schema.AsGroup(t)
			}
			return t
		})
		if f.Label == LabelRepeated {
			return schema.Repeated(f.Name, typ, num), nil
		}
		// Singular submessages always track presence.
		return schema.Optional(f.Name, typ, num), nil
	case KindEnum:
		return scalarField(f, schema.Int32, packedWrite(msg, f)), nil
	}

	packed := packedWrite(msg, f)
	switch f.Type.PrimitiveType {
	case TypeDouble:
		return scalarField(f, schema.Double, packed), nil
	case TypeFloat:
		return scalarField(f, schema.Float, packed), nil
	case TypeInt64:
		return scalarField(f, schema.Int64, packed), nil
	case TypeUint64:
		return scalarField(f, schema.Uint64, packed), nil
	case TypeInt32:
		return scalarField(f, schema.Int32, packed), nil
	case TypeFixed64:
		return scalarField(f, schema.Fixed64, packed), nil
	case TypeFixed32:
		return scalarField(f, schema.Fixed32, packed), nil
	case TypeBool:
		return scalarField(f, schema.Bool, packed), nil
	case TypeString:
		return scalarField(f, schema.String, packed), nil
	case TypeBytes:
		return scalarField(f, schema.Bytes, packed), nil
	case TypeUint32:
		return scalarField(f, schema.Uint32, packed), nil
	case TypeSfixed32:
		return scalarField(f, schema.Sfixed32, packed), nil
	case TypeSfixed64:
		return scalarField(f, schema.Sfixed64, packed), nil
	case TypeSint32:
		return scalarField(f, schema.Sint32, packed), nil
	case TypeSint64:
		return scalarField(f, schema.Sint64, packed), nil
	default:
		return nil, fmt.Errorf("unsupported type %q", f.Type.PrimitiveType)
	}
}

func scalarField[T any](f *Field, typ schema.ScalarType[T], packed bool) schema.Field {
	num := wire.Number(f.Number)
	switch f.Label {
	case LabelRepeated:
		return schema.Repeated[T](f.Name, typ, num, schema.Packed(packed))
	case LabelRequired:
		return schema.Required(f.Name, typ, num, schema.Legacy())
	case LabelOptional:
		return schema.Optional[T](f.Name, typ, num)
	default:
		return schema.Required(f.Name, typ, num)
	}
}

// packedWrite reports the write form of a repeated scalar: the explicit option
// when given, otherwise packed in proto3 and unpacked in proto2.
func packedWrite(msg *Message, f *Field) bool {
	if f.Packed != nil {
		return *f.Packed
	}
	return msg.file != nil && msg.file.Syntax == "proto3"
}
