package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/qnighy/minibuf/wire"
)

// ErrInvalidDefinition reports a message type that cannot be built.
var ErrInvalidDefinition = errors.New("schema: invalid message definition")

// Message is a decoded or to-be-encoded message, keyed by the lowerCamel
// form of each field name. Explicit-presence fields that are unset have no
// key. Submessages are Message values and repeated fields are slices.
type Message map[string]any

// MessageType is a message definition built by DefineMessageType. It reads
// and writes Message values and can itself be used as a field type.
type MessageType struct {
	name     string
	fields   []Field // ordered by field number
	byNumber map[wire.Number]Field
	byKey    map[string]Field
}

// DefineMessageType builds a message type. The field-number dispatch table
// is built here, once.
func DefineMessageType(name string, fields ...Field) (*MessageType, error) {
	t := &MessageType{
		name:     name,
		fields:   make([]Field, 0, len(fields)),
		byNumber: make(map[wire.Number]Field, len(fields)),
		byKey:    make(map[string]Field, len(fields)),
	}
	for _, f := range fields {
		num := f.Number()
		switch {
		case num == 0:
			return nil, fmt.Errorf("%w: %s.%s: field number zero", ErrInvalidDefinition, name, f.Name())
		case !num.IsValid():
			return nil, fmt.Errorf("%w: %s.%s: field number %d out of range", ErrInvalidDefinition, name, f.Name(), num)
		case num.IsReserved():
			return nil, fmt.Errorf("%w: %s.%s: field number %d is reserved", ErrInvalidDefinition, name, f.Name(), num)
		}
		if prev, ok := t.byNumber[num]; ok {
			return nil, fmt.Errorf("%w: %s: fields %s and %s share number %d", ErrInvalidDefinition, name, prev.Name(), f.Name(), num)
		}
		if prev, ok := t.byKey[f.Key()]; ok {
			return nil, fmt.Errorf("%w: %s: fields %s and %s share key %q", ErrInvalidDefinition, name, prev.Name(), f.Name(), f.Key())
		}
		t.byNumber[num] = f
		t.byKey[f.Key()] = f
		t.fields = append(t.fields, f)
	}
	sort.SliceStable(t.fields, func(i, j int) bool {
		return t.fields[i].Number() < t.fields[j].Number()
	})
	return t, nil
}

// MustDefineMessageType is like DefineMessageType but panics on error.
func MustDefineMessageType(name string, fields ...Field) *MessageType {
	t, err := DefineMessageType(name, fields...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *MessageType) Name() string { return t.name }

// Fields returns the fields ordered by number.
func (t *MessageType) Fields() []Field {
	return append([]Field(nil), t.fields...)
}

// FieldByNumber returns the field with the given number, or nil.
func (t *MessageType) FieldByNumber(num wire.Number) Field {
	return t.byNumber[num]
}

// FieldByName returns the field with the given declared or lowerCamel
// name, or nil.
func (t *MessageType) FieldByName(name string) Field {
	if f, ok := t.byKey[name]; ok {
		return f
	}
	return t.byKey[toLowerCamel(name)]
}

// New creates a message with every field initialized: implicit required
// fields to their default and repeated fields to an empty slice. values,
// keyed by declared or lowerCamel name, are converted to the field types
// and copied in.
func (t *MessageType) New(values map[string]any) (Message, error) {
	m := t.newMessage()
	for name, v := range values {
		if v == nil {
			continue
		}
		f := t.FieldByName(name)
		if f == nil {
			return nil, fmt.Errorf("%w: %s has no field %q", ErrInvalidDefinition, t.name, name)
		}
		if err := f.assign(m, v); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (t *MessageType) newMessage() Message {
	m := make(Message, len(t.fields))
	for _, f := range t.fields {
		f.init(m)
	}
	return m
}

// Marshal encodes m.
func (t *MessageType) Marshal(m Message) ([]byte, error) {
	return wire.Encode(func(s *wire.Sink) error {
		return t.writeFields(s, m)
	})
}

// Unmarshal decodes data into a new message.
func (t *MessageType) Unmarshal(data []byte) (Message, error) {
	m := t.newMessage()
	if err := t.UnmarshalInto(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UnmarshalInto decodes data into m. Fields present in data replace the
// values in m; repeated fields are appended to.
func (t *MessageType) UnmarshalInto(data []byte, m Message) error {
	d, err := wire.NewDecoder(data)
	if err != nil {
		return err
	}
	return d.ReadMessage(m, t)
}

func (t *MessageType) writeFields(s *wire.Sink, m Message) error {
	for _, f := range t.fields {
		if err := f.write(s, m); err != nil {
			return err
		}
	}
	return nil
}

// FieldReader implements wire.MessageReader.
func (t *MessageType) FieldReader(num wire.Number) wire.FieldReader {
	f, ok := t.byNumber[num]
	if !ok {
		return nil
	}
	return f
}

// Finish implements wire.MessageReader. It checks legacy required fields.
func (t *MessageType) Finish(obj any) error {
	m := obj.(Message)
	for _, f := range t.fields {
		if err := f.finish(m); err != nil {
			return err
		}
	}
	return nil
}

// Flags implements Type. Submessages are never packed.
func (t *MessageType) Flags() wire.Flags { return 0 }

// ToScalar decodes an embedded message.
func (t *MessageType) ToScalar(typ wire.Type, v wire.Value) (Message, error) {
	if typ != wire.TypeLen {
		return nil, wireTypeError(typ, t.name)
	}
	d, err := wire.NestedDecoder(v)
	if err != nil {
		return nil, err
	}
	m := t.newMessage()
	if err := d.ReadMessage(m, t); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteScalar writes m as a length-delimited submessage.
func (t *MessageType) WriteScalar(s *wire.Sink, num wire.Number, m Message) error {
	return s.WriteSubMessage(num, func(s *wire.Sink) error {
		return t.writeFields(s, m)
	})
}

// Convert accepts a Message or a plain map.
func (t *MessageType) Convert(v any) (Message, error) {
	switch m := v.(type) {
	case Message:
		return m, nil
	case map[string]any:
		return Message(m), nil
	default:
		return nil, typeError(v, t.name)
	}
}

// AsGroup returns a field type that reads and writes t as a legacy group
// (SGROUP ... EGROUP) instead of a length-delimited submessage.
func AsGroup(t *MessageType) Type[Message] {
	return groupType{t}
}

type groupType struct {
	t *MessageType
}

func (g groupType) Flags() wire.Flags { return 0 }

// ToScalar is only reached for non-group wire types, which a group field
// never accepts.
func (g groupType) ToScalar(typ wire.Type, _ wire.Value) (Message, error) {
	return nil, wireTypeError(typ, g.t.name)
}

func (g groupType) WriteScalar(s *wire.Sink, num wire.Number, m Message) error {
	return s.WriteGroup(num, func(s *wire.Sink) error {
		return g.t.writeFields(s, m)
	})
}

func (g groupType) Convert(v any) (Message, error) { return g.t.Convert(v) }

func (g groupType) CreateGroup() (Message, wire.MessageReader) {
	return g.t.newMessage(), g.t
}
