package schema

import (
	"github.com/qnighy/minibuf/wire"
)

// Field binds a field number and name to a type with a presence rule.
// The implementations are Required, Optional and Repeated.
type Field interface {
	wire.FieldReader

	Number() wire.Number
	// Name is the declared name, used in error paths.
	Name() string
	// Key is the lowerCamel name under which the value is kept in a Message.
	Key() string

	init(m Message)
	assign(m Message, v any) error
	write(s *wire.Sink, m Message) error
	finish(m Message) error
}

type fieldBase struct {
	name string
	key  string
	num  wire.Number
}

func newFieldBase(name string, num wire.Number) fieldBase {
	return fieldBase{name: name, key: toLowerCamel(name), num: num}
}

func (f *fieldBase) Number() wire.Number { return f.num }
func (f *fieldBase) Name() string        { return f.name }
func (f *fieldBase) Key() string         { return f.key }

// lookup finds the field's value under its key or, failing that, under
// its declared name.
func (f *fieldBase) lookup(m Message) (any, bool) {
	if v, ok := m[f.key]; ok && v != nil {
		return v, true
	}
	if f.name != f.key {
		if v, ok := m[f.name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// ===== REQUIRED =====

// RequiredOption configures Required.
type RequiredOption func(*requiredConfig)

type requiredConfig struct {
	legacy bool
}

// Legacy selects proto2 required semantics: the field is always written
// (the default value if it was never set) and decoding fails if it is
// absent from the input.
func Legacy() RequiredOption {
	return func(c *requiredConfig) { c.legacy = true }
}

// Required declares a singular scalar field without explicit presence. In
// the default implicit mode a value equal to the type default is not
// written and an absent field decodes as the default.
func Required[T any](name string, typ ScalarType[T], num wire.Number, opts ...RequiredOption) Field {
	var cfg requiredConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &requiredField[T]{fieldBase: newFieldBase(name, num), typ: typ, legacy: cfg.legacy}
}

type requiredField[T any] struct {
	fieldBase
	typ    ScalarType[T]
	legacy bool
}

func (f *requiredField[T]) Flags() wire.Flags {
	return f.typ.Flags() &^ wire.FlagPackable
}

func (f *requiredField[T]) SetField(obj any, typ wire.Type, v wire.Value) error {
	val, err := f.typ.ToScalar(typ, v)
	if err != nil {
		return wire.WrapField(err, f.name)
	}
	obj.(Message)[f.key] = val
	return nil
}

func (f *requiredField[T]) SetGroup(any) (any, wire.MessageReader, error) {
	return nil, nil, wire.WrapField(wire.ErrUnexpectedGroup, f.name)
}

func (f *requiredField[T]) init(m Message) {
	if f.legacy {
		delete(m, f.key)
		return
	}
	m[f.key] = f.typ.DefaultValue()
}

func (f *requiredField[T]) assign(m Message, v any) error {
	val, err := f.typ.Convert(v)
	if err != nil {
		return wire.WrapField(err, f.name)
	}
	m[f.key] = val
	return nil
}

func (f *requiredField[T]) write(s *wire.Sink, m Message) error {
	raw, ok := f.lookup(m)
	if !ok {
		if !f.legacy {
			return nil
		}
		return wire.WrapField(f.typ.WriteScalar(s, f.num, f.typ.DefaultValue()), f.name)
	}
	val, err := f.typ.Convert(raw)
	if err != nil {
		return wire.WrapField(err, f.name)
	}
	if !f.legacy && f.typ.IsDefaultValue(val) {
		return nil
	}
	return wire.WrapField(f.typ.WriteScalar(s, f.num, val), f.name)
}

func (f *requiredField[T]) finish(m Message) error {
	if !f.legacy {
		return nil
	}
	if _, ok := m[f.key]; !ok {
		return wire.WrapField(wire.ErrMissingRequired, f.name)
	}
	return nil
}

// ===== OPTIONAL =====

// Optional declares a singular field with explicit presence: a missing key
// is never written and any present value is, even the default. Submessage
// and group fields are always Optional.
func Optional[T any](name string, typ Type[T], num wire.Number) Field {
	return &optionalField[T]{fieldBase: newFieldBase(name, num), typ: typ}
}

type optionalField[T any] struct {
	fieldBase
	typ Type[T]
}

func (f *optionalField[T]) Flags() wire.Flags {
	return f.typ.Flags() &^ wire.FlagPackable
}

func (f *optionalField[T]) SetField(obj any, typ wire.Type, v wire.Value) error {
	val, err := f.typ.ToScalar(typ, v)
	if err != nil {
		return wire.WrapField(err, f.name)
	}
	obj.(Message)[f.key] = val
	return nil
}

func (f *optionalField[T]) SetGroup(obj any) (any, wire.MessageReader, error) {
	gf, ok := resolveType(f.typ).(GroupFactory[T])
	if !ok {
		return nil, nil, wire.WrapField(wire.ErrUnexpectedGroup, f.name)
	}
	sub, r := gf.CreateGroup()
	obj.(Message)[f.key] = sub
	return sub, r, nil
}

func (f *optionalField[T]) init(m Message) {}

func (f *optionalField[T]) assign(m Message, v any) error {
	val, err := f.typ.Convert(v)
	if err != nil {
		return wire.WrapField(err, f.name)
	}
	m[f.key] = val
	return nil
}

func (f *optionalField[T]) write(s *wire.Sink, m Message) error {
	raw, ok := f.lookup(m)
	if !ok {
		return nil
	}
	val, err := f.typ.Convert(raw)
	if err != nil {
		return wire.WrapField(err, f.name)
	}
	return wire.WrapField(f.typ.WriteScalar(s, f.num, val), f.name)
}

func (f *optionalField[T]) finish(Message) error { return nil }

// ===== REPEATED =====

// RepeatedOption configures Repeated.
type RepeatedOption func(*repeatedConfig)

type repeatedConfig struct {
	packed bool
}

// Packed selects the packed or unpacked write form. Fields are packed by
// default when the element type allows it. Either form is accepted on read.
func Packed(packed bool) RepeatedOption {
	return func(c *repeatedConfig) { c.packed = packed }
}

// Repeated declares a field holding a sequence, kept in a Message as []T.
func Repeated[T any](name string, typ Type[T], num wire.Number, opts ...RepeatedOption) Field {
	cfg := repeatedConfig{packed: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &repeatedField[T]{fieldBase: newFieldBase(name, num), typ: typ, packed: cfg.packed}
}

type repeatedField[T any] struct {
	fieldBase
	typ    Type[T]
	packed bool
}

func (f *repeatedField[T]) Flags() wire.Flags { return f.typ.Flags() }

// values returns the current slice for appending, converting a loosely
// typed one if needed.
func (f *repeatedField[T]) values(m Message) ([]T, error) {
	raw, ok := f.lookup(m)
	if !ok {
		return nil, nil
	}
	return f.convertSlice(raw)
}

func (f *repeatedField[T]) convertSlice(raw any) ([]T, error) {
	switch vs := raw.(type) {
	case []T:
		return vs, nil
	case []any:
		out := make([]T, len(vs))
		for i, v := range vs {
			val, err := f.typ.Convert(v)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	default:
		return nil, wire.Errorf(wire.ErrRange, "cannot use %T as repeated field", raw)
	}
}

func (f *repeatedField[T]) SetField(obj any, typ wire.Type, v wire.Value) error {
	m := obj.(Message)
	val, err := f.typ.ToScalar(typ, v)
	if err != nil {
		return wire.WrapField(err, f.name)
	}
	cur, err := f.values(m)
	if err != nil {
		return wire.WrapField(err, f.name)
	}
	m[f.key] = append(cur, val)
	return nil
}

func (f *repeatedField[T]) SetGroup(obj any) (any, wire.MessageReader, error) {
	gf, ok := resolveType(f.typ).(GroupFactory[T])
	if !ok {
		return nil, nil, wire.WrapField(wire.ErrUnexpectedGroup, f.name)
	}
	m := obj.(Message)
	cur, err := f.values(m)
	if err != nil {
		return nil, nil, wire.WrapField(err, f.name)
	}
	sub, r := gf.CreateGroup()
	m[f.key] = append(cur, sub)
	return sub, r, nil
}

func (f *repeatedField[T]) init(m Message) {
	m[f.key] = []T{}
}

func (f *repeatedField[T]) assign(m Message, v any) error {
	vs, err := f.convertSlice(v)
	if err != nil {
		return wire.WrapField(err, f.name)
	}
	m[f.key] = vs
	return nil
}

func (f *repeatedField[T]) write(s *wire.Sink, m Message) error {
	vs, err := f.values(m)
	if err != nil {
		return wire.WrapField(err, f.name)
	}
	if len(vs) == 0 {
		return nil
	}
	typ := resolveType(f.typ)
	if pw, ok := typ.(PackedWriter[T]); ok && f.packed && typ.Flags().Has(wire.FlagPackable) {
		return wire.WrapField(pw.WritePacked(s, f.num, vs), f.name)
	}
	for _, v := range vs {
		if err := typ.WriteScalar(s, f.num, v); err != nil {
			return wire.WrapField(err, f.name)
		}
	}
	return nil
}

func (f *repeatedField[T]) finish(Message) error { return nil }

// toLowerCamel converts snake_case to lowerCamelCase
func toLowerCamel(s string) string {
	if s == "" {
		return s
	}
	out := make([]byte, 0, len(s))
	upperNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if len(out) == 0 {
			// first rune lowercased
			if c >= 'A' && c <= 'Z' {
				c = c - 'A' + 'a'
			}
			out = append(out, c)
			upperNext = false
			continue
		}
		if upperNext {
			if c >= 'a' && c <= 'z' {
				c = c - 'a' + 'A'
			}
			upperNext = false
		}
		out = append(out, c)
	}
	return string(out)
}
