// Package inspect decodes protobuf wire data without a schema.
package inspect

import (
	"bytes"
	"fmt"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/qnighy/minibuf/wire"
)

// Record is one field occurrence. Groups carry their members in Fields.
type Record struct {
	Field  int32     `json:"field" yaml:"field"`
	Type   string    `json:"type" yaml:"type"`
	Value  any       `json:"value,omitempty" yaml:"value,omitempty"`
	Fields []*Record `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Dump decodes every field in data in input order. Varints are read with
// the 64-bit rules and LEN values are shown as text when they are
// printable UTF-8, else as bytes.
func Dump(data []byte) ([]*Record, error) {
	d, err := wire.NewDecoder(data)
	if err != nil {
		return nil, err
	}
	root := &Record{Type: "message"}
	if err := d.ReadMessage(root, rawReader{}); err != nil {
		return nil, fmt.Errorf("at offset %d: %w", d.Pos(), err)
	}
	return root.Fields, nil
}

// YAML renders records as a YAML document.
func YAML(records []*Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// rawReader knows every field number.
type rawReader struct{}

func (rawReader) FieldReader(num wire.Number) wire.FieldReader { return rawField{num: num} }
func (rawReader) Finish(any) error                              { return nil }

type rawField struct {
	num wire.Number
}

func (f rawField) Flags() wire.Flags { return wire.FlagVarint64 }

func (f rawField) SetField(obj any, typ wire.Type, v wire.Value) error {
	parent := obj.(*Record)
	rec := &Record{Field: int32(f.num)}
	switch typ {
	case wire.TypeVarint:
		rec.Type, rec.Value = "varint", v.Num
	case wire.TypeI32:
		rec.Type, rec.Value = "fixed32", uint32(v.Num)
	case wire.TypeI64:
		rec.Type, rec.Value = "fixed64", v.Num
	case wire.TypeLen:
		rec.Type = "bytes"
		if printable(v.Bytes) {
			rec.Value = string(v.Bytes)
		} else {
			rec.Value = bytes.Clone(v.Bytes)
		}
	}
	parent.Fields = append(parent.Fields, rec)
	return nil
}

func (f rawField) SetGroup(obj any) (any, wire.MessageReader, error) {
	parent := obj.(*Record)
	rec := &Record{Field: int32(f.num), Type: "group"}
	parent.Fields = append(parent.Fields, rec)
	return rec, rawReader{}, nil
}

func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
