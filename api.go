// Package minibuf encodes and decodes Protocol Buffers wire data without
// generated code. Message types are defined at runtime, either in Go with
// the schema package or by loading .proto files into a registry.
package minibuf

import (
	"fmt"

	"github.com/qnighy/minibuf/internal/inspect"
	"github.com/qnighy/minibuf/registry"
	"github.com/qnighy/minibuf/schema"
)

// Encode serializes msg as a message of type t.
func Encode(msg schema.Message, t *schema.MessageType) ([]byte, error) {
	return t.Marshal(msg)
}

// Decode parses data as a message of type t.
func Decode(data []byte, t *schema.MessageType) (schema.Message, error) {
	return t.Unmarshal(data)
}

// DecodeInto parses data into an existing message, replacing singular
// fields and appending to repeated ones.
func DecodeInto(data []byte, t *schema.MessageType, msg schema.Message) error {
	return t.UnmarshalInto(data, msg)
}

// ===== SCHEMA-AWARE API =====

// Minibuf encodes and decodes messages by name, using types loaded from
// .proto files.
type Minibuf struct {
	registry *registry.Registry
}

// New creates a new Minibuf instance
func New(opts ...registry.Option) *Minibuf {
	return &Minibuf{
		registry: registry.NewRegistry(opts...),
	}
}

// LoadSchema loads a .proto file or a directory of them.
func (p *Minibuf) LoadSchema(path string) error {
	return p.registry.LoadSchema(path)
}

// Marshal encodes data as the named message type.
func (p *Minibuf) Marshal(data map[string]any, messageType string) ([]byte, error) {
	t, err := p.registry.Lookup(messageType)
	if err != nil {
		return nil, err
	}
	return t.Marshal(data)
}

// Unmarshal decodes data as the named message type.
func (p *Minibuf) Unmarshal(data []byte, messageType string) (schema.Message, error) {
	t, err := p.registry.Lookup(messageType)
	if err != nil {
		return nil, err
	}
	return t.Unmarshal(data)
}

// ===== SCHEMA-LESS API =====

// Parse decodes data without a schema. Each field number maps to
// "field_<n>" holding {"type": ..., "value": ...}; a number seen more than
// once maps to a list of those, and a group's value is its own field map.
func Parse(data []byte) (map[string]any, error) {
	records, err := inspect.Dump(data)
	if err != nil {
		return nil, err
	}
	return recordsToMap(records), nil
}

func recordsToMap(records []*inspect.Record) map[string]any {
	result := make(map[string]any)
	for _, rec := range records {
		entry := map[string]any{"type": rec.Type, "value": rec.Value}
		if rec.Type == "group" {
			entry["value"] = recordsToMap(rec.Fields)
		}
		key := fmt.Sprintf("field_%d", rec.Field)
		switch prev := result[key].(type) {
		case nil:
			result[key] = entry
		case []any:
			result[key] = append(prev, entry)
		default:
			result[key] = []any{prev, entry}
		}
	}
	return result
}

// ===== REGISTRY ACCESS =====

func (p *Minibuf) GetRegistry() *registry.Registry { return p.registry }
func (p *Minibuf) ListMessages() []string          { return p.registry.ListMessages() }
func (p *Minibuf) ListEnums() []string             { return p.registry.ListEnums() }
