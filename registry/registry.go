package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/qnighy/minibuf/schema"
)

// ErrNotFound is returned when a name matches no registered type.
var ErrNotFound = errors.New("registry: not found")

// Registry allows us to store the schema of the protobuf messages. We look this up when we need to parse or marshal a message.
type Registry struct {
	protoDirectories []string
	logger           zerolog.Logger

	files    map[string]*ProtoFile // cleaned path -> parsed file
	order    []string              // load order of files
	messages map[string]*Message   // fully qualified name -> message
	enums    map[string]*Enum      // fully qualified name -> enum
	types    map[string]*schema.MessageType
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for load diagnostics. The default
// discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithProtoDirectories adds directories searched when resolving imports.
func WithProtoDirectories(dirs ...string) Option {
	return func(r *Registry) { r.protoDirectories = append(r.protoDirectories, dirs...) }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger:   zerolog.Nop(),
		files:    make(map[string]*ProtoFile),
		messages: make(map[string]*Message),
		enums:    make(map[string]*Enum),
		types:    make(map[string]*schema.MessageType),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadSchema loads a .proto file, or every .proto file under a directory,
// together with their imports. It may be called more than once; the
// message types are rebuilt over everything loaded so far.
func (r *Registry) LoadSchema(protoPath string) error {
	// Check if the path exists
	info, err := os.Stat(protoPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	if !info.IsDir() {
		if !strings.HasSuffix(protoPath, ".proto") {
			return fmt.Errorf("file %s is not a .proto file", protoPath)
		}
		if err := r.loadWithImports(protoPath, filepath.Dir(protoPath)); err != nil {
			return fmt.Errorf("failed to load proto file: %w", err)
		}
	} else {
		err = filepath.WalkDir(protoPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".proto") {
				return nil
			}
			if err := r.loadWithImports(path, protoPath); err != nil {
				return fmt.Errorf("failed to load proto file %s: %w", path, err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to walk directory: %w", err)
		}
	}

	if err := r.buildSymbolTable(); err != nil {
		return fmt.Errorf("failed to build symbol table: %w", err)
	}
	return nil
}

// buildSymbolTable registers every name, resolves field type references
// and compiles the message types.
func (r *Registry) buildSymbolTable() error {
	messages := make(map[string]*Message)
	enums := make(map[string]*Enum)
	for _, path := range r.order {
		pf := r.files[path]
		for _, msg := range pf.Messages {
			if err := registerNames(msg, messages, enums); err != nil {
				return err
			}
		}
		for _, enum := range pf.Enums {
			if err := registerEnum(enum, messages, enums); err != nil {
				return err
			}
		}
	}

	all := make(map[string]struct{}, len(messages)+len(enums))
	for name := range messages {
		all[name] = struct{}{}
	}
	for name := range enums {
		all[name] = struct{}{}
	}
	for _, msg := range messages {
		if err := resolveFields(msg, all, enums); err != nil {
			return err
		}
	}

	types := make(map[string]*schema.MessageType, len(messages))
	for name, msg := range messages {
		t, err := buildMessageType(msg, types)
		if err != nil {
			return err
		}
		types[name] = t
		r.logger.Debug().Str("message", name).Int("fields", len(msg.Fields)).Msg("built message type")
	}

	r.messages, r.enums, r.types = messages, enums, types
	return nil
}

func registerNames(msg *Message, messages map[string]*Message, enums map[string]*Enum) error {
	if _, dup := messages[msg.FullName]; dup {
		return fmt.Errorf("duplicate message %s", msg.FullName)
	}
	if _, dup := enums[msg.FullName]; dup {
		return fmt.Errorf("duplicate symbol %s", msg.FullName)
	}
	messages[msg.FullName] = msg
	for _, nested := range msg.NestedTypes {
		if err := registerNames(nested, messages, enums); err != nil {
			return err
		}
	}
	for _, enum := range msg.NestedEnums {
		if err := registerEnum(enum, messages, enums); err != nil {
			return err
		}
	}
	return nil
}

func registerEnum(enum *Enum, messages map[string]*Message, enums map[string]*Enum) error {
	_, dupMsg := messages[enum.FullName]
	_, dupEnum := enums[enum.FullName]
	if dupMsg || dupEnum {
		return fmt.Errorf("duplicate symbol %s", enum.FullName)
	}
	enums[enum.FullName] = enum
	return nil
}

func resolveFields(msg *Message, all map[string]struct{}, enums map[string]*Enum) error {
	for _, f := range msg.Fields {
		if f.Type.Kind == KindPrimitive {
			continue
		}
		name, err := getReferencedType(f.Type.TypeName, msg.FullName, all)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", msg.FullName, f.Name, err)
		}
		f.Type.TypeName = name
		if _, ok := enums[name]; ok {
			f.Type.Kind = KindEnum
		}
	}
	return nil
}

// Lookup returns the message type with the given name. A name that is not
// fully qualified matches when it is a unique suffix of a registered one.
func (r *Registry) Lookup(name string) (*schema.MessageType, error) {
	full, err := lookupName(name, r.types)
	if err != nil {
		return nil, fmt.Errorf("message %w", err)
	}
	return r.types[full], nil
}

// GetMessage retrieves a message definition by name
func (r *Registry) GetMessage(name string) (*Message, error) {
	full, err := lookupName(name, r.messages)
	if err != nil {
		return nil, fmt.Errorf("message %w", err)
	}
	return r.messages[full], nil
}

// GetEnum retrieves an enum definition by name
func (r *Registry) GetEnum(name string) (*Enum, error) {
	full, err := lookupName(name, r.enums)
	if err != nil {
		return nil, fmt.Errorf("enum %w", err)
	}
	return r.enums[full], nil
}

func lookupName[V any](name string, table map[string]V) (string, error) {
	name = strings.TrimPrefix(name, ".")
	if _, ok := table[name]; ok {
		return name, nil
	}
	var matches []string
	for fullName := range table {
		if strings.HasSuffix(fullName, "."+name) {
			matches = append(matches, fullName)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%s is ambiguous: %s", name, strings.Join(matches, ", "))
	}
}

// ListMessages returns all registered message names, sorted.
func (r *Registry) ListMessages() []string {
	return sortedKeys(r.messages)
}

// ListEnums returns all registered enum names, sorted.
func (r *Registry) ListEnums() []string {
	return sortedKeys(r.enums)
}

// Files returns the loaded files in load order.
func (r *Registry) Files() []*ProtoFile {
	files := make([]*ProtoFile, 0, len(r.order))
	for _, path := range r.order {
		files = append(files, r.files[path])
	}
	return files
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
