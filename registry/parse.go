package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"
)

// loadWithImports parses protoFile and, depth first, every file it imports.
// Imports are looked up in the configured proto directories, then in
// searchDir, then next to the importing file.
func (r *Registry) loadWithImports(protoFile, searchDir string) error {
	protoFile = filepath.Clean(protoFile)
	if _, ok := r.files[protoFile]; ok {
		return nil
	}
	pf, err := r.parseFile(protoFile)
	if err != nil {
		return err
	}
	// registered before recursing so import cycles terminate
	r.files[protoFile] = pf
	r.order = append(r.order, protoFile)

	for _, imp := range pf.Imports {
		// TODO: ship descriptors for the well-known types instead of skipping them.
		if strings.HasPrefix(imp, "google/protobuf/") {
			r.logger.Debug().Str("file", protoFile).Str("import", imp).Msg("skipping well-known import")
			continue
		}
		fullImportPath, err := r.findIfProtoExists(imp, searchDir, filepath.Dir(protoFile))
		if err != nil {
			return fmt.Errorf("%s: %w", protoFile, err)
		}
		if err := r.loadWithImports(fullImportPath, searchDir); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) findIfProtoExists(protoPath string, searchDirs ...string) (string, error) {
	if !strings.HasSuffix(protoPath, ".proto") {
		return "", fmt.Errorf("is not a .proto file %s", protoPath)
	}
	dirs := append(append([]string(nil), r.protoDirectories...), searchDirs...)
	var err error
	for _, dir := range dirs {
		fullPath := filepath.Join(dir, protoPath)
		if _, err = os.Stat(fullPath); err == nil {
			return fullPath, nil
		}
	}
	return "", fmt.Errorf("import does not exist: %s: %w", protoPath, err)
}

// parseFile reads one file with go-protoparser and converts its AST.
func (r *Registry) parseFile(filePath string) (*ProtoFile, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	parsed, err := protoparser.Parse(f, protoparser.WithFilename(filepath.Base(filePath)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	pf := &ProtoFile{Path: filePath, Syntax: "proto2"}
	if parsed.Syntax != nil {
		pf.Syntax = strings.Trim(parsed.Syntax.ProtobufVersion, `"'`)
	}
	for _, body := range parsed.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Package:
			pf.Package = b.Name
		case *protoparserparser.Import:
			pf.Imports = append(pf.Imports, strings.Trim(b.Location, `"'`))
		}
	}

	c := converter{file: pf}
	for _, body := range parsed.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Message:
			msg, err := c.message(pf.Package, b.MessageName, b.MessageBody)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", filePath, err)
			}
			pf.Messages = append(pf.Messages, msg)
		case *protoparserparser.Enum:
			enum, err := c.enum(pf.Package, b)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", filePath, err)
			}
			pf.Enums = append(pf.Enums, enum)
		}
	}
	r.logger.Debug().Str("file", filePath).Str("package", pf.Package).Str("syntax", pf.Syntax).
		Int("messages", len(pf.Messages)).Msg("parsed proto file")
	return pf, nil
}

// converter turns go-protoparser nodes into descriptors for one file.
type converter struct {
	file *ProtoFile
}

func (c *converter) message(scope, name string, body []protoparserparser.Visitee) (*Message, error) {
	msg := &Message{Name: name, FullName: getFullName(scope, name), file: c.file}
	for _, v := range body {
		switch b := v.(type) {
		case *protoparserparser.Field:
			f, err := c.field(b.FieldName, b.FieldNumber, b.Type, b.FieldOptions)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", msg.FullName, b.FieldName, err)
			}
			f.Label = c.label(b.IsRepeated, b.IsRequired, b.IsOptional)
			msg.Fields = append(msg.Fields, f)

		case *protoparserparser.MapField:
			entry, f, err := c.mapField(msg.FullName, b)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", msg.FullName, b.MapName, err)
			}
			msg.NestedTypes = append(msg.NestedTypes, entry)
			msg.Fields = append(msg.Fields, f)

		case *protoparserparser.Oneof:
			for _, of := range b.OneofFields {
				f, err := c.field(of.FieldName, of.FieldNumber, of.Type, of.FieldOptions)
				if err != nil {
					return nil, fmt.Errorf("%s.%s: %w", msg.FullName, of.FieldName, err)
				}
				// oneof members always track presence
				f.Label = LabelOptional
				f.Oneof = b.OneofName
				msg.Fields = append(msg.Fields, f)
			}

		case *protoparserparser.GroupField:
			group, err := c.message(msg.FullName, b.GroupName, b.MessageBody)
			if err != nil {
				return nil, err
			}
			group.Group = true
			num, err := parseNumber(b.FieldNumber)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", msg.FullName, b.GroupName, err)
			}
			msg.NestedTypes = append(msg.NestedTypes, group)
			msg.Fields = append(msg.Fields, &Field{
				Name:   strings.ToLower(b.GroupName),
				Number: num,
				Label:  c.label(b.IsRepeated, b.IsRequired, b.IsOptional),
				Type:   FieldType{Kind: KindGroup, TypeName: group.FullName},
			})

		case *protoparserparser.Message:
			nested, err := c.message(msg.FullName, b.MessageName, b.MessageBody)
			if err != nil {
				return nil, err
			}
			msg.NestedTypes = append(msg.NestedTypes, nested)

		case *protoparserparser.Enum:
			enum, err := c.enum(msg.FullName, b)
			if err != nil {
				return nil, err
			}
			msg.NestedEnums = append(msg.NestedEnums, enum)
		}
	}
	return msg, nil
}

func (c *converter) label(repeated, required, optional bool) FieldLabel {
	switch {
	case repeated:
		return LabelRepeated
	case required:
		return LabelRequired
	case optional:
		return LabelOptional
	case c.file.Syntax == "proto3":
		return LabelImplicit
	default:
		return LabelOptional
	}
}

func (c *converter) field(name, number, typ string, opts []*protoparserparser.FieldOption) (*Field, error) {
	num, err := parseNumber(number)
	if err != nil {
		return nil, err
	}
	f := &Field{Name: name, Number: num, Type: fieldType(typ)}
	for _, opt := range opts {
		if opt.OptionName != "packed" {
			continue
		}
		packed, err := strconv.ParseBool(opt.Constant)
		if err != nil {
			return nil, fmt.Errorf("invalid packed option %q", opt.Constant)
		}
		f.Packed = &packed
	}
	return f, nil
}

// mapField expands map<K, V> into a repeated field of a synthetic entry
// message with key = 1 and value = 2, the layout protoc generates.
func (c *converter) mapField(scope string, b *protoparserparser.MapField) (*Message, *Field, error) {
	num, err := parseNumber(b.FieldNumber)
	if err != nil {
		return nil, nil, err
	}
	entryName := mapEntryName(b.MapName)
	entry := &Message{
		Name:     entryName,
		FullName: getFullName(scope, entryName),
		MapEntry: true,
		file:     c.file,
		Fields: []*Field{
			{Name: "key", Number: 1, Label: LabelImplicit, Type: fieldType(b.KeyType)},
			{Name: "value", Number: 2, Label: LabelImplicit, Type: fieldType(b.Type)},
		},
	}
	return entry, &Field{
		Name:   b.MapName,
		Number: num,
		Label:  LabelRepeated,
		Type:   FieldType{Kind: KindMessage, TypeName: entry.FullName},
	}, nil
}

func (c *converter) enum(scope string, b *protoparserparser.Enum) (*Enum, error) {
	enum := &Enum{Name: b.EnumName, FullName: getFullName(scope, b.EnumName)}
	for _, v := range b.EnumBody {
		ef, ok := v.(*protoparserparser.EnumField)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(ef.Number, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: invalid enum number %q", enum.FullName, ef.Ident, ef.Number)
		}
		enum.Values = append(enum.Values, &EnumValue{Name: ef.Ident, Number: int32(n)})
	}
	return enum, nil
}

// fieldType classifies a type as written. Anything that is not a scalar
// keyword is a reference, resolved to a message or an enum later.
func fieldType(typ string) FieldType {
	if p, ok := primitives[typ]; ok {
		return FieldType{Kind: KindPrimitive, PrimitiveType: p}
	}
	return FieldType{Kind: KindMessage, TypeName: typ}
}

func parseNumber(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid field number %q", s)
	}
	return int32(n), nil
}

// mapEntryName follows protoc: foo_bar -> FooBarEntry.
func mapEntryName(field string) string {
	var sb strings.Builder
	upper := true
	for i := 0; i < len(field); i++ {
		ch := field[i]
		if ch == '_' {
			upper = true
			continue
		}
		if upper && 'a' <= ch && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		upper = false
		sb.WriteByte(ch)
	}
	sb.WriteString("Entry")
	return sb.String()
}

func getFullName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

/*
getReferencedType returns the fully qualified name of a referenced type,
be it top level, nested or imported. The rules follow
https://github.com/protocolbuffers/protobuf/blob/b7a5772caf08d62a20fd1bca258f501fa4db022c/src/google/protobuf/descriptor.proto#L186-L191
*/
func getReferencedType(typeName, prefix string, allResolvedEntities map[string]struct{}) (string, error) {
	// check if fully qualifed prefixed by dot
	if strings.HasPrefix(typeName, ".") {
		return getFullyQualifiedType(typeName, allResolvedEntities)
	}
	// try resolving from inner entities up till the parent package
	if result, ok := splitNameAndCheck(typeName, prefix, allResolvedEntities); ok {
		return result, nil
	}
	//  check if the entity is referenced to other packages via packageName
	if _, ok := allResolvedEntities[typeName]; ok {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve type name: %s", typeName)
}

// splitNameAndCheck splits the prefixName and tries to append the typeName and find the entity for resolution
// it also tries the find the entities defined using relative path
func splitNameAndCheck(typeName, prefix string, allResolvedEntities map[string]struct{}) (string, bool) {
	prefixSplit := strings.Split(prefix, ".")

	for len(prefixSplit) > 0 && prefixSplit[0] != "" {
		entityName := strings.Join(prefixSplit, ".") + "." + typeName
		if _, ok := allResolvedEntities[entityName]; ok {
			return entityName, true
		}
		// Omit the last element in each iteration as we go level above to outer entity
		prefixSplit = prefixSplit[:len(prefixSplit)-1]
	}
	return "", false
}

func getFullyQualifiedType(typeName string, allResolvedEntities map[string]struct{}) (string, error) {
	typeName = strings.TrimPrefix(typeName, ".")
	if _, ok := allResolvedEntities[typeName]; ok {
		return typeName, nil
	}
	return "", fmt.Errorf("unable to resolve fully qualified type name: .%s", typeName)
}
