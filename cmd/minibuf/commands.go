package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/qnighy/minibuf/internal/config"
	"github.com/qnighy/minibuf/internal/inspect"
	"github.com/qnighy/minibuf/schema"
)

func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) encode(args []string) error {
	fs := a.newFlagSet("encode")
	typeName := fs.String("type", "", "message type name")
	in := fs.String("in", "-", "input file with a JSON or YAML object, - for stdin")
	out := fs.String("out", "-", "output file, - for stdout")
	inputFormat := fs.String("input-format", "json", "input format: json|yaml")
	asHex := fs.Bool("hex", false, "write hex text instead of raw bytes")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: encode: %w", errUsage, err)
	}
	if *typeName == "" {
		return fmt.Errorf("%w: encode: -type is required", errUsage)
	}
	if err := a.loadSchemas(); err != nil {
		return err
	}

	raw, err := a.readInput(*in)
	if err != nil {
		return err
	}
	values, err := parseObject(raw, *inputFormat)
	if err != nil {
		return err
	}
	data, err := a.mb.Marshal(values, *typeName)
	if err != nil {
		return err
	}
	a.logger.Debug().Str("type", *typeName).Int("bytes", len(data)).Msg("encoded message")

	if *asHex {
		data = []byte(hex.EncodeToString(data) + "\n")
	}
	if *out == "-" {
		_, err = a.stdout.Write(data)
		return err
	}
	return os.WriteFile(*out, data, 0o644)
}

func (a *app) decode(args []string) error {
	fs := a.newFlagSet("decode")
	typeName := fs.String("type", "", "message type name")
	in := fs.String("in", "-", "input file, - for stdin")
	asHex := fs.Bool("hex", false, "read hex text instead of raw bytes")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: decode: %w", errUsage, err)
	}
	if *typeName == "" {
		return fmt.Errorf("%w: decode: -type is required", errUsage)
	}
	if err := a.loadSchemas(); err != nil {
		return err
	}

	data, err := a.readWire(*in, *asHex)
	if err != nil {
		return err
	}
	msg, err := a.mb.Unmarshal(data, *typeName)
	if err != nil {
		return err
	}
	return a.render(msg)
}

func (a *app) dump(args []string) error {
	fs := a.newFlagSet("dump")
	in := fs.String("in", "-", "input file, - for stdin")
	asHex := fs.Bool("hex", false, "read hex text instead of raw bytes")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: dump: %w", errUsage, err)
	}

	data, err := a.readWire(*in, *asHex)
	if err != nil {
		return err
	}
	records, err := inspect.Dump(data)
	if err != nil {
		return err
	}
	if a.cfg.Format == config.FormatYAML {
		out, err := inspect.YAML(records)
		if err != nil {
			return err
		}
		_, err = a.stdout.Write(out)
		return err
	}
	return a.render(records)
}

func (a *app) types(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: types takes no arguments", errUsage)
	}
	if err := a.loadSchemas(); err != nil {
		return err
	}
	for _, name := range a.mb.ListMessages() {
		fmt.Fprintln(a.stdout, "message", name)
	}
	for _, name := range a.mb.ListEnums() {
		fmt.Fprintln(a.stdout, "enum", name)
	}
	return nil
}

func (a *app) readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(a.stdin)
	}
	return os.ReadFile(path)
}

func (a *app) readWire(path string, asHex bool) ([]byte, error) {
	raw, err := a.readInput(path)
	if err != nil {
		return nil, err
	}
	if !asHex {
		return raw, nil
	}
	data, err := hex.DecodeString(strings.Join(strings.Fields(string(raw)), ""))
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}

// parseObject reads one JSON or YAML object. JSON numbers are kept as
// json.Number so 64-bit integers survive.
func parseObject(raw []byte, format string) (map[string]any, error) {
	var values map[string]any
	switch strings.ToLower(format) {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&values); err != nil {
			return nil, fmt.Errorf("invalid JSON input: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("invalid YAML input: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported input format %q", errUsage, format)
	}
	return values, nil
}

func (a *app) render(v any) error {
	switch a.cfg.Format {
	case config.FormatYAML:
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		out, err := json.MarshalIndent(jsonValue(v), "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(a.stdout, "%s\n", out)
		return err
	}
}

// jsonValue rewrites the non-finite floats encoding/json rejects into the
// strings the protobuf JSON mapping uses.
func jsonValue(v any) any {
	switch t := v.(type) {
	case schema.Message:
		return jsonMap(t)
	case map[string]any:
		return jsonMap(t)
	case []schema.Message:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = jsonMap(m)
		}
		return out
	case float32:
		return jsonFloat(float64(t))
	case float64:
		return jsonFloat(t)
	case []float32:
		out := make([]any, len(t))
		for i, f := range t {
			out[i] = jsonFloat(float64(f))
		}
		return out
	case []float64:
		out := make([]any, len(t))
		for i, f := range t {
			out[i] = jsonFloat(f)
		}
		return out
	default:
		return v
	}
}

func jsonMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = jsonValue(v)
	}
	return out
}

func jsonFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return f
	}
}
