// Command minibuf encodes, decodes and inspects Protocol Buffers wire data
// using message types loaded from .proto files.
//
// Usage:
//
//	minibuf [global flags] encode -type NAME [-in FILE] [-out FILE] [-hex]
//	minibuf [global flags] decode -type NAME [-in FILE] [-hex]
//	minibuf [global flags] dump [-in FILE] [-hex]
//	minibuf [global flags] types
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/qnighy/minibuf"
	"github.com/qnighy/minibuf/internal/config"
	"github.com/qnighy/minibuf/internal/logging"
	"github.com/qnighy/minibuf/registry"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

var errUsage = errors.New("usage error")

type app struct {
	cfg    config.Config
	logger zerolog.Logger
	mb     *minibuf.Minibuf
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("minibuf", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a minibuf.toml config file")
	format := fs.String("format", "", "output format for decoded data: json|yaml")
	logLevel := fs.String("log-level", "", "log level: trace|debug|info|warn|error|off")
	var protoDirs, protoFiles stringList
	fs.Var(&protoDirs, "I", "directory searched for imports (repeatable)")
	fs.Var(&protoFiles, "proto", ".proto file or directory to load (repeatable)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: minibuf [flags] encode|decode|dump|types [command flags]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(stderr, "minibuf:", err)
			return 1
		}
		cfg = loaded
	}
	// flags override the file
	if len(protoDirs) > 0 {
		cfg.ProtoDirs = protoDirs
	}
	if len(protoFiles) > 0 {
		cfg.Files = protoFiles
	}
	if *format != "" {
		cfg.Format = strings.ToLower(*format)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, "minibuf:", err)
		return 2
	}

	a := &app{
		cfg:    cfg,
		logger: logging.New(cfg.Log, stderr),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	var err error
	switch rest[0] {
	case "encode":
		err = a.encode(rest[1:])
	case "decode":
		err = a.decode(rest[1:])
	case "dump":
		err = a.dump(rest[1:])
	case "types":
		err = a.types(rest[1:])
	default:
		fmt.Fprintf(stderr, "minibuf: unknown command %q\n", rest[0])
		fs.Usage()
		return 2
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		// usage was already printed by the flag set
		return 2
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, "minibuf:", err)
		return 2
	default:
		a.logger.Error().Err(err).Str("command", rest[0]).Msg("command failed")
		fmt.Fprintln(stderr, "minibuf:", err)
		return 1
	}
}

// loadSchemas loads every configured file into a fresh Minibuf.
func (a *app) loadSchemas() error {
	if len(a.cfg.Files) == 0 {
		return fmt.Errorf("%w: no .proto files given (use -proto or files in the config)", errUsage)
	}
	a.mb = minibuf.New(
		registry.WithLogger(a.logger),
		registry.WithProtoDirectories(a.cfg.ProtoDirs...),
	)
	for _, path := range a.cfg.Files {
		if err := a.mb.LoadSchema(path); err != nil {
			return err
		}
		a.logger.Info().Str("path", path).Msg("loaded schema")
	}
	return nil
}
