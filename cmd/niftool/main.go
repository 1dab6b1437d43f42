// Command niftool inspects, copies and packs scene-graph containers.
//
// Usage:
//
//	niftool [flags] inspect <name>...
//	niftool [flags] copy <name> <out>
//	niftool [flags] pack [--compression zstd|lz4|none] <dir> <out>
//	niftool [flags] list <archive>
//
// Names are resolved against the game directory first and then against the
// configured archives. The exit status is 0 on success, 2 on usage errors,
// and otherwise the exit code of the failure kind.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/meigma/nif"
	"github.com/meigma/nif/config"
)

const exitUsage = 2

var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app carries the state shared by all commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	name    string
	summary string
	run     func(a *app, ctx context.Context, args []string) error
}

var commands = []command{
	{"inspect", "load containers and print their header and blocks", (*app).inspect},
	{"copy", "load a container and save it to a new path", (*app).copyContainer},
	{"pack", "pack a directory into an archive", (*app).pack},
	{"list", "list the entries of an archive", (*app).list},
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("niftool", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)
	configPath := flags.StringP("config", "c", "", "YAML configuration file")
	gameDir := flags.StringP("game-dir", "d", "", "directory searched for loose files")
	archives := flags.StringArrayP("archive", "a", nil, "archive searched when no loose file exists (repeatable)")
	logLevel := flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.Usage = func() { usage(stderr, flags) }

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return exitUsage
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintf(stderr, "niftool: %v\n", err)
			return exitUsage
		}
	}
	if *gameDir != "" {
		cfg.GameDir = *gameDir
	}
	cfg.Archives = append(cfg.Archives, *archives...)
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	level, err := cfg.Level()
	if err != nil {
		fmt.Fprintf(stderr, "niftool: %v\n", err)
		return exitUsage
	}

	rest := flags.Args()
	if len(rest) == 0 {
		usage(stderr, flags)
		return exitUsage
	}

	a := &app{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		stdout: stdout,
		stderr: stderr,
	}
	for _, cmd := range commands {
		if cmd.name != rest[0] {
			continue
		}
		err := cmd.run(a, ctx, rest[1:])
		switch {
		case err == nil:
			return 0
		case errors.Is(err, errUsage):
			fmt.Fprintf(stderr, "niftool %s: %v\n", cmd.name, err)
			return exitUsage
		default:
			fmt.Fprintf(stderr, "niftool %s: %v\n", cmd.name, err)
			return nif.ExitCode(err)
		}
	}

	fmt.Fprintf(stderr, "niftool: unknown command %q\n", rest[0])
	usage(stderr, flags)
	return exitUsage
}

func usage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: niftool [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, flags.FlagUsages())
}
