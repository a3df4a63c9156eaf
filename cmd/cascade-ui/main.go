// Package main provides the cascade-ui command: a browse server for an
// experiment-tracking workspace and a terminal client for the same backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cascade-ml/cascade-ui/internal/browser"
	"github.com/cascade-ml/cascade-ui/internal/provider"
	"github.com/cascade-ml/cascade-ui/internal/shutdown"
	"github.com/cascade-ml/cascade-ui/internal/store/sqlite"
	"github.com/cascade-ml/cascade-ui/pkg/config"
	"github.com/cascade-ml/cascade-ui/pkg/logger"
)

const usage = `usage: cascade-ui [-config file] [-o yaml|json] <command> [args]

commands:
  serve                     run the browse server
  ls [repo[/line]]          list the workspace, a repo or a line
  tree                      show the workspace with every repo loaded
  table [-fields a,b] repo/line
                            show a line's item table with extra fields
  show [-config|-log] repo/line/num
                            show a model or dataset
  comment -m text path      comment on a repo, line or item
  version                   show backend versions
`

// errUsage marks command-line mistakes; they exit with status 2.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cascade-ui", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "YAML config file (default $CASCADE_CONFIG)")
	format := fs.String("o", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	if *format != "yaml" && *format != "json" {
		fmt.Fprintf(stderr, "unknown output format %q\n", *format)
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "invalid log level: %v\n", err)
		return 1
	}
	log := logger.NewWithWriter(stderr, level, cfg.JSONLogs())

	a := newApp(cfg, log, stdout, *format)

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	var runErr error
	if cmd == "serve" {
		runErr = a.serve(ctx, cmdArgs)
	} else {
		runErr = a.dispatch(ctx, cmd, cmdArgs)
		a.close()
	}

	switch {
	case runErr == nil:
		return 0
	case errors.Is(runErr, errUsage):
		fmt.Fprintln(stderr, runErr)
		fmt.Fprint(stderr, usage)
		return 2
	default:
		fmt.Fprintf(stderr, "error: %v\n", runErr)
		return 1
	}
}

// app holds what every command needs.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	out       io.Writer
	format    string
	client    *provider.Client
	snapshots *sqlite.SnapshotStore
	browser   *browser.Browser
}

// newApp builds the provider chain: the HTTP client, request
// de-duplication, then the snapshot fallback when a cache path is set. A
// cache that cannot be opened is skipped with a warning.
func newApp(cfg *config.Config, log *logger.Logger, out io.Writer, format string) *app {
	a := &app{cfg: cfg, log: log, out: out, format: format}

	a.client = provider.NewClient(cfg.APIURL,
		provider.WithTimeout(cfg.RequestTimeout),
		provider.WithLogger(log.Logger),
	)
	var p provider.Provider = provider.NewDedup(a.client)

	if cfg.CachePath != "" {
		snaps, err := sqlite.Open(cfg.CachePath, log.WithComponent("snapshots").Logger)
		if err != nil {
			log.Warn("snapshot cache disabled", "path", cfg.CachePath, "error", err)
		} else {
			a.snapshots = snaps
			p = provider.NewFallback(p, snaps, log.WithComponent("fallback").Logger)
		}
	}

	a.browser = browser.New(p,
		browser.WithLogger(log.Logger),
		browser.WithDefaultFields(cfg.DefaultFields...),
	)
	return a
}

// register adds the snapshot cache to c. Being stopped in reverse order, it
// is pruned first and closed last.
func (a *app) register(c *shutdown.Coordinator) {
	if a.snapshots == nil {
		return
	}
	c.Register(shutdown.NewCloserComponent("snapshots", a.snapshots))
	c.Register(shutdown.NewPruneComponent(a.snapshots, a.cfg.CacheMaxAge))
}

func (a *app) coordinator() *shutdown.Coordinator {
	return shutdown.NewCoordinator(
		shutdown.WithTimeout(a.cfg.ShutdownTimeout),
		shutdown.WithLogger(a.log.WithComponent("shutdown").Logger),
	)
}

// close releases what a one-shot command opened.
func (a *app) close() {
	c := a.coordinator()
	a.register(c)
	c.Shutdown()
	if err := c.Err(); err != nil {
		a.log.Warn("failed to close snapshot cache", "error", err)
	}
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "ls":
		return a.ls(ctx, args)
	case "tree":
		return a.tree(ctx, args)
	case "table":
		return a.table(ctx, args)
	case "show":
		return a.show(ctx, args)
	case "comment":
		return a.comment(ctx, args)
	case "version":
		return a.version(ctx, args)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}
