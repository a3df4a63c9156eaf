package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/cascade-ml/cascade-ui/internal/api"
	"github.com/cascade-ml/cascade-ui/internal/api/health"
	"github.com/cascade-ml/cascade-ui/internal/hydrate"
	"github.com/cascade-ml/cascade-ui/internal/models"
	"github.com/cascade-ml/cascade-ui/internal/pathspec"
	"github.com/cascade-ml/cascade-ui/internal/shutdown"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

// serve runs the browse server until a signal arrives or ctx ends.
func (a *app) serve(ctx context.Context, args []string) error {
	fs := newFlagSet("serve")
	host := fs.String("host", a.cfg.Host, "listen host")
	port := fs.Int("port", a.cfg.Port, "listen port")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	a.cfg.Host, a.cfg.Port = *host, *port
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	var snapshots health.SnapshotCounter
	if a.snapshots != nil {
		snapshots = a.snapshots
	}
	srv := api.NewServer(a.cfg, a.browser, a.client, snapshots, a.log.Logger)

	coord := a.coordinator()
	a.register(coord)
	coord.Register(shutdown.NewHTTPServerComponent("http", srv.HTTPServer()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		// Start returns nil once the coordinator has shut the server down.
		err := srv.Start(context.Background())
		errCh <- err
		if err != nil {
			cancel()
		}
	}()

	coord.WaitForSignal(ctx)
	if err := <-errCh; err != nil {
		return err
	}
	if coord.ExitCode() != 0 {
		return fmt.Errorf("shutdown: %w", coord.Err())
	}
	a.log.Info("server stopped")
	return nil
}

// ls lists the workspace, a repo or a line, depending on the path depth.
func (a *app) ls(ctx context.Context, args []string) error {
	switch len(args) {
	case 0:
		ws, err := a.browser.LoadWorkspace(ctx)
		if err != nil {
			return err
		}
		return a.print(ws)
	case 1:
	default:
		return fmt.Errorf("%w: ls takes at most one path", errUsage)
	}

	parts, err := pathspec.ParseParts(args[0])
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	switch len(parts) {
	case 1:
		repo, err := a.browser.LoadRepo(ctx, pathspec.RepoSpec(parts[0]))
		if err != nil {
			return err
		}
		return a.print(repo)
	case 2:
		spec, err := a.browser.LineSpec(ctx, parts[0], parts[1])
		if err != nil {
			return err
		}
		line, err := a.browser.LoadLine(ctx, spec)
		if err != nil {
			return err
		}
		return a.print(line)
	}
	return fmt.Errorf("%w: use show for items", errUsage)
}

func (a *app) tree(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: tree takes no arguments", errUsage)
	}
	t, err := a.browser.LoadTree(ctx)
	if err != nil {
		return err
	}
	return a.print(t)
}

// table prints a line's items with the requested fields merged in. When
// the field fetch fails the loaded rows are still printed.
func (a *app) table(ctx context.Context, args []string) error {
	fs := newFlagSet("table")
	fields := fs.String("fields", "", "comma-separated item fields to add")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: table takes repo/line", errUsage)
	}
	parts, err := pathspec.ParseParts(fs.Arg(0))
	if err != nil || len(parts) != 2 {
		return fmt.Errorf("%w: table takes repo/line, got %q", errUsage, fs.Arg(0))
	}

	spec, err := a.browser.LineSpec(ctx, parts[0], parts[1])
	if err != nil {
		return err
	}
	line, err := a.browser.LoadLine(ctx, spec)
	if err != nil {
		return err
	}
	t := a.browser.NewTable(line)

	selected := hydrate.Fields(strings.Split(*fields, ",")...)
	var fetchErr error
	if len(selected) > 0 {
		_, fetchErr = a.browser.HydrateLine(ctx, spec, t, selected...)
	}
	if err := a.print(t.Rows()); err != nil {
		return err
	}
	return fetchErr
}

// show prints a model or dataset, or a model's run config or log.
func (a *app) show(ctx context.Context, args []string) error {
	fs := newFlagSet("show")
	showConfig := fs.Bool("config", false, "show the run config of a model")
	showLog := fs.Bool("log", false, "show the run log of a model")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 || (*showConfig && *showLog) {
		return fmt.Errorf("%w: show takes repo/line/num and at most one of -config, -log", errUsage)
	}
	item, err := pathspec.ParseModelPath(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	switch {
	case *showConfig:
		cfg, err := a.browser.RunConfig(ctx, item)
		if err != nil {
			return err
		}
		return a.print(cfg)
	case *showLog:
		runLog, err := a.browser.RunLog(ctx, item)
		if err != nil {
			return err
		}
		if runLog.LogText == nil {
			return nil
		}
		_, err = io.WriteString(a.out, *runLog.LogText)
		return err
	}

	spec, err := a.browser.LineSpec(ctx, item.Repo, item.Line)
	if err != nil {
		return err
	}
	traced, err := a.browser.LoadItem(ctx, spec, item.Num)
	if err != nil {
		return err
	}
	return a.print(traced)
}

func (a *app) comment(ctx context.Context, args []string) error {
	fs := newFlagSet("comment")
	message := fs.String("m", "", "comment text")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: comment takes one path", errUsage)
	}
	target, err := pathspec.ParseParts(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	ack, err := a.browser.AddComment(ctx, target, *message)
	if err != nil {
		return err
	}
	return a.print(ack)
}

// versionOutput pairs the backend versions with this build's.
type versionOutput struct {
	Client  string              `json:"client"`
	Backend *models.VersionInfo `json:"backend"`
}

func (a *app) version(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: version takes no arguments", errUsage)
	}
	info, err := a.browser.Version(ctx)
	if err != nil {
		return err
	}
	return a.print(versionOutput{Client: api.Version, Backend: info})
}
