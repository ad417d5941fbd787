package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/modhost/config"
	"github.com/wippyai/modhost/dylib"
	"github.com/wippyai/modhost/engine"
	"github.com/wippyai/modhost/host"
	"github.com/wippyai/modhost/lifecycle"
	"github.com/wippyai/modhost/symbols"
)

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	interactive := !c.Bool("headless") && term.IsTerminal(int(os.Stdout.Fd()))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup(ctx, cfg, interactive)
	if err != nil {
		return err
	}
	defer rt.close(context.WithoutCancel(ctx))

	if err := rt.loop.Start(ctx); err != nil {
		return err
	}

	if interactive {
		return runInteractive(ctx, rt)
	}
	return runHeadless(ctx, rt)
}

func runHeadless(ctx context.Context, rt *session) error {
	rt.logger.Info("running headless",
		zap.String("module", rt.cfg.Module.Name),
		zap.String("backend", rt.backend.Name()),
		zap.Int("fps", rt.cfg.Host.FPS))
	return rt.loop.Run(ctx, host.ReloadSignals(ctx))
}

// checkAction maps a module and resolves its exports. No entry point runs.
// Failures to unmap the module or release the backend are returned.
func checkAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	name := cfg.Module.Name
	if c.Args().Len() > 0 {
		name = c.Args().First()
	}

	ctx := c.Context
	backend, err := newBackend(ctx, cfg.Module)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := backend.Close(ctx); cerr != nil {
			err = stderrors.Join(err, fmt.Errorf("close backend: %w", cerr))
		}
	}()

	return check(ctx, c.App.Writer, backend, cfg.Module.Dir, name)
}

func check(ctx context.Context, out io.Writer, backend engine.Backend, dir, name string) error {
	mgr := lifecycle.NewManager(backend, lifecycle.WithDir(dir))
	mod, err := mgr.Load(ctx, name)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Module: %s\n", mod.Name())
	fmt.Fprintf(out, "Path: %s\n", mod.Path())
	fmt.Fprintf(out, "Backend: %s\n", backend.Name())
	fmt.Fprintf(out, "\nExports:\n")
	for _, e := range symbols.Contract() {
		fmt.Fprintf(out, "  %s%s  ok\n", e.Name, e.Signature())
	}
	if _, ok := backend.(*engine.Native); ok {
		fmt.Fprintf(out, "\nNative export signatures are not checked; only names are.\n")
	}
	return mgr.Discard(ctx, mod)
}

// filenameFor derives a library path without creating a backend.
func filenameFor(cfg config.ModuleConfig, name string) string {
	file := dylib.Filename(name)
	if cfg.Backend == config.BackendWasm {
		file = name + engine.WasmExtension
	}
	return filepath.Join(cfg.Dir, file)
}

func filenameAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	names := c.Args().Slice()
	if len(names) == 0 {
		names = []string{cfg.Module.Name}
	}
	for _, name := range names {
		fmt.Fprintln(c.App.Writer, filenameFor(cfg.Module, name))
	}
	return nil
}
