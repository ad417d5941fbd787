package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "modhost"
	app.Usage = "run a hot-reloadable module"
	app.Description = "modhost loads a module exporting on_load, on_unload and update, calls update every frame " +
		"and swaps in <library>.new on request without restarting."
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config.yaml", Usage: "config file"},
		&cli.StringFlag{Name: "module", Aliases: []string{"m"}, Usage: "logical module name"},
		&cli.StringFlag{Name: "dir", Usage: "directory holding the module file"},
		&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Usage: "native or wasm"},
		&cli.BoolFlag{Name: "wasi", Usage: "link wasi_snapshot_preview1 for wasm modules"},
		&cli.IntFlag{Name: "fps", Usage: "frame rate cap"},
		&cli.BoolFlag{Name: "auto-reload", Usage: "reload when a staged build appears"},
		&cli.BoolFlag{Name: "headless", Usage: "run without the terminal UI; SIGHUP reloads"},
		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "debug logging"},
	}
	app.Action = runAction
	app.Commands = []*cli.Command{
		{Name: "run", Action: runAction, Usage: "load the module and drive it every frame"},
		{Name: "check",
			Action:    checkAction,
			Usage:     "load a module and verify its exports without calling them",
			ArgsUsage: "[name]",
		},
		{Name: "filename",
			Action:    filenameAction,
			Usage:     "print the library path derived for a logical name",
			ArgsUsage: "[name...]",
		},
	}
	return app
}
