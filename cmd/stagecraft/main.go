// Package main is the entry point for the Stagecraft scene editor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/stagecraft/internal/app"
	"github.com/dshills/stagecraft/internal/loader"
	"github.com/dshills/stagecraft/internal/surface"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type cliOptions struct {
	app      app.Options
	script   string
	export   string
	images   stringList
	videos   stringList
	texts    stringList
	headless bool
	save     bool
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint(*s) }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(opts.app)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	// Ensure cleanup on all exit paths
	defer func() {
		if err := application.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: shutdown: %v\n", err)
		}
	}()

	if err := seed(ctx, application, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if opts.script != "" {
		if err := application.RunScript(ctx, opts.script, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	if opts.save {
		if _, err := application.Engine().Save(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: save: %v\n", err)
			return 1
		}
	}

	if opts.export != "" {
		if err := application.Export(ctx, opts.export); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	if opts.headless {
		return 0
	}

	cfg := application.Config().Surface
	term, err := surface.NewTerminalScreen(
		surface.WithViewport(surface.Viewport{CellWidth: cfg.CellWidth, CellHeight: cfg.CellHeight}),
		surface.WithMouse(cfg.Mouse),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", err)
		return 1
	}

	if err := application.Run(ctx, term); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// seed adds the elements named on the command line.
func seed(ctx context.Context, application *app.Application, opts cliOptions) error {
	e := application.Engine()
	for _, text := range opts.texts {
		if _, ok := e.AddText(text); !ok {
			return fmt.Errorf("add text: blank text")
		}
	}
	for _, path := range opts.images {
		src, err := loader.Durable(path)
		if err != nil {
			return fmt.Errorf("add image %s: %w", path, err)
		}
		if _, err := e.AddImage(ctx, src); err != nil {
			return fmt.Errorf("add image %s: %w", path, err)
		}
	}
	for _, path := range opts.videos {
		src, err := loader.Durable(path)
		if err != nil {
			return fmt.Errorf("add video %s: %w", path, err)
		}
		if _, err := e.AddVideo(ctx, src); err != nil {
			return fmt.Errorf("add video %s: %w", path, err)
		}
	}
	return nil
}

func parseFlags() cliOptions {
	var opts cliOptions
	var showVersion, showHelp, noRestore bool

	flag.StringVar(&opts.app.ConfigPath, "config", "", "Path to configuration file (TOML or YAML)")
	flag.StringVar(&opts.app.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.BoolVar(&opts.app.Watch, "watch", true, "Reload the configuration file when it changes")
	flag.StringVar(&opts.app.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.app.StoreBackend, "store", "", "Snapshot store backend (memory, file, bolt, sqlite)")
	flag.StringVar(&opts.app.StorePath, "store-path", "", "Snapshot store file or directory")
	flag.BoolVar(&noRestore, "fresh", false, "Start with an empty canvas instead of the saved one")
	flag.StringVar(&opts.script, "script", "", "Run a Lua script against the canvas")
	flag.StringVar(&opts.export, "export", "", "Write the canvas to a PNG file")
	flag.Var(&opts.texts, "text", "Add a text element (repeatable)")
	flag.Var(&opts.images, "image", "Add an image from a path or URL (repeatable)")
	flag.Var(&opts.videos, "video", "Add an MP4 video from a path or URL (repeatable)")
	flag.BoolVar(&opts.save, "save", false, "Save the canvas after scripts and seeds run")
	flag.BoolVar(&opts.headless, "headless", false, "Do not open the terminal editor")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Stagecraft - canvas editor for images, text and video\n\n")
		fmt.Fprintf(os.Stderr, "Usage: stagecraft [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nKeys:\n")
		fmt.Fprintf(os.Stderr, "  click select   arrows move   f/b forward/backward   +/- resize\n")
		fmt.Fprintf(os.Stderr, "  space play/pause   u/r undo/redo   s/l save/load   q quit\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  stagecraft                                   Edit the saved canvas\n")
		fmt.Fprintf(os.Stderr, "  stagecraft -image cat.png -text Hello        Add elements, then edit\n")
		fmt.Fprintf(os.Stderr, "  stagecraft -headless -script s.lua -save     Script a canvas and save it\n")
		fmt.Fprintf(os.Stderr, "  stagecraft -headless -export canvas.png      Render the saved canvas\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Stagecraft %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.app.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.app.LogLevel)
		os.Exit(1)
	}

	opts.app.Restore = !noRestore
	opts.app.Interactive = !opts.headless
	if opts.headless {
		opts.app.Watch = false
	}
	return opts
}
