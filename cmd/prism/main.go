package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prism-search/prism/internal/config"
	"github.com/prism-search/prism/internal/debug"
	"github.com/prism-search/prism/internal/indexing"
	"github.com/prism-search/prism/internal/search"
	"github.com/prism-search/prism/internal/server"
	"github.com/prism-search/prism/internal/version"

	"github.com/urfave/cli/v2"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides.
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
	}

	var cfg *config.Config
	if configPath := c.String("config"); configPath != "" {
		cfg, err = config.LoadFrom(absRoot, configPath)
	} else {
		cfg, err = config.Load(absRoot)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludeFlags...)
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if limit := c.Int("limit"); limit > 0 {
		cfg.Search.DefaultLimit = limit
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if debug.IsDebugEnabled() {
		if _, err := debug.InitDebugLogFile(); err == nil {
			defer debug.CloseDebugLog()
		}
	}

	app := &cli.App{
		Name:                   "prism",
		Usage:                  "Local code search daemon with a persistent line index",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory to index (default: current directory)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (default: <root>/.prism.kdl)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Exclude files matching glob patterns (e.g., --exclude '**/testdata/**')",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "index",
				Aliases: []string{"i"},
				Usage:   "Build or refresh the index for the project root",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "full",
						Usage: "Discard the snapshot and rebuild from scratch",
					},
				},
				Action: indexCommand,
			},
			{
				Name:      "search",
				Aliases:   []string{"s"},
				Usage:     "Search indexed lines for a query",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Max number of results",
					},
				},
				Action: searchCommand,
			},
			{
				Name:      "usage",
				Aliases:   []string{"u"},
				Usage:     "Show the likely definition and usages of a symbol",
				ArgsUsage: "<symbol>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Max number of results",
					},
				},
				Action: usageCommand,
			},
			{
				Name:      "file",
				Aliases:   []string{"f"},
				Usage:     "Print the indexed lines of one file",
				ArgsUsage: "<path>",
				Action:    fileCommand,
			},
			{
				Name:   "stats",
				Usage:  "Show index statistics",
				Action: statsCommand,
			},
			{
				Name:  "serve",
				Usage: "Run the HTTP daemon with live index updates",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides config)",
					},
					&cli.BoolFlag{
						Name:  "no-watch",
						Usage: "Disable filesystem watching",
					},
				},
				Action: serveCommand,
			},
			{
				Name:   "clean",
				Usage:  "Delete the on-disk index state",
				Action: cleanCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openIndex wires a coordinator and engine over the configured root and
// brings the index up to date.
func openIndex(ctx context.Context, cfg *config.Config) (*indexing.Coordinator, *search.Engine, error) {
	coord := indexing.NewCoordinator(cfg)
	engine := search.NewEngine(cfg, coord)

	if err := coord.Init(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize index: %w", err)
	}
	return coord, engine, nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	ctx := context.Background()
	coord, engine, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer coord.Shutdown()

	if cfg.Index.WatchMode && !c.Bool("no-watch") {
		if err := coord.StartWatcher(); err != nil {
			// The daemon still serves a correct index; reconcile on
			// restart covers whatever the watcher would have seen.
			fmt.Fprintf(os.Stderr, "Warning: file watching unavailable: %v\n", err)
		}
	}

	srv := server.New(cfg, coord, engine)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	srv.SetReady()

	fmt.Printf("prism %s serving %s on http://%s\n", version.Version, cfg.Project.Root, srv.Addr())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	fmt.Printf("Received %v, shutting down\n", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func cleanCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	stateDir := cfg.StateDir()
	if err := os.RemoveAll(stateDir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", stateDir, err)
	}

	fmt.Printf("Removed %s\n", stateDir)
	return nil
}
