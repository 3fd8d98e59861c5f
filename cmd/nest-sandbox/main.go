// nest-tests - Integration test harness for the Nest package manager
// Copyright (C) 2025 Raven-OS
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// nest-sandbox materializes fixture scenarios into disposable repositories,
// either on disk for inspection or behind a running repository server. It
// does by hand exactly what the integration tests do in-process.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/raven-os/nest-tests/internal/config"
	"github.com/raven-os/nest-tests/internal/logger"
	"github.com/raven-os/nest-tests/pkg/fixture"
	"github.com/raven-os/nest-tests/pkg/server"
)

func PackCmd() *cli.Command {
	return &cli.Command{
		Name:      "pack",
		Usage:     "Materialize a scenario into a repository tree",
		ArgsUsage: "SCENARIO",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "out",
				Aliases:  []string{"o"},
				Usage:    "Directory to materialize the repository into",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("expected exactly one scenario file", 1)
			}
			pkgs, err := LoadScenario(c.Args().First())
			if err != nil {
				return cli.Exit(err, 1)
			}
			root := c.String("out")
			for _, pkg := range pkgs {
				if err := fixture.Materialize(c.Context, pkg, root); err != nil {
					return cli.Exit(err, 1)
				}
				slog.Info("materialized package", "id", pkg.ID())
			}
			return nil
		},
	}
}

func ServeCmd() *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Materialize a scenario and serve it until interrupted",
		ArgsUsage: "SCENARIO",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "server-bin",
				Usage: "Repository server executable (defaults to NEST_SERVER_BIN)",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Server working directory (defaults to NEST_SERVER_DIR)",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Address the server listens on (defaults to NEST_SERVER_ADDR)",
			},
		},
		Action: func(c *cli.Context) error {
			var pkgs []*fixture.Package
			if c.NArg() == 1 {
				var err error
				pkgs, err = LoadScenario(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}
			} else if c.NArg() > 1 {
				return cli.Exit("expected at most one scenario file", 1)
			}

			h, err := server.Start(c.Context, pkgs, server.Options{
				Bin:  c.String("server-bin"),
				Dir:  c.String("dir"),
				Addr: c.String("addr"),
			})
			if err != nil {
				return cli.Exit(err, 1)
			}
			defer h.Stop()

			slog.Info("repository server ready", "url", h.URL(), "packages", len(pkgs))
			<-c.Context.Done()
			slog.Info("shutting down")
			return nil
		},
	}
}

func GetApp() *cli.App {
	return &cli.App{
		Name:  "nest-sandbox",
		Usage: "Disposable Nest repositories for manual testing",
		Commands: []*cli.Command{
			PackCmd(),
			ServeCmd(),
		},
	}
}

func setLogLevel(newLevel string) {
	level := slog.LevelInfo
	switch newLevel {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	}
	handler, ok := slog.Default().Handler().(*logger.Logger)
	if !ok {
		panic("unexpected handler")
	}
	handler.SetLevel(level)
}

func main() {
	logger.SetupDefault()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	setLogLevel(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := GetApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
