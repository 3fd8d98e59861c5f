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

// Package server owns the lifecycle of an ephemeral repository server: the
// materialized package tree, the cache, the server configuration, and the
// server process itself are acquired in Start and released exactly once in
// Stop, whichever way the test scope exits.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/raven-os/nest-tests/internal/config"
	"github.com/raven-os/nest-tests/pkg/conf"
	"github.com/raven-os/nest-tests/pkg/fixture"
)

const (
	defaultReadyTimeout = 10 * time.Second
	defaultPollInterval = 100 * time.Millisecond
)

// Options configures Start. Zero fields fall back to the environment
// configuration (NEST_SERVER_BIN, NEST_SERVER_DIR, NEST_SERVER_ADDR).
type Options struct {
	// Bin is the server executable.
	Bin string
	// Dir is the server's working directory; the package tree, the cache,
	// and Repository.toml are created under it and owned by the harness.
	Dir string
	// Addr is the address the server is expected to listen on.
	Addr string

	// ReadyTimeout bounds the poll for the server to accept connections.
	ReadyTimeout time.Duration
	// PollInterval is the delay between readiness probes.
	PollInterval time.Duration
}

// Harness is a running repository server plus the directories backing it.
type Harness struct {
	cmd *exec.Cmd

	addr       string
	packageDir string
	cacheDir   string
	configPath string

	stopOnce sync.Once
}

// Start materializes the fixtures into the server's package tree, writes the
// repository configuration, launches the server process, and blocks until it
// accepts TCP connections. On any failure everything created so far is torn
// down before returning.
func Start(ctx context.Context, fixtures []*fixture.Package, opts Options) (*Harness, error) {
	if err := fillDefaults(&opts); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("server: creating server root %s: %w", opts.Dir, err)
	}

	h := &Harness{
		addr:       opts.Addr,
		packageDir: filepath.Join(opts.Dir, "packages"),
		cacheDir:   filepath.Join(opts.Dir, "cache"),
		configPath: filepath.Join(opts.Dir, conf.RepositoryFile),
	}

	if err := os.MkdirAll(h.packageDir, 0o755); err != nil {
		return nil, fmt.Errorf("server: creating package root: %w", err)
	}

	for _, pkg := range fixtures {
		if err := fixture.Materialize(ctx, pkg, h.packageDir); err != nil {
			h.Stop()
			return nil, err
		}
	}
	if err := conf.WriteRepository(opts.Dir, conf.DefaultRepository()); err != nil {
		h.Stop()
		return nil, err
	}

	cmd := exec.Command(opts.Bin)
	cmd.Dir = opts.Dir
	if err := cmd.Start(); err != nil {
		h.Stop()
		return nil, fmt.Errorf("server: spawning %s: %w", opts.Bin, err)
	}
	h.cmd = cmd

	if err := h.waitReady(ctx, opts.ReadyTimeout, opts.PollInterval); err != nil {
		h.Stop()
		return nil, err
	}
	return h, nil
}

// Addr is the address the server listens on.
func (h *Harness) Addr() string { return h.addr }

// URL is the mirror URL clients should be configured with.
func (h *Harness) URL() string { return "http://" + h.addr }

// Stop kills the server process and removes every directory the harness
// created. It is idempotent and never fails: removal errors are logged and
// unwinding continues, so a cleanup problem cannot mask the test failure
// that triggered it.
func (h *Harness) Stop() {
	h.stopOnce.Do(func() {
		if h.cmd != nil && h.cmd.Process != nil {
			if err := h.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				slog.Warn("failed to kill repository server", "pid", h.cmd.Process.Pid, "err", err)
			}
			h.cmd.Wait()
		}
		for _, dir := range []string{h.packageDir, h.cacheDir} {
			if err := os.RemoveAll(dir); err != nil {
				slog.Warn("failed to remove harness directory", "dir", dir, "err", err)
			}
		}
		if err := os.Remove(h.configPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove repository configuration", "path", h.configPath, "err", err)
		}
	})
}

// waitReady polls the server address until a TCP connection succeeds. A
// fixed settle delay is not enough of a contract: a slow server must not
// fail the first verb and a fast one must not waste the test's time.
func (h *Harness) waitReady(ctx context.Context, timeout, interval time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", h.addr, interval)
		if err == nil {
			conn.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server: %s not accepting connections after %s: %w", h.addr, timeout, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("server: waiting for %s: %w", h.addr, ctx.Err())
		case <-time.After(interval):
		}
	}
}

func fillDefaults(opts *Options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.Bin == "" {
		opts.Bin = cfg.ServerBin
	}
	if opts.Dir == "" {
		opts.Dir = cfg.ServerDir
	}
	if opts.Addr == "" {
		opts.Addr = cfg.ServerAddr
	}
	if opts.ReadyTimeout == 0 {
		opts.ReadyTimeout = defaultReadyTimeout
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = defaultPollInterval
	}
	return nil
}
