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

//go:build e2e

// The e2e suite drives the real nest, finest, and nest-server binaries,
// resolved through NEST_BIN, FINEST_BIN, NEST_SERVER_BIN, NEST_SERVER_DIR,
// and NEST_SERVER_ADDR. Every test owns a disposable server root, client
// configuration, and target root.
package e2etests_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raven-os/nest-tests/pkg/conf"
	"github.com/raven-os/nest-tests/pkg/fixture"
	"github.com/raven-os/nest-tests/pkg/nest"
	"github.com/raven-os/nest-tests/pkg/server"
)

// startServer brings up a repository server over the given fixtures and ties
// its teardown to the test scope, whichever way the scope exits.
func startServer(t *testing.T, pkgs ...*fixture.Package) *server.Harness {
	t.Helper()
	h, err := server.Start(context.Background(), pkgs, server.Options{})
	require.NoError(t, err)
	t.Cleanup(h.Stop)
	return h
}

// clientConfig writes a client configuration pointing at the harness's
// mirror and returns its path.
func clientConfig(t *testing.T, h *server.Harness) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, conf.WriteClient(path, conf.DefaultClient(h.URL())))
	return path
}

// nestDriver builds a nest driver with a fresh target root per test.
func nestDriver(t *testing.T, opts ...nest.Option) *nest.Driver {
	t.Helper()
	d, err := nest.NewNest(append([]nest.Option{nest.WithChroot(t.TempDir())}, opts...)...)
	require.NoError(t, err)
	return d
}

func finestDriver(t *testing.T, opts ...nest.Option) *nest.Driver {
	t.Helper()
	d, err := nest.NewFinest(append([]nest.Option{nest.WithChroot(t.TempDir())}, opts...)...)
	require.NoError(t, err)
	return d
}

// fixtureStandalone is the dependency-free package several scenarios share.
func fixtureStandalone() *fixture.Package {
	return fixture.New("sys-apps", "available-package", "1.0.0", fixture.KindVirtual,
		fixture.WithTags("test"))
}

// pullOK refreshes metadata and fails the test on a non-zero exit.
func pullOK(t *testing.T, d *nest.Driver) {
	t.Helper()
	res, err := d.Pull(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, res.ExitCode, "pull failed: %s%s", res.Stdout, res.Stderr)
}
