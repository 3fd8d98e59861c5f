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

package e2etests_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raven-os/nest-tests/pkg/nest"
)

// brokenConfigs yields configuration paths that are each unusable in a
// different way: missing entirely, unreadable, and syntactically invalid.
func brokenConfigs(t *testing.T) map[string]string {
	t.Helper()

	unreadable := filepath.Join(t.TempDir(), "unreadable.toml")
	require.NoError(t, os.WriteFile(unreadable, []byte(""), 0o644))
	require.NoError(t, os.Chmod(unreadable, 0o222))

	invalid := filepath.Join(t.TempDir(), "invalid.toml")
	require.NoError(t, os.WriteFile(invalid, []byte("<(^v^)>"), 0o644))

	return map[string]string{
		"missing":    "/non_existent/not_existing_either.toml",
		"unreadable": unreadable,
		"invalid":    invalid,
	}
}

func TestHelpSucceedsWithBrokenConfiguration(t *testing.T) {
	ctx := context.Background()
	for name, configPath := range brokenConfigs(t) {
		t.Run(name, func(t *testing.T) {
			res, err := nestDriver(t, nest.WithConfig(configPath)).Help(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, res.ExitCode)

			res, err = finestDriver(t, nest.WithConfig(configPath)).Help(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, res.ExitCode)
		})
	}
}
