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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.toml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoadScenario(t *testing.T) {
	path := writeScenario(t, `
[[package]]
name = "some-library"
category = "sys-libs"
version = "1.0.0"
kind = "virtual"
tags = ["test"]

[package.dependencies]
"tests::sys-libs/some-library" = "1.0.0"

[[package]]
name = "tool"
category = "sys-apps"
version = "2.0.0"
kind = "effective"

[[package.files]]
path = "usr/share/tool/motd"
content = "hello"

[[package.files]]
path = "usr/bin/tool-alias"
target = "/usr/bin/tool"

[[package.files]]
path = "var/lib/tool"
directory = true
`)

	pkgs, err := LoadScenario(path)
	require.NoError(t, err)
	require.Len(t, pkgs, 2)

	assert.Equal(t, "tests::sys-libs/some-library#1.0.0", pkgs[0].ID())
	assert.Equal(t, map[string]string{
		"tests::sys-libs/some-library": "1.0.0",
	}, pkgs[0].Dependencies())
	assert.Equal(t, "tests::sys-apps/tool#2.0.0", pkgs[1].ID())
}

func TestLoadScenarioRejectsUnknownKind(t *testing.T) {
	path := writeScenario(t, `
[[package]]
name = "tool"
category = "sys-apps"
version = "1.0.0"
kind = "imaginary"
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestLoadScenarioRejectsPayloadOnVirtual(t *testing.T) {
	path := writeScenario(t, `
[[package]]
name = "tool"
category = "sys-apps"
version = "1.0.0"
kind = "virtual"

[[package.files]]
path = "usr/share/tool/motd"
content = "hello"
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
}
