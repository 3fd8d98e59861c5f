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

// Package conf emits the TOML configuration documents consumed by the
// repository server and the Nest client. The schemas are bit-exact boundary
// contracts; nothing in here carries resolver logic.
package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// RepositoryFile is the name the server expects in its working directory.
const RepositoryFile = "Repository.toml"

type Link struct {
	Name   string `toml:"name"`
	URL    string `toml:"url"`
	Active bool   `toml:"active,omitempty"`
}

// RepositoryConfig configures the repository server.
type RepositoryConfig struct {
	Name       string `toml:"name"`
	PrettyName string `toml:"pretty_name"`
	PackageDir string `toml:"package_dir"`
	CacheDir   string `toml:"cache_dir"`
	AuthToken  string `toml:"auth_token"`
	Links      []Link `toml:"links"`
}

// DefaultRepository is the repository configuration every test server runs
// with: the "tests" repository, packages and cache relative to the server's
// working directory.
func DefaultRepository() RepositoryConfig {
	return RepositoryConfig{
		Name:       "tests",
		PrettyName: "Tests",
		PackageDir: "./packages/",
		CacheDir:   "./cache/",
		AuthToken:  "a_very_strong_password",
		Links: []Link{
			{Name: "Tests", URL: "/", Active: true},
			{Name: "Stable", URL: "https://stable.raven-os.org"},
			{Name: "Beta", URL: "https://beta.raven-os.org"},
			{Name: "Unstable", URL: "https://unstable.raven-os.org"},
		},
	}
}

// WriteRepository writes cfg as Repository.toml under root.
func WriteRepository(root string, cfg RepositoryConfig) error {
	return writeTOML(filepath.Join(root, RepositoryFile), cfg)
}

type Mirrors struct {
	Mirrors []string `toml:"mirrors"`
}

// ClientConfig is the Nest client configuration mapping repository names to
// their mirror lists.
type ClientConfig struct {
	Repositories map[string]Mirrors `toml:"repositories"`
}

// DefaultClient points the "tests" repository at a single mirror.
func DefaultClient(mirror string) ClientConfig {
	return ClientConfig{
		Repositories: map[string]Mirrors{
			"tests": {Mirrors: []string{mirror}},
		},
	}
}

// WriteClient writes cfg to path.
func WriteClient(path string, cfg ClientConfig) error {
	return writeTOML(path, cfg)
}

func writeTOML(path string, doc any) error {
	fl, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("conf: creating %s: %w", path, err)
	}
	defer fl.Close()

	if err := toml.NewEncoder(fl).Encode(doc); err != nil {
		return fmt.Errorf("conf: encoding %s: %w", path, err)
	}
	return nil
}
