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
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/raven-os/nest-tests/pkg/fixture"
)

// scenario is the TOML description of a set of package fixtures. Dependency
// edges reference targets by full name so that cycles and dangling edges can
// be described as freely as the fixture API allows.
type scenario struct {
	Packages []scenarioPackage `toml:"package"`
}

type scenarioPackage struct {
	Name         string            `toml:"name"`
	Category     string            `toml:"category"`
	Version      string            `toml:"version"`
	Kind         string            `toml:"kind"`
	Description  string            `toml:"description"`
	Tags         []string          `toml:"tags"`
	Maintainer   string            `toml:"maintainer"`
	Licenses     []string          `toml:"licenses"`
	UpstreamURL  string            `toml:"upstream_url"`
	Dependencies map[string]string `toml:"dependencies"`
	Files        []scenarioFile    `toml:"files"`
}

type scenarioFile struct {
	Path      string `toml:"path"`
	Content   string `toml:"content"`
	Target    string `toml:"target"`
	Directory bool   `toml:"directory"`
}

// LoadScenario parses a scenario file into package fixtures.
func LoadScenario(path string) ([]*fixture.Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: reading %s: %w", path, err)
	}

	var sc scenario
	if err := toml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("scenario: decoding %s: %w", path, err)
	}

	pkgs := make([]*fixture.Package, 0, len(sc.Packages))
	for _, sp := range sc.Packages {
		pkg, err := buildPackage(sp)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, nil
}

func buildPackage(sp scenarioPackage) (*fixture.Package, error) {
	kind := fixture.Kind(sp.Kind)
	switch kind {
	case fixture.KindVirtual, fixture.KindEffective:
	default:
		return nil, fmt.Errorf("scenario: package %s/%s: unknown kind %q", sp.Category, sp.Name, sp.Kind)
	}

	opts := []fixture.Option{}
	if sp.Description != "" {
		opts = append(opts, fixture.WithDescription(sp.Description))
	}
	if len(sp.Tags) > 0 {
		opts = append(opts, fixture.WithTags(sp.Tags...))
	}
	if sp.Maintainer != "" {
		opts = append(opts, fixture.WithMaintainer(sp.Maintainer))
	}
	if len(sp.Licenses) > 0 {
		opts = append(opts, fixture.WithLicenses(sp.Licenses...))
	}
	if sp.UpstreamURL != "" {
		opts = append(opts, fixture.WithUpstreamURL(sp.UpstreamURL))
	}

	pkg := fixture.New(sp.Category, sp.Name, sp.Version, kind, opts...)
	for fullName, requirement := range sp.Dependencies {
		pkg.AddDependencyName(fullName, requirement)
	}

	for _, f := range sp.Files {
		var err error
		switch {
		case f.Directory:
			err = pkg.AddDirectory(f.Path)
		case f.Target != "":
			err = pkg.AddSymlink(f.Path, f.Target)
		default:
			err = pkg.AddFile(f.Path, fixture.FileSource{Content: []byte(f.Content)})
		}
		if err != nil {
			return nil, fmt.Errorf("scenario: package %s/%s: %w", sp.Category, sp.Name, err)
		}
	}
	return pkg, nil
}
