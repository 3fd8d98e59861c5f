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

// Package depgraph reads the installer's persisted dependency graph, the
// oracle every integration test asserts against.
package depgraph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"sort"
	"strings"

	"go.elara.ws/vercmp"
)

// GroupPrefix marks node identifiers that denote groups (meta-packages)
// rather than concrete installed packages.
const GroupPrefix = "@"

// DefaultPath is the depgraph location relative to the target root.
const DefaultPath = "var/nest/depgraph"

// Snapshot is one read of the depgraph file. It holds no state beyond the
// decoded document; load a fresh one for every query that must observe
// recent mutations.
type Snapshot struct {
	NodeNames map[string]json.RawMessage `json:"node_names"`
}

// Load reads the depgraph at path. A missing file is the legitimate
// "nothing installed yet" state and yields an empty graph, not an error.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Snapshot{NodeNames: map[string]json.RawMessage{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("depgraph: reading %s: %w", path, err)
	}

	s := &Snapshot{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("depgraph: decoding %s: %w", path, err)
	}
	if s.NodeNames == nil {
		s.NodeNames = map[string]json.RawMessage{}
	}
	return s, nil
}

// InstalledPackages yields the identifiers of concrete installed packages,
// excluding group nodes. The sequence is lazy and restartable.
func (s *Snapshot) InstalledPackages() iter.Seq[string] {
	return func(yield func(string) bool) {
		for name := range s.NodeNames {
			if strings.HasPrefix(name, GroupPrefix) {
				continue
			}
			if !yield(name) {
				return
			}
		}
	}
}

// Groups yields the group node identifiers, the complement of
// InstalledPackages.
func (s *Snapshot) Groups() iter.Seq[string] {
	return func(yield func(string) bool) {
		for name := range s.NodeNames {
			if !strings.HasPrefix(name, GroupPrefix) {
				continue
			}
			if !yield(name) {
				return
			}
		}
	}
}

// HasPackage reports whether a package with the given full name is
// installed, matching identifiers both with and without a #version suffix.
func (s *Snapshot) HasPackage(fullName string) bool {
	for id := range s.InstalledPackages() {
		if id == fullName {
			return true
		}
		if name, _, ok := strings.Cut(id, "#"); ok && name == fullName {
			return true
		}
	}
	return false
}

// HasPackageID reports whether the exact identifier, version suffix
// included, is installed.
func (s *Snapshot) HasPackageID(id string) bool {
	for installed := range s.InstalledPackages() {
		if installed == id {
			return true
		}
	}
	return false
}

// Newest returns the highest installed version of fullName among the
// version-suffixed identifiers in the graph.
func (s *Snapshot) Newest(fullName string) (string, bool) {
	var best string
	found := false
	for id := range s.InstalledPackages() {
		name, version, ok := strings.Cut(id, "#")
		if !ok || name != fullName {
			continue
		}
		if !found || vercmp.Compare(version, best) > 0 {
			best = version
			found = true
		}
	}
	return best, found
}

// Packages materializes InstalledPackages as a sorted slice, convenient for
// whole-graph equality assertions.
func (s *Snapshot) Packages() []string {
	ids := []string{}
	for id := range s.InstalledPackages() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
