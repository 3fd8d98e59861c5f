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

// Package fixture describes disposable Nest packages and turns them into
// on-disk repository entries the server can serve.
//
// A Package is a plain value: it records whatever dependencies are declared,
// including self-referential and mutually cyclic ones, without traversing or
// validating them. All dependency reasoning belongs to the resolver under
// test, never to the fixtures it consumes.
package fixture

import (
	"errors"
	"fmt"
	"io"
)

// Kind tells whether a package carries an installable payload.
type Kind string

const (
	// KindVirtual packages are pure dependency-graph nodes without a
	// payload archive.
	KindVirtual Kind = "virtual"
	// KindEffective packages bundle a data archive, possibly empty.
	KindEffective Kind = "effective"
)

// DefaultNamespace is the repository namespace fixtures live in. It matches
// the name of the repository configuration written by the server harness.
const DefaultNamespace = "tests"

var (
	ErrNoFileSource        = errors.New("fixture: exactly one of content or reader must be supplied, got neither")
	ErrAmbiguousFileSource = errors.New("fixture: exactly one of content or reader must be supplied, got both")
	ErrVirtualPayload      = errors.New("fixture: virtual packages cannot carry payload entries")
)

type entryKind uint8

const (
	entryFile entryKind = iota
	entrySymlink
	entryDirectory
)

type entry struct {
	kind    entryKind
	path    string
	content []byte
	reader  io.Reader
	target  string
}

// Package is a builder for one package fixture. The zero value is not
// usable; construct with New.
type Package struct {
	name      string
	category  string
	version   string
	kind      Kind
	namespace string

	description string
	tags        []string
	maintainer  string
	licenses    []string
	upstreamURL string

	dependencies map[string]string
	entries      []entry
}

// Option adjusts the free-form metadata of a package under construction.
// None of the options influence what the resolver sees.
type Option func(*Package)

func WithDescription(description string) Option {
	return func(p *Package) { p.description = description }
}

func WithTags(tags ...string) Option {
	return func(p *Package) { p.tags = tags }
}

func WithMaintainer(maintainer string) Option {
	return func(p *Package) { p.maintainer = maintainer }
}

func WithLicenses(licenses ...string) Option {
	return func(p *Package) { p.licenses = licenses }
}

func WithUpstreamURL(url string) Option {
	return func(p *Package) { p.upstreamURL = url }
}

func WithNamespace(namespace string) Option {
	return func(p *Package) { p.namespace = namespace }
}

// New builds a package fixture with the metadata defaults every test relies
// on. Identity is (category, name) symbolically and (category, name, version)
// for the concrete archive.
func New(category, name, version string, kind Kind, opts ...Option) *Package {
	p := &Package{
		name:         name,
		category:     category,
		version:      version,
		kind:         kind,
		namespace:    DefaultNamespace,
		description:  "A package",
		maintainer:   "nest-tests@raven-os.org",
		licenses:     []string{"gpl_v3"},
		upstreamURL:  "https://google.com",
		dependencies: map[string]string{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Package) Name() string     { return p.name }
func (p *Package) Category() string { return p.category }
func (p *Package) Version() string  { return p.version }
func (p *Package) Kind() Kind       { return p.kind }

// FullName is the versionless identifier used as a dependency-edge key:
// namespace::category/name.
func (p *Package) FullName() string {
	return fmt.Sprintf("%s::%s/%s", p.namespace, p.category, p.name)
}

// ID is the full name suffixed with the concrete version.
func (p *Package) ID() string {
	return fmt.Sprintf("%s#%s", p.FullName(), p.version)
}

// Dependencies returns a copy of the declared edges, keyed by the target's
// full name with the version requirement as the value.
func (p *Package) Dependencies() map[string]string {
	deps := make(map[string]string, len(p.dependencies))
	for name, req := range p.dependencies {
		deps[name] = req
	}
	return deps
}

// AddDependency records an edge to target with an opaque version requirement.
// The edge is keyed by the target's full name only; the version lives in the
// requirement string. Cycles, including an edge back to p itself, are stored
// verbatim.
func (p *Package) AddDependency(target *Package, requirement string) *Package {
	return p.AddDependencyName(target.FullName(), requirement)
}

// AddDependencyName is AddDependency for targets that only exist as a full
// name, such as edges loaded from a scenario file.
func (p *Package) AddDependencyName(fullName, requirement string) *Package {
	p.dependencies[fullName] = requirement
	return p
}

// FileSource carries the payload of a regular file entry. Exactly one of
// Content and Reader must be set; an empty non-nil Content is a valid empty
// file.
type FileSource struct {
	Content []byte
	Reader  io.Reader
}

func (src FileSource) validate() error {
	switch {
	case src.Content != nil && src.Reader != nil:
		return ErrAmbiguousFileSource
	case src.Content == nil && src.Reader == nil:
		return ErrNoFileSource
	}
	return nil
}

// AddFile registers a regular file for the payload archive. It fails
// immediately when the source is ambiguous or absent, or when the package is
// virtual and cannot carry a payload.
func (p *Package) AddFile(path string, src FileSource) error {
	if err := src.validate(); err != nil {
		return fmt.Errorf("%w (file %q)", err, path)
	}
	if p.kind == KindVirtual {
		return fmt.Errorf("%w (file %q)", ErrVirtualPayload, path)
	}
	p.entries = append(p.entries, entry{
		kind:    entryFile,
		path:    path,
		content: src.Content,
		reader:  src.Reader,
	})
	return nil
}

// AddSymlink registers a symbolic link pointing at target.
func (p *Package) AddSymlink(path, target string) error {
	if p.kind == KindVirtual {
		return fmt.Errorf("%w (symlink %q)", ErrVirtualPayload, path)
	}
	p.entries = append(p.entries, entry{kind: entrySymlink, path: path, target: target})
	return nil
}

// AddDirectory registers an empty directory.
func (p *Package) AddDirectory(path string) error {
	if p.kind == KindVirtual {
		return fmt.Errorf("%w (directory %q)", ErrVirtualPayload, path)
	}
	p.entries = append(p.entries, entry{kind: entryDirectory, path: path})
	return nil
}
