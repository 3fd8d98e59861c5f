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

package fixture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mholt/archiver/v4"
	"github.com/pelletier/go-toml/v2"
)

// ArchiveExt is the extension of the final repository archive.
const ArchiveExt = ".nest"

// ErrArchiveExists reports a naming collision: two fixtures materialized the
// same (category, name, version) into one repository root.
var ErrArchiveExists = errors.New("fixture: package archive already exists")

// Manifest is the TOML document embedded in every package archive. Its shape
// is a wire contract with the resolver and must not drift.
type Manifest struct {
	Name         string            `toml:"name"`
	Category     string            `toml:"category"`
	Version      string            `toml:"version"`
	Kind         Kind              `toml:"kind"`
	WrapDate     string            `toml:"wrap_date"`
	Metadata     Metadata          `toml:"metadata"`
	Dependencies map[string]string `toml:"dependencies"`
}

type Metadata struct {
	Description string   `toml:"description"`
	Tags        []string `toml:"tags"`
	Maintainer  string   `toml:"maintainer"`
	Licenses    []string `toml:"licenses"`
	UpstreamURL string   `toml:"upstream_url"`
}

// Manifest renders the package's manifest document with the given wrap date.
func (p *Package) Manifest(wrapDate time.Time) Manifest {
	tags := p.tags
	if tags == nil {
		tags = []string{}
	}
	return Manifest{
		Name:     p.name,
		Category: p.category,
		Version:  p.version,
		Kind:     p.kind,
		WrapDate: wrapDate.UTC().Format(time.RFC3339),
		Metadata: Metadata{
			Description: p.description,
			Tags:        tags,
			Maintainer:  p.maintainer,
			Licenses:    p.licenses,
			UpstreamURL: p.upstreamURL,
		},
		Dependencies: p.dependencies,
	}
}

// Materialize writes the repository entry for p under root: the directory
// root/category/name/ holding a single name-version.nest archive which embeds
// manifest.toml and, for effective packages, data.tar.gz built from the
// registered payload entries. The archive is opened with exclusive-create
// semantics; an existing archive path fails with ErrArchiveExists. The
// intermediate manifest and bundle files are removed once embedded.
func Materialize(ctx context.Context, p *Package, root string) error {
	dir := filepath.Join(root, p.category, p.name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("fixture: creating repository entry %s: %w", dir, err)
	}

	manifestPath := filepath.Join(dir, "manifest.toml")
	if err := writeManifest(manifestPath, p.Manifest(time.Now())); err != nil {
		return err
	}

	embed := map[string]string{manifestPath: "manifest.toml"}
	if p.kind == KindEffective {
		dataPath := filepath.Join(dir, "data.tar.gz")
		if err := writeBundle(ctx, dataPath, p.entries); err != nil {
			return err
		}
		embed[dataPath] = "data.tar.gz"
	}

	archivePath := filepath.Join(dir, fmt.Sprintf("%s-%s%s", p.name, p.version, ArchiveExt))
	out, err := os.OpenFile(archivePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrArchiveExists, archivePath)
		}
		return fmt.Errorf("fixture: creating archive %s: %w", archivePath, err)
	}
	defer out.Close()

	files, err := archiver.FilesFromDisk(nil, embed)
	if err != nil {
		return fmt.Errorf("fixture: collecting archive members: %w", err)
	}
	if err := (archiver.Tar{}).Archive(ctx, out, files); err != nil {
		return fmt.Errorf("fixture: writing archive %s: %w", archivePath, err)
	}

	// Only the final archive survives a successful run.
	for path := range embed {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("fixture: removing intermediate %s: %w", path, err)
		}
	}
	return nil
}

func writeManifest(path string, m Manifest) error {
	fl, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fixture: creating manifest %s: %w", path, err)
	}
	defer fl.Close()

	if err := toml.NewEncoder(fl).Encode(m); err != nil {
		return fmt.Errorf("fixture: encoding manifest %s: %w", path, err)
	}
	return nil
}

// writeBundle stages the payload entries in a scratch directory and packs
// them into a tar.gz at dest. An empty entry list yields a valid empty
// bundle.
func writeBundle(ctx context.Context, dest string, entries []entry) error {
	stage, err := os.MkdirTemp("", "nest-bundle-*")
	if err != nil {
		return fmt.Errorf("fixture: creating bundle stage: %w", err)
	}
	defer os.RemoveAll(stage)

	for _, e := range entries {
		if err := stageEntry(stage, e); err != nil {
			return err
		}
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("fixture: creating bundle %s: %w", dest, err)
	}
	defer out.Close()

	files, err := archiver.FilesFromDisk(nil, map[string]string{stage + string(os.PathSeparator): ""})
	if err != nil {
		return fmt.Errorf("fixture: collecting bundle members: %w", err)
	}
	format := archiver.CompressedArchive{
		Compression: archiver.Gz{},
		Archival:    archiver.Tar{},
	}
	if err := format.Archive(ctx, out, files); err != nil {
		return fmt.Errorf("fixture: writing bundle %s: %w", dest, err)
	}
	return nil
}

func stageEntry(stage string, e entry) error {
	path := filepath.Join(stage, e.path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("fixture: staging %s: %w", e.path, err)
	}

	switch e.kind {
	case entryDirectory:
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("fixture: staging directory %s: %w", e.path, err)
		}
	case entrySymlink:
		if err := os.Symlink(e.target, path); err != nil {
			return fmt.Errorf("fixture: staging symlink %s: %w", e.path, err)
		}
	case entryFile:
		if e.reader != nil {
			fl, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("fixture: staging file %s: %w", e.path, err)
			}
			_, err = io.Copy(fl, e.reader)
			if cerr := fl.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("fixture: staging file %s: %w", e.path, err)
			}
		} else if err := os.WriteFile(path, e.content, 0o644); err != nil {
			return fmt.Errorf("fixture: staging file %s: %w", e.path, err)
		}
	}
	return nil
}
