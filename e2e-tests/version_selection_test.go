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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raven-os/nest-tests/pkg/fixture"
	"github.com/raven-os/nest-tests/pkg/nest"
)

func TestNewestVersionIsPickedWhenUnconstrained(t *testing.T) {
	ctx := context.Background()
	v1 := fixture.New("sys-libs", "some-library", "1.0.0", fixture.KindVirtual)
	v2 := fixture.New("sys-libs", "some-library", "2.0.0", fixture.KindVirtual)

	h := startServer(t, v1, v2)
	d := nestDriver(t, nest.WithConfig(clientConfig(t, h)))

	pullOK(t, d)
	res, err := d.Install(ctx, true, "some-library")
	require.NoError(t, err)
	require.Equal(t, 0, res.ExitCode)

	s, err := d.Depgraph()
	require.NoError(t, err)
	assert.True(t, s.HasPackageID("tests::sys-libs/some-library#2.0.0"))
	assert.False(t, s.HasPackageID("tests::sys-libs/some-library#1.0.0"))

	version, ok := s.Newest("tests::sys-libs/some-library")
	require.True(t, ok)
	assert.Equal(t, "2.0.0", version)
}

func TestIncompatibleExactRequirementsFailAtomically(t *testing.T) {
	ctx := context.Background()
	lib1 := fixture.New("sys-libs", "some-library", "1.0.0", fixture.KindVirtual)
	lib2 := fixture.New("sys-libs", "some-library", "2.0.0", fixture.KindVirtual)
	a := fixture.New("sys-libs", "a", "1.0.0", fixture.KindVirtual).
		AddDependency(lib1, "=1.0.0")
	b := fixture.New("sys-libs", "b", "1.0.0", fixture.KindVirtual).
		AddDependency(lib2, "=2.0.0")

	h := startServer(t, lib1, lib2, a, b)
	d := nestDriver(t, nest.WithConfig(clientConfig(t, h)))

	pullOK(t, d)
	res, err := d.Install(ctx, true, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExitCode)

	// A failed install is all-or-nothing: none of the involved packages
	// may have leaked into the graph.
	s, err := d.Depgraph()
	require.NoError(t, err)
	assert.False(t, s.HasPackage("tests::sys-libs/some-library"))
	assert.False(t, s.HasPackage("tests::sys-libs/a"))
	assert.False(t, s.HasPackage("tests::sys-libs/b"))
}
