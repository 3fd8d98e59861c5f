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

// Package config resolves the harness's environment configuration: where the
// binaries under test live, where the repository server runs, and which
// target root the client mutates.
package config

import (
	"fmt"

	"github.com/caarlos0/env"
)

type Config struct {
	// NestBin and FinestBin are the package-manager executables under test.
	NestBin   string `env:"NEST_BIN" envDefault:"nest"`
	FinestBin string `env:"FINEST_BIN" envDefault:"finest"`

	// ServerBin is the repository-server executable, started with ServerDir
	// as its working directory and expected to listen on ServerAddr.
	ServerBin  string `env:"NEST_SERVER_BIN" envDefault:"nest-server"`
	ServerDir  string `env:"NEST_SERVER_DIR" envDefault:"/tmp/nest-server"`
	ServerAddr string `env:"NEST_SERVER_ADDR" envDefault:"localhost:8000"`

	// Chroot is the default target root passed to the client via --chroot.
	Chroot string `env:"NEST_CHROOT"`

	LogLevel string `env:"NEST_TESTS_LOG_LEVEL" envDefault:"INFO"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	return cfg, nil
}
