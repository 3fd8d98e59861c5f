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

// Package logger routes the harness's slog output through charmbracelet/log,
// keeping info on stdout and warnings/errors on stderr.
package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

type Logger struct {
	out *log.Logger
	err *log.Logger

	hOut slog.Handler
	hErr slog.Handler
}

func setupOutLogger() *log.Logger {
	styles := log.DefaultStyles()
	logger := log.New(os.Stdout)
	logger.SetStyles(styles)
	return logger
}

func setupErrorLogger() *log.Logger {
	styles := log.DefaultStyles()
	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Padding(0, 1, 0, 1).
		Background(lipgloss.Color("204")).
		Foreground(lipgloss.Color("0"))
	logger := log.New(os.Stderr)
	logger.SetStyles(styles)
	return logger
}

func New() *Logger {
	out := setupOutLogger()
	errLogger := setupErrorLogger()
	return &Logger{
		out:  out,
		err:  errLogger,
		hOut: out,
		hErr: errLogger,
	}
}

func (l *Logger) SetLevel(level slog.Level) {
	l.out.SetLevel(log.Level(level))
	l.err.SetLevel(log.Level(level))
}

func (l *Logger) Enabled(ctx context.Context, level slog.Level) bool {
	if level <= slog.LevelInfo {
		return l.hOut.Enabled(ctx, level)
	}
	return l.hErr.Enabled(ctx, level)
}

func (l *Logger) Handle(ctx context.Context, rec slog.Record) error {
	if rec.Level <= slog.LevelInfo {
		return l.hOut.Handle(ctx, rec)
	}
	return l.hErr.Handle(ctx, rec)
}

func (l *Logger) WithAttrs(attrs []slog.Attr) slog.Handler {
	sl := *l
	sl.hOut = l.hOut.WithAttrs(attrs)
	sl.hErr = l.hErr.WithAttrs(attrs)
	return &sl
}

func (l *Logger) WithGroup(name string) slog.Handler {
	sl := *l
	sl.hOut = l.hOut.WithGroup(name)
	sl.hErr = l.hErr.WithGroup(name)
	return &sl
}

// SetupDefault installs the split handler as the process-wide slog default.
func SetupDefault() {
	slog.SetDefault(slog.New(New()))
}
