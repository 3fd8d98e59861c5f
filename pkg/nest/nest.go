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

// Package nest drives the package-manager CLIs under test as opaque child
// processes.
//
// A non-zero exit code is a normal, assertable outcome and is returned as a
// Result. Errors are reserved for transport failures: a missing executable,
// a spawn failure, an output pipe breaking. Tests that expect the tool to
// fail assert on Result.ExitCode, never on the error.
package nest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"

	"golang.org/x/sync/errgroup"

	"github.com/raven-os/nest-tests/internal/config"
	"github.com/raven-os/nest-tests/pkg/depgraph"
)

// Answers written to the child's stdin when it asks for confirmation.
const (
	answerAccept  = "yes"
	answerDecline = "no"
)

// defaultPrompt matches the interactive yes/no confirmation line the CLIs
// print before mutating the system.
var defaultPrompt = regexp.MustCompile(`(?i)yes\s*/\s*no|\[y/n\]`)

// Result captures one finished CLI invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Driver invokes one package-manager executable. The zero value is not
// usable; construct with New, NewNest, or NewFinest.
type Driver struct {
	bin    string
	config string
	chroot string
	prompt *regexp.Regexp
	blind  bool
	env    []string
}

type Option func(*Driver)

// WithConfig overrides the CLI's configuration file via --config.
func WithConfig(path string) Option {
	return func(d *Driver) { d.config = path }
}

// WithChroot overrides the CLI's target root via --chroot.
func WithChroot(path string) Option {
	return func(d *Driver) { d.chroot = path }
}

// WithPrompt replaces the pattern used to detect the confirmation prompt.
func WithPrompt(re *regexp.Regexp) Option {
	return func(d *Driver) { d.prompt = re }
}

// WithBlindConfirm writes the confirmation answer immediately instead of
// waiting for a prompt, for CLIs that only prompt on a tty. The write still
// tolerates a child that exits without reading.
func WithBlindConfirm() Option {
	return func(d *Driver) { d.blind = true }
}

// WithEnv appends extra KEY=VALUE entries to the child's environment. The
// caller's environment, PATH included, is always inherited.
func WithEnv(kv ...string) Option {
	return func(d *Driver) { d.env = append(d.env, kv...) }
}

// New builds a driver around an explicit executable path.
func New(bin string, opts ...Option) *Driver {
	d := &Driver{bin: bin, prompt: defaultPrompt}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewNest builds a driver for the nest CLI, resolving the executable and the
// default target root from the environment.
func NewNest(opts ...Option) (*Driver, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return New(cfg.NestBin, append([]Option{WithChroot(cfg.Chroot)}, opts...)...), nil
}

// NewFinest builds a driver for the finest CLI.
func NewFinest(opts ...Option) (*Driver, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return New(cfg.FinestBin, append([]Option{WithChroot(cfg.Chroot)}, opts...)...), nil
}

// Pull refreshes the repository metadata from the configured mirrors.
func (d *Driver) Pull(ctx context.Context) (Result, error) {
	return d.run(ctx, answerAccept, "pull")
}

// Install installs the named packages, answering the confirmation prompt
// according to confirm.
func (d *Driver) Install(ctx context.Context, confirm bool, names ...string) (Result, error) {
	return d.run(ctx, answerFor(confirm), "install", names...)
}

// Uninstall removes the named packages, answering the confirmation prompt
// according to confirm.
func (d *Driver) Uninstall(ctx context.Context, confirm bool, names ...string) (Result, error) {
	return d.run(ctx, answerFor(confirm), "uninstall", names...)
}

// Help runs the help verb. No confirmation exchange takes place.
func (d *Driver) Help(ctx context.Context) (Result, error) {
	return d.run(ctx, "", "help")
}

// Depgraph loads a fresh snapshot of the installer's persisted graph under
// the driver's target root.
func (d *Driver) Depgraph() (*depgraph.Snapshot, error) {
	root := d.chroot
	if root == "" {
		root = "/"
	}
	return depgraph.Load(filepath.Join(root, depgraph.DefaultPath))
}

func answerFor(confirm bool) string {
	if confirm {
		return answerAccept
	}
	return answerDecline
}

func (d *Driver) run(ctx context.Context, answer, verb string, names ...string) (Result, error) {
	args := make([]string, 0, len(names)+5)
	if d.config != "" {
		args = append(args, "--config", d.config)
	}
	if d.chroot != "" {
		args = append(args, "--chroot", d.chroot)
	}
	args = append(args, verb)
	args = append(args, names...)

	cmd := exec.CommandContext(ctx, d.bin, args...)
	cmd.Env = append(os.Environ(), d.env...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("nest: opening stdout pipe for %s: %w", d.bin, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("nest: opening stderr pipe for %s: %w", d.bin, err)
	}

	var stdin io.WriteCloser
	if answer != "" {
		stdin, err = cmd.StdinPipe()
		if err != nil {
			return Result{}, fmt.Errorf("nest: opening stdin pipe for %s: %w", d.bin, err)
		}
	}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("nest: spawning %s: %w", d.bin, err)
	}

	if stdin != nil && d.blind {
		// The child may already be gone; a broken pipe is not a failure.
		io.WriteString(stdin, answer+"\n")
		stdin.Close()
		stdin = nil
	}

	var stdout, stderr bytes.Buffer
	g := new(errgroup.Group)
	g.Go(func() error {
		return pump(stdoutPipe, &stdout, stdin, d.prompt, answer)
	})
	g.Go(func() error {
		// stderr never carries the prompt, but it must be drained while the
		// stdout pump is still waiting: a chatty child fills the pipe buffer
		// and blocks before ever prompting.
		_, err := io.Copy(&stderr, stderrPipe)
		return err
	})
	pumpErr := g.Wait()

	waitErr := cmd.Wait()

	// A broken output stream is a transport failure even when the child also
	// exited non-zero; reporting a Result with truncated output would hide it.
	if pumpErr != nil {
		return Result{}, fmt.Errorf("nest: reading output of %s: %w", d.bin, pumpErr)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return Result{
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}, nil
		}
		return Result{}, fmt.Errorf("nest: waiting for %s: %w", d.bin, waitErr)
	}

	return Result{ExitCode: 0, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// pump copies the child's stdout into out while watching for the
// confirmation prompt. The answer is written only once the prompt is seen;
// a child that exits without prompting never receives input and never
// causes a write failure.
func pump(r io.Reader, out *bytes.Buffer, stdin io.WriteCloser, prompt *regexp.Regexp, answer string) error {
	answered := stdin == nil
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
			if !answered && prompt.Match(out.Bytes()) {
				// Write errors are expected when the child has
				// already exited.
				io.WriteString(stdin, answer+"\n")
				stdin.Close()
				answered = true
			}
		}
		if err != nil {
			if !answered {
				stdin.Close()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
