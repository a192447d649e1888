// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

type (
	// Command describes one subprocess invocation.
	Command struct {
		// Name is the program to run (a path or a PATH-resolved name).
		Name string
		Args []string
		// Env entries are appended to the parent environment.
		Env []string
		Dir string
		// Stdout receives standard output. When nil, output is captured and returned.
		Stdout io.Writer
		// Stderr receives standard error. When nil, it is captured for error messages.
		Stderr io.Writer
	}

	// Executor runs subprocesses on behalf of the manager.
	Executor interface {
		Run(ctx context.Context, cmd Command) ([]byte, error)
	}

	// ExecExecutor runs commands with os/exec.
	ExecExecutor struct{}

	// CommandError reports a subprocess that failed to start or exited non-zero.
	CommandError struct {
		Name   string
		Args   []string
		Stderr string
		Err    error
	}
)

// Error implements the error interface.
func (e *CommandError) Error() string {
	line := strings.TrimSpace(e.Name + " " + strings.Join(e.Args, " "))
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %v: %s", line, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", line, e.Err)
}

// Unwrap returns the underlying exec error.
func (e *CommandError) Unwrap() error { return e.Err }

// Run executes cmd and returns its captured standard output.
func (ExecExecutor) Run(ctx context.Context, c Command) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	}
	cmd.Stderr = &stderr
	if c.Stderr != nil {
		cmd.Stderr = io.MultiWriter(c.Stderr, &stderr)
	}

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), &CommandError{
			Name:   c.Name,
			Args:   c.Args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.Bytes(), nil
}
