package adapter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// maxStderrInError caps how much process stderr is folded into an error message
const maxStderrInError = 2048

// CommandRunner defines an interface for running external processes to enable mocking
//
//go:generate mockgen -source=exec.go -destination=../mocks/exec.go -package=mocks -mock_names=CommandRunner=MockCommandRunner
type CommandRunner interface {
	// Run executes name with args and returns its stdout.
	// A non-zero exit is returned as an error carrying the tail of stderr.
	Run(ctx context.Context, name string, args []string) ([]byte, error)

	// LookPath searches for an executable in the PATH
	LookPath(file string) (string, error)
}

// RealCommandRunner implements CommandRunner using os/exec
type RealCommandRunner struct{}

// NewCommandRunner creates a new real command runner
func NewCommandRunner() CommandRunner {
	return &RealCommandRunner{}
}

func (r *RealCommandRunner) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec,G204
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderrInError {
			msg = msg[len(msg)-maxStderrInError:]
		}
		if msg == "" {
			return nil, fmt.Errorf("%s failed: %w", name, err)
		}
		return nil, fmt.Errorf("%s failed: %w: %s", name, err, msg)
	}

	return stdout.Bytes(), nil
}

func (r *RealCommandRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}
