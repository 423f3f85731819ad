package capability

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/deploykit/rollbackd/internal/core/domain"
)

// ExecRunner is the reference CommandRunner: it shells out step commands
// with a per-step timeout. Deployments with richer tooling plug in their
// own runner; tests use mocks.
type ExecRunner struct {
	Shell          string
	DefaultTimeout time.Duration
	log            *slog.Logger
}

// NewExecRunner creates a shell-backed command runner.
func NewExecRunner(defaultTimeout time.Duration) *ExecRunner {
	if defaultTimeout <= 0 {
		defaultTimeout = 2 * time.Minute
	}
	return &ExecRunner{
		Shell:          "/bin/sh",
		DefaultTimeout: defaultTimeout,
		log:            slog.Default(),
	}
}

// Execute runs the step command and captures combined output.
func (r *ExecRunner) Execute(
	ctx context.Context,
	stepType domain.StepType,
	spec domain.StepSpec,
) (StepResult, error) {
	if spec.Command == "" {
		return StepResult{}, fmt.Errorf("step %q has no command", spec.Name)
	}

	timeout := r.DefaultTimeout
	if spec.TimeoutSeconds > 0 {
		timeout = time.Duration(spec.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Shell, "-c", spec.Command)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := time.Now()
	err := cmd.Run()
	r.log.Debug("step command finished",
		"step", spec.Name,
		"type", stepType,
		"duration", time.Since(start),
		"error", err,
	)

	if err != nil {
		return StepResult{Output: buf.String()}, fmt.Errorf("step %q: %w", spec.Name, err)
	}
	return StepResult{Output: buf.String()}, nil
}
