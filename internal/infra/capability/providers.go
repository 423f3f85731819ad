package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/deploykit/rollbackd/internal/core/domain"
)

// ShellStateProvider is the reference StateProvider: it shells out to an
// operator-supplied capture tool that prints a snapshot descriptor as JSON
// on stdout (handle, checksum, components). The checksum tool prints the
// current checksum for a handle passed as its argument.
type ShellStateProvider struct {
	Shell       string
	CaptureCmd  string
	ChecksumCmd string
	Timeout     time.Duration
}

// NewShellStateProvider creates a shell-backed state provider.
func NewShellStateProvider(captureCmd, checksumCmd string, timeout time.Duration) *ShellStateProvider {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ShellStateProvider{
		Shell:       "/bin/sh",
		CaptureCmd:  captureCmd,
		ChecksumCmd: checksumCmd,
		Timeout:     timeout,
	}
}

// Capture runs the capture tool and decodes the snapshot descriptor.
func (p *ShellStateProvider) Capture(ctx context.Context) (domain.StateSnapshot, error) {
	out, err := p.run(ctx, p.CaptureCmd)
	if err != nil {
		return domain.StateSnapshot{}, fmt.Errorf("state capture: %w", err)
	}

	var snapshot domain.StateSnapshot
	if err := json.Unmarshal(out, &snapshot); err != nil {
		return domain.StateSnapshot{}, fmt.Errorf("state capture: invalid descriptor: %w", err)
	}
	if snapshot.Handle == "" {
		return domain.StateSnapshot{}, fmt.Errorf("state capture: descriptor has no handle")
	}
	if snapshot.CapturedAt.IsZero() {
		snapshot.CapturedAt = time.Now()
	}
	return snapshot, nil
}

// Checksum runs the checksum tool against the snapshot handle.
func (p *ShellStateProvider) Checksum(ctx context.Context, snapshot domain.StateSnapshot) (string, error) {
	out, err := p.run(ctx, fmt.Sprintf("%s %s", p.ChecksumCmd, snapshot.Handle))
	if err != nil {
		return "", fmt.Errorf("state checksum: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (p *ShellStateProvider) run(ctx context.Context, command string) ([]byte, error) {
	if command == "" {
		return nil, fmt.Errorf("no command configured")
	}
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Shell, "-c", command)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(buf.String()))
	}
	return buf.Bytes(), nil
}

// HTTPMetricsProvider fetches SystemMetrics as JSON from a metrics
// aggregator endpoint.
type HTTPMetricsProvider struct {
	URL    string
	client *http.Client
}

// NewHTTPMetricsProvider creates a metrics provider over an HTTP endpoint.
func NewHTTPMetricsProvider(url string) *HTTPMetricsProvider {
	return &HTTPMetricsProvider{
		URL:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Current fetches one metrics reading.
func (p *HTTPMetricsProvider) Current(ctx context.Context) (SystemMetrics, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return SystemMetrics{}, fmt.Errorf("metrics request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return SystemMetrics{}, fmt.Errorf("metrics fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return SystemMetrics{}, fmt.Errorf("metrics fetch: unexpected status %d", resp.StatusCode)
	}

	var m SystemMetrics
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return SystemMetrics{}, fmt.Errorf("metrics decode: %w", err)
	}
	return m, nil
}

// ShellPolicyEvaluator scores a snapshot by running an operator-supplied
// policy tool that prints a 0-100 score on stdout. An empty command means
// no policy is enforced and every snapshot scores 100.
type ShellPolicyEvaluator struct {
	Shell   string
	Command string
	Timeout time.Duration
}

// NewShellPolicyEvaluator creates a shell-backed policy evaluator.
func NewShellPolicyEvaluator(command string, timeout time.Duration) *ShellPolicyEvaluator {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &ShellPolicyEvaluator{Shell: "/bin/sh", Command: command, Timeout: timeout}
}

// Evaluate runs the policy tool against the snapshot handle.
func (e *ShellPolicyEvaluator) Evaluate(
	ctx context.Context,
	snapshot domain.StateSnapshot,
) (PolicyEvaluation, error) {
	if e.Command == "" {
		return PolicyEvaluation{Score: 100, Status: domain.CheckPassed}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.Shell, "-c", fmt.Sprintf("%s %s", e.Command, snapshot.Handle))
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return PolicyEvaluation{}, fmt.Errorf("policy evaluation: %w", err)
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(buf.String()), 64)
	if err != nil {
		return PolicyEvaluation{}, fmt.Errorf("policy evaluation: invalid score: %w", err)
	}

	status := domain.CheckPassed
	switch {
	case score < 50:
		status = domain.CheckFailed
	case score < 80:
		status = domain.CheckWarning
	}
	return PolicyEvaluation{Score: score, Status: status}, nil
}
