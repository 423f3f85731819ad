// Package rollback implements the multi-phase rollback state machine:
// plan construction from a strategy, approval-gated execution, phase/step
// dispatch, post-rollback verification, and per-execution event streams.
package rollback

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deploykit/rollbackd/internal/core/clock"
	"github.com/deploykit/rollbackd/internal/core/domain"
	"github.com/deploykit/rollbackd/internal/infra/capability"
	"github.com/deploykit/rollbackd/internal/infra/storage"
	"github.com/deploykit/rollbackd/internal/orchestration/approval"
	"github.com/deploykit/rollbackd/internal/orchestration/impact"
	"github.com/deploykit/rollbackd/internal/orchestration/metrics"
	"github.com/deploykit/rollbackd/internal/orchestration/points"
	"github.com/deploykit/rollbackd/internal/orchestration/verify"
)

// Options tune a single rollback initiation.
type Options struct {
	// Force starts execution without waiting for approvals. Used by
	// auto-recovery.
	Force bool

	// RequestedBy identifies the initiating user or system.
	RequestedBy string
}

// CurrentStateFunc supplies the live system description the impact
// assessor diffs recovery points against.
type CurrentStateFunc func() impact.CurrentState

// PointLocker serializes execution per recovery point across instances.
// The orchestrator always serializes locally; a distributed locker extends
// that to multi-instance deployments.
type PointLocker interface {
	Acquire(ctx context.Context, pointID string) (bool, error)
	Release(ctx context.Context, pointID string) error
}

// lockRefresher extends a held lease. Lockers whose leases can expire while
// an execution waits on approvals implement it.
type lockRefresher interface {
	Refresh(ctx context.Context, pointID string) error
}

// Config wires an Orchestrator.
type Config struct {
	Points     *points.Store
	Strategies *StrategyRegistry
	Assessor   *impact.Assessor
	Gate       *approval.Gate
	Runner     capability.CommandRunner
	State      capability.StateProvider
	Engine     *verify.Engine
	ExecRepo   storage.ExecutionRepository
	Clock      clock.Clock
	Current    CurrentStateFunc
	Locker     PointLocker

	// LockRefresh is how often a held point lease is extended while the
	// execution is pending or running. Zero means one minute.
	LockRefresh time.Duration

	LogCap int
}

// Orchestrator owns the rollback execution registry. All externally visible
// mutation happens under its lock; readers always get consistent copies.
type Orchestrator struct {
	cfg   Config
	clock clock.Clock
	log   *slog.Logger

	mu            sync.Mutex
	executions    map[string]*execState
	activeByPoint map[string]string
}

type execState struct {
	exec    *domain.RollbackExecution
	point   *domain.RecoveryPoint
	logs    *logBuffer
	events  *broadcaster
	forced  bool
	done    chan struct{}
	started bool
}

// NewOrchestrator creates a rollback orchestrator.
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Strategies == nil {
		cfg.Strategies = NewStrategyRegistry()
	}
	if cfg.Gate == nil {
		cfg.Gate = approval.NewGate()
	}
	return &Orchestrator{
		cfg:           cfg,
		clock:         cfg.Clock,
		log:           slog.Default(),
		executions:    make(map[string]*execState),
		activeByPoint: make(map[string]string),
	}
}

// InitiateRollback loads the target point and strategy, assesses impact,
// derives the approval set, and registers a new execution. Execution starts
// immediately when no approval is outstanding or the caller forced it;
// otherwise the execution stays pending until approvals clear.
func (o *Orchestrator) InitiateRollback(
	ctx context.Context,
	recoveryPointID string,
	strategyName domain.StrategyName,
	opts Options,
) (*domain.RollbackExecution, error) {
	point, err := o.cfg.Points.Get(ctx, recoveryPointID)
	if err != nil {
		return nil, err
	}
	strategy, err := o.cfg.Strategies.Get(strategyName)
	if err != nil {
		return nil, err
	}

	assessment := o.cfg.Assessor.Assess(point, o.cfg.Current())
	approvals := approval.RequiredApprovals(assessment.Severity)

	if o.cfg.Locker != nil {
		ok, err := o.cfg.Locker.Acquire(ctx, recoveryPointID)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire point lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: held by another instance", ErrRollbackInProgress)
		}
	}

	o.mu.Lock()
	if activeID, busy := o.activeByPoint[recoveryPointID]; busy {
		o.mu.Unlock()
		if o.cfg.Locker != nil {
			_ = o.cfg.Locker.Release(ctx, recoveryPointID)
		}
		return nil, fmt.Errorf("%w: execution %s", ErrRollbackInProgress, activeID)
	}

	exec := &domain.RollbackExecution{
		ID:               uuid.New().String(),
		RecoveryPointID:  recoveryPointID,
		StartedAt:        o.clock.Now(),
		Status:           domain.ExecutionPending,
		Strategy:         strategy,
		ImpactAssessment: assessment,
		Approvals:        approvals,
	}
	st := &execState{
		exec:   exec,
		point:  point,
		logs:   newLogBuffer(o.cfg.LogCap),
		events: newBroadcaster(),
		forced: opts.Force,
		done:   make(chan struct{}),
	}
	o.executions[exec.ID] = st
	o.activeByPoint[recoveryPointID] = exec.ID
	metrics.ActiveExecutions.Inc()

	o.appendLog(st, domain.LogInfo, "", "", fmt.Sprintf(
		"rollback initiated by %q: strategy=%s severity=%s approvals=%d",
		opts.RequestedBy, strategyName, assessment.Severity, len(approvals),
	))

	start := opts.Force || len(approvals) == 0
	if !start {
		o.appendLog(st, domain.LogInfo, "", "", fmt.Sprintf(
			"awaiting %d approval(s) before execution", len(approvals)))
	}
	snapshot := o.snapshotLocked(st)
	o.mu.Unlock()

	o.persist(snapshot)

	if o.cfg.Locker != nil {
		go o.refreshPointLock(st, recoveryPointID)
	}
	if start {
		go o.Execute(exec.ID)
	}
	return snapshot, nil
}

// refreshPointLock keeps the distributed point lease alive until the
// execution terminates. An execution can sit pending on approvals far
// longer than the lease, and an expired lease would let another instance
// start a second rollback against the same point.
func (o *Orchestrator) refreshPointLock(st *execState, pointID string) {
	r, ok := o.cfg.Locker.(lockRefresher)
	if !ok {
		return
	}
	interval := o.cfg.LockRefresh
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := o.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-st.done:
			return
		case <-ticker.C():
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := r.Refresh(ctx, pointID); err != nil {
				o.log.Warn("failed to refresh point lock", "recovery_point", pointID, "error", err)
			}
			cancel()
		}
	}
}

// Execute drives a pending execution through preparing, executing, and
// verifying to a terminal state. It is called automatically by
// InitiateRollback or when the last approval clears; it blocks until the
// execution terminates.
func (o *Orchestrator) Execute(executionID string) error {
	o.mu.Lock()
	st, ok := o.executions[executionID]
	if !ok {
		o.mu.Unlock()
		return storage.ErrExecutionNotFound
	}
	if st.started || st.exec.Status != domain.ExecutionPending {
		o.mu.Unlock()
		return fmt.Errorf("execution %s is not pending", executionID)
	}
	if !st.forced && st.exec.PendingApprovals() > 0 {
		o.mu.Unlock()
		return fmt.Errorf("execution %s has outstanding approvals", executionID)
	}
	st.started = true

	o.setStatusLocked(st, domain.ExecutionPreparing)
	st.exec.Phases = buildPhases(st.exec.Strategy, st.point)
	o.appendLog(st, domain.LogInfo, "", "", fmt.Sprintf(
		"phase plan built: %d phases, parallelize=%t, timeout=%s",
		len(st.exec.Phases), st.exec.Strategy.Parallelize, st.exec.Strategy.Timeout,
	))
	o.setStatusLocked(st, domain.ExecutionExecuting)
	snapshot := o.snapshotLocked(st)
	o.mu.Unlock()

	o.persist(snapshot)

	ctx, cancel := context.WithTimeout(context.Background(), st.exec.Strategy.Timeout)
	defer cancel()

	for i := range snapshot.Phases {
		if o.terminated(st) {
			return nil
		}
		if !o.runPhase(ctx, st, i) {
			o.skipRemaining(st, i+1)
			o.finish(st, domain.ExecutionFailed)
			return nil
		}
	}

	o.mu.Lock()
	// Another path may have finished the execution while the phases ran;
	// terminal states admit no further transitions.
	if st.exec.Status.Terminal() {
		o.mu.Unlock()
		return nil
	}
	o.setStatusLocked(st, domain.ExecutionVerifying)
	o.mu.Unlock()
	o.persist(o.snapshot(st))

	result, err := o.verifyPostRollback(ctx, st)
	o.mu.Lock()
	st.exec.Verification = &result
	if err != nil {
		o.appendLog(st, domain.LogError, "", "", fmt.Sprintf("post-rollback capture failed: %v", err))
	} else if !result.Passed {
		o.appendLog(st, domain.LogError, "", "", fmt.Sprintf(
			"post-rollback verification failed: score=%.1f", result.OverallScore))
	} else {
		o.appendLog(st, domain.LogInfo, "", "", fmt.Sprintf(
			"post-rollback verification passed: score=%.1f", result.OverallScore))
	}
	o.mu.Unlock()

	if err != nil || !result.Passed {
		o.finish(st, domain.ExecutionFailed)
		return nil
	}
	o.finish(st, domain.ExecutionCompleted)
	return nil
}

func (o *Orchestrator) verifyPostRollback(ctx context.Context, st *execState) (domain.VerificationResult, error) {
	snap, err := o.cfg.State.Capture(ctx)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	return o.cfg.Engine.Verify(ctx, snap), nil
}

// runPhase executes one phase's steps and reports whether the phase
// completed. Steps run in parallel only when the strategy allows it and the
// phase has more than one step; sequential runs stop at the first failure.
func (o *Orchestrator) runPhase(ctx context.Context, st *execState, idx int) bool {
	o.mu.Lock()
	phase := &st.exec.Phases[idx]
	phase.Status = domain.PhaseRunning
	phaseName := phase.Name
	steps := append([]domain.RollbackStep(nil), phase.Steps...)
	parallel := st.exec.Strategy.Parallelize && len(steps) > 1
	o.appendLog(st, domain.LogInfo, phaseName, "", fmt.Sprintf(
		"phase started: %d step(s), parallel=%t", len(steps), parallel))
	o.publishLocked(st, Event{
		Type: EventPhaseChanged, Phase: phaseName, PhaseStatus: domain.PhaseRunning,
	})
	o.mu.Unlock()

	failed := false
	if parallel {
		var wg sync.WaitGroup
		for i := range steps {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if !o.runStep(ctx, st, idx, i, phaseName) {
					o.mu.Lock()
					failed = true
					o.mu.Unlock()
				}
			}(i)
		}
		wg.Wait()
	} else {
		for i := range steps {
			if !o.runStep(ctx, st, idx, i, phaseName) {
				failed = true
				o.markSkippedSteps(st, idx, i+1, phaseName)
				break
			}
		}
	}

	o.mu.Lock()
	phase = &st.exec.Phases[idx]
	if failed {
		phase.Status = domain.PhaseFailed
		o.appendLog(st, domain.LogError, phaseName, "", "phase failed")
	} else {
		phase.Status = domain.PhaseCompleted
		o.appendLog(st, domain.LogInfo, phaseName, "", "phase completed")
	}
	o.publishLocked(st, Event{
		Type: EventPhaseChanged, Phase: phaseName, PhaseStatus: phase.Status,
	})
	snapshot := o.snapshotLocked(st)
	o.mu.Unlock()

	o.persist(snapshot)
	return !failed
}

// runStep dispatches one step to the command runner and records the result.
func (o *Orchestrator) runStep(ctx context.Context, st *execState, phaseIdx, stepIdx int, phaseName string) bool {
	o.mu.Lock()
	step := &st.exec.Phases[phaseIdx].Steps[stepIdx]
	step.Status = domain.PhaseRunning
	spec := domain.StepSpec{
		Name:           step.Name,
		Type:           step.Type,
		Command:        step.Command,
		TimeoutSeconds: step.TimeoutSeconds,
	}
	stepName := step.Name
	stepType := step.Type
	o.publishLocked(st, Event{
		Type: EventStepChanged, Phase: phaseName, Step: stepName,
		PhaseStatus: domain.PhaseRunning,
	})
	o.mu.Unlock()

	start := time.Now()
	result, err := o.cfg.Runner.Execute(ctx, stepType, spec)
	elapsed := time.Since(start)

	o.mu.Lock()
	defer o.mu.Unlock()
	step = &st.exec.Phases[phaseIdx].Steps[stepIdx]
	step.DurationMs = elapsed.Milliseconds()
	step.Output = result.Output
	if err != nil {
		stepErr := &StepExecutionError{Phase: phaseName, Step: stepName, Err: err}
		step.Status = domain.PhaseFailed
		step.Error = err.Error()
		o.appendLog(st, domain.LogError, phaseName, stepName, stepErr.Error())
		metrics.StepDuration.WithLabelValues(string(stepType), "failed").Observe(elapsed.Seconds())
		o.publishLocked(st, Event{
			Type: EventStepChanged, Phase: phaseName, Step: stepName,
			PhaseStatus: domain.PhaseFailed, Message: err.Error(),
		})
		return false
	}
	step.Status = domain.PhaseCompleted
	o.appendLog(st, domain.LogInfo, phaseName, stepName, "step completed")
	metrics.StepDuration.WithLabelValues(string(stepType), "completed").Observe(elapsed.Seconds())
	o.publishLocked(st, Event{
		Type: EventStepChanged, Phase: phaseName, Step: stepName,
		PhaseStatus: domain.PhaseCompleted,
	})
	return true
}

func (o *Orchestrator) markSkippedSteps(st *execState, phaseIdx, fromStep int, phaseName string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	steps := st.exec.Phases[phaseIdx].Steps
	for i := fromStep; i < len(steps); i++ {
		steps[i].Status = domain.PhaseSkipped
		o.appendLog(st, domain.LogWarn, phaseName, steps[i].Name, "step skipped after earlier failure")
	}
}

func (o *Orchestrator) skipRemaining(st *execState, fromPhase int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := fromPhase; i < len(st.exec.Phases); i++ {
		st.exec.Phases[i].Status = domain.PhaseSkipped
		o.appendLog(st, domain.LogWarn, st.exec.Phases[i].Name, "", "phase skipped after earlier failure")
	}
}

// Approve applies an approval decision. It reports whether the decision
// changed anything; approving an already resolved role returns false and
// does not re-trigger execution. When the last pending approval clears,
// execution starts automatically.
func (o *Orchestrator) Approve(
	ctx context.Context,
	executionID string,
	role domain.ApprovalRole,
	userID, comment string,
) (bool, error) {
	if !domain.ValidRole(role) {
		return false, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	o.mu.Lock()
	st, ok := o.executions[executionID]
	if !ok {
		o.mu.Unlock()
		return false, storage.ErrExecutionNotFound
	}
	// Decisions only apply while the execution awaits them. A forced
	// execution keeps its approvals pending, so a late decision must not
	// touch one that is already running or terminal.
	if st.exec.Status != domain.ExecutionPending {
		o.mu.Unlock()
		return false, nil
	}
	applied := o.cfg.Gate.Approve(st.exec, role, userID, comment, o.clock.Now())
	ready := false
	var snapshot *domain.RollbackExecution
	if applied {
		o.appendLog(st, domain.LogInfo, "", "", fmt.Sprintf("approved by %s (%s)", userID, role))
		ready = st.exec.Status == domain.ExecutionPending && o.cfg.Gate.Satisfied(st.exec)
		snapshot = o.snapshotLocked(st)
	}
	o.mu.Unlock()

	if applied {
		o.persist(snapshot)
	}
	if ready {
		go o.Execute(executionID)
	}
	return applied, nil
}

// Reject applies a rejection. Any rejected required approval immediately
// fails the execution.
func (o *Orchestrator) Reject(
	ctx context.Context,
	executionID string,
	role domain.ApprovalRole,
	userID, comment string,
) (bool, error) {
	if !domain.ValidRole(role) {
		return false, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	o.mu.Lock()
	st, ok := o.executions[executionID]
	if !ok {
		o.mu.Unlock()
		return false, storage.ErrExecutionNotFound
	}
	if st.exec.Status != domain.ExecutionPending {
		o.mu.Unlock()
		return false, nil
	}
	applied := o.cfg.Gate.Reject(st.exec, role, userID, comment, o.clock.Now())
	var snapshot *domain.RollbackExecution
	if applied {
		o.appendLog(st, domain.LogError, "", "", fmt.Sprintf("rejected by %s (%s): %s", userID, role, comment))
		snapshot = o.finishLocked(st, domain.ExecutionFailed)
	}
	o.mu.Unlock()

	if snapshot != nil {
		o.afterFinish(snapshot, domain.ExecutionFailed)
	}
	return applied, nil
}

// Cancel cancels a pending execution. Executions that already started
// preparation cannot be cancelled mid-phase.
func (o *Orchestrator) Cancel(executionID string) error {
	o.mu.Lock()
	st, ok := o.executions[executionID]
	if !ok {
		o.mu.Unlock()
		return storage.ErrExecutionNotFound
	}
	if st.exec.Status != domain.ExecutionPending || st.started {
		o.mu.Unlock()
		return ErrNotCancellable
	}
	o.appendLog(st, domain.LogWarn, "", "", "execution cancelled")
	// The transition happens under the same lock acquisition as the
	// precondition check, so a racing approval cannot start the execution
	// in between.
	snapshot := o.finishLocked(st, domain.ExecutionCancelled)
	o.mu.Unlock()

	if snapshot != nil {
		o.afterFinish(snapshot, domain.ExecutionCancelled)
	}
	return nil
}

// GetExecution returns a consistent copy of an execution, logs included.
func (o *Orchestrator) GetExecution(executionID string) (*domain.RollbackExecution, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.executions[executionID]
	if !ok {
		return nil, storage.ErrExecutionNotFound
	}
	return o.snapshotLocked(st), nil
}

// ListExecutions returns copies of all registered executions, newest first.
func (o *Orchestrator) ListExecutions() []*domain.RollbackExecution {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*domain.RollbackExecution, 0, len(o.executions))
	for _, st := range o.executions {
		out = append(out, o.snapshotLocked(st))
	}
	sortExecutions(out)
	return out
}

// GetLogs returns the capped log of an execution, oldest first.
func (o *Orchestrator) GetLogs(executionID string) ([]domain.RollbackLog, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.executions[executionID]
	if !ok {
		return nil, storage.ErrExecutionNotFound
	}
	return st.logs.snapshot(), nil
}

// Subscribe attaches a listener to an execution's event stream.
func (o *Orchestrator) Subscribe(executionID string) (<-chan Event, func(), error) {
	o.mu.Lock()
	st, ok := o.executions[executionID]
	o.mu.Unlock()
	if !ok {
		return nil, nil, storage.ErrExecutionNotFound
	}
	ch, cancel := st.events.Subscribe()
	return ch, cancel, nil
}

// CountStartedSince counts executions whose StartedAt falls at or after the
// given instant. The auto-recovery monitor uses it for rate limiting.
func (o *Orchestrator) CountStartedSince(t time.Time) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, st := range o.executions {
		if !st.exec.StartedAt.Before(t) {
			n++
		}
	}
	return n
}

// -----------------------------------------------------------------------------
// internals
// -----------------------------------------------------------------------------

// terminated reports whether the execution already reached a terminal state.
func (o *Orchestrator) terminated(st *execState) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return st.exec.Status.Terminal()
}

// setStatusLocked transitions status and publishes the change. Caller holds
// the lock; terminal states go through finish instead.
func (o *Orchestrator) setStatusLocked(st *execState, status domain.ExecutionStatus) {
	st.exec.Status = status
	o.appendLog(st, domain.LogInfo, "", "", fmt.Sprintf("status -> %s", status))
	o.publishLocked(st, Event{Type: EventStatusChanged, Status: status})
}

// finish moves an execution to a terminal state and releases its
// per-recovery-point slot.
func (o *Orchestrator) finish(st *execState, status domain.ExecutionStatus) {
	o.mu.Lock()
	snapshot := o.finishLocked(st, status)
	o.mu.Unlock()
	if snapshot != nil {
		o.afterFinish(snapshot, status)
	}
}

// finishLocked applies the terminal transition. Caller holds the lock, so a
// precondition it validated cannot be invalidated before the transition
// lands. Returns nil when the execution is already terminal.
func (o *Orchestrator) finishLocked(st *execState, status domain.ExecutionStatus) *domain.RollbackExecution {
	if st.exec.Status.Terminal() {
		return nil
	}
	st.exec.Status = status
	ended := o.clock.Now()
	st.exec.EndedAt = &ended
	o.appendLog(st, domain.LogInfo, "", "", fmt.Sprintf("status -> %s", status))
	o.publishLocked(st, Event{Type: EventStatusChanged, Status: status})
	delete(o.activeByPoint, st.exec.RecoveryPointID)
	snapshot := o.snapshotLocked(st)
	st.events.close()
	close(st.done)
	return snapshot
}

// afterFinish runs the side effects of a terminal transition that must not
// hold the lock.
func (o *Orchestrator) afterFinish(snapshot *domain.RollbackExecution, status domain.ExecutionStatus) {
	metrics.ActiveExecutions.Dec()
	metrics.RollbacksTotal.WithLabelValues(string(snapshot.Strategy.Name), string(status)).Inc()
	if o.cfg.Locker != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := o.cfg.Locker.Release(ctx, snapshot.RecoveryPointID); err != nil {
			o.log.Warn("failed to release point lock", "recovery_point", snapshot.RecoveryPointID, "error", err)
		}
		cancel()
	}
	o.persist(snapshot)

	o.log.Info("rollback execution finished",
		"execution", snapshot.ID,
		"recovery_point", snapshot.RecoveryPointID,
		"strategy", snapshot.Strategy.Name,
		"status", status,
	)
}

func (o *Orchestrator) appendLog(st *execState, level domain.LogLevel, phase, step, msg string) {
	now := o.clock.Now()
	st.logs.append(now, level, phase, step, msg)
	o.publishLocked(st, Event{
		Type: EventLogAppended, Phase: phase, Step: step, Message: msg,
	})
}

func (o *Orchestrator) publishLocked(st *execState, ev Event) {
	ev.ExecutionID = st.exec.ID
	ev.Timestamp = o.clock.Now()
	st.events.publish(ev)
}

// snapshot locks and copies; snapshotLocked assumes the caller holds the lock.
func (o *Orchestrator) snapshot(st *execState) *domain.RollbackExecution {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked(st)
}

func (o *Orchestrator) snapshotLocked(st *execState) *domain.RollbackExecution {
	cp := *st.exec
	cp.Phases = make([]domain.RollbackPhase, len(st.exec.Phases))
	for i, ph := range st.exec.Phases {
		cp.Phases[i] = ph
		cp.Phases[i].Steps = append([]domain.RollbackStep(nil), ph.Steps...)
		cp.Phases[i].Dependencies = append([]string(nil), ph.Dependencies...)
	}
	cp.Approvals = append([]domain.Approval(nil), st.exec.Approvals...)
	cp.Logs = st.logs.snapshot()
	if st.exec.Verification != nil {
		v := *st.exec.Verification
		v.Checks = append([]domain.VerificationCheck(nil), st.exec.Verification.Checks...)
		cp.Verification = &v
	}
	return &cp
}

func (o *Orchestrator) persist(snapshot *domain.RollbackExecution) {
	if o.cfg.ExecRepo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.cfg.ExecRepo.Save(ctx, snapshot); err != nil {
		o.log.Error("failed to persist execution", "execution", snapshot.ID, "error", err)
	}
}

func sortExecutions(execs []*domain.RollbackExecution) {
	sort.Slice(execs, func(i, j int) bool {
		return execs[i].StartedAt.After(execs[j].StartedAt)
	})
}
