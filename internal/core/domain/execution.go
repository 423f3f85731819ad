package domain

import "time"

// ExecutionStatus is the lifecycle state of a rollback execution.
// Valid transitions: pending -> preparing -> executing -> verifying ->
// {completed | failed}; pending -> cancelled before preparation starts.
// completed and failed are terminal.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionPreparing ExecutionStatus = "preparing"
	ExecutionExecuting ExecutionStatus = "executing"
	ExecutionVerifying ExecutionStatus = "verifying"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed || s == ExecutionCancelled
}

// StepType routes a rollback step to the matching command runner capability.
type StepType string

const (
	StepDatabase       StepType = "database"
	StepApplication    StepType = "application"
	StepConfiguration  StepType = "configuration"
	StepInfrastructure StepType = "infrastructure"
	StepVerification   StepType = "verification"
)

// PhaseStatus is shared by phases and steps.
type PhaseStatus string

const (
	PhasePending   PhaseStatus = "pending"
	PhaseRunning   PhaseStatus = "running"
	PhaseCompleted PhaseStatus = "completed"
	PhaseFailed    PhaseStatus = "failed"
	PhaseSkipped   PhaseStatus = "skipped"
)

// RollbackStep is one unit of rollback work dispatched to a command runner.
type RollbackStep struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Type           StepType    `json:"type"`
	Command        string      `json:"command,omitempty"`
	TimeoutSeconds int         `json:"timeout_seconds,omitempty"`
	Status         PhaseStatus `json:"status"`
	Output         string      `json:"output,omitempty"`
	Error          string      `json:"error,omitempty"`
	DurationMs     int64       `json:"duration_ms"`
}

// RollbackPhase groups ordered steps. Phases run in fixed declared order;
// Dependencies records the predecessor phase id for observability.
type RollbackPhase struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Order        int            `json:"order"`
	Status       PhaseStatus    `json:"status"`
	Steps        []RollbackStep `json:"steps"`
	Dependencies []string       `json:"dependencies,omitempty"`
}

// LogLevel grades a rollback log entry.
type LogLevel string

const (
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// RollbackLog is one append-only entry in an execution's capped log.
type RollbackLog struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Phase     string    `json:"phase,omitempty"`
	Step      string    `json:"step,omitempty"`
	Message   string    `json:"message"`
}

// RollbackExecution is the mutable state machine instance for one rollback.
// All mutation happens under the orchestrator's lock; readers get copies.
type RollbackExecution struct {
	ID               string              `json:"id"`
	RecoveryPointID  string              `json:"recovery_point_id"`
	StartedAt        time.Time           `json:"started_at"`
	EndedAt          *time.Time          `json:"ended_at,omitempty"`
	Status           ExecutionStatus     `json:"status"`
	Strategy         Strategy            `json:"strategy"`
	Phases           []RollbackPhase     `json:"phases"`
	ImpactAssessment ImpactAssessment    `json:"impact_assessment"`
	Approvals        []Approval          `json:"approvals"`
	Logs             []RollbackLog       `json:"logs,omitempty"`
	Verification     *VerificationResult `json:"verification,omitempty"`
}

// PendingApprovals counts approvals still awaiting a decision.
func (e *RollbackExecution) PendingApprovals() int {
	n := 0
	for _, a := range e.Approvals {
		if a.Status == ApprovalPending {
			n++
		}
	}
	return n
}
