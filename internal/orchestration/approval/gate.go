// Package approval maps impact severity to required sign-offs and applies
// approval decisions to rollback executions.
package approval

import (
	"time"

	"github.com/deploykit/rollbackd/internal/core/domain"
	"github.com/deploykit/rollbackd/internal/orchestration/metrics"
)

// severityRoles is the fixed severity -> required roles table.
var severityRoles = map[domain.Severity][]domain.ApprovalRole{
	domain.SeverityCritical: {domain.RoleCTO, domain.RoleOpsManager},
	domain.SeverityHigh:     {domain.RoleOpsManager, domain.RoleTechLead},
	domain.SeverityMedium:   {domain.RoleTechLead},
	domain.SeverityLow:      {},
}

// RequiredApprovals returns the pending approval set for a severity tier.
// Only medium and above require sign-off.
func RequiredApprovals(severity domain.Severity) []domain.Approval {
	roles := severityRoles[severity]
	out := make([]domain.Approval, 0, len(roles))
	for _, r := range roles {
		out = append(out, domain.Approval{
			RequiredRole: r,
			Status:       domain.ApprovalPending,
		})
	}
	return out
}

// Gate applies approval decisions. Callers mutate executions under the
// orchestrator's lock; the gate itself holds no state.
type Gate struct{}

// NewGate creates an approval gate.
func NewGate() *Gate {
	return &Gate{}
}

// Approve marks the matching pending approval approved. It reports whether
// a change was applied; a wrong role or an already resolved approval leaves
// the execution untouched and returns false.
func (g *Gate) Approve(
	exec *domain.RollbackExecution,
	role domain.ApprovalRole,
	userID, comment string,
	now time.Time,
) bool {
	for i := range exec.Approvals {
		a := &exec.Approvals[i]
		if a.RequiredRole != role || a.Status != domain.ApprovalPending {
			continue
		}
		a.Status = domain.ApprovalApproved
		a.UserID = userID
		a.Comment = comment
		ts := now
		a.Timestamp = &ts
		metrics.ApprovalsTotal.WithLabelValues(string(role), "approved").Inc()
		return true
	}
	return false
}

// Reject marks the matching pending approval rejected. Any rejection fails
// the execution; the orchestrator enforces that on a true return.
func (g *Gate) Reject(
	exec *domain.RollbackExecution,
	role domain.ApprovalRole,
	userID, comment string,
	now time.Time,
) bool {
	for i := range exec.Approvals {
		a := &exec.Approvals[i]
		if a.RequiredRole != role || a.Status != domain.ApprovalPending {
			continue
		}
		a.Status = domain.ApprovalRejected
		a.UserID = userID
		a.Comment = comment
		ts := now
		a.Timestamp = &ts
		metrics.ApprovalsTotal.WithLabelValues(string(role), "rejected").Inc()
		return true
	}
	return false
}

// Satisfied reports whether every required approval is approved.
func (g *Gate) Satisfied(exec *domain.RollbackExecution) bool {
	for _, a := range exec.Approvals {
		if a.Status != domain.ApprovalApproved {
			return false
		}
	}
	return true
}
