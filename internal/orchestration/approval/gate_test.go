package approval

import (
	"testing"
	"time"

	"github.com/deploykit/rollbackd/internal/core/domain"
)

func TestRequiredApprovalsPerSeverity(t *testing.T) {
	cases := []struct {
		severity domain.Severity
		roles    []domain.ApprovalRole
	}{
		{domain.SeverityCritical, []domain.ApprovalRole{domain.RoleCTO, domain.RoleOpsManager}},
		{domain.SeverityHigh, []domain.ApprovalRole{domain.RoleOpsManager, domain.RoleTechLead}},
		{domain.SeverityMedium, []domain.ApprovalRole{domain.RoleTechLead}},
		{domain.SeverityLow, nil},
	}

	for _, tc := range cases {
		t.Run(string(tc.severity), func(t *testing.T) {
			got := RequiredApprovals(tc.severity)
			if len(got) != len(tc.roles) {
				t.Fatalf("got %d approvals, want %d", len(got), len(tc.roles))
			}
			for i, role := range tc.roles {
				if got[i].RequiredRole != role {
					t.Errorf("approval %d role = %s, want %s", i, got[i].RequiredRole, role)
				}
				if got[i].Status != domain.ApprovalPending {
					t.Errorf("approval %d status = %s, want pending", i, got[i].Status)
				}
			}
		})
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	gate := NewGate()
	exec := &domain.RollbackExecution{
		Approvals: RequiredApprovals(domain.SeverityHigh),
	}
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	if !gate.Approve(exec, domain.RoleTechLead, "u-1", "lgtm", now) {
		t.Fatal("first approve should apply")
	}
	if gate.Approve(exec, domain.RoleTechLead, "u-2", "me too", now) {
		t.Fatal("second approve for the same role should be a no-op")
	}

	var techLead domain.Approval
	for _, a := range exec.Approvals {
		if a.RequiredRole == domain.RoleTechLead {
			techLead = a
		}
	}
	if techLead.UserID != "u-1" {
		t.Errorf("approval user = %s, want u-1", techLead.UserID)
	}
	if techLead.Timestamp == nil || !techLead.Timestamp.Equal(now) {
		t.Errorf("approval timestamp = %v, want %v", techLead.Timestamp, now)
	}
}

func TestApproveWrongRoleIsNoOp(t *testing.T) {
	gate := NewGate()
	exec := &domain.RollbackExecution{
		Approvals: RequiredApprovals(domain.SeverityMedium),
	}

	if gate.Approve(exec, domain.RoleCTO, "u-1", "", time.Now()) {
		t.Fatal("approving a role not in the required set should not apply")
	}
	if exec.PendingApprovals() != 1 {
		t.Errorf("pending approvals = %d, want 1", exec.PendingApprovals())
	}
}

func TestSatisfied(t *testing.T) {
	gate := NewGate()
	exec := &domain.RollbackExecution{
		Approvals: RequiredApprovals(domain.SeverityCritical),
	}
	now := time.Now()

	if gate.Satisfied(exec) {
		t.Fatal("unapproved execution should not be satisfied")
	}
	gate.Approve(exec, domain.RoleCTO, "u-1", "", now)
	if gate.Satisfied(exec) {
		t.Fatal("one of two approvals should not satisfy")
	}
	gate.Approve(exec, domain.RoleOpsManager, "u-2", "", now)
	if !gate.Satisfied(exec) {
		t.Fatal("all approvals granted should satisfy")
	}
}

func TestRejectResolvesApproval(t *testing.T) {
	gate := NewGate()
	exec := &domain.RollbackExecution{
		Approvals: RequiredApprovals(domain.SeverityMedium),
	}
	now := time.Now()

	if !gate.Reject(exec, domain.RoleTechLead, "u-1", "too risky", now) {
		t.Fatal("reject should apply to a pending approval")
	}
	if gate.Approve(exec, domain.RoleTechLead, "u-2", "", now) {
		t.Fatal("approve after reject should be a no-op")
	}
	if gate.Satisfied(exec) {
		t.Fatal("rejected execution should never be satisfied")
	}
}

func TestLowSeverityIsAlwaysSatisfied(t *testing.T) {
	gate := NewGate()
	exec := &domain.RollbackExecution{
		Approvals: RequiredApprovals(domain.SeverityLow),
	}
	if !gate.Satisfied(exec) {
		t.Fatal("empty approval set should be satisfied")
	}
}
