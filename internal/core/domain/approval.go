package domain

import "time"

// ApprovalRole identifies who must sign off on a rollback.
type ApprovalRole string

const (
	RoleDeveloper  ApprovalRole = "developer"
	RoleTechLead   ApprovalRole = "tech-lead"
	RoleOpsManager ApprovalRole = "ops-manager"
	RoleCTO        ApprovalRole = "cto"
)

// ValidRole reports whether r is a known approval role.
func ValidRole(r ApprovalRole) bool {
	switch r {
	case RoleDeveloper, RoleTechLead, RoleOpsManager, RoleCTO:
		return true
	}
	return false
}

// ApprovalStatus is the state of a single required approval.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Approval tracks one required sign-off on a rollback execution.
type Approval struct {
	RequiredRole ApprovalRole   `json:"required_role"`
	Status       ApprovalStatus `json:"status"`
	UserID       string         `json:"user_id,omitempty"`
	Timestamp    *time.Time     `json:"timestamp,omitempty"`
	Comment      string         `json:"comment,omitempty"`
}
