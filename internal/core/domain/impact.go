package domain

// Severity grades the blast radius of a rollback.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// DataLossRisk grades the chance of losing data written since the point.
type DataLossRisk string

const (
	DataLossNone     DataLossRisk = "none"
	DataLossMinimal  DataLossRisk = "minimal"
	DataLossModerate DataLossRisk = "moderate"
	DataLossHigh     DataLossRisk = "high"
)

// ImpactAssessment is a deterministic blast-radius estimate for rolling back
// to a given recovery point. It is computed once at rollback initiation.
type ImpactAssessment struct {
	Severity                 Severity     `json:"severity"`
	Scope                    string       `json:"scope"`
	AffectedUsers            int          `json:"affected_users"`
	EstimatedDowntimeMinutes int          `json:"estimated_downtime_minutes"`
	DataLossRisk             DataLossRisk `json:"data_loss_risk"`
	Dependencies             []string     `json:"dependencies,omitempty"`
	BusinessImpact           string       `json:"business_impact"`
}
