package domain

// CheckCategory classifies a verification check.
type CheckCategory string

const (
	CategoryFunctional    CheckCategory = "functional"
	CategoryPerformance   CheckCategory = "performance"
	CategorySecurity      CheckCategory = "security"
	CategoryDataIntegrity CheckCategory = "data-integrity"
)

// CheckStatus is the outcome of a single verification check.
type CheckStatus string

const (
	CheckPassed  CheckStatus = "passed"
	CheckWarning CheckStatus = "warning"
	CheckFailed  CheckStatus = "failed"
	CheckSkipped CheckStatus = "skipped"
)

// VerificationCheck is one scored check within a verification run.
type VerificationCheck struct {
	Name       string        `json:"name"`
	Category   CheckCategory `json:"category"`
	Status     CheckStatus   `json:"status"`
	Score      float64       `json:"score"`
	DurationMs int64         `json:"duration_ms"`
	Details    string        `json:"details,omitempty"`
}

// VerificationResult is the weighted outcome of a verification battery.
// Passed requires OverallScore >= 70 and no failed check.
type VerificationResult struct {
	Passed          bool                `json:"passed"`
	OverallScore    float64             `json:"overall_score"`
	Checks          []VerificationCheck `json:"checks"`
	Recommendations []string            `json:"recommendations,omitempty"`
}

// PassThreshold is the minimum overall score for a verification to pass.
const PassThreshold = 70.0

// Evaluate recomputes Passed and OverallScore from the check list.
func (r *VerificationResult) Evaluate() {
	if len(r.Checks) == 0 {
		r.OverallScore = 0
		r.Passed = false
		return
	}
	var sum float64
	failed := false
	for _, c := range r.Checks {
		sum += c.Score
		if c.Status == CheckFailed {
			failed = true
		}
	}
	r.OverallScore = sum / float64(len(r.Checks))
	r.Passed = r.OverallScore >= PassThreshold && !failed
}
