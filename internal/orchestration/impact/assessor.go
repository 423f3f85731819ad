// Package impact estimates the blast radius of rolling back to a recovery
// point. Assessments are pure functions of point age and version drift so
// approval gating stays deterministic and testable.
package impact

import (
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/deploykit/rollbackd/internal/core/clock"
	"github.com/deploykit/rollbackd/internal/core/domain"
)

// CurrentState describes the live system the assessor diffs against.
type CurrentState struct {
	Version        string
	ConfigVersions map[string]string
	FeatureFlags   map[string]bool
}

// Assessor computes impact assessments.
type Assessor struct {
	clock    clock.Clock
	userBase int
}

// NewAssessor creates an assessor. userBase scales affected-user estimates;
// zero falls back to a nominal base of 1000.
func NewAssessor(clk clock.Clock, userBase int) *Assessor {
	if clk == nil {
		clk = clock.New()
	}
	if userBase <= 0 {
		userBase = 1000
	}
	return &Assessor{clock: clk, userBase: userBase}
}

// Assess derives the assessment from (now - point.CreatedAt) and the drift
// between the current state and the point's metadata.
func (a *Assessor) Assess(point *domain.RecoveryPoint, current CurrentState) domain.ImpactAssessment {
	elapsed := a.clock.Now().Sub(point.CreatedAt)
	drift := diffVersions(current, point.Metadata)

	severity := classify(elapsed, drift)

	return domain.ImpactAssessment{
		Severity:                 severity,
		Scope:                    scopeFor(severity),
		AffectedUsers:            a.affectedUsers(severity),
		EstimatedDowntimeMinutes: downtimeFor(severity),
		DataLossRisk:             dataLossFor(severity),
		Dependencies:             drift.ChangedConfigs,
		BusinessImpact:           businessImpactFor(severity),
	}
}

// Drift summarizes version distance between live state and a point.
type Drift struct {
	MajorChanged   bool
	MinorChanges   int
	ChangedConfigs []string
}

// classify applies the severity thresholds in order; first match wins.
func classify(elapsed time.Duration, drift Drift) domain.Severity {
	hours := elapsed.Hours()
	switch {
	case drift.MajorChanged || hours > 24:
		return domain.SeverityCritical
	case drift.MinorChanges > 5 || hours > 8:
		return domain.SeverityHigh
	case drift.MinorChanges > 2 || hours > 2:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func diffVersions(current CurrentState, target domain.PointMetadata) Drift {
	var d Drift

	cv, errC := semver.NewVersion(current.Version)
	tv, errT := semver.NewVersion(target.Version)
	switch {
	case errC != nil || errT != nil:
		// Unparseable versions: any difference counts as one minor change.
		if current.Version != target.Version {
			d.MinorChanges++
		}
	case cv.Major() != tv.Major():
		d.MajorChanged = true
	default:
		d.MinorChanges += absInt64(int64(cv.Minor()) - int64(tv.Minor()))
		d.MinorChanges += absInt64(int64(cv.Patch()) - int64(tv.Patch()))
	}

	for name, ver := range current.ConfigVersions {
		if target.ConfigVersions[name] != ver {
			d.MinorChanges++
			d.ChangedConfigs = append(d.ChangedConfigs, name)
		}
	}
	for name, ver := range target.ConfigVersions {
		if _, ok := current.ConfigVersions[name]; !ok && ver != "" {
			d.MinorChanges++
			d.ChangedConfigs = append(d.ChangedConfigs, name)
		}
	}
	sort.Strings(d.ChangedConfigs)

	for name, val := range current.FeatureFlags {
		if target.FeatureFlags[name] != val {
			d.MinorChanges++
		}
	}

	return d
}

func scopeFor(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical:
		return "platform"
	case domain.SeverityHigh:
		return "system"
	default:
		return "service"
	}
}

func dataLossFor(s domain.Severity) domain.DataLossRisk {
	switch s {
	case domain.SeverityCritical:
		return domain.DataLossHigh
	case domain.SeverityHigh:
		return domain.DataLossModerate
	case domain.SeverityMedium:
		return domain.DataLossMinimal
	default:
		return domain.DataLossNone
	}
}

func downtimeFor(s domain.Severity) int {
	switch s {
	case domain.SeverityCritical:
		return 60
	case domain.SeverityHigh:
		return 30
	case domain.SeverityMedium:
		return 15
	default:
		return 5
	}
}

func (a *Assessor) affectedUsers(s domain.Severity) int {
	switch s {
	case domain.SeverityCritical:
		return a.userBase
	case domain.SeverityHigh:
		return a.userBase / 2
	case domain.SeverityMedium:
		return a.userBase / 10
	default:
		return a.userBase / 100
	}
}

func businessImpactFor(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical:
		return "platform-wide outage risk; all tenants affected during rollback"
	case domain.SeverityHigh:
		return "multi-service disruption; degraded experience for most users"
	case domain.SeverityMedium:
		return "single-service disruption; limited user-visible errors"
	default:
		return "negligible; rollback window fits inside normal error budget"
	}
}

func absInt64(v int64) int {
	if v < 0 {
		v = -v
	}
	return int(v)
}
