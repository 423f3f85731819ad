package domain

import "time"

// RecoveryPointKind describes how a recovery point came to exist.
type RecoveryPointKind string

const (
	KindAutomatic RecoveryPointKind = "automatic"
	KindManual    RecoveryPointKind = "manual"
	KindScheduled RecoveryPointKind = "scheduled"
)

// RecoveryTrigger describes what prompted the creation of a recovery point.
type RecoveryTrigger string

const (
	TriggerDeployment      RecoveryTrigger = "deployment"
	TriggerTestFailure     RecoveryTrigger = "test-failure"
	TriggerPerformanceDrop RecoveryTrigger = "performance-drop"
	TriggerErrorSpike      RecoveryTrigger = "error-spike"
	TriggerUserRequest     RecoveryTrigger = "user-request"
)

// PointMetadata identifies the system state a recovery point was taken from.
type PointMetadata struct {
	Version        string            `json:"version"         yaml:"version"`
	CommitRef      string            `json:"commit_ref"      yaml:"commit_ref"`
	FeatureFlags   map[string]bool   `json:"feature_flags"   yaml:"feature_flags"`
	ConfigVersions map[string]string `json:"config_versions" yaml:"config_versions"`
	Tags           []string          `json:"tags"            yaml:"tags"`
}

// StateSnapshot is the handle returned by the state provider, plus the
// checksum recorded at capture time for later integrity comparison.
type StateSnapshot struct {
	Handle     string             `json:"handle"`
	Checksum   string             `json:"checksum"`
	Components SnapshotComponents `json:"components"`
	CapturedAt time.Time          `json:"captured_at"`
}

// SnapshotComponents records which sub-states the snapshot captured.
type SnapshotComponents struct {
	Application    bool `json:"application"`
	Database       bool `json:"database"`
	Infrastructure bool `json:"infrastructure"`
	Dependencies   bool `json:"dependencies"`
	Configuration  bool `json:"configuration"`
}

// RecoveryPoint is an immutable, verified snapshot reference usable as a
// rollback target. A changed state requires a new point.
type RecoveryPoint struct {
	ID           string             `json:"id"`
	CreatedAt    time.Time          `json:"created_at"`
	Kind         RecoveryPointKind  `json:"kind"`
	Trigger      RecoveryTrigger    `json:"trigger"`
	Metadata     PointMetadata      `json:"metadata"`
	Snapshot     StateSnapshot      `json:"snapshot"`
	Verification VerificationResult `json:"verification"`
	TTL          time.Duration      `json:"ttl"`
}

// ExpiresAt returns the instant the point becomes eligible for deletion.
func (p *RecoveryPoint) ExpiresAt() time.Time {
	return p.CreatedAt.Add(p.TTL)
}

// Expired reports whether the point's TTL has elapsed at the given instant.
func (p *RecoveryPoint) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt())
}
