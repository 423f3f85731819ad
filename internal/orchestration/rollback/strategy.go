package rollback

import (
	"time"

	"github.com/deploykit/rollbackd/internal/core/domain"
)

// StrategyRegistry resolves strategy names to their definitions.
type StrategyRegistry struct {
	strategies map[domain.StrategyName]domain.Strategy
}

// NewStrategyRegistry returns a registry preloaded with the built-in
// strategies. Register overrides or extends the set.
func NewStrategyRegistry() *StrategyRegistry {
	r := &StrategyRegistry{strategies: make(map[domain.StrategyName]domain.Strategy)}
	for _, s := range builtinStrategies() {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a strategy definition.
func (r *StrategyRegistry) Register(s domain.Strategy) {
	r.strategies[s.Name] = s
}

// Get resolves a strategy by name.
func (r *StrategyRegistry) Get(name domain.StrategyName) (domain.Strategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return domain.Strategy{}, ErrStrategyNotFound
	}
	return s, nil
}

// Names returns the registered strategy names.
func (r *StrategyRegistry) Names() []domain.StrategyName {
	out := make([]domain.StrategyName, 0, len(r.strategies))
	for name := range r.strategies {
		out = append(out, name)
	}
	return out
}

func verificationStep(name, command string) domain.StepSpec {
	return domain.StepSpec{
		Name:           name,
		Type:           domain.StepVerification,
		Command:        command,
		TimeoutSeconds: 120,
	}
}

func builtinStrategies() []domain.Strategy {
	return []domain.Strategy{
		{
			Name:        domain.StrategyBlueGreen,
			Description: "restore into the idle color and cut traffic over once validated",
			Validation: domain.ValidationPlan{
				PreRollback: []domain.StepSpec{
					verificationStep("health-check", "healthcheck --all"),
					verificationStep("capacity-check", "capacity verify --idle-pool"),
				},
				PostRollback: []domain.StepSpec{
					verificationStep("health-check", "healthcheck --all"),
					verificationStep("smoke-test", "smoketest run --suite core"),
					verificationStep("traffic-verify", "traffic verify --cutover"),
				},
			},
			Timeout:           30 * time.Minute,
			Parallelize:       true,
			RollbackOnFailure: true,
		},
		{
			Name:        domain.StrategyRolling,
			Description: "restore instances in batches, keeping capacity online",
			Validation: domain.ValidationPlan{
				PreRollback: []domain.StepSpec{
					verificationStep("health-check", "healthcheck --all"),
				},
				PostRollback: []domain.StepSpec{
					verificationStep("health-check", "healthcheck --all"),
					verificationStep("smoke-test", "smoketest run --suite core"),
				},
			},
			Timeout:           45 * time.Minute,
			Parallelize:       false,
			RollbackOnFailure: true,
		},
		{
			// The auto-recovery path: no pre-validation, a single post
			// health check, and no rollback-of-rollback.
			Name:        domain.StrategyImmediate,
			Description: "fastest path to the target state, used by auto-recovery",
			Validation: domain.ValidationPlan{
				PostRollback: []domain.StepSpec{
					verificationStep("health-check", "healthcheck --all"),
				},
			},
			Timeout:           5 * time.Minute,
			Parallelize:       false,
			RollbackOnFailure: false,
		},
		{
			Name:        domain.StrategyCanary,
			Description: "restore a canary slice and compare against baseline before widening",
			Validation: domain.ValidationPlan{
				PreRollback: []domain.StepSpec{
					verificationStep("health-check", "healthcheck --all"),
					verificationStep("baseline-capture", "metrics baseline --capture"),
				},
				PostRollback: []domain.StepSpec{
					verificationStep("canary-analysis", "metrics canary --compare-baseline"),
					verificationStep("health-check", "healthcheck --all"),
				},
			},
			Timeout:           60 * time.Minute,
			Parallelize:       false,
			RollbackOnFailure: true,
		},
		{
			Name:        domain.StrategyDatabaseFirst,
			Description: "prioritize data restoration; application follows the schema",
			Validation: domain.ValidationPlan{
				PreRollback: []domain.StepSpec{
					verificationStep("backup-verify", "dbadmin backup verify --latest"),
					verificationStep("health-check", "healthcheck --all"),
				},
				PostRollback: []domain.StepSpec{
					verificationStep("data-integrity", "dbadmin integrity check"),
					verificationStep("health-check", "healthcheck --all"),
				},
			},
			Timeout:           40 * time.Minute,
			Parallelize:       false,
			RollbackOnFailure: false,
		},
		{
			Name:        domain.StrategyApplicationFirst,
			Description: "restore application binaries first, data migrations after",
			Validation: domain.ValidationPlan{
				PreRollback: []domain.StepSpec{
					verificationStep("health-check", "healthcheck --all"),
				},
				PostRollback: []domain.StepSpec{
					verificationStep("health-check", "healthcheck --all"),
					verificationStep("data-integrity", "dbadmin integrity check"),
				},
			},
			Timeout:           30 * time.Minute,
			Parallelize:       true,
			RollbackOnFailure: true,
		},
	}
}
