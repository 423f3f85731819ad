package rollback

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/deploykit/rollbackd/internal/core/domain"
)

// Phase names are fixed; phases always execute in this declared order.
// Dependencies are recorded for observability, not dynamic scheduling.
const (
	PhasePreValidation  = "pre-validation"
	PhaseDatabase       = "database-rollback"
	PhaseApplication    = "application-rollback"
	PhaseConfiguration  = "configuration-rollback"
	PhasePostValidation = "post-validation"
)

// buildPhases constructs the ordered phase plan for an execution. The
// database phase is only included when the target point captured a
// database component.
func buildPhases(strategy domain.Strategy, point *domain.RecoveryPoint) []domain.RollbackPhase {
	handle := point.Snapshot.Handle
	var phases []domain.RollbackPhase

	add := func(name string, steps []domain.RollbackStep) {
		phase := domain.RollbackPhase{
			ID:     uuid.New().String(),
			Name:   name,
			Order:  len(phases),
			Status: domain.PhasePending,
			Steps:  steps,
		}
		if n := len(phases); n > 0 {
			phase.Dependencies = []string{phases[n-1].ID}
		}
		phases = append(phases, phase)
	}

	add(PhasePreValidation, specSteps(strategy.Validation.PreRollback))

	if point.Snapshot.Components.Database {
		add(PhaseDatabase, []domain.RollbackStep{
			restoreStep("restore-database", domain.StepDatabase, "database", handle),
		})
	}

	appSteps := []domain.RollbackStep{
		restoreStep("restore-application", domain.StepApplication, "application", handle),
	}
	if point.Snapshot.Components.Dependencies {
		appSteps = append(appSteps,
			restoreStep("restore-dependencies", domain.StepApplication, "dependencies", handle))
	}
	if point.Snapshot.Components.Infrastructure {
		appSteps = append(appSteps,
			restoreStep("restore-infrastructure", domain.StepInfrastructure, "infrastructure", handle))
	}
	add(PhaseApplication, appSteps)

	add(PhaseConfiguration, []domain.RollbackStep{
		restoreStep("restore-configuration", domain.StepConfiguration, "configuration", handle),
	})

	add(PhasePostValidation, specSteps(strategy.Validation.PostRollback))

	return phases
}

func restoreStep(name string, typ domain.StepType, component, handle string) domain.RollbackStep {
	return domain.RollbackStep{
		ID:      uuid.New().String(),
		Name:    name,
		Type:    typ,
		Command: fmt.Sprintf("restore --component %s --snapshot %s", component, handle),
		Status:  domain.PhasePending,
	}
}

func specSteps(specs []domain.StepSpec) []domain.RollbackStep {
	steps := make([]domain.RollbackStep, 0, len(specs))
	for _, spec := range specs {
		steps = append(steps, domain.RollbackStep{
			ID:             uuid.New().String(),
			Name:           spec.Name,
			Type:           spec.Type,
			Command:        spec.Command,
			TimeoutSeconds: spec.TimeoutSeconds,
			Status:         domain.PhasePending,
		})
	}
	return steps
}
