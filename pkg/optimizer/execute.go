package optimizer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// businessHoursExecutionCap is the risk score above which execution is
// refused during business hours regardless of the configured ceiling.
const businessHoursExecutionCap = 0.5

// ExecutionError reports the first command that failed during a real run.
type ExecutionError struct {
	Command string
	Index   int
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("command %d (%s): %v", e.Index, e.Command, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Execute applies a plan. Safety rejections come back as a structured result
// with a nil error; only infrastructure failures are errors. After a failed
// run the caller is expected to apply the plan's pre-computed rollback
// commands, which the result carries.
func (e *Engine) Execute(ctx context.Context, plan *models.OptimizationPlan, dryRun bool) (*models.ExecutionResult, error) {
	if plan == nil {
		return nil, fmt.Errorf("no plan to execute")
	}

	result := &models.ExecutionResult{
		PlanID:           plan.ID,
		RollbackCommands: plan.Rollback.Commands,
	}

	businessHours := e.analysis.BusinessHour(e.now().Hour())
	if reason, rejected := e.rejectionReason(plan, businessHours); rejected {
		result.Status = models.ExecutionRejected
		result.Reason = reason
		result.FinishedAt = e.now()
		e.log.Warn("plan rejected",
			zap.String("plan_id", plan.ID),
			zap.String("target", plan.Target),
			zap.String("reason", reason))
		return result, nil
	}

	if dryRun {
		result.Status = models.ExecutionDryRun
		result.ExecutedCommands = plan.Commands
		result.FinishedAt = e.now()
		return result, nil
	}

	if e.runner == nil {
		return nil, fmt.Errorf("no command runner configured")
	}

	for i, command := range plan.Commands {
		if err := e.runner.Run(ctx, command); err != nil {
			execErr := &ExecutionError{Command: command, Index: i, Err: err}
			result.Status = models.ExecutionFailed
			result.Reason = "command failed, apply rollback"
			result.ExecutedCommands = plan.Commands[:i]
			result.Error = execErr.Error()
			result.FinishedAt = e.now()
			e.log.Error("execution aborted",
				zap.String("plan_id", plan.ID),
				zap.Int("command_index", i),
				zap.Error(err))
			return result, execErr
		}
	}

	result.Status = models.ExecutionCompleted
	result.ExecutedCommands = plan.Commands
	result.FinishedAt = e.now()
	e.log.Info("plan executed",
		zap.String("plan_id", plan.ID),
		zap.String("target", plan.Target),
		zap.Int("commands", len(plan.Commands)))
	return result, nil
}

// rejectionReason applies the pre-execution safety check.
func (e *Engine) rejectionReason(plan *models.OptimizationPlan, businessHours bool) (string, bool) {
	switch {
	case plan.RiskLevel == models.RiskHigh || plan.RiskLevel == models.RiskCritical:
		return fmt.Sprintf("risk level %s requires manual review", plan.RiskLevel), true
	case businessHours && plan.RiskScore > businessHoursExecutionCap:
		return "risk too high during business hours", true
	case plan.RiskScore > e.effectiveCeiling(businessHours):
		return fmt.Sprintf("risk score %.2f above ceiling %.2f",
			plan.RiskScore, e.effectiveCeiling(businessHours)), true
	}
	return "", false
}
