// Package optimizer turns a cluster snapshot plus analysis findings into
// scored, safety-gated optimization plans with pre-computed rollbacks. The
// pipeline is pure computation: generators propose, scorers attach confidence
// and risk, the gate drops what policy forbids, enrichment wraps survivors
// into executable plans. Applying a plan goes through the CommandRunner seam.
package optimizer

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/clustermind/k8s-resource-advisor/pkg/config"
	"github.com/clustermind/k8s-resource-advisor/pkg/models"
	"github.com/clustermind/k8s-resource-advisor/pkg/pricing"
)

// CommandRunner applies one opaque command against the target cluster.
type CommandRunner interface {
	Run(ctx context.Context, command string) error
}

// Engine generates, scores and gates optimization plans for one policy.
type Engine struct {
	safety   config.SafetyConfig
	scoring  config.ScoringConfig
	analysis config.AnalysisConfig
	boundary models.SafetyBoundary
	rates    *pricing.CostInfo
	runner   CommandRunner
	log      *zap.Logger

	now func() time.Time // clock seam for business-hours checks
}

// New creates an engine. A nil config uses the default policy, a nil rate
// card prices every plan at zero savings, a nil runner restricts Execute to
// dry runs.
func New(cfg *config.Config, rates *pricing.CostInfo, runner CommandRunner, logger *zap.Logger) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		safety:   cfg.Safety,
		scoring:  cfg.Scoring,
		analysis: cfg.Analysis,
		boundary: cfg.Safety.ToBoundary(),
		rates:    rates,
		runner:   runner,
		log:      logger,
		now:      time.Now,
	}
}

// Optimize runs the full pipeline over one snapshot: flatten, generate,
// score, gate, enrich, rank. An empty plan list is the normal outcome for a
// well-sized cluster, not an error.
func (e *Engine) Optimize(snapshot *models.ClusterSnapshot, analysis *models.Analysis) []*models.OptimizationPlan {
	state := e.flattenState(snapshot, analysis)
	candidates := e.generateCandidates(state)

	plans := make([]*models.OptimizationPlan, 0, len(candidates))
	for _, c := range candidates {
		confidence := e.confidenceScore(state)
		risk, factors := e.riskScore(state, c)
		if !e.withinRiskCeiling(risk, state.businessHours) {
			e.log.Debug("candidate dropped by safety gate",
				zap.String("operation", string(c.Operation)),
				zap.String("target", c.Target),
				zap.Float64("risk", risk))
			continue
		}
		plans = append(plans, e.buildPlan(c, state, confidence, risk, factors))
	}

	// Ties keep generation order.
	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].Score() > plans[j].Score()
	})

	e.log.Info("optimization pass complete",
		zap.String("cluster_id", state.clusterID),
		zap.Int("units", len(state.units)),
		zap.Int("candidates", len(candidates)),
		zap.Int("plans", len(plans)),
		zap.Bool("business_hours", state.businessHours))

	return plans
}
