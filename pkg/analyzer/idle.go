package analyzer

import "github.com/clustermind/k8s-resource-advisor/pkg/models"

// DetectIdlePeriods finds contiguous runs of near-zero values. The idle
// fraction only becomes significant past the configured minimum, so a
// workload that naps overnight is not mistaken for a dead one.
func (a *Analyzer) DetectIdlePeriods(series []models.MetricPoint) models.IdleResult {
	if len(series) == 0 {
		return models.IdleResult{}
	}

	var (
		idleCount  int
		runCount   int
		longestRun int
		currentRun int
		runTotal   int
	)

	endRun := func() {
		if currentRun == 0 {
			return
		}
		runCount++
		runTotal += currentRun
		if currentRun > longestRun {
			longestRun = currentRun
		}
		currentRun = 0
	}

	for _, p := range series {
		if p.Value <= a.cfg.IdleThreshold {
			idleCount++
			currentRun++
		} else {
			endRun()
		}
	}
	endRun()

	result := models.IdleResult{
		IdleFraction: float64(idleCount) / float64(len(series)),
		LongestRun:   longestRun,
		RunCount:     runCount,
	}
	if runCount > 0 {
		result.MeanRunLength = float64(runTotal) / float64(runCount)
	}
	result.Significant = result.IdleFraction > a.cfg.IdleMinFraction
	result.Confidence = clamp(result.IdleFraction*100, 0, 100)

	return result
}
