package analyzer

import (
	"testing"
)

func TestDetectIdlePeriodsHalfIdle(t *testing.T) {
	a := New(nil, nil)

	// Exactly half the points idle. The significance cut is strict, so a
	// 50% idle fraction is not enough to call the workload idle.
	values := make([]float64, 48)
	for i := range values {
		if i%2 == 0 {
			values[i] = 100
		}
	}

	result := a.DetectIdlePeriods(hourlySeries(values))

	if result.IdleFraction != 0.5 {
		t.Errorf("Expected idle fraction 0.5, got %f", result.IdleFraction)
	}
	if result.Significant {
		t.Error("Expected half-idle series not significant")
	}
	if result.RunCount != 24 {
		t.Errorf("Expected 24 idle runs, got %d", result.RunCount)
	}
	if result.LongestRun != 1 {
		t.Errorf("Expected longest run 1, got %d", result.LongestRun)
	}
}

func TestDetectIdlePeriodsMostlyIdle(t *testing.T) {
	a := New(nil, nil)

	// Ten busy hours in the middle of a hundred quiet ones.
	values := make([]float64, 100)
	for i := range values {
		values[i] = 2.0
		if i >= 10 && i < 20 {
			values[i] = 80
		}
	}

	result := a.DetectIdlePeriods(hourlySeries(values))

	if !result.Significant {
		t.Error("Expected 90% idle series flagged significant")
	}
	if result.IdleFraction != 0.9 {
		t.Errorf("Expected idle fraction 0.9, got %f", result.IdleFraction)
	}
	if result.RunCount != 2 {
		t.Errorf("Expected 2 idle runs, got %d", result.RunCount)
	}
	if result.LongestRun != 80 {
		t.Errorf("Expected longest run 80, got %d", result.LongestRun)
	}
	if result.MeanRunLength != 45.0 {
		t.Errorf("Expected mean run length 45, got %f", result.MeanRunLength)
	}
	if result.Confidence != 90 {
		t.Errorf("Expected confidence 90, got %f", result.Confidence)
	}
}

func TestDetectIdlePeriodsNeverIdle(t *testing.T) {
	a := New(nil, nil)

	values := make([]float64, 24)
	for i := range values {
		values[i] = 50
	}

	result := a.DetectIdlePeriods(hourlySeries(values))

	if result.IdleFraction != 0 || result.RunCount != 0 || result.Significant {
		t.Errorf("Expected no idle activity, got %+v", result)
	}
}

func TestDetectIdlePeriodsThresholdInclusive(t *testing.T) {
	a := New(nil, nil)

	// A value sitting exactly on the threshold counts as idle.
	values := []float64{5.0, 5.0, 6.0, 5.0}
	result := a.DetectIdlePeriods(hourlySeries(values))

	if result.IdleFraction != 0.75 {
		t.Errorf("Expected idle fraction 0.75, got %f", result.IdleFraction)
	}
	if !result.Significant {
		t.Error("Expected 75% idle series flagged significant")
	}
	if result.LongestRun != 2 {
		t.Errorf("Expected longest run 2, got %d", result.LongestRun)
	}
}

func TestDetectIdlePeriodsEmpty(t *testing.T) {
	a := New(nil, nil)

	result := a.DetectIdlePeriods(nil)
	if result.IdleFraction != 0 || result.Significant || result.RunCount != 0 {
		t.Errorf("Expected zero result for empty series, got %+v", result)
	}
}
