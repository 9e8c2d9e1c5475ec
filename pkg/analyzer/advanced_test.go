package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

func TestQuadraticFitParabola(t *testing.T) {
	a := New(nil, nil)

	values := make([]float64, 48)
	for i := range values {
		values[i] = 0.05 * float64(i) * float64(i)
	}

	fit := a.quadraticFit(hourlySeries(values))

	if math.Abs(fit.A-0.05) > 1e-3 {
		t.Errorf("Expected leading coefficient 0.05, got %f", fit.A)
	}
	if fit.Curvature != "accelerating" {
		t.Errorf("Expected accelerating curvature, got %s", fit.Curvature)
	}
	if fit.Confidence < 99 {
		t.Errorf("Expected near-perfect fit confidence, got %f", fit.Confidence)
	}
}

func TestQuadraticFitDecelerating(t *testing.T) {
	a := New(nil, nil)

	values := make([]float64, 48)
	for i := range values {
		values[i] = 200 - 0.05*float64(i)*float64(i)
	}

	fit := a.quadraticFit(hourlySeries(values))
	if fit.Curvature != "decelerating" {
		t.Errorf("Expected decelerating curvature, got %s", fit.Curvature)
	}
}

func TestQuadraticFitLinearSeries(t *testing.T) {
	a := New(nil, nil)

	// A straight line must not be mistaken for curvature.
	values := make([]float64, 48)
	for i := range values {
		values[i] = 10 + 2*float64(i)
	}

	fit := a.quadraticFit(hourlySeries(values))

	if fit.Curvature != "flat" {
		t.Errorf("Expected flat curvature on linear data, got %s (a=%f)", fit.Curvature, fit.A)
	}
	if fit.Confidence < 99 {
		t.Errorf("Expected near-perfect fit confidence, got %f", fit.Confidence)
	}
}

func TestQuadraticFitShortSeries(t *testing.T) {
	a := New(nil, nil)

	fit := a.quadraticFit(hourlySeries([]float64{1, 2, 3, 4, 5}))
	if fit.Confidence != 0 {
		t.Errorf("Expected no fit on short series, got confidence %f", fit.Confidence)
	}
}

func TestMovingAverages(t *testing.T) {
	a := New(nil, nil)

	values := make([]float64, 72)
	for i := range values {
		values[i] = float64(i)
	}

	results := a.movingAverages(hourlySeries(values))

	if len(results) != 3 {
		t.Fatalf("Expected 3 window sizes, got %d", len(results))
	}
	if results[0].WindowPoints != 6 || results[1].WindowPoints != 24 || results[2].WindowPoints != 72 {
		t.Errorf("Expected windows 6/24/72, got %+v", results)
	}
	// Window 6 ends on the mean of 66..71.
	if !almostEqual(results[0].Latest, 68.5) {
		t.Errorf("Expected latest 6-point average 68.5, got %f", results[0].Latest)
	}
	// The full-length window has exactly one position.
	if !almostEqual(results[2].Latest, 35.5) || !almostEqual(results[2].Mean, 35.5) {
		t.Errorf("Expected 72-point average 35.5, got %+v", results[2])
	}
}

func TestMovingAveragesSkipsOversizedWindows(t *testing.T) {
	a := New(nil, nil)

	values := make([]float64, 30)
	for i := range values {
		values[i] = 10
	}

	results := a.movingAverages(hourlySeries(values))
	if len(results) != 2 {
		t.Fatalf("Expected 2 window sizes for 30 points, got %d", len(results))
	}
	for _, r := range results {
		if r.Latest != 10 || r.Mean != 10 {
			t.Errorf("Expected flat averages of 10, got %+v", r)
		}
	}
}

func TestChangePointsStepSeries(t *testing.T) {
	a := New(nil, nil)

	// One clean level shift exactly between the two segments.
	values := make([]float64, 24)
	for i := range values {
		values[i] = 10
		if i >= 12 {
			values[i] = 30
		}
	}
	series := hourlySeries(values)

	points := a.changePoints(series)

	if len(points) != 1 {
		t.Fatalf("Expected exactly one change point, got %d", len(points))
	}
	cp := points[0]
	if !cp.Timestamp.Equal(series[12].Timestamp) {
		t.Errorf("Expected change point at the step, got %s", cp.Timestamp)
	}
	if cp.BeforeMean != 10 || cp.AfterMean != 30 {
		t.Errorf("Expected means 10 and 30, got %f and %f", cp.BeforeMean, cp.AfterMean)
	}
	if cp.RelativeChange != 2.0 {
		t.Errorf("Expected relative change 2.0, got %f", cp.RelativeChange)
	}
	if cp.Confidence != 100 {
		t.Errorf("Expected confidence 100, got %f", cp.Confidence)
	}
}

func TestChangePointsFlatSeries(t *testing.T) {
	a := New(nil, nil)

	values := make([]float64, 48)
	for i := range values {
		values[i] = 25
	}

	if points := a.changePoints(hourlySeries(values)); len(points) != 0 {
		t.Errorf("Expected no change points on flat series, got %d", len(points))
	}
}

func TestChangePointsFromZeroBaseline(t *testing.T) {
	a := New(nil, nil)

	// A workload coming online: zero before, load after.
	values := make([]float64, 24)
	for i := 12; i < 24; i++ {
		values[i] = 50
	}

	points := a.changePoints(hourlySeries(values))
	if len(points) != 1 {
		t.Fatalf("Expected one change point, got %d", len(points))
	}
	if points[0].RelativeChange != 1 {
		t.Errorf("Expected relative change pinned to 1 for zero baseline, got %f", points[0].RelativeChange)
	}
}

func TestChangePointsShortSeries(t *testing.T) {
	a := New(nil, nil)

	values := make([]float64, 20)
	if points := a.changePoints(hourlySeries(values)); points != nil {
		t.Errorf("Expected nil for series shorter than two segments, got %+v", points)
	}
}

func TestForecastLinearGrowth(t *testing.T) {
	a := New(nil, nil)

	// One sample per day, growing by one per day.
	values := make([]float64, 30)
	for i := range values {
		values[i] = 100 + float64(i)
	}

	fc := a.forecast("cpu_usage", 30, hourlySeries(values))

	if fc.HorizonDays != 30 {
		t.Fatalf("Expected 30-day horizon, got %d", fc.HorizonDays)
	}
	if !almostEqual(fc.CurrentValue, 114.5) {
		t.Errorf("Expected current value 114.5, got %f", fc.CurrentValue)
	}
	if !almostEqual(fc.ProjectedValue, 144.5) {
		t.Errorf("Expected projected value 144.5, got %f", fc.ProjectedValue)
	}
	if fc.Confidence < 99 {
		t.Errorf("Expected near-perfect confidence on exact line, got %f", fc.Confidence)
	}
}

func TestForecastFloorsAtZero(t *testing.T) {
	a := New(nil, nil)

	values := make([]float64, 30)
	for i := range values {
		values[i] = 100 - 5*float64(i)
	}

	fc := a.forecast("memory_usage", 30, hourlySeries(values))
	if fc.ProjectedValue != 0 {
		t.Errorf("Expected shrinking projection floored at zero, got %f", fc.ProjectedValue)
	}
}

func TestForecastShortSeries(t *testing.T) {
	a := New(nil, nil)

	fc := a.forecast("cpu_usage", 7, hourlySeries([]float64{1, 2}))
	if fc.HorizonDays != 0 {
		t.Errorf("Expected no forecast on short series, got %+v", fc)
	}
}

func TestAnalyzeAdvanced(t *testing.T) {
	a := New(nil, nil)

	series := businessHoursSeries(30, 70, 20)
	start := series[0].Timestamp
	short := &models.HistoricalWindow{
		ClusterID:  "prod-east",
		PeriodDays: 7,
		Start:      start,
		End:        start.Add(7 * 24 * time.Hour),
		Metrics: map[string][]models.MetricPoint{
			models.MetricCPUUtilization: series[:7*24],
		},
	}
	long := &models.HistoricalWindow{
		ClusterID:  "prod-east",
		PeriodDays: 30,
		Start:      start,
		End:        start.Add(30 * 24 * time.Hour),
		Metrics: map[string][]models.MetricPoint{
			models.MetricCPUUtilization: series,
		},
	}

	adv := a.AnalyzeAdvanced([]*models.HistoricalWindow{short, long, nil})

	if adv.ClusterID != "prod-east" {
		t.Errorf("Expected cluster id carried over, got %q", adv.ClusterID)
	}
	if len(adv.Windows) != 2 {
		t.Fatalf("Expected analyses for 2 windows, got %d", len(adv.Windows))
	}
	if adv.Windows[7] == nil || adv.Windows[30] == nil {
		t.Fatal("Expected both 7 and 30 day analyses present")
	}
	// The deeper passes run against the 30-day window.
	if _, ok := adv.Quadratic[models.MetricCPUUtilization]; !ok {
		t.Error("Expected a quadratic fit for the cpu series")
	}
	if _, ok := adv.Forecasts[models.MetricCPUUtilization]; !ok {
		t.Error("Expected a capacity forecast for the cpu series")
	}
	if len(adv.MovingAverages[models.MetricCPUUtilization]) == 0 {
		t.Error("Expected moving averages for the cpu series")
	}
	if adv.OverallConfidence <= 0 || adv.OverallConfidence > 100 {
		t.Errorf("Expected overall confidence in (0,100], got %f", adv.OverallConfidence)
	}
}

func TestAnalyzeAdvancedAllEmpty(t *testing.T) {
	a := New(nil, nil)

	adv := a.AnalyzeAdvanced([]*models.HistoricalWindow{
		{ClusterID: "c1", PeriodDays: 7, Metrics: map[string][]models.MetricPoint{}},
	})

	if len(adv.Quadratic) != 0 || len(adv.Forecasts) != 0 {
		t.Errorf("Expected no deep passes without data, got %+v", adv)
	}
	if adv.OverallConfidence != 0 {
		t.Errorf("Expected zero overall confidence, got %f", adv.OverallConfidence)
	}
}
