package analyzer

import (
	"testing"
	"time"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// businessHoursSeries builds `days` of hourly data where weekday business
// hours run hot and everything else idles. Jitter is deterministic.
func businessHoursSeries(days int, busy, quiet float64) []models.MetricPoint {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday
	var series []models.MetricPoint
	for i := 0; i < days*24; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		value := quiet
		weekday := ts.Weekday() != time.Saturday && ts.Weekday() != time.Sunday
		if weekday && ts.Hour() >= 9 && ts.Hour() < 18 {
			value = busy
		}
		value += float64((i%5)-2) // ±2 jitter
		series = append(series, models.MetricPoint{Timestamp: ts, Value: value})
	}
	return series
}

func TestDetectSeasonalPatternBusinessHours(t *testing.T) {
	a := New(nil, nil)

	result := a.DetectSeasonalPattern(businessHoursSeries(30, 70, 20))

	if !result.HourlyPattern {
		t.Fatal("Expected business-hours pattern to be detected")
	}
	if result.BusinessHoursMean <= result.OffHoursMean {
		t.Errorf("Expected business mean above off mean, got %.1f vs %.1f",
			result.BusinessHoursMean, result.OffHoursMean)
	}
	if result.HourlyRatio <= 1.5 {
		t.Errorf("Expected ratio above the margin, got %.2f", result.HourlyRatio)
	}
	if result.Confidence <= 60 {
		t.Errorf("Expected confidence above 60 for a strong pattern, got %.1f", result.Confidence)
	}
	// Weekdays are also hotter than weekends in this shape.
	if !result.WeeklyPattern {
		t.Error("Expected weekday/weekend pattern to be detected")
	}
	if !result.Detected() {
		t.Error("Expected Detected() to report true")
	}
}

func TestDetectSeasonalPatternFlat(t *testing.T) {
	a := New(nil, nil)

	series := businessHoursSeries(14, 50, 50) // busy == quiet: no structure

	result := a.DetectSeasonalPattern(series)
	if result.HourlyPattern || result.WeeklyPattern {
		t.Errorf("Expected no pattern on flat series, got %+v", result)
	}
	if result.Confidence != 0 {
		t.Errorf("Expected zero confidence, got %.1f", result.Confidence)
	}
}

func TestDetectSeasonalPatternBelowMargin(t *testing.T) {
	a := New(nil, nil)

	// Business hours only 1.2x hotter: under the 1.5x margin.
	result := a.DetectSeasonalPattern(businessHoursSeries(14, 60, 50))
	if result.HourlyPattern {
		t.Errorf("Expected ratio %.2f to stay under the margin", result.HourlyRatio)
	}
}

func TestDetectSeasonalPatternShortSeries(t *testing.T) {
	a := New(nil, nil)

	series := businessHoursSeries(30, 70, 20)[:12] // under the minimum
	result := a.DetectSeasonalPattern(series)
	if result.Detected() {
		t.Error("Expected no detection on a half-day of data")
	}
}

func TestDetectSeasonalPatternConfidenceScalesWithGap(t *testing.T) {
	a := New(nil, nil)

	weak := a.DetectSeasonalPattern(businessHoursSeries(30, 45, 25))
	strong := a.DetectSeasonalPattern(businessHoursSeries(30, 90, 15))

	if !weak.HourlyPattern || !strong.HourlyPattern {
		t.Fatalf("Expected both patterns detected, got weak=%v strong=%v",
			weak.HourlyPattern, strong.HourlyPattern)
	}
	if weak.Confidence >= strong.Confidence {
		t.Errorf("Expected confidence to scale with the gap: weak %.1f, strong %.1f",
			weak.Confidence, strong.Confidence)
	}
}
