package analyzer

import (
	"time"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// DetectSeasonalPattern checks for time-based structure: business hours vs
// off hours, and weekdays vs weekends. A pattern is reported only when the
// group ratio clears the configured margin; confidence scales with how far
// past the margin the ratio lands.
func (a *Analyzer) DetectSeasonalPattern(series []models.MetricPoint) models.SeasonalResult {
	var result models.SeasonalResult
	if len(series) < a.cfg.SeasonalMinPoints {
		return result
	}

	var businessValues, offValues []float64
	var weekdayValues, weekendValues []float64

	for _, p := range series {
		if a.cfg.BusinessHour(p.Timestamp.Hour()) {
			businessValues = append(businessValues, p.Value)
		} else {
			offValues = append(offValues, p.Value)
		}
		switch p.Timestamp.Weekday() {
		case time.Saturday, time.Sunday:
			weekendValues = append(weekendValues, p.Value)
		default:
			weekdayValues = append(weekdayValues, p.Value)
		}
	}

	var hourlyConfidence, weeklyConfidence float64

	if len(businessValues) > 0 && len(offValues) > 0 {
		result.BusinessHoursMean = calculateAverage(businessValues)
		result.OffHoursMean = calculateAverage(offValues)
		if result.OffHoursMean > 0 {
			result.HourlyRatio = result.BusinessHoursMean / result.OffHoursMean
			if result.HourlyRatio > a.cfg.HourlyPatternRatio {
				result.HourlyPattern = true
				hourlyConfidence = clamp((result.HourlyRatio/a.cfg.HourlyPatternRatio-1)*100, 0, 100)
			}
		} else if result.BusinessHoursMean > 0 {
			// Completely quiet off-hours is as clear as the signal gets.
			result.HourlyPattern = true
			hourlyConfidence = 100
		}
	}

	if len(weekdayValues) > 0 && len(weekendValues) > 0 {
		result.WeekdayMean = calculateAverage(weekdayValues)
		result.WeekendMean = calculateAverage(weekendValues)
		if result.WeekendMean > 0 {
			result.WeeklyRatio = result.WeekdayMean / result.WeekendMean
			if result.WeeklyRatio > a.cfg.WeeklyPatternRatio {
				result.WeeklyPattern = true
				weeklyConfidence = clamp((result.WeeklyRatio/a.cfg.WeeklyPatternRatio-1)*100, 0, 100)
			}
		} else if result.WeekdayMean > 0 {
			result.WeeklyPattern = true
			weeklyConfidence = 100
		}
	}

	if hourlyConfidence > weeklyConfidence {
		result.Confidence = hourlyConfidence
	} else {
		result.Confidence = weeklyConfidence
	}

	return result
}
