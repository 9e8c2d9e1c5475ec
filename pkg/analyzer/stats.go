package analyzer

import (
	"math"
	"sort"

	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// WindowStats computes the percentile summary for a series. An empty series
// yields zeroes.
func WindowStats(series []models.MetricPoint) models.WindowStats {
	if len(series) == 0 {
		return models.WindowStats{}
	}

	values := seriesValues(series)
	sort.Float64s(values)

	return models.WindowStats{
		Average: calculateAverage(values),
		P50:     calculatePercentile(values, 50),
		P90:     calculatePercentile(values, 90),
		P95:     calculatePercentile(values, 95),
		P99:     calculatePercentile(values, 99),
		Peak:    values[len(values)-1],
		Min:     values[0],
	}
}

// calculatePercentile computes the Nth percentile using linear interpolation
func calculatePercentile(sortedValues []float64, percentile float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}

	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	// Calculate the index for the percentile
	// Using the "nearest rank" method with linear interpolation
	n := float64(len(sortedValues))
	rank := (percentile / 100.0) * (n - 1)

	// Get lower and upper indices
	lowerIndex := int(math.Floor(rank))
	upperIndex := int(math.Ceil(rank))

	// If indices are the same, return that value
	if lowerIndex == upperIndex {
		return sortedValues[lowerIndex]
	}

	// Linear interpolation between the two values
	lowerValue := sortedValues[lowerIndex]
	upperValue := sortedValues[upperIndex]
	fraction := rank - float64(lowerIndex)

	return lowerValue + (upperValue-lowerValue)*fraction
}

// calculateAverage computes the mean of values
func calculateAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
