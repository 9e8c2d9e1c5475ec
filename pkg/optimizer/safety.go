package optimizer

// withinRiskCeiling is the safety gate. Candidates above the ceiling are
// dropped silently; their absence from the plan list is the outcome, not an
// error.
func (e *Engine) withinRiskCeiling(risk float64, businessHours bool) bool {
	return risk <= e.effectiveCeiling(businessHours)
}

// effectiveCeiling returns the risk ceiling in force right now: the
// configured maximum, shaved by the buffer fraction while business hours are
// in progress.
func (e *Engine) effectiveCeiling(businessHours bool) float64 {
	ceiling := e.safety.MaxRiskScore
	if businessHours {
		ceiling *= 1 - e.safety.BusinessHoursBuffer
	}
	return ceiling
}
