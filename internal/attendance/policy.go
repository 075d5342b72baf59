package attendance

// Policy holds the daily and rolling targets, all in minutes unless the
// field name says hours.
type Policy struct {
	FullDayMinutes      int
	HalfDayMinutes      int
	EarlyFullDayMinutes int
	EarlyHalfDayMinutes int
	FullDayCeiling      int
	HalfDayCeiling      int
	CloseToCompletion   int
	AverageTargetHours  float64
	HalfDayCapHours     float64
}

// DefaultPolicy is 8h15m full day, 4h30m half day.
func DefaultPolicy() Policy {
	return Policy{
		FullDayMinutes:      495,
		HalfDayMinutes:      270,
		EarlyFullDayMinutes: 420,
		EarlyHalfDayMinutes: 210,
		FullDayCeiling:      510,
		HalfDayCeiling:      285,
		CloseToCompletion:   30,
		AverageTargetHours:  8.25,
		HalfDayCapHours:     4.5,
	}
}

// Target returns the day target in minutes.
func (p Policy) Target(halfDay bool) int {
	if halfDay {
		return p.HalfDayMinutes
	}
	return p.FullDayMinutes
}

// EarlyTarget returns the reduced "early leave" target in minutes.
func (p Policy) EarlyTarget(halfDay bool) int {
	if halfDay {
		return p.EarlyHalfDayMinutes
	}
	return p.EarlyFullDayMinutes
}

// Ceiling is the most a day may run before it is classified as over.
func (p Policy) Ceiling(halfDay bool) int {
	if halfDay {
		return p.HalfDayCeiling
	}
	return p.FullDayCeiling
}
