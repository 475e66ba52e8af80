package dashboard

// Percentage returns performed as a percentage of projected. A zero
// projection yields 0 rather than an error or an infinity.
func Percentage(projected, performed float64) float64 {
	if projected == 0 {
		return 0
	}
	return performed / projected * 100
}

// Difference returns how far performed is above (positive) or below
// (negative) projected.
func Difference(projected, performed float64) float64 {
	return performed - projected
}
