package matrix

// Quadrant identifies one of the four regions of the priority matrix.
// The x axis is feasibility, the y axis is value; both grow toward "high".
type Quadrant string

const (
	// QuadrantQuickWins is high value, high feasibility
	QuadrantQuickWins Quadrant = "quick_wins"
	// QuadrantBigBets is high value, low feasibility
	QuadrantBigBets Quadrant = "big_bets"
	// QuadrantIncremental is low value, high feasibility
	QuadrantIncremental Quadrant = "incremental"
	// QuadrantThankless is low value, low feasibility
	QuadrantThankless Quadrant = "thankless"
)

// String returns the quadrant name
func (q Quadrant) String() string {
	return string(q)
}

// Classify derives the quadrant for a position on a [0, max] canvas.
// A coordinate exactly on the midpoint belongs to the high side of its axis,
// so Classify(Midpoint(max), max) is QuadrantQuickWins. Callers must pass
// clamped positions; classification never mutates anything.
func Classify(p Position, max float64) Quadrant {
	mid := max / 2
	highFeasibility := p.x >= mid
	highValue := p.y >= mid

	switch {
	case highValue && highFeasibility:
		return QuadrantQuickWins
	case highValue && !highFeasibility:
		return QuadrantBigBets
	case !highValue && highFeasibility:
		return QuadrantIncremental
	default:
		return QuadrantThankless
	}
}
