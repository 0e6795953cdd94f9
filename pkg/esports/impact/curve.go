package impact

import "github.com/phenomenon0/esports-edge/pkg/esports/game"

// Curve is a continuous, monotonically non-decreasing piecewise-linear time
// multiplier. Events later in a game carry more information than early ones;
// the curve encodes that without the jumps a bracket lookup would have.
type Curve struct {
	points []curvePoint
	cap    float64
}

type curvePoint struct {
	minute float64
	value  float64
}

// LoL ramps from 0.5 in the early laning phase to a 1.5 late-game cap, where
// a single fight can decide the game.
var lolCurve = Curve{
	points: []curvePoint{
		{0, 0.5},
		{10, 0.7},
		{25, 1.1},
		{40, 1.4},
		{60, 1.5},
	},
	cap: 1.5,
}

// Dota caps lower. Buybacks keep late games volatile, so a late lead is less
// decisive than in LoL.
var dotaCurve = Curve{
	points: []curvePoint{
		{0, 0.4},
		{12, 0.6},
		{30, 1.0},
		{50, 1.2},
	},
	cap: 1.2,
}

// CurveForTitle returns the time curve for a title.
func CurveForTitle(title game.Title) Curve {
	if title == game.TitleDota2 {
		return dotaCurve
	}
	return lolCurve
}

// Eval interpolates the multiplier at the given game minute. Times before
// zero clamp to the first point; times past the last point hold at the cap.
func (c Curve) Eval(minutes float64) float64 {
	if len(c.points) == 0 {
		return 1.0
	}
	if minutes <= c.points[0].minute {
		return c.points[0].value
	}
	for i := 1; i < len(c.points); i++ {
		p0, p1 := c.points[i-1], c.points[i]
		if minutes <= p1.minute {
			frac := (minutes - p0.minute) / (p1.minute - p0.minute)
			return p0.value + frac*(p1.value-p0.value)
		}
	}
	if c.cap > 0 {
		return c.cap
	}
	return c.points[len(c.points)-1].value
}
