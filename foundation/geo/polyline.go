package geo

import "math"

// Point is a planar coordinate in feet.
type Point struct {
	X float64
	Y float64
}

func distance(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// nearestPointOnSegment finds the point on the segment from start to end
// closest to p, returning the point and its fraction along the segment.
// The fraction is clamped to [0, 1] so the result stays on the segment.
func nearestPointOnSegment(start, end, p Point) (Point, float64) {
	dx := end.X - start.X
	dy := end.Y - start.Y
	segLengthSquared := dx*dx + dy*dy
	t := 0.0
	if segLengthSquared > 0 {
		dot := (p.X-start.X)*dx + (p.Y-start.Y)*dy
		t = math.Min(1, math.Max(0, dot/segLengthSquared))
	}
	return Point{X: start.X + dx*t, Y: start.Y + dy*t}, t
}

// Polyline is an ordered sequence of planar points.
type Polyline struct {
	points []Point
	length float64
}

// NewPolyline builds a Polyline from points in travel order.
func NewPolyline(points []Point) *Polyline {
	line := Polyline{points: points}
	for i := 1; i < len(points); i++ {
		line.length += distance(points[i-1], points[i])
	}
	return &line
}

// Points returns the line's points in order.
func (l *Polyline) Points() []Point {
	return l.points
}

// Length returns the total length of the line in feet.
func (l *Polyline) Length() float64 {
	return l.length
}

// ProjectNormalized finds the nearest position on the line to p and returns
// the distance along the line to that position as a fraction from 0 to 1.
// A line with fewer than two points projects everything to 0.
func (l *Polyline) ProjectNormalized(p Point) float64 {
	if len(l.points) < 2 || l.length <= 0 {
		return 0
	}
	bestDist := math.MaxFloat64
	bestAlong := 0.0
	cumulative := 0.0
	for i := 1; i < len(l.points); i++ {
		start := l.points[i-1]
		end := l.points[i]
		nearest, t := nearestPointOnSegment(start, end, p)
		d := distance(nearest, p)
		if d < bestDist {
			bestDist = d
			bestAlong = cumulative + t*distance(start, end)
		}
		cumulative += distance(start, end)
	}
	return bestAlong / l.length
}
