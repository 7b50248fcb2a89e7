package geo

import (
	"math"
	"strconv"
	"testing"

	"github.com/matryer/is"
)

func TestNewCaliforniaZone3Projector(t *testing.T) {
	project := NewCaliforniaZone3Projector()

	// the projection origin lands exactly on the false easting/northing
	x, y := project(-120.5, 36.5)
	is := is.New(t)
	is.True(math.Abs(x-2000000/feetToMeters) < 1.0)
	is.True(math.Abs(y-500000/feetToMeters) < 1.0)
}

func TestProjectorIsDeterministic(t *testing.T) {
	is := is.New(t)
	project := NewCaliforniaZone3Projector()
	x1, y1 := project(-122.4194, 37.7749)
	x2, y2 := project(-122.4194, 37.7749)
	is.Equal(x1, x2)
	is.Equal(y1, y2)

	// San Francisco should project west and north of the zone origin
	is.True(x1 < 2000000/feetToMeters)
	is.True(y1 > 500000/feetToMeters)
}

func TestPolylineLength(t *testing.T) {
	tests := []struct {
		points []Point
		want   float64
	}{
		{points: nil, want: 0},
		{points: []Point{{0, 0}}, want: 0},
		{points: []Point{{0, 0}, {3, 4}}, want: 5},
		{points: []Point{{0, 0}, {10, 0}, {10, 10}}, want: 20},
	}
	for row, tt := range tests {
		t.Run(strconv.Itoa(row), func(t *testing.T) {
			is := is.New(t)
			is.Equal(NewPolyline(tt.points).Length(), tt.want)
		})
	}
}

func TestProjectNormalized(t *testing.T) {
	line := NewPolyline([]Point{{0, 0}, {10, 0}, {10, 10}})
	tests := []struct {
		name string
		p    Point
		want float64
	}{
		{name: "start", p: Point{0, 0}, want: 0},
		{name: "end", p: Point{10, 10}, want: 1},
		{name: "midpoint of first segment", p: Point{5, 1}, want: 0.25},
		{name: "corner", p: Point{10, 0}, want: 0.5},
		{name: "off the end clamps to 1", p: Point{10, 50}, want: 1},
		{name: "before the start clamps to 0", p: Point{-5, 0}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			got := line.ProjectNormalized(tt.p)
			is.True(math.Abs(got-tt.want) < 1e-9)
		})
	}
}

func TestProjectNormalizedDegenerateLine(t *testing.T) {
	is := is.New(t)
	line := NewPolyline([]Point{{3, 3}})
	is.Equal(line.ProjectNormalized(Point{10, 10}), 0.0)
}
