package schedule

import (
	"io"
	"log"
	"math"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/sfcta/transit-wrangler/foundation/geo"
)

type fakeProvider struct {
	periods   []ServicePeriod
	trips     map[string][]Trip
	routes    map[string]Route
	stopTimes map[string][]StopTime
	shapes    map[string][]ShapePoint
	fares     []FareRule
	start     time.Time
	end       time.Time
}

func (f *fakeProvider) ServicePeriods() []ServicePeriod         { return f.periods }
func (f *fakeProvider) TripsForPeriod(serviceID string) []Trip  { return f.trips[serviceID] }
func (f *fakeProvider) RouteByID(routeID string) (Route, bool)  { r, ok := f.routes[routeID]; return r, ok }
func (f *fakeProvider) StopTimes(tripID string) []StopTime      { return f.stopTimes[tripID] }
func (f *fakeProvider) ShapePoints(shapeID string) []ShapePoint { return f.shapes[shapeID] }
func (f *fakeProvider) FareRules() []FareRule                   { return f.fares }
func (f *fakeProvider) DateRange() (time.Time, time.Time)       { return f.start, f.end }

// flatProjector treats lon/lat as planar feet so test geometry is exact.
func flatProjector(lon, lat float64) (float64, float64) {
	return lon, lat
}

func testExpander() *Expander {
	return NewExpander(log.New(io.Discard, "", 0), flatProjector)
}

func newFakeProvider() *fakeProvider {
	start := time.Date(2013, 10, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2013, 12, 31, 0, 0, 0, 0, time.UTC)
	return &fakeProvider{
		periods: []ServicePeriod{{ServiceID: "WKDY", StartDate: start, EndDate: end}},
		routes: map[string]Route{
			"r14": {RouteID: "r14", AgencyID: "SFMTA", ShortName: "14", LongName: "14-MISSION", RouteType: 3},
		},
		trips:     map[string][]Trip{},
		stopTimes: map[string][]StopTime{},
		shapes:    map[string][]ShapePoint{},
		start:     start,
		end:       end,
	}
}

// addTrip registers a two-stop trip on route r14 departing at the given clock.
func (f *fakeProvider) addTrip(tripID, departure, arrivalNext string) {
	f.trips["WKDY"] = append(f.trips["WKDY"], Trip{
		TripID: tripID, RouteID: "r14", ServiceID: "WKDY", DirectionID: 0, Headsign: "Daly City",
	})
	f.stopTimes[tripID] = []StopTime{
		{TripID: tripID, Seq: 1, StopID: "s1", StopName: "FIRST", Arrival: departure, Departure: departure, Lon: 0, Lat: 0},
		{TripID: tripID, Seq: 2, StopID: "s2", StopName: "LAST", Arrival: arrivalNext, Departure: arrivalNext, Lon: 1000, Lat: 0},
	}
}

func TestDOWClass(t *testing.T) {
	tests := []struct {
		give    string
		want    int64
		wantErr bool
	}{
		{give: "1", want: 1},
		{give: "3", want: 3},
		{give: "WKDY", want: 1},
		{give: "M-FSAT", want: 1},
		{give: "SAT", want: 2},
		{give: "SUN", want: 3},
		{give: "SUNAB", want: 3},
		{give: "XMAS", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.give, func(t *testing.T) {
			is := is.New(t)
			got, err := dowClass(tt.give)
			if tt.wantErr {
				is.True(err != nil)
				return
			}
			is.NoErr(err)
			is.Equal(got, tt.want)
		})
	}
}

func TestClockMinutes(t *testing.T) {
	tests := []struct {
		give string
		want float64
	}{
		{give: "08:15:00", want: 495},
		{give: "08:15:30", want: 495.5},
		{give: "25:15:00", want: 1515},
		{give: "08:60:00", want: 540},
	}
	for _, tt := range tests {
		t.Run(tt.give, func(t *testing.T) {
			is := is.New(t)
			got, err := clockMinutes(tt.give)
			is.NoErr(err)
			is.Equal(got, tt.want)
		})
	}

	is := is.New(t)
	_, err := clockMinutes("08:15")
	is.True(err != nil)
}

func TestExpandHeadways(t *testing.T) {
	is := is.New(t)
	p := newFakeProvider()
	p.addTrip("t1", "08:00:00", "08:10:00")
	p.addTrip("t2", "08:15:00", "08:25:00")
	p.addTrip("t3", "08:40:00", "08:50:00")

	records, err := testExpander().Expand(p, 0)
	is.NoErr(err)
	is.Equal(6, len(records))

	var firstStops []*ScheduledTripStop
	for _, r := range records {
		if r.Seq == 1 {
			firstStops = append(firstStops, r)
		}
	}
	is.Equal(3, len(firstStops))
	is.True(firstStops[0].Headway == nil) // no trip precedes the first
	is.Equal(15.0, *firstStops[1].Headway)
	is.Equal(25.0, *firstStops[2].Headway)
}

func TestExpandTripFields(t *testing.T) {
	is := is.New(t)
	p := newFakeProvider()
	p.trips["WKDY"] = []Trip{{
		TripID: "t1", RouteID: "r14", ServiceID: "WKDY", DirectionID: 1, Headsign: "Downtown",
	}}
	p.stopTimes["t1"] = []StopTime{
		{TripID: "t1", Seq: 1, StopID: "s1", StopName: "FIRST", Arrival: "08:00:00", Departure: "08:02:00", Lon: 0, Lat: 0},
		{TripID: "t1", Seq: 2, StopID: "s2", StopName: "MID", Arrival: "08:05:00", Departure: "08:06:00", Lon: 1000, Lat: 0},
		{TripID: "t1", Seq: 3, StopID: "s3", StopName: "LAST", Arrival: "08:12:00", Departure: "08:14:00", Lon: 2000, Lat: 0},
	}
	p.fares = []FareRule{{RouteID: "r14", Price: 2.0}, {RouteID: "r14", Price: 4.0}}

	records, err := testExpander().Expand(p, 10)
	is.NoErr(err)
	is.Equal(3, len(records))

	first, mid, last := records[0], records[1], records[2]

	is.Equal("0802_1", first.Trip) // keyed on the first stop's departure
	is.Equal("0600-0859", first.TOD)
	is.Equal("20131001-20131231", first.SchedDates)
	is.Equal(int64(1), first.DOW)
	is.Equal("14", first.Route)
	is.Equal(2.0, first.Fare) // first matching fare rule wins

	is.Equal(int64(1), first.SOL)
	is.Equal(int64(0), first.EOL)
	is.Equal(int64(1), last.EOL)

	// dwell only between the endpoints
	is.Equal(0.0, first.Dwell)
	is.Equal(1.0, mid.Dwell)
	is.Equal(0.0, last.Dwell)

	is.Equal(0.0, first.Runtime)
	is.Equal(3.0, mid.Runtime) // 08:05 arrival after 08:02 departure
	is.Equal(4.0, mid.TotTime)

	// no shape, so distance comes from the stop-to-stop line
	is.Equal(0.0, first.DistTraveled)
	is.Equal(1000.0, mid.DistTraveled)
	is.Equal(2000.0, last.DistTraveled)
	is.Equal(1000.0/5280.0, mid.ServMiles)

	// indexes continue from the caller's offset
	is.Equal(int64(10), first.Idx)
	is.Equal(int64(12), last.Idx)
}

func TestExpandRuntimeNeverNegative(t *testing.T) {
	is := is.New(t)
	p := newFakeProvider()
	p.addTrip("t1", "08:00:00", "07:58:00")

	records, err := testExpander().Expand(p, 0)
	is.NoErr(err)
	is.Equal(0.0, records[1].Runtime)
}

func TestExpandAuthoritativeDistance(t *testing.T) {
	is := is.New(t)
	p := newFakeProvider()
	p.addTrip("t1", "08:00:00", "08:10:00")
	meters := 100.0
	p.stopTimes["t1"][1].DistTraveled = &meters

	records, err := testExpander().Expand(p, 0)
	is.NoErr(err)
	is.True(math.Abs(records[1].DistTraveled-328.08399) < 1e-6)
}

func TestExpandScrambledShape(t *testing.T) {
	is := is.New(t)
	p := newFakeProvider()
	p.trips["WKDY"] = []Trip{{
		TripID: "t1", RouteID: "r14", ServiceID: "WKDY", ShapeID: "sh1", Headsign: "Daly City",
	}}
	p.stopTimes["t1"] = []StopTime{
		{TripID: "t1", Seq: 1, StopID: "s1", Arrival: "08:00:00", Departure: "08:00:00", Lon: 0, Lat: 0},
		{TripID: "t1", Seq: 2, StopID: "s2", Arrival: "08:05:00", Departure: "08:05:00", Lon: 600, Lat: 0},
		{TripID: "t1", Seq: 3, StopID: "s3", Arrival: "08:10:00", Departure: "08:10:00", Lon: 1000, Lat: 0},
	}
	// vertices delivered out of travel order
	p.shapes["sh1"] = []ShapePoint{
		{Seq: 1, Lon: 500, Lat: 40},
		{Seq: 2, Lon: 0, Lat: 0},
		{Seq: 3, Lon: 1000, Lat: 0},
		{Seq: 4, Lon: 250, Lat: -30},
	}

	records, err := testExpander().Expand(p, 0)
	is.NoErr(err)
	is.Equal(3, len(records))
	is.True(records[0].DistTraveled <= records[1].DistTraveled)
	is.True(records[1].DistTraveled <= records[2].DistTraveled)
	is.True(records[2].DistTraveled > 0)
}

func TestTripLineReordersShapeOnBendingRoute(t *testing.T) {
	is := is.New(t)
	p := newFakeProvider()
	// a U-shaped trip: down the left leg, across the bottom, up the right
	stopTimes := []StopTime{
		{TripID: "t1", Seq: 1, StopID: "s1", Arrival: "08:00:00", Departure: "08:00:00", Lon: 0, Lat: 1000},
		{TripID: "t1", Seq: 2, StopID: "s2", Arrival: "08:05:00", Departure: "08:05:00", Lon: 0, Lat: 0},
		{TripID: "t1", Seq: 3, StopID: "s3", Arrival: "08:10:00", Departure: "08:10:00", Lon: 1000, Lat: 0},
		{TripID: "t1", Seq: 4, StopID: "s4", Arrival: "08:15:00", Departure: "08:15:00", Lon: 1000, Lat: 1000},
	}
	// the bottom leg's vertices delivered scrambled
	p.shapes["sh1"] = []ShapePoint{
		{Seq: 1, Lon: 750, Lat: 0},
		{Seq: 2, Lon: 250, Lat: 0},
		{Seq: 3, Lon: 0, Lat: 750},
		{Seq: 4, Lon: 500, Lat: 0},
		{Seq: 5, Lon: 1000, Lat: 250},
		{Seq: 6, Lon: 0, Lat: 250},
		{Seq: 7, Lon: 1000, Lat: 750},
	}

	line := testExpander().tripLine(p, "sh1", stopTimes)
	want := []geo.Point{
		{X: 0, Y: 750},
		{X: 0, Y: 250},
		{X: 250, Y: 0},
		{X: 500, Y: 0},
		{X: 750, Y: 0},
		{X: 1000, Y: 250},
		{X: 1000, Y: 750},
	}
	is.Equal(want, line.Points())
}

func TestExpandRouteTypeFilter(t *testing.T) {
	is := is.New(t)
	p := newFakeProvider()
	p.addTrip("t1", "08:00:00", "08:10:00")

	e := testExpander()
	e.AllowedRouteTypes = map[int64]bool{0: true} // rail only, r14 is a bus
	records, err := e.Expand(p, 0)
	is.NoErr(err)
	is.Equal(0, len(records))
}

func TestExpandUnknownServiceIsFatal(t *testing.T) {
	is := is.New(t)
	p := newFakeProvider()
	p.periods[0].ServiceID = "XMAS"

	_, err := testExpander().Expand(p, 0)
	is.True(err != nil)
}

func TestExpandUnknownRouteIsFatal(t *testing.T) {
	is := is.New(t)
	p := newFakeProvider()
	p.addTrip("t1", "08:00:00", "08:10:00")
	p.trips["WKDY"][0].RouteID = "missing"

	_, err := testExpander().Expand(p, 0)
	is.True(err != nil)
}
