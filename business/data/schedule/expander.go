package schedule

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sfcta/transit-wrangler/business/servicetime"
	"github.com/sfcta/transit-wrangler/foundation/geo"
)

const (
	metersToFeet = 3.2808399
	feetPerMile  = 5280.0
)

// Expander turns a schedule feed into scheduled trip-stop records. When
// AllowedRouteTypes is non-nil, trips on other route types are skipped.
type Expander struct {
	log               *log.Logger
	project           geo.Projector
	AllowedRouteTypes map[int64]bool
}

// NewExpander creates an Expander using the given planar projection.
func NewExpander(log *log.Logger, project geo.Projector) *Expander {
	return &Expander{log: log, project: project}
}

// dowClass maps a feed's service identifier to a day-of-week service class.
// Numeric identifiers are taken at face value; the agency's named calendars
// map onto the three classes. Anything else is a new calendar the pipeline
// has not seen and is an error.
func dowClass(serviceID string) (int64, error) {
	if v, err := strconv.ParseInt(serviceID, 10, 64); err == nil {
		return v, nil
	}
	switch serviceID {
	case "WKDY", "M-FSAT":
		return servicetime.Weekday, nil
	case "SAT":
		return servicetime.Saturday, nil
	case "SUN", "SUNAB":
		return servicetime.Sunday, nil
	}
	return 0, fmt.Errorf("unknown service identifier %q", serviceID)
}

// clockMinutes converts a feed's HH:MM:SS clock to minutes after midnight.
// Hours of 24 and beyond stay beyond 1440 so after-midnight stops keep their
// order within the trip. A literal minutes value of 60 rolls to the next hour.
func clockMinutes(clock string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected HH:MM:SS time format: %s", clock)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("unable to parse hours in %s: %w", clock, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("unable to parse minutes in %s: %w", clock, err)
	}
	seconds, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("unable to parse seconds in %s: %w", clock, err)
	}
	if minutes == 60 {
		hours++
		minutes = 0
	}
	return float64(hours)*60 + float64(minutes) + float64(seconds)/60, nil
}

// minutesToHHMM renders minutes after midnight as the compact HHMM code used
// for trip keys and time-of-day bands.
func minutesToHHMM(minutes float64) int {
	m := int(minutes)
	return (m/60)*100 + m%60
}

// Expand builds the scheduled trip-stop records for every service period of
// the feed. Record indexes are contiguous and continue from offset, so
// multiple feeds can share one table.
func (e *Expander) Expand(p Provider, offset int64) ([]*ScheduledTripStop, error) {
	var all []*ScheduledTripStop
	for _, period := range p.ServicePeriods() {
		records, err := e.expandPeriod(p, period)
		if err != nil {
			return nil, fmt.Errorf("expanding service %s: %w", period.ServiceID, err)
		}
		all = append(all, records...)
	}
	for i, record := range all {
		record.Idx = offset + int64(i)
	}
	return all, nil
}

func (e *Expander) expandPeriod(p Provider, period ServicePeriod) ([]*ScheduledTripStop, error) {
	dow, err := dowClass(period.ServiceID)
	if err != nil {
		return nil, err
	}
	schedDates := period.StartDate.Format("20060102") + "-" + period.EndDate.Format("20060102")

	var records []*ScheduledTripStop
	for _, trip := range p.TripsForPeriod(period.ServiceID) {
		route, found := p.RouteByID(trip.RouteID)
		if !found {
			return nil, fmt.Errorf("trip %s references unknown route %s", trip.TripID, trip.RouteID)
		}
		if e.AllowedRouteTypes != nil && !e.AllowedRouteTypes[route.RouteType] {
			continue
		}
		tripRecords, err := e.expandTrip(p, period, dow, schedDates, route, trip)
		if err != nil {
			return nil, fmt.Errorf("expanding trip %s: %w", trip.TripID, err)
		}
		records = append(records, tripRecords...)
	}

	attachHeadways(records)
	sortRecords(records)
	return records, nil
}

func (e *Expander) expandTrip(p Provider, period ServicePeriod, dow int64,
	schedDates string, route Route, trip Trip) ([]*ScheduledTripStop, error) {

	stopTimes := p.StopTimes(trip.TripID)
	if len(stopTimes) < 2 {
		return nil, nil
	}
	sort.Slice(stopTimes, func(i, j int) bool {
		return stopTimes[i].Seq < stopTimes[j].Seq
	})

	firstDeparture, err := clockMinutes(stopTimes[0].Departure)
	if err != nil {
		return nil, err
	}
	firstHHMM := minutesToHHMM(firstDeparture)
	tripKey := fmt.Sprintf("%04d_%d", firstHHMM, stopTimes[0].Seq)
	tod := servicetime.TimeOfDayLabel(firstHHMM)
	fare := fareForRoute(p, trip.RouteID)
	line := e.tripLine(p, trip.ShapeID, stopTimes)
	lineLength := line.Length()

	records := make([]*ScheduledTripStop, 0, len(stopTimes))
	prevDeparture := firstDeparture
	prevDist := 0.0
	for i, st := range stopTimes {
		arrival, err := clockMinutes(st.Arrival)
		if err != nil {
			return nil, err
		}
		departure, err := clockMinutes(st.Departure)
		if err != nil {
			return nil, err
		}

		record := ScheduledTripStop{
			ServiceID:  period.ServiceID,
			DOW:        dow,
			StartDate:  period.StartDate,
			EndDate:    period.EndDate,
			SchedDates: schedDates,
			Agency:     route.AgencyID,
			Route:      route.ShortName,
			RouteLong:  route.LongName,
			RouteType:  route.RouteType,
			Dir:        trip.DirectionID,
			Trip:       tripKey,
			Headsign:   trip.Headsign,
			Seq:        st.Seq,
			Stop:       st.StopID,
			StopName:   st.StopName,
			Lat:        st.Lat,
			Lon:        st.Lon,
			Arrival:    arrival,
			Departure:  departure,
			TOD:        tod,
			Fare:       fare,
		}
		if i == 0 {
			record.SOL = 1
		}
		if i == len(stopTimes)-1 {
			record.EOL = 1
		}

		// dwell at the endpoints reflects layover, not service
		if record.SOL == 0 && record.EOL == 0 {
			record.Dwell = departure - arrival
		}
		if record.SOL == 0 {
			record.Runtime = math.Max(0, arrival-prevDeparture)
		}
		record.TotTime = departure - firstDeparture

		if st.DistTraveled != nil {
			record.DistTraveled = *st.DistTraveled * metersToFeet
		} else {
			x, y := e.project(st.Lon, st.Lat)
			record.DistTraveled = line.ProjectNormalized(geo.Point{X: x, Y: y}) * lineLength
		}
		if record.SOL == 0 {
			record.ServMiles = (record.DistTraveled - prevDist) / feetPerMile
		}
		if record.Runtime > 0 {
			record.RunSpeed = record.ServMiles / (record.Runtime / 60)
		}
		if record.TotTime > 0 {
			record.TotSpeed = (record.DistTraveled / feetPerMile) / (record.TotTime / 60)
		}

		prevDeparture = departure
		prevDist = record.DistTraveled
		records = append(records, &record)
	}
	return records, nil
}

// tripLine builds the planar line a trip travels along. Shape points are
// reordered by their projection onto the polyline through the stops in
// sequence, since some feeds deliver shape vertices out of order. Projecting
// onto the stop polyline rather than a straight end-to-end line keeps the
// ordering correct on routes that bend or double back. Trips without a usable
// shape fall back to the stop-to-stop line.
func (e *Expander) tripLine(p Provider, shapeID string, stopTimes []StopTime) *geo.Polyline {
	stopPoints := make([]geo.Point, len(stopTimes))
	for i, st := range stopTimes {
		x, y := e.project(st.Lon, st.Lat)
		stopPoints[i] = geo.Point{X: x, Y: y}
	}
	stopLine := geo.NewPolyline(stopPoints)
	if shapeID == "" {
		return stopLine
	}

	shapePoints := p.ShapePoints(shapeID)
	if len(shapePoints) < 2 {
		return stopLine
	}

	type orderedPoint struct {
		point geo.Point
		along float64
	}
	ordered := make([]orderedPoint, len(shapePoints))
	for i, sp := range shapePoints {
		x, y := e.project(sp.Lon, sp.Lat)
		point := geo.Point{X: x, Y: y}
		ordered[i] = orderedPoint{point: point, along: stopLine.ProjectNormalized(point)}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].along < ordered[j].along
	})

	points := make([]geo.Point, len(ordered))
	for i, op := range ordered {
		points[i] = op.point
	}
	return geo.NewPolyline(points)
}

// fareForRoute finds the first fare rule for a route, zero when none applies.
func fareForRoute(p Provider, routeID string) float64 {
	for _, rule := range p.FareRules() {
		if rule.RouteID == routeID {
			return rule.Price
		}
	}
	return 0
}

type headwayKey struct {
	agency   string
	route    string
	dir      int64
	headsign string
	seq      int64
}

// attachHeadways computes the gap in minutes to the previous trip serving the
// same stop position on the same route, direction and headsign. The first
// trip of each group has no previous trip and keeps a null headway.
func attachHeadways(records []*ScheduledTripStop) {
	groups := make(map[headwayKey][]*ScheduledTripStop)
	for _, record := range records {
		key := headwayKey{
			agency:   record.Agency,
			route:    record.Route,
			dir:      record.Dir,
			headsign: record.Headsign,
			seq:      record.Seq,
		}
		groups[key] = append(groups[key], record)
	}
	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Departure < group[j].Departure
		})
		for i := 1; i < len(group); i++ {
			headway := group[i].Departure - group[i-1].Departure
			group[i].Headway = &headway
		}
	}
}

func sortRecords(records []*ScheduledTripStop) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Agency != b.Agency {
			return a.Agency < b.Agency
		}
		if a.Route != b.Route {
			return a.Route < b.Route
		}
		if a.Dir != b.Dir {
			return a.Dir < b.Dir
		}
		if a.Headsign != b.Headsign {
			return a.Headsign < b.Headsign
		}
		if a.Trip != b.Trip {
			return a.Trip < b.Trip
		}
		return a.Seq < b.Seq
	})
}
