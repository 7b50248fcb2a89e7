// Package gtfsfeed loads a GTFS zip file into an in-memory schedule provider.
package gtfsfeed

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/sfcta/transit-wrangler/business/data/schedule"
)

// stop is one entry of stops.txt, joined onto stop times by identifier.
type stop struct {
	name string
	lat  float64
	lon  float64
}

// Feed is a fully loaded schedule feed. It satisfies schedule.Provider.
type Feed struct {
	periods        []schedule.ServicePeriod
	routes         map[string]schedule.Route
	tripsByService map[string][]schedule.Trip
	stopTimes      map[string][]schedule.StopTime
	stops          map[string]stop
	shapes         map[string][]schedule.ShapePoint
	farePrices     map[string]float64
	fareRules      []schedule.FareRule
	start          time.Time
	end            time.Time
}

func newFeed() *Feed {
	return &Feed{
		routes:         make(map[string]schedule.Route),
		tripsByService: make(map[string][]schedule.Trip),
		stopTimes:      make(map[string][]schedule.StopTime),
		stops:          make(map[string]stop),
		shapes:         make(map[string][]schedule.ShapePoint),
		farePrices:     make(map[string]float64),
	}
}

// ServicePeriods returns the feed's calendar entries.
func (f *Feed) ServicePeriods() []schedule.ServicePeriod {
	return f.periods
}

// TripsForPeriod returns the trips operating under one service identifier.
func (f *Feed) TripsForPeriod(serviceID string) []schedule.Trip {
	return f.tripsByService[serviceID]
}

// RouteByID looks up a route's attributes.
func (f *Feed) RouteByID(routeID string) (schedule.Route, bool) {
	route, found := f.routes[routeID]
	return route, found
}

// StopTimes returns a trip's stop times in sequence order.
func (f *Feed) StopTimes(tripID string) []schedule.StopTime {
	return f.stopTimes[tripID]
}

// ShapePoints returns the vertices of one shape in sequence order.
func (f *Feed) ShapePoints(shapeID string) []schedule.ShapePoint {
	return f.shapes[shapeID]
}

// FareRules returns the feed's per-route fares.
func (f *Feed) FareRules() []schedule.FareRule {
	return f.fareRules
}

// DateRange returns the feed's validity range: feed_info.txt when present,
// the span of the calendar entries otherwise.
func (f *Feed) DateRange() (time.Time, time.Time) {
	return f.start, f.end
}

// LoadZip reads a GTFS zip file from disk into a Feed.
func LoadZip(log *log.Logger, path string) (*Feed, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open feed %s: %w", path, err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Printf("gtfsfeed: unable to close %s: %v", path, err)
		}
	}()
	feed, err := loadFeed(log, &r.Reader)
	if err != nil {
		return nil, fmt.Errorf("unable to load feed %s: %w", path, err)
	}
	return feed, nil
}

// feedFiles holds the zip entries the loader knows how to read.
type feedFiles struct {
	calendar       *zip.File
	routes         *zip.File
	trips          *zip.File
	stops          *zip.File
	stopTimes      *zip.File
	shapes         *zip.File
	fareAttributes *zip.File
	fareRules      *zip.File
	feedInfo       *zip.File
}

func collectFiles(r *zip.Reader) (*feedFiles, error) {
	files := feedFiles{}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch f.Name {
		case "calendar.txt":
			files.calendar = f
		case "routes.txt":
			files.routes = f
		case "trips.txt":
			files.trips = f
		case "stops.txt":
			files.stops = f
		case "stop_times.txt":
			files.stopTimes = f
		case "shapes.txt":
			files.shapes = f
		case "fare_attributes.txt":
			files.fareAttributes = f
		case "fare_rules.txt":
			files.fareRules = f
		case "feed_info.txt":
			files.feedInfo = f
		}
	}
	var missing []string
	if files.calendar == nil {
		missing = append(missing, "calendar.txt")
	}
	if files.routes == nil {
		missing = append(missing, "routes.txt")
	}
	if files.trips == nil {
		missing = append(missing, "trips.txt")
	}
	if files.stops == nil {
		missing = append(missing, "stops.txt")
	}
	if files.stopTimes == nil {
		missing = append(missing, "stop_times.txt")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("feed zip is missing the following file(s) %s",
			strings.Join(missing, ","))
	}
	return &files, nil
}

// rowReader reads the parser's current row into the feed.
type rowReader func(p *feedParser, f *Feed) error

// loadFeed reads the feed's files in dependency order: stops and fares before
// the stop times and rules that reference them.
func loadFeed(log *log.Logger, r *zip.Reader) (*Feed, error) {
	files, err := collectFiles(r)
	if err != nil {
		return nil, err
	}

	feed := newFeed()
	ordered := []struct {
		file *zip.File
		read rowReader
	}{
		{files.calendar, readCalendarRow},
		{files.routes, readRouteRow},
		{files.trips, readTripRow},
		{files.stops, readStopRow},
		{files.stopTimes, readStopTimeRow},
		{files.shapes, readShapeRow},
		{files.fareAttributes, readFareAttributeRow},
		{files.fareRules, readFareRuleRow},
		{files.feedInfo, readFeedInfoRow},
	}
	for _, entry := range ordered {
		if entry.file == nil {
			continue
		}
		if err := loadFile(log, feed, entry.file, entry.read); err != nil {
			return nil, err
		}
	}

	feed.finish()
	return feed, nil
}

func loadFile(log *log.Logger, feed *Feed, f *zip.File, read rowReader) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() {
		if err := rc.Close(); err != nil {
			log.Printf("gtfsfeed: unable to close %s: %v", f.Name, err)
		}
	}()

	parser, err := newFeedParser(rc, f.Name)
	if err != nil {
		return err
	}
	for {
		err := parser.nextLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := read(parser, feed); err != nil {
			parser.addErr(err)
		}
		if err := parser.rowErr(); err != nil {
			return err
		}
	}
	log.Printf("gtfsfeed: loaded %d rows from %s", parser.line-1, f.Name)
	return nil
}

func readCalendarRow(p *feedParser, f *Feed) error {
	f.periods = append(f.periods, schedule.ServicePeriod{
		ServiceID: p.getString("service_id", false),
		StartDate: p.getDate("start_date", false),
		EndDate:   p.getDate("end_date", false),
	})
	return nil
}

func readRouteRow(p *feedParser, f *Feed) error {
	route := schedule.Route{
		RouteID:   p.getString("route_id", false),
		AgencyID:  p.getString("agency_id", true),
		ShortName: p.getString("route_short_name", true),
		LongName:  p.getString("route_long_name", true),
		RouteType: p.getInt("route_type", false),
	}
	f.routes[route.RouteID] = route
	return nil
}

func readTripRow(p *feedParser, f *Feed) error {
	trip := schedule.Trip{
		TripID:      p.getString("trip_id", false),
		RouteID:     p.getString("route_id", false),
		ServiceID:   p.getString("service_id", false),
		DirectionID: p.getInt("direction_id", true),
		Headsign:    p.getString("trip_headsign", true),
		ShapeID:     p.getString("shape_id", true),
	}
	f.tripsByService[trip.ServiceID] = append(f.tripsByService[trip.ServiceID], trip)
	return nil
}

func readStopRow(p *feedParser, f *Feed) error {
	f.stops[p.getString("stop_id", false)] = stop{
		name: p.getString("stop_name", true),
		lat:  p.getFloat("stop_lat", false),
		lon:  p.getFloat("stop_lon", false),
	}
	return nil
}

func readStopTimeRow(p *feedParser, f *Feed) error {
	st := schedule.StopTime{
		TripID:       p.getString("trip_id", false),
		Seq:          p.getInt("stop_sequence", false),
		StopID:       p.getString("stop_id", false),
		Arrival:      p.getString("arrival_time", false),
		Departure:    p.getString("departure_time", false),
		DistTraveled: p.getFloatPointer("shape_dist_traveled", true),
	}
	location, found := f.stops[st.StopID]
	if !found {
		return fmt.Errorf("stop time references unknown stop %s", st.StopID)
	}
	st.StopName = location.name
	st.Lat = location.lat
	st.Lon = location.lon
	f.stopTimes[st.TripID] = append(f.stopTimes[st.TripID], st)
	return nil
}

func readShapeRow(p *feedParser, f *Feed) error {
	shapeID := p.getString("shape_id", false)
	f.shapes[shapeID] = append(f.shapes[shapeID], schedule.ShapePoint{
		Seq: p.getInt("shape_pt_sequence", false),
		Lat: p.getFloat("shape_pt_lat", false),
		Lon: p.getFloat("shape_pt_lon", false),
	})
	return nil
}

func readFareAttributeRow(p *feedParser, f *Feed) error {
	f.farePrices[p.getString("fare_id", false)] = p.getFloat("price", false)
	return nil
}

func readFareRuleRow(p *feedParser, f *Feed) error {
	routeID := p.getString("route_id", true)
	if routeID == "" {
		return nil
	}
	fareID := p.getString("fare_id", false)
	price, found := f.farePrices[fareID]
	if !found {
		return fmt.Errorf("fare rule references unknown fare %s", fareID)
	}
	f.fareRules = append(f.fareRules, schedule.FareRule{RouteID: routeID, Price: price})
	return nil
}

func readFeedInfoRow(p *feedParser, f *Feed) error {
	f.start = p.getDate("feed_start_date", true)
	f.end = p.getDate("feed_end_date", true)
	return nil
}

// finish sorts the loaded collections and fills the date range from the
// calendar when feed_info.txt did not carry one.
func (f *Feed) finish() {
	for _, times := range f.stopTimes {
		sort.Slice(times, func(i, j int) bool { return times[i].Seq < times[j].Seq })
	}
	for _, points := range f.shapes {
		sort.Slice(points, func(i, j int) bool { return points[i].Seq < points[j].Seq })
	}
	if f.start.IsZero() || f.end.IsZero() {
		for _, period := range f.periods {
			if f.start.IsZero() || period.StartDate.Before(f.start) {
				f.start = period.StartDate
			}
			if f.end.IsZero() || period.EndDate.After(f.end) {
				f.end = period.EndDate
			}
		}
	}
}
