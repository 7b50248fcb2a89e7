// Package schedule expands a transit schedule feed into one record per
// scheduled trip-stop, with the derived timing, distance and headway fields
// the downstream join and rollups consume.
package schedule

import "time"

// ServicePeriod is one calendar entry of a feed: a service identifier and the
// date range it operates over.
type ServicePeriod struct {
	ServiceID string
	StartDate time.Time
	EndDate   time.Time
}

// Route carries the identifying attributes of one route.
type Route struct {
	RouteID   string
	AgencyID  string
	ShortName string
	LongName  string
	RouteType int64
}

// Trip is one scheduled vehicle journey.
type Trip struct {
	TripID      string
	RouteID     string
	ServiceID   string
	DirectionID int64
	Headsign    string
	ShapeID     string
}

// StopTime is one scheduled stop of a trip, joined with the stop's location.
// DistTraveled is the feed's authoritative distance from the start of the
// trip in meters, when the feed provides one.
type StopTime struct {
	TripID       string
	Seq          int64
	StopID       string
	StopName     string
	Arrival      string
	Departure    string
	Lat          float64
	Lon          float64
	DistTraveled *float64
}

// ShapePoint is one vertex of a route shape.
type ShapePoint struct {
	Seq int64
	Lat float64
	Lon float64
}

// FareRule is one route's fare, joined from the feed's fare rules and fare
// attributes.
type FareRule struct {
	RouteID string
	Price   float64
}

// Provider supplies the parts of a schedule feed the expander consumes.
type Provider interface {
	// ServicePeriods returns the feed's calendar entries.
	ServicePeriods() []ServicePeriod

	// TripsForPeriod returns the trips operating under one service identifier.
	TripsForPeriod(serviceID string) []Trip

	// RouteByID looks up a route's attributes.
	RouteByID(routeID string) (Route, bool)

	// StopTimes returns a trip's stop times with stop locations attached.
	StopTimes(tripID string) []StopTime

	// ShapePoints returns the vertices of one shape.
	ShapePoints(shapeID string) []ShapePoint

	// FareRules returns the feed's per-route fares.
	FareRules() []FareRule

	// DateRange returns the feed's declared validity range.
	DateRange() (time.Time, time.Time)
}
