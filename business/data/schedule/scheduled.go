package schedule

import (
	"time"

	"github.com/sfcta/transit-wrangler/business/data/store"
)

// TableName is the store table the expander appends to.
const TableName = "scheduled_trip_stops"

// Schema is the persisted layout of scheduled trip-stop records. Arrival and
// departure are minutes after midnight of the operating date, so a record can
// be placed on any calendar date in its service period.
var Schema = store.Schema{
	{Name: "idx", Kind: store.KindInt},
	{Name: "service_id", Kind: store.KindString, Width: 16},
	{Name: "dow", Kind: store.KindInt},
	{Name: "start_date", Kind: store.KindTime},
	{Name: "end_date", Kind: store.KindTime},
	{Name: "sched_dates", Kind: store.KindString, Width: 20},
	{Name: "agency", Kind: store.KindString, Width: 16},
	{Name: "route", Kind: store.KindString, Width: 16},
	{Name: "route_long", Kind: store.KindString, Width: 32},
	{Name: "route_type", Kind: store.KindInt},
	{Name: "dir", Kind: store.KindInt},
	{Name: "trip", Kind: store.KindString, Width: 16},
	{Name: "headsign", Kind: store.KindString, Width: 64},
	{Name: "seq", Kind: store.KindInt},
	{Name: "sol", Kind: store.KindInt},
	{Name: "eol", Kind: store.KindInt},
	{Name: "qstop", Kind: store.KindString, Width: 16},
	{Name: "stopname", Kind: store.KindString, Width: 64},
	{Name: "lat", Kind: store.KindFloat},
	{Name: "lon", Kind: store.KindFloat},
	{Name: "arrival", Kind: store.KindFloat},
	{Name: "departure", Kind: store.KindFloat},
	{Name: "tod", Kind: store.KindString, Width: 12},
	{Name: "dwell", Kind: store.KindFloat},
	{Name: "runtime", Kind: store.KindFloat},
	{Name: "tottime", Kind: store.KindFloat},
	{Name: "disttraveled", Kind: store.KindFloat},
	{Name: "servmiles", Kind: store.KindFloat},
	{Name: "runspeed", Kind: store.KindFloat},
	{Name: "totspeed", Kind: store.KindFloat},
	{Name: "headway", Kind: store.KindFloat},
	{Name: "fare", Kind: store.KindFloat},
}

// ScheduledTripStop is one stop of one scheduled trip under one service
// period. Headway is a pointer because the first trip of a group has none.
type ScheduledTripStop struct {
	Idx          int64
	ServiceID    string
	DOW          int64
	StartDate    time.Time
	EndDate      time.Time
	SchedDates   string
	Agency       string
	Route        string
	RouteLong    string
	RouteType    int64
	Dir          int64
	Trip         string
	Headsign     string
	Seq          int64
	SOL          int64
	EOL          int64
	Stop         string
	StopName     string
	Lat          float64
	Lon          float64
	Arrival      float64
	Departure    float64
	TOD          string
	Dwell        float64
	Runtime      float64
	TotTime      float64
	DistTraveled float64
	ServMiles    float64
	RunSpeed     float64
	TotSpeed     float64
	Headway      *float64
	Fare         float64
}

// Row converts the record to the store's column map in Schema order.
func (s *ScheduledTripStop) Row() map[string]interface{} {
	row := map[string]interface{}{
		"idx":          s.Idx,
		"service_id":   s.ServiceID,
		"dow":          s.DOW,
		"start_date":   s.StartDate,
		"end_date":     s.EndDate,
		"sched_dates":  s.SchedDates,
		"agency":       s.Agency,
		"route":        s.Route,
		"route_long":   s.RouteLong,
		"route_type":   s.RouteType,
		"dir":          s.Dir,
		"trip":         s.Trip,
		"headsign":     s.Headsign,
		"seq":          s.Seq,
		"sol":          s.SOL,
		"eol":          s.EOL,
		"qstop":        s.Stop,
		"stopname":     s.StopName,
		"lat":          s.Lat,
		"lon":          s.Lon,
		"arrival":      s.Arrival,
		"departure":    s.Departure,
		"tod":          s.TOD,
		"dwell":        s.Dwell,
		"runtime":      s.Runtime,
		"tottime":      s.TotTime,
		"disttraveled": s.DistTraveled,
		"servmiles":    s.ServMiles,
		"runspeed":     s.RunSpeed,
		"totspeed":     s.TotSpeed,
		"fare":         s.Fare,
	}
	if s.Headway == nil {
		row["headway"] = nil
	} else {
		row["headway"] = *s.Headway
	}
	return row
}
