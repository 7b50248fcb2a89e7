package apc

import (
	"time"

	"github.com/sfcta/transit-wrangler/business/data/store"
)

// TableName is the store table the cleaner appends to.
const TableName = "cleaned_trip_stops"

// Schema is the persisted layout of cleaned trip-stop records. The boardings
// and alightings columns are named ons/offs because on is reserved in SQL.
var Schema = store.Schema{
	{Name: "date", Kind: store.KindTime},
	{Name: "month", Kind: store.KindTime},
	{Name: "dow", Kind: store.KindInt},
	{Name: "tod", Kind: store.KindInt},
	{Name: "route", Kind: store.KindInt},
	{Name: "pattcode", Kind: store.KindString, Width: 10},
	{Name: "dir", Kind: store.KindInt},
	{Name: "trip", Kind: store.KindInt},
	{Name: "seq", Kind: store.KindInt},
	{Name: "routea", Kind: store.KindString, Width: 10},
	{Name: "vehno", Kind: store.KindInt},
	{Name: "school", Kind: store.KindInt},
	{Name: "lasttrip", Kind: store.KindInt},
	{Name: "nexttrip", Kind: store.KindInt},
	{Name: "headway", Kind: store.KindFloat},
	{Name: "qstop", Kind: store.KindInt},
	{Name: "stopname", Kind: store.KindString, Width: 32},
	{Name: "timepoint", Kind: store.KindInt},
	{Name: "eol", Kind: store.KindInt},
	{Name: "lat", Kind: store.KindFloat},
	{Name: "lon", Kind: store.KindFloat},
	{Name: "ns", Kind: store.KindString, Width: 2},
	{Name: "ew", Kind: store.KindString, Width: 2},
	{Name: "maxvel", Kind: store.KindFloat},
	{Name: "miles", Kind: store.KindFloat},
	{Name: "godom", Kind: store.KindFloat},
	{Name: "vehmiles", Kind: store.KindFloat},
	{Name: "ons", Kind: store.KindInt},
	{Name: "offs", Kind: store.KindInt},
	{Name: "load_arr", Kind: store.KindInt},
	{Name: "load_dep", Kind: store.KindInt},
	{Name: "passmiles", Kind: store.KindFloat},
	{Name: "passhours", Kind: store.KindFloat},
	{Name: "rdbrdngs", Kind: store.KindInt},
	{Name: "loadcode", Kind: store.KindInt},
	{Name: "capacity", Kind: store.KindInt},
	{Name: "doorcycles", Kind: store.KindInt},
	{Name: "wheelchair", Kind: store.KindInt},
	{Name: "bikerack", Kind: store.KindInt},
	{Name: "timestop", Kind: store.KindTime},
	{Name: "timestop_s", Kind: store.KindTime},
	{Name: "timestop_dev", Kind: store.KindFloat},
	{Name: "doorclose", Kind: store.KindTime},
	{Name: "doorclose_s", Kind: store.KindTime},
	{Name: "doorclose_dev", Kind: store.KindFloat},
	{Name: "dwell", Kind: store.KindFloat},
	{Name: "dwell_s", Kind: store.KindFloat},
	{Name: "pullout", Kind: store.KindTime},
	{Name: "pulldwell", Kind: store.KindFloat},
	{Name: "runtime", Kind: store.KindFloat},
	{Name: "runtime_s", Kind: store.KindFloat},
	{Name: "recovery", Kind: store.KindFloat},
	{Name: "recovery_s", Kind: store.KindFloat},
	{Name: "dlpmin", Kind: store.KindFloat},
	{Name: "ontime2", Kind: store.KindFloat},
	{Name: "ontime10", Kind: store.KindFloat},
	{Name: "qc104", Kind: store.KindInt},
	{Name: "qc201", Kind: store.KindInt},
	{Name: "aqc", Kind: store.KindInt},
	{Name: "dwdi", Kind: store.KindFloat},
	{Name: "deltaa", Kind: store.KindInt},
	{Name: "deltad", Kind: store.KindInt},
	{Name: "delta", Kind: store.KindInt},
}

// CleanedTripStop is one vehicle-stop observation after normalization.
// Scheduled fields are pointers because they only exist at timepoints.
type CleanedTripStop struct {
	Date       time.Time
	Month      time.Time
	DOW        int64
	TOD        int64
	Route      int64
	PattCode   string
	Dir        int64
	Trip       int64
	Seq        int64
	RouteAlias string
	VehNo      int64
	School     int64
	LastTrip   int64
	NextTrip   int64
	Headway    float64
	QStop      int64
	StopName   string
	Timepoint  int64
	EOL        int64
	Lat        float64
	Lon        float64
	NS         string
	EW         string
	MaxVel     float64
	Miles      float64
	GPSMiles   float64
	VehMiles   float64
	On         int64
	Off        int64
	LoadArr    int64
	LoadDep    int64
	PassMiles  float64
	PassHours  float64
	RearBoards int64
	LoadCode   int64
	Capacity   int64
	DoorCycles int64
	Wheelchair int64
	BikeRack   int64

	Arrival        time.Time
	ArrivalSched   *time.Time
	ArrivalDev     *float64
	Departure      time.Time
	DepartureSched *time.Time
	DepartureDev   *float64
	Dwell          float64
	DwellSched     float64
	Pullout        time.Time
	PullDwell      float64
	Runtime        *float64
	RuntimeSched   *float64
	Recovery       float64
	RecoverySched  float64
	DeltaMinutes   float64
	OnTime2        *float64
	OnTime10       *float64

	QC104     int64
	QC201     int64
	AQC       int64
	DwellDist float64
	DeltaArr  int64
	DeltaDep  int64
	Delta     int64
}

// Row converts the record to the store's column map in Schema order.
func (c *CleanedTripStop) Row() map[string]interface{} {
	row := map[string]interface{}{
		"date":       c.Date,
		"month":      c.Month,
		"dow":        c.DOW,
		"tod":        c.TOD,
		"route":      c.Route,
		"pattcode":   c.PattCode,
		"dir":        c.Dir,
		"trip":       c.Trip,
		"seq":        c.Seq,
		"routea":     c.RouteAlias,
		"vehno":      c.VehNo,
		"school":     c.School,
		"lasttrip":   c.LastTrip,
		"nexttrip":   c.NextTrip,
		"headway":    c.Headway,
		"qstop":      c.QStop,
		"stopname":   c.StopName,
		"timepoint":  c.Timepoint,
		"eol":        c.EOL,
		"lat":        c.Lat,
		"lon":        c.Lon,
		"ns":         c.NS,
		"ew":         c.EW,
		"maxvel":     c.MaxVel,
		"miles":      c.Miles,
		"godom":      c.GPSMiles,
		"vehmiles":   c.VehMiles,
		"ons":        c.On,
		"offs":       c.Off,
		"load_arr":   c.LoadArr,
		"load_dep":   c.LoadDep,
		"passmiles":  c.PassMiles,
		"passhours":  c.PassHours,
		"rdbrdngs":   c.RearBoards,
		"loadcode":   c.LoadCode,
		"capacity":   c.Capacity,
		"doorcycles": c.DoorCycles,
		"wheelchair": c.Wheelchair,
		"bikerack":   c.BikeRack,
		"timestop":   c.Arrival,
		"doorclose":  c.Departure,
		"dwell":      c.Dwell,
		"dwell_s":    c.DwellSched,
		"pullout":    c.Pullout,
		"pulldwell":  c.PullDwell,
		"recovery":   c.Recovery,
		"recovery_s": c.RecoverySched,
		"dlpmin":     c.DeltaMinutes,
		"qc104":      c.QC104,
		"qc201":      c.QC201,
		"aqc":        c.AQC,
		"dwdi":       c.DwellDist,
		"deltaa":     c.DeltaArr,
		"deltad":     c.DeltaDep,
		"delta":      c.Delta,
	}
	row["timestop_s"] = timeOrNil(c.ArrivalSched)
	row["timestop_dev"] = floatOrNil(c.ArrivalDev)
	row["doorclose_s"] = timeOrNil(c.DepartureSched)
	row["doorclose_dev"] = floatOrNil(c.DepartureDev)
	row["runtime"] = floatOrNil(c.Runtime)
	row["runtime_s"] = floatOrNil(c.RuntimeSched)
	row["ontime2"] = floatOrNil(c.OnTime2)
	row["ontime10"] = floatOrNil(c.OnTime10)
	return row
}

func timeOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func floatOrNil(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
