// Package join reconciles cleaned vehicle observations against the expanded
// schedule. The schedule side is complete: every scheduled trip-stop appears
// for every date it operates, observed or not, and observations matching no
// schedule are kept flagged as extra service.
package join

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sfcta/transit-wrangler/business/data/apc"
	"github.com/sfcta/transit-wrangler/business/data/schedule"
	"github.com/sfcta/transit-wrangler/business/data/store"
	"github.com/sfcta/transit-wrangler/business/servicetime"
)

// Joiner builds the expanded trip-stop table month by month.
type Joiner struct {
	log   *log.Logger
	store *store.Store
}

// NewJoiner creates a Joiner over the store holding the cleaned and
// scheduled tables.
func NewJoiner(log *log.Logger, st *store.Store) *Joiner {
	return &Joiner{log: log, store: st}
}

// scheduledStop is one scheduled trip-stop read back from the store, with the
// trip key's departure code split out for matching against observations.
type scheduledStop struct {
	dow       int64
	start     time.Time
	end       time.Time
	agency    string
	route     string
	dir       int64
	tripHHMM  int64
	seq       int64
	stopID    int64
	stopName  string
	arrival   float64
	departure float64
	dwell     float64
	runtime   float64
	servMiles float64
	headway   *float64
	fare      float64
}

func scheduledFromRow(row map[string]interface{}) (scheduledStop, error) {
	tripKey := store.String(row, "trip")
	hhmm, err := strconv.ParseInt(strings.SplitN(tripKey, "_", 2)[0], 10, 64)
	if err != nil {
		return scheduledStop{}, fmt.Errorf("unable to parse trip key %q: %w", tripKey, err)
	}
	stopID, _ := strconv.ParseInt(store.String(row, "qstop"), 10, 64)
	return scheduledStop{
		dow:       store.Int64(row, "dow"),
		start:     store.Time(row, "start_date"),
		end:       store.Time(row, "end_date"),
		agency:    store.String(row, "agency"),
		route:     store.String(row, "route"),
		dir:       store.Int64(row, "dir"),
		tripHHMM:  hhmm,
		seq:       store.Int64(row, "seq"),
		stopID:    stopID,
		stopName:  store.String(row, "stopname"),
		arrival:   store.Float64(row, "arrival"),
		departure: store.Float64(row, "departure"),
		dwell:     store.Float64(row, "dwell"),
		runtime:   store.Float64(row, "runtime"),
		servMiles: store.Float64(row, "servmiles"),
		headway:   store.FloatPointer(row, "headway"),
		fare:      store.Float64(row, "fare"),
	}, nil
}

// Run joins every month present in the cleaned table and returns the number
// of expanded rows written.
func (j *Joiner) Run() (int64, error) {
	if err := j.store.RemoveIfExists(TableName); err != nil {
		return 0, err
	}
	months, err := j.store.Months(apc.TableName)
	if err != nil {
		return 0, err
	}

	schedRows, err := j.store.SelectAll(schedule.TableName)
	if err != nil {
		return 0, err
	}
	scheduled := make([]scheduledStop, len(schedRows))
	for i, row := range schedRows {
		if scheduled[i], err = scheduledFromRow(row); err != nil {
			return 0, err
		}
	}

	var total int64
	for _, month := range months {
		observed, err := j.store.SelectMonth(apc.TableName, month)
		if err != nil {
			return 0, err
		}
		rows := j.joinMonth(month, observed, scheduled)
		if err := j.store.Append(TableName, Schema, rows); err != nil {
			return 0, err
		}
		total += int64(len(rows))
		j.log.Printf("join: %v wrote %d rows from %d observations",
			month.Format("2006-01"), len(rows), len(observed))
	}
	return total, nil
}

type matchKey struct {
	date  int64
	route string
	dir   int64
	trip  int64
	seq   int64
}

// routeShortName recovers the public short name from the cleaned route alias,
// which carries the numeric code in a parenthesized suffix.
func routeShortName(alias string) string {
	if i := strings.Index(alias, " ("); i > 0 {
		return alias[:i]
	}
	return alias
}

func observedKey(row map[string]interface{}) matchKey {
	return matchKey{
		date:  store.Time(row, "date").Unix(),
		route: routeShortName(store.String(row, "routea")),
		dir:   store.Int64(row, "dir"),
		trip:  store.Int64(row, "trip"),
		seq:   store.Int64(row, "seq"),
	}
}

// joinMonth emits one row per scheduled trip-stop per operating date of the
// month, attaching observations, then appends the observations that matched
// nothing.
func (j *Joiner) joinMonth(month time.Time, observed []map[string]interface{},
	scheduled []scheduledStop) []map[string]interface{} {

	index := make(map[matchKey]map[string]interface{}, len(observed))
	for _, row := range observed {
		index[observedKey(row)] = row
	}
	used := make(map[matchKey]bool, len(observed))

	var rows []map[string]interface{}
	for date := month; date.Month() == month.Month(); date = date.AddDate(0, 0, 1) {
		class := int64(servicetime.DayOfWeekClass(date))
		for i := range scheduled {
			sched := &scheduled[i]
			if sched.dow != class || date.Before(sched.start) || date.After(sched.end) {
				continue
			}
			key := matchKey{
				date:  date.Unix(),
				route: sched.route,
				dir:   sched.dir,
				trip:  sched.tripHHMM,
				seq:   sched.seq,
			}
			obs := index[key]
			if obs != nil {
				used[key] = true
			}
			rows = append(rows, joinedRow(month, date, sched, obs))
		}
	}

	for _, row := range observed {
		if !used[observedKey(row)] {
			rows = append(rows, extraRow(month, row))
		}
	}
	return rows
}

func minutesAfter(date time.Time, minutes float64) time.Time {
	return date.Add(time.Duration(minutes * float64(time.Minute)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// joinedRow builds one expanded row for a scheduled trip-stop on one date.
// obs is nil when no observation matched.
func joinedRow(month, date time.Time, sched *scheduledStop, obs map[string]interface{}) map[string]interface{} {
	arrivalSched := minutesAfter(date, sched.arrival)
	departureSched := minutesAfter(date, sched.departure)

	row := map[string]interface{}{
		"month":           month,
		"date":            date,
		"dow":             sched.dow,
		"tod":             int64(servicetime.TimeOfDayBucket(int(sched.tripHHMM))),
		"agency":          sched.agency,
		"route":           sched.route,
		"pattcode":        "",
		"dir":             sched.dir,
		"trip":            sched.tripHHMM,
		"seq":             sched.seq,
		"qstop":           sched.stopID,
		"stopname":        sched.stopName,
		"observed":        int64(0),
		"extra":           int64(0),
		"arrival_sched":   arrivalSched,
		"departure_sched": departureSched,
		"timestop":        nil,
		"doorclose":       nil,
		"arrival_dev":     nil,
		"departure_dev":   nil,
		"ons":             nil,
		"offs":            nil,
		"load_arr":        nil,
		"load_dep":        nil,
		"passmiles":       nil,
		"passhours":       nil,
		"dwell":           nil,
		"dwell_s":         sched.dwell,
		"runtime":         nil,
		"runtime_s":       sched.runtime,
		"servmiles":       sched.servMiles,
		"vehmiles":        nil,
		"recovery":        nil,
		"recovery_s":      nil,
		"pulldwell":       nil,
		"rdbrdngs":        nil,
		"capacity":        nil,
		"doorcycles":      nil,
		"wheelchair":      nil,
		"bikerack":        nil,
		"headway":         nil,
		"headway_s":       floatOrNil(sched.headway),
		"fare":            sched.fare,
		"ontime2":         nil,
		"ontime10":        nil,
	}
	if obs == nil {
		return row
	}

	arrival := store.Time(obs, "timestop")
	departure := store.Time(obs, "doorclose")
	row["observed"] = int64(1)
	row["pattcode"] = store.String(obs, "pattcode")
	row["qstop"] = store.Int64(obs, "qstop")
	row["timestop"] = arrival
	row["doorclose"] = departure
	row["arrival_dev"] = round2(arrival.Sub(arrivalSched).Minutes())
	row["departure_dev"] = round2(departure.Sub(departureSched).Minutes())
	row["ons"] = store.Float64(obs, "ons")
	row["offs"] = store.Float64(obs, "offs")
	row["load_arr"] = store.Float64(obs, "load_arr")
	row["load_dep"] = store.Float64(obs, "load_dep")
	row["passmiles"] = store.Float64(obs, "passmiles")
	row["passhours"] = store.Float64(obs, "passhours")
	row["dwell"] = store.Float64(obs, "dwell")
	if !store.IsNull(obs, "runtime") {
		row["runtime"] = store.Float64(obs, "runtime")
	}
	row["vehmiles"] = store.Float64(obs, "vehmiles")
	row["recovery"] = store.Float64(obs, "recovery")
	row["recovery_s"] = store.Float64(obs, "recovery_s")
	row["pulldwell"] = store.Float64(obs, "pulldwell")
	row["rdbrdngs"] = store.Float64(obs, "rdbrdngs")
	row["capacity"] = store.Float64(obs, "capacity")
	row["doorcycles"] = store.Float64(obs, "doorcycles")
	row["wheelchair"] = store.Float64(obs, "wheelchair")
	row["bikerack"] = store.Float64(obs, "bikerack")
	row["headway"] = store.Float64(obs, "headway")
	if !store.IsNull(obs, "ontime2") {
		row["ontime2"] = store.Float64(obs, "ontime2")
	}
	if !store.IsNull(obs, "ontime10") {
		row["ontime10"] = store.Float64(obs, "ontime10")
	}
	return row
}

// extraRow builds one expanded row for an observation the schedule never
// predicted, carrying the observation's own identity fields.
func extraRow(month time.Time, obs map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"month":           month,
		"date":            store.Time(obs, "date"),
		"dow":             store.Int64(obs, "dow"),
		"tod":             store.Int64(obs, "tod"),
		"agency":          "",
		"route":           routeShortName(store.String(obs, "routea")),
		"pattcode":        store.String(obs, "pattcode"),
		"dir":             store.Int64(obs, "dir"),
		"trip":            store.Int64(obs, "trip"),
		"seq":             store.Int64(obs, "seq"),
		"qstop":           store.Int64(obs, "qstop"),
		"stopname":        store.String(obs, "stopname"),
		"observed":        int64(1),
		"extra":           int64(1),
		"arrival_sched":   nil,
		"departure_sched": nil,
		"timestop":        store.Time(obs, "timestop"),
		"doorclose":       store.Time(obs, "doorclose"),
		"arrival_dev":     nil,
		"departure_dev":   nil,
		"ons":             store.Float64(obs, "ons"),
		"offs":            store.Float64(obs, "offs"),
		"load_arr":        store.Float64(obs, "load_arr"),
		"load_dep":        store.Float64(obs, "load_dep"),
		"passmiles":       store.Float64(obs, "passmiles"),
		"passhours":       store.Float64(obs, "passhours"),
		"dwell":           store.Float64(obs, "dwell"),
		"dwell_s":         nil,
		"runtime":         floatColumnOrNil(obs, "runtime"),
		"runtime_s":       nil,
		"servmiles":       nil,
		"vehmiles":        store.Float64(obs, "vehmiles"),
		"recovery":        store.Float64(obs, "recovery"),
		"recovery_s":      store.Float64(obs, "recovery_s"),
		"pulldwell":       store.Float64(obs, "pulldwell"),
		"rdbrdngs":        store.Float64(obs, "rdbrdngs"),
		"capacity":        store.Float64(obs, "capacity"),
		"doorcycles":      store.Float64(obs, "doorcycles"),
		"wheelchair":      store.Float64(obs, "wheelchair"),
		"bikerack":        store.Float64(obs, "bikerack"),
		"headway":         store.Float64(obs, "headway"),
		"headway_s":       nil,
		"fare":            nil,
		"ontime2":         floatColumnOrNil(obs, "ontime2"),
		"ontime10":        floatColumnOrNil(obs, "ontime10"),
	}
}

func floatOrNil(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func floatColumnOrNil(row map[string]interface{}, name string) interface{} {
	if store.IsNull(row, name) {
		return nil
	}
	return store.Float64(row, name)
}
