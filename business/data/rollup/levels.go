package rollup

import (
	"fmt"
	"log"

	"github.com/sfcta/transit-wrangler/business/data/join"
	"github.com/sfcta/transit-wrangler/business/data/store"
)

// tripStopBindings reduce the expanded table to one row per scheduled trip
// and stop: observation counts, averaged flows with their spread, and
// averaged rates. Schedule-side constants just carry through their mean.
func tripStopBindings() []binding {
	bindings := []binding{
		first("stopname"),
		first("qstop"),
		countDistinct("numdays", "date"),
		sum("obstrips", "observed"),
	}
	bindings = append(bindings, meanStds(
		"ons", "offs", "load_arr", "load_dep",
		"dwell", "runtime", "headway", "arrival_dev", "departure_dev")...)
	bindings = append(bindings, means(
		"ontime2", "ontime10", "passmiles", "passhours", "servmiles",
		"vehmiles", "recovery", "recovery_s", "pulldwell", "rdbrdngs",
		"capacity", "doorcycles", "wheelchair", "bikerack",
		"dwell_s", "runtime_s", "headway_s", "fare")...)
	return bindings
}

// routeStopBindings reduce trip averages to one row per route and stop:
// trips counted, flows summed across trips, rates averaged.
func routeStopBindings() []binding {
	bindings := []binding{
		first("stopname"),
		first("qstop"),
		count("dailytrips"),
		sum("tottrips", "numdays"),
		sum("obstrips", "obstrips"),
	}
	bindings = append(bindings, sums(
		"ons", "offs", "passmiles", "passhours", "servmiles", "vehmiles",
		"recovery", "recovery_s", "pulldwell", "rdbrdngs", "capacity",
		"doorcycles", "wheelchair", "bikerack")...)
	bindings = append(bindings, means(
		"load_arr", "load_dep", "dwell", "runtime", "headway",
		"arrival_dev", "departure_dev", "ontime2", "ontime10",
		"dwell_s", "runtime_s", "headway_s", "fare")...)
	return bindings
}

// routeBindings collapse the stop dimension. Trip counts repeat on every stop
// of a route so the first value stands for the group.
func routeBindings() []binding {
	bindings := []binding{
		first("dailytrips"),
		first("tottrips"),
		first("obstrips"),
	}
	bindings = append(bindings, sums(
		"ons", "offs", "passmiles", "passhours", "servmiles", "vehmiles",
		"recovery", "recovery_s", "pulldwell", "rdbrdngs", "capacity",
		"doorcycles", "wheelchair", "bikerack")...)
	bindings = append(bindings, means(
		"load_arr", "load_dep", "dwell", "runtime", "headway",
		"arrival_dev", "departure_dev", "ontime2", "ontime10", "fare")...)
	return bindings
}

// stopBindings collapse the route dimension at each stop, so trip counts add
// across the routes serving it.
func stopBindings() []binding {
	bindings := []binding{
		first("stopname"),
	}
	bindings = append(bindings, sums("dailytrips", "tottrips", "obstrips", "ons", "offs")...)
	bindings = append(bindings, means(
		"dwell", "headway", "arrival_dev", "departure_dev", "ontime2", "ontime10")...)
	return bindings
}

// systemBindings collapse everything to one row per service class.
func systemBindings() []binding {
	bindings := sums(
		"dailytrips", "tottrips", "obstrips",
		"ons", "offs", "passmiles", "passhours", "servmiles", "vehmiles",
		"recovery", "recovery_s", "pulldwell", "rdbrdngs", "capacity",
		"doorcycles", "wheelchair", "bikerack")
	bindings = append(bindings, means(
		"load_arr", "load_dep", "dwell", "runtime", "headway",
		"arrival_dev", "departure_dev", "ontime2", "ontime10", "fare")...)
	return bindings
}

// levels lists every aggregation in dependency order: each daily level and
// its time-of-day split variant, feeding the level above.
func levels() []levelSpec {
	specs := []levelSpec{
		{
			table:    "trip_stop_averages",
			source:   join.TableName,
			key:      []string{"dow", "route", "pattcode", "dir", "trip", "seq"},
			bindings: tripStopBindings(),
		},
		{
			table:    "route_stop_totals",
			source:   "trip_stop_averages",
			key:      []string{"dow", "route", "pattcode", "dir", "seq"},
			bindings: routeStopBindings(),
		},
		{
			table:    "route_totals",
			source:   "route_stop_totals",
			key:      []string{"dow", "route", "dir"},
			bindings: routeBindings(),
		},
		{
			table:    "stop_totals",
			source:   "route_stop_totals",
			key:      []string{"dow", "qstop"},
			bindings: stopBindings(),
		},
		{
			table:    "system_totals",
			source:   "route_totals",
			key:      []string{"dow"},
			bindings: systemBindings(),
		},
	}

	split := make([]levelSpec, len(specs))
	for i, spec := range specs {
		split[i] = spec
		split[i].table = spec.table + "_tod"
		split[i].splitTOD = true
		if spec.source != join.TableName {
			split[i].source = spec.source + "_tod"
		}
	}

	ordered := make([]levelSpec, 0, len(specs)*2)
	for i := range specs {
		ordered = append(ordered, specs[i], split[i])
	}
	return ordered
}

// TableNames lists every output table in build order.
func TableNames() []string {
	specs := levels()
	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.table
	}
	return names
}

// Rollup runs every aggregation level over the expanded trip-stop table.
type Rollup struct {
	log   *log.Logger
	store *store.Store
}

// NewRollup creates a Rollup over the store holding the expanded table.
func NewRollup(log *log.Logger, st *store.Store) *Rollup {
	return &Rollup{log: log, store: st}
}

// Run rebuilds every level's table month by month and returns the total rows
// written across all levels.
func (r *Rollup) Run() (int64, error) {
	var total int64
	for _, spec := range levels() {
		written, err := r.runLevel(spec)
		if err != nil {
			return total, fmt.Errorf("aggregating %s: %w", spec.table, err)
		}
		total += written
	}
	return total, nil
}

func (r *Rollup) runLevel(spec levelSpec) (int64, error) {
	if err := r.store.RemoveIfExists(spec.table); err != nil {
		return 0, err
	}
	months, err := r.store.Months(spec.source)
	if err != nil {
		return 0, err
	}

	schema := spec.schema()
	var written int64
	for _, month := range months {
		rows, err := r.store.SelectMonth(spec.source, month)
		if err != nil {
			return written, err
		}
		reduced := reduce(spec, month, rows)
		if err := r.store.Append(spec.table, schema, reduced); err != nil {
			return written, err
		}
		written += int64(len(reduced))
	}
	r.log.Printf("rollup: %s wrote %d rows", spec.table, written)
	return written, nil
}
