package rollup

import (
	"math"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/sfcta/transit-wrangler/business/data/store"
)

var october = time.Date(2013, 10, 1, 0, 0, 0, 0, time.UTC)

func expandedRow(date int, observed int64, ons interface{}) map[string]interface{} {
	return map[string]interface{}{
		"date":          time.Date(2013, 10, date, 0, 0, 0, 0, time.UTC),
		"dow":           int64(1),
		"tod":           int64(600),
		"route":         "14",
		"pattcode":      "P1",
		"dir":           int64(0),
		"trip":          int64(800),
		"seq":           int64(1),
		"qstop":         int64(100),
		"stopname":      "MISSION & 16TH",
		"observed":      observed,
		"ons":           ons,
		"offs":          ons,
		"load_arr":      nil,
		"load_dep":      nil,
		"dwell":         nil,
		"runtime":       nil,
		"headway":       nil,
		"arrival_dev":   nil,
		"departure_dev": nil,
		"ontime2":       nil,
		"ontime10":      nil,
		"passmiles":     nil,
		"passhours":     nil,
		"servmiles":     0.5,
		"vehmiles":      ons,
		"recovery":      ons,
		"recovery_s":    nil,
		"pulldwell":     nil,
		"rdbrdngs":      nil,
		"capacity":      nil,
		"doorcycles":    nil,
		"wheelchair":    nil,
		"bikerack":      nil,
		"dwell_s":       0.0,
		"runtime_s":     2.0,
		"headway_s":     15.0,
		"fare":          2.0,
	}
}

func tripStopSpec() levelSpec {
	return levelSpec{
		table:    "trip_stop_averages",
		key:      []string{"dow", "route", "pattcode", "dir", "trip", "seq"},
		bindings: tripStopBindings(),
	}
}

func TestReduceTripStopAverages(t *testing.T) {
	is := is.New(t)
	rows := []map[string]interface{}{
		expandedRow(2, 1, 10.0),
		expandedRow(3, 1, 20.0),
		expandedRow(4, 0, nil),
	}

	out := reduce(tripStopSpec(), october, rows)
	is.Equal(1, len(out))

	group := out[0]
	is.Equal(october, group["month"])
	is.Equal(int64(1), group["dow"])
	is.Equal("14", group["route"])
	is.Equal(3.0, group["numdays"])  // three distinct dates scheduled
	is.Equal(2.0, group["obstrips"]) // two of them observed
	is.Equal(15.0, group["ons"])     // nulls do not drag the mean down
	std, ok := group["ons_std"].(float64)
	is.True(ok)
	is.True(math.Abs(std-math.Sqrt(50)) < 1e-9)
	is.Equal("MISSION & 16TH", group["stopname"])
	is.Equal(15.0, group["vehmiles"])
	is.Equal(15.0, group["recovery"])
	is.Equal(2.0, group["fare"])
}

func TestReduceSingleValueHasNoStd(t *testing.T) {
	is := is.New(t)
	out := reduce(tripStopSpec(), october, []map[string]interface{}{
		expandedRow(2, 1, 10.0),
		expandedRow(3, 0, nil),
	})
	is.Equal(1, len(out))
	is.Equal(10.0, out[0]["ons"])
	is.True(out[0]["ons_std"] == nil)
}

func TestReduceSplitTODLeadsKey(t *testing.T) {
	is := is.New(t)
	spec := tripStopSpec()
	spec.splitTOD = true

	morning := expandedRow(2, 1, 10.0)
	evening := expandedRow(2, 1, 30.0)
	evening["tod"] = int64(1600)

	out := reduce(spec, october, []map[string]interface{}{morning, evening})
	is.Equal(2, len(out))
	is.Equal(int64(600), out[0]["tod"])
	is.Equal(int64(1600), out[1]["tod"])
	is.Equal("tod", spec.keyColumns()[0])
}

// routeStopRow mimics one row of the trip averages table for a route and seq.
func routeStopRow(route string, seq int64, numdays, obstrips, ons float64) map[string]interface{} {
	return map[string]interface{}{
		"dow":      int64(1),
		"route":    route,
		"pattcode": "P1",
		"dir":      int64(0),
		"trip":     int64(800),
		"seq":      seq,
		"qstop":    seq,
		"stopname": "STOP",
		"numdays":  numdays,
		"obstrips": obstrips,
		"ons":      ons, "offs": ons,
		"load_arr": 10.0, "load_dep": 12.0,
		"dwell": 0.5, "runtime": 2.0, "headway": 15.0,
		"arrival_dev": 1.0, "departure_dev": 1.0,
		"ontime2": 1.0, "ontime10": 1.0,
		"passmiles": 5.0, "passhours": 0.5, "servmiles": 0.5,
		"vehmiles": 2.5, "recovery": 1.0, "recovery_s": 1.5,
		"pulldwell": 0.25, "rdbrdngs": 1.0, "capacity": 60.0,
		"doorcycles": 2.0, "wheelchair": 0.0, "bikerack": 0.0,
		"dwell_s": 0.0, "runtime_s": 2.0, "headway_s": 15.0, "fare": 2.0,
	}
}

func TestReduceBoardingsConserved(t *testing.T) {
	is := is.New(t)

	// two routes, two stops each
	tripAverages := []map[string]interface{}{
		routeStopRow("14", 1, 20, 18, 100),
		routeStopRow("14", 2, 20, 18, 50),
		routeStopRow("9L", 1, 20, 15, 70),
		routeStopRow("9L", 2, 20, 15, 30),
	}

	routeStopSpec := levelSpec{
		key:      []string{"dow", "route", "pattcode", "dir", "seq"},
		bindings: routeStopBindings(),
	}
	routeStops := reduce(routeStopSpec, october, tripAverages)
	is.Equal(4, len(routeStops))

	routeSpec := levelSpec{
		key:      []string{"dow", "route", "dir"},
		bindings: routeBindings(),
	}
	routes := reduce(routeSpec, october, routeStops)
	is.Equal(2, len(routes))

	systemSpec := levelSpec{
		key:      []string{"dow"},
		bindings: systemBindings(),
	}
	system := reduce(systemSpec, october, routes)
	is.Equal(1, len(system))

	// boardings survive every level intact
	is.Equal(250.0, system[0]["ons"])
	routeTotal := 0.0
	for _, row := range routes {
		routeTotal += row["ons"].(float64)
	}
	is.Equal(250.0, routeTotal)

	// observed trips never exceed scheduled trips
	obstrips := system[0]["obstrips"].(float64)
	tottrips := system[0]["tottrips"].(float64)
	is.True(obstrips <= tottrips)
	is.Equal(33.0, obstrips)
	is.Equal(40.0, tottrips)
}

func TestRouteTotalsSumVehicleMilesAndRecovery(t *testing.T) {
	is := is.New(t)
	tripAverages := []map[string]interface{}{
		routeStopRow("14", 1, 20, 18, 100),
		routeStopRow("14", 2, 20, 18, 50),
	}

	routeStops := reduce(levelSpec{
		key:      []string{"dow", "route", "pattcode", "dir", "seq"},
		bindings: routeStopBindings(),
	}, october, tripAverages)
	is.Equal(2, len(routeStops))
	is.Equal(2.5, routeStops[0]["vehmiles"])
	is.Equal(1.0, routeStops[0]["recovery"])

	routes := reduce(levelSpec{
		key:      []string{"dow", "route", "dir"},
		bindings: routeBindings(),
	}, october, routeStops)
	is.Equal(1, len(routes))

	// vehicle miles, recovery and pull dwell add across the route's stops
	is.Equal(5.0, routes[0]["vehmiles"])
	is.Equal(2.0, routes[0]["recovery"])
	is.Equal(3.0, routes[0]["recovery_s"])
	is.Equal(0.5, routes[0]["pulldwell"])
	is.Equal(120.0, routes[0]["capacity"])
}

func TestLevelsOrderAndSources(t *testing.T) {
	is := is.New(t)
	specs := levels()
	is.Equal(10, len(specs))

	byName := map[string]levelSpec{}
	for _, spec := range specs {
		byName[spec.table] = spec
	}

	is.Equal("expanded_trip_stops", byName["trip_stop_averages"].source)
	is.Equal("expanded_trip_stops", byName["trip_stop_averages_tod"].source)
	is.Equal("trip_stop_averages", byName["route_stop_totals"].source)
	is.Equal("trip_stop_averages_tod", byName["route_stop_totals_tod"].source)
	is.Equal("route_totals", byName["system_totals"].source)
	is.Equal("route_totals_tod", byName["system_totals_tod"].source)
	is.True(byName["system_totals_tod"].splitTOD)
	is.True(!byName["system_totals"].splitTOD)
}

func TestLevelSchema(t *testing.T) {
	is := is.New(t)
	spec := tripStopSpec()
	schema := spec.schema()

	is.Equal("month", schema[0].Name)
	is.Equal(store.KindTime, schema[0].Kind)

	fields := map[string]store.Kind{}
	for _, f := range schema {
		fields[f.Name] = f.Kind
	}
	is.Equal(store.KindInt, fields["dow"])
	is.Equal(store.KindString, fields["route"])
	is.Equal(store.KindString, fields["stopname"])
	is.Equal(store.KindFloat, fields["numdays"])
	is.Equal(store.KindFloat, fields["ons"])
	is.Equal(store.KindFloat, fields["ons_std"])
}
