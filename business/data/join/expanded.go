package join

import "github.com/sfcta/transit-wrangler/business/data/store"

// TableName is the store table the joiner appends to.
const TableName = "expanded_trip_stops"

// Schema is the persisted layout of joined trip-stop records. One row exists
// for every scheduled trip-stop on every operating date, plus one for every
// observation that matched no schedule. Observation measures are null on
// unobserved rows so downstream averages skip them.
var Schema = store.Schema{
	{Name: "month", Kind: store.KindTime},
	{Name: "date", Kind: store.KindTime},
	{Name: "dow", Kind: store.KindInt},
	{Name: "tod", Kind: store.KindInt},
	{Name: "agency", Kind: store.KindString, Width: 16},
	{Name: "route", Kind: store.KindString, Width: 16},
	{Name: "pattcode", Kind: store.KindString, Width: 10},
	{Name: "dir", Kind: store.KindInt},
	{Name: "trip", Kind: store.KindInt},
	{Name: "seq", Kind: store.KindInt},
	{Name: "qstop", Kind: store.KindInt},
	{Name: "stopname", Kind: store.KindString, Width: 64},
	{Name: "observed", Kind: store.KindInt},
	{Name: "extra", Kind: store.KindInt},
	{Name: "arrival_sched", Kind: store.KindTime},
	{Name: "departure_sched", Kind: store.KindTime},
	{Name: "timestop", Kind: store.KindTime},
	{Name: "doorclose", Kind: store.KindTime},
	{Name: "arrival_dev", Kind: store.KindFloat},
	{Name: "departure_dev", Kind: store.KindFloat},
	{Name: "ons", Kind: store.KindFloat},
	{Name: "offs", Kind: store.KindFloat},
	{Name: "load_arr", Kind: store.KindFloat},
	{Name: "load_dep", Kind: store.KindFloat},
	{Name: "passmiles", Kind: store.KindFloat},
	{Name: "passhours", Kind: store.KindFloat},
	{Name: "dwell", Kind: store.KindFloat},
	{Name: "dwell_s", Kind: store.KindFloat},
	{Name: "runtime", Kind: store.KindFloat},
	{Name: "runtime_s", Kind: store.KindFloat},
	{Name: "servmiles", Kind: store.KindFloat},
	{Name: "vehmiles", Kind: store.KindFloat},
	{Name: "recovery", Kind: store.KindFloat},
	{Name: "recovery_s", Kind: store.KindFloat},
	{Name: "pulldwell", Kind: store.KindFloat},
	{Name: "rdbrdngs", Kind: store.KindFloat},
	{Name: "capacity", Kind: store.KindFloat},
	{Name: "doorcycles", Kind: store.KindFloat},
	{Name: "wheelchair", Kind: store.KindFloat},
	{Name: "bikerack", Kind: store.KindFloat},
	{Name: "headway", Kind: store.KindFloat},
	{Name: "headway_s", Kind: store.KindFloat},
	{Name: "fare", Kind: store.KindFloat},
	{Name: "ontime2", Kind: store.KindFloat},
	{Name: "ontime10", Kind: store.KindFloat},
}
