// Package rollup aggregates the expanded trip-stop table into performance
// summary tables at trip, route-stop, route, stop and system level. Levels
// are described as data: a grouping key plus reducer bindings over named
// measure columns, applied month by month.
package rollup

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sfcta/transit-wrangler/business/data/store"
)

// op is one reduction applied to a measure column within a group.
type op int

const (
	opFirst op = iota
	opCount
	opCountDistinct
	opSum
	opMean
	opMeanStd
)

// binding maps one input column to one output column through a reducer.
// opMeanStd writes a second column named out+"_std". opCount ignores in.
type binding struct {
	out string
	in  string
	op  op
}

func first(out string) binding { return binding{out: out, in: out, op: opFirst} }
func count(out string) binding { return binding{out: out, op: opCount} }

func sum(out, in string) binding  { return binding{out: out, in: in, op: opSum} }
func mean(out, in string) binding { return binding{out: out, in: in, op: opMean} }

func countDistinct(out, in string) binding {
	return binding{out: out, in: in, op: opCountDistinct}
}

func meanStd(out, in string) binding { return binding{out: out, in: in, op: opMeanStd} }

func sums(names ...string) []binding {
	bindings := make([]binding, len(names))
	for i, name := range names {
		bindings[i] = sum(name, name)
	}
	return bindings
}

func means(names ...string) []binding {
	bindings := make([]binding, len(names))
	for i, name := range names {
		bindings[i] = mean(name, name)
	}
	return bindings
}

func meanStds(names ...string) []binding {
	bindings := make([]binding, len(names))
	for i, name := range names {
		bindings[i] = meanStd(name, name)
	}
	return bindings
}

// keyKinds declares the persisted type of every column that can appear in a
// grouping key or a first-valued identity column.
var keyKinds = map[string]store.Field{
	"dow":      {Name: "dow", Kind: store.KindInt},
	"tod":      {Name: "tod", Kind: store.KindInt},
	"dir":      {Name: "dir", Kind: store.KindInt},
	"trip":     {Name: "trip", Kind: store.KindInt},
	"seq":      {Name: "seq", Kind: store.KindInt},
	"qstop":    {Name: "qstop", Kind: store.KindInt},
	"route":    {Name: "route", Kind: store.KindString, Width: 16},
	"pattcode": {Name: "pattcode", Kind: store.KindString, Width: 10},
	"stopname": {Name: "stopname", Kind: store.KindString, Width: 64},
}

// levelSpec describes one aggregation level: the table it reads, the table it
// writes, its grouping key and the reductions over its measures. With
// splitTOD set the time-of-day band leads the key.
type levelSpec struct {
	table    string
	source   string
	key      []string
	splitTOD bool
	bindings []binding
}

func (s levelSpec) keyColumns() []string {
	if !s.splitTOD {
		return s.key
	}
	return append([]string{"tod"}, s.key...)
}

// schema builds the output table layout: the month, the key columns with
// their declared kinds, then one float column per reduction.
func (s levelSpec) schema() store.Schema {
	schema := store.Schema{{Name: "month", Kind: store.KindTime}}
	for _, name := range s.keyColumns() {
		field, known := keyKinds[name]
		if !known {
			field = store.Field{Name: name, Kind: store.KindFloat}
		}
		schema = append(schema, field)
	}
	for _, b := range s.bindings {
		if b.op == opFirst {
			if field, known := keyKinds[b.out]; known {
				schema = append(schema, field)
				continue
			}
		}
		schema = append(schema, store.Field{Name: b.out, Kind: store.KindFloat})
		if b.op == opMeanStd {
			schema = append(schema, store.Field{Name: b.out + "_std", Kind: store.KindFloat})
		}
	}
	return schema
}

// keyValue normalizes one key column of a scanned row to its declared type.
func keyValue(row map[string]interface{}, name string) interface{} {
	field, known := keyKinds[name]
	if known && field.Kind == store.KindString {
		return store.String(row, name)
	}
	return store.Int64(row, name)
}

// reduce groups one month's rows by the level's key and applies its bindings,
// producing one output row per group in first-seen order.
func reduce(spec levelSpec, month time.Time, rows []map[string]interface{}) []map[string]interface{} {
	keyColumns := spec.keyColumns()

	var order []string
	groups := make(map[string][]map[string]interface{})
	for _, row := range rows {
		parts := make([]string, len(keyColumns))
		for i, name := range keyColumns {
			parts[i] = fmt.Sprintf("%v", keyValue(row, name))
		}
		key := strings.Join(parts, "\x1f")
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	results := make([]map[string]interface{}, 0, len(order))
	for _, key := range order {
		group := groups[key]
		out := map[string]interface{}{"month": month}
		for _, name := range keyColumns {
			out[name] = keyValue(group[0], name)
		}
		for _, b := range spec.bindings {
			applyBinding(out, b, group)
		}
		results = append(results, out)
	}
	return results
}

func applyBinding(out map[string]interface{}, b binding, group []map[string]interface{}) {
	switch b.op {
	case opFirst:
		out[b.out] = firstValue(group, b.in)
	case opCount:
		out[b.out] = float64(len(group))
	case opCountDistinct:
		out[b.out] = distinctCount(group, b.in)
	case opSum:
		total, _ := sumColumn(group, b.in)
		out[b.out] = total
	case opMean:
		out[b.out] = meanColumn(group, b.in)
	case opMeanStd:
		out[b.out] = meanColumn(group, b.in)
		out[b.out+"_std"] = stdColumn(group, b.in)
	}
}

func firstValue(group []map[string]interface{}, name string) interface{} {
	for _, row := range group {
		if !store.IsNull(row, name) {
			return keyValue(row, name)
		}
	}
	return nil
}

func distinctCount(group []map[string]interface{}, name string) float64 {
	seen := make(map[interface{}]bool)
	for _, row := range group {
		if store.IsNull(row, name) {
			continue
		}
		value := row[name]
		if t, ok := value.(time.Time); ok {
			value = t.Unix()
		}
		seen[value] = true
	}
	return float64(len(seen))
}

// sumColumn totals the non-null values of a column, also returning how many
// contributed. Groups with no values total to zero, matching a sum over an
// empty series.
func sumColumn(group []map[string]interface{}, name string) (float64, int) {
	total := 0.0
	n := 0
	for _, row := range group {
		if store.IsNull(row, name) {
			continue
		}
		total += store.Float64(row, name)
		n++
	}
	return total, n
}

// meanColumn averages the non-null values of a column, nil when none exist.
func meanColumn(group []map[string]interface{}, name string) interface{} {
	total, n := sumColumn(group, name)
	if n == 0 {
		return nil
	}
	return total / float64(n)
}

// stdColumn computes the sample standard deviation of the non-null values of
// a column, nil when fewer than two exist.
func stdColumn(group []map[string]interface{}, name string) interface{} {
	total, n := sumColumn(group, name)
	if n < 2 {
		return nil
	}
	avg := total / float64(n)
	sumSquares := 0.0
	for _, row := range group {
		if store.IsNull(row, name) {
			continue
		}
		d := store.Float64(row, name) - avg
		sumSquares += d * d
	}
	return math.Sqrt(sumSquares / float64(n-1))
}
