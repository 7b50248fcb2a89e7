// Package apc reads the agency's raw fixed-width APC/AVL stop files, filters
// out malformed and non-revenue rows, derives the computed performance
// fields, and appends the cleaned records to the store.
package apc

import (
	"fmt"
	"io"
	"log"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/sfcta/transit-wrangler/business/data/store"
	"github.com/sfcta/transit-wrangler/business/servicetime"
)

// defaultCountQCThreshold is the maximum acceptable count quality code.
const defaultCountQCThreshold = 20

// Cleaner turns raw STP files into cleaned trip-stop records.
type Cleaner struct {
	log              *log.Logger
	store            *store.Store
	CountQCThreshold int64
	ChunkRows        int
}

// NewCleaner creates a Cleaner with the default quality threshold and chunk size.
func NewCleaner(log *log.Logger, st *store.Store) *Cleaner {
	return &Cleaner{
		log:              log,
		store:            st,
		CountQCThreshold: defaultCountQCThreshold,
		ChunkRows:        defaultChunkRows,
	}
}

var rdBoardingsCol = mustColumn("RDBRDNGS")
var nextTripCol = mustColumn("NEXTTRIP")

func mustColumn(name string) rawColumn {
	for _, col := range rawLayout {
		if col.name == name {
			return col
		}
	}
	panic("unknown raw column " + name)
}

// misaligned reports whether a raw line shows the column misalignment
// symptoms: a four-digit rear-door-boardings value pushes the remaining
// columns sideways, which also corrupts the next-trip field.
func misaligned(line string) bool {
	rd := fieldText(line, rdBoardingsCol)
	if rd != "" {
		v, err := strconv.ParseInt(rd, 10, 64)
		if err != nil || v >= 1000 {
			return true
		}
	}
	nt := fieldText(line, nextTripCol)
	v, err := strconv.ParseInt(nt, 10, 64)
	if err != nil || v == 999 {
		return true
	}
	return false
}

// ProcessFile cleans one raw file chunk-by-chunk, appending each cleaned
// chunk to the store in read order. Returns rows read and rows kept.
func (c *Cleaner) ProcessFile(r io.Reader, filename string) (int, int, error) {
	reader := newChunkReader(r, c.ChunkRows)
	rowsRead := 0
	rowsKept := 0
	for {
		lines, lineNumbers, err := reader.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rowsRead, rowsKept, fmt.Errorf("reading %s: %w", filename, err)
		}
		rowsRead += len(lines)

		cleaned, err := c.cleanChunk(lines, lineNumbers)
		if err != nil {
			return rowsRead, rowsKept, fmt.Errorf("cleaning %s: %w", filename, err)
		}

		rows := make([]map[string]interface{}, len(cleaned))
		for i, ts := range cleaned {
			rows[i] = ts.Row()
		}
		if err = c.store.Append(TableName, Schema, rows); err != nil {
			return rowsRead, rowsKept, err
		}
		rowsKept += len(cleaned)
		c.log.Printf("apc: %s read %d rows, kept %d", filename, rowsRead, rowsKept)
	}
	return rowsRead, rowsKept, nil
}

// cleanChunk applies the filter sequence and derives the computed fields for
// one chunk of raw lines.
func (c *Cleaner) cleanChunk(lines []string, lineNumbers []int) ([]*CleanedTripStop, error) {
	var cleaned []*CleanedTripStop
	for i, line := range lines {
		// misalignment symptoms are filtered, not errored
		if misaligned(line) {
			continue
		}

		// a coercion failure past this point means the layout no longer
		// matches the input, which is not recoverable row by row
		row, err := parseRawRow(line, lineNumbers[i])
		if err != nil {
			return nil, err
		}

		// revenue directions only
		if row.intAt("DIR") >= 2 {
			continue
		}
		if row.intAt("QC201") > c.CountQCThreshold {
			continue
		}
		if row.intAt("ROUTE") <= 0 || row.intAt("QSTOP") >= 9999 {
			continue
		}

		cleaned = append(cleaned, buildTripStop(row))
	}
	return dedupeAndSort(cleaned), nil
}

// serviceDate decodes the raw MMDDYY date integer.
func serviceDate(dateInt int64) time.Time {
	month := int(dateInt / 10000)
	day := int((dateInt / 100) % 100)
	year := 2000 + int(dateInt%100)
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// observedTime decodes an HHMMSS clock against the service date. Clocks
// before 3am and clocks encoded past 24 hours both land on the next calendar
// day, never twice.
func observedTime(date time.Time, v int) time.Time {
	t := servicetime.FromHHMMSS(date, v)
	if v < 240000 {
		t = servicetime.ShiftServiceDay(t)
	}
	return t
}

// scheduledTime is observedTime for the HHMM schedule encoding.
func scheduledTime(date time.Time, v int) time.Time {
	t := servicetime.FromHHMM(date, v)
	if v < 2400 {
		t = servicetime.ShiftServiceDay(t)
	}
	return t
}

// buildTripStop derives every computed field for one kept raw row.
func buildTripStop(row *rawRow) *CleanedTripStop {
	date := serviceDate(row.intAt("DATE_INT"))

	ts := CleanedTripStop{
		Date:          date,
		Month:         servicetime.MonthOf(date),
		DOW:           row.intAt("DOW"),
		Route:         row.intAt("ROUTE"),
		PattCode:      row.strAt("PATTCODE"),
		Dir:           row.intAt("DIR"),
		Trip:          row.intAt("TRIP"),
		Seq:           row.intAt("SEQ"),
		VehNo:         row.intAt("VEHNO"),
		School:        row.intAt("SCHOOL"),
		LastTrip:      row.intAt("LASTTRIP"),
		NextTrip:      row.intAt("NEXTTRIP"),
		QStop:         row.intAt("QSTOP"),
		StopName:      row.strAt("STOPNAME"),
		Lat:           row.floatAt("LAT"),
		Lon:           -1 * row.floatAt("LON"),
		NS:            row.strAt("NS"),
		EW:            row.strAt("EW"),
		MaxVel:        row.floatAt("MAXVEL"),
		Miles:         row.floatAt("MILES"),
		GPSMiles:      row.floatAt("GODOM"),
		VehMiles:      row.floatAt("VEHMILES"),
		On:            row.intAt("ON"),
		Off:           row.intAt("OFF"),
		LoadDep:       row.intAt("LOAD_DEP"),
		PassMiles:     row.floatAt("PASSMILES"),
		PassHours:     row.floatAt("PASSHOURS"),
		RearBoards:    row.intAt("RDBRDNGS"),
		LoadCode:      row.intAt("LOADCODE"),
		Capacity:      row.intAt("CAPACITY"),
		DoorCycles:    row.intAt("DOORCYCLES"),
		Wheelchair:    row.intAt("WHEELCHAIR"),
		BikeRack:      row.intAt("BIKERACK"),
		Dwell:         row.floatAt("DWELL"),
		DwellSched:    float64(row.intAt("DWELL_S")),
		Recovery:      row.floatAt("RECOVERY"),
		RecoverySched: row.floatAt("RECOVERY_S"),
		DeltaMinutes:  row.floatAt("DLPMIN"),
		QC104:         row.intAt("QC104"),
		QC201:         row.intAt("QC201"),
		AQC:           row.intAt("AQC"),
		DwellDist:     row.floatAt("DWDI"),
		DeltaArr:      row.intAt("DELTAA"),
		DeltaDep:      row.intAt("DELTAD"),
		Delta:         row.intAt("DELTA"),
	}

	if ts.DOW < servicetime.Weekday || ts.DOW > servicetime.Sunday {
		ts.DOW = int64(servicetime.DayOfWeekClass(date))
	}

	ts.LoadArr = ts.LoadDep - ts.On + ts.Off
	ts.TOD = int64(servicetime.TimeOfDayBucket(int(ts.Trip)))

	if alias, found := routeAlias[ts.Route]; found {
		ts.RouteAlias = alias
	} else {
		ts.RouteAlias = strconv.FormatInt(ts.Route, 10)
	}

	if containsEOLMarker(ts.StopName) {
		ts.EOL = 1
	}
	// dwell is meaningless at the first stop and at the end of the line
	if ts.EOL == 1 || ts.Seq == 1 {
		ts.Dwell = 0
	}

	ts.Arrival = observedTime(date, int(row.intAt("TIMESTOP_INT")))
	ts.Departure = observedTime(date, int(row.intAt("DOORCLOSE_INT")))
	ts.Pullout = observedTime(date, int(row.intAt("PULLOUT_INT")))

	// schedule fields exist only at timepoints
	if row.intAt("TIMESTOP_S_INT") < 9999 {
		ts.Timepoint = 1

		arrivalSched := scheduledTime(date, int(row.intAt("TIMESTOP_S_INT")))
		departureSched := scheduledTime(date, int(row.intAt("DOORCLOSE_S_INT")))
		arrivalDev := row.floatAt("TIMESTOP_DEV")
		departureDev := row.floatAt("DOORCLOSE_DEV")
		runtime := row.floatAt("RUNTIME")
		runtimeSched := row.floatAt("RUNTIME_S")

		ts.ArrivalSched = &arrivalSched
		ts.DepartureSched = &departureSched
		ts.ArrivalDev = &arrivalDev
		ts.DepartureDev = &departureDev
		ts.Runtime = &runtime
		ts.RuntimeSched = &runtimeSched

		onTime2 := 0.0
		if arrivalDev < 2.0 {
			onTime2 = 1.0
		}
		onTime10 := 0.0
		if arrivalDev < 10.0 {
			onTime10 = 1.0
		}
		ts.OnTime2 = &onTime2
		ts.OnTime10 = &onTime10
	}

	ts.Headway = headwayMinutes(ts.Trip, ts.LastTrip, ts.NextTrip)

	// pullout dwell is the interval between door close and movement,
	// excluding the end of the line
	if ts.EOL == 0 {
		minutes := ts.Pullout.Sub(ts.Departure).Minutes()
		for minutes < 0 {
			minutes += 24 * 60
		}
		ts.PullDwell = round2(minutes)
	}

	return &ts
}

func containsEOLMarker(stopName string) bool {
	for i := 0; i+5 <= len(stopName); i++ {
		if stopName[i:i+5] == "- EOL" {
			return true
		}
	}
	return false
}

// headwayMinutes differences the HHMM trip codes of adjacent trips on the
// same route and direction. The gap to the previous trip is preferred; when
// there is no previous trip the gap to the next trip stands in for it.
func headwayMinutes(trip, lastTrip, nextTrip int64) float64 {
	tripMinutes := servicetime.TripMinutes(int(trip))
	if lastTrip < 9999 {
		return round2(tripMinutes - servicetime.TripMinutes(int(lastTrip)))
	}
	return round2(servicetime.TripMinutes(int(nextTrip)) - tripMinutes)
}

type tripStopKey struct {
	date     int64
	route    int64
	pattCode string
	dir      int64
	trip     int64
	seq      int64
}

func keyOf(ts *CleanedTripStop) tripStopKey {
	return tripStopKey{
		date:     ts.Date.Unix(),
		route:    ts.Route,
		pattCode: ts.PattCode,
		dir:      ts.Dir,
		trip:     ts.Trip,
		seq:      ts.Seq,
	}
}

// dedupeAndSort drops records sharing an identity key and orders the
// remainder by that key.
func dedupeAndSort(records []*CleanedTripStop) []*CleanedTripStop {
	seen := make(map[tripStopKey]bool, len(records))
	unique := make([]*CleanedTripStop, 0, len(records))
	for _, ts := range records {
		key := keyOf(ts)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, ts)
	}
	sort.Slice(unique, func(i, j int) bool {
		a, b := keyOf(unique[i]), keyOf(unique[j])
		if a.date != b.date {
			return a.date < b.date
		}
		if a.route != b.route {
			return a.route < b.route
		}
		if a.pattCode != b.pattCode {
			return a.pattCode < b.pattCode
		}
		if a.dir != b.dir {
			return a.dir < b.dir
		}
		if a.trip != b.trip {
			return a.trip < b.trip
		}
		return a.seq < b.seq
	})
	return unique
}
