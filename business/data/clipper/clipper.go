// Package clipper cleans smartcard transaction exports into the store. Each
// row is one tag-on: a card, an agency and route, a boarding location and a
// timestamp. Tags before 3am belong to the previous service date.
package clipper

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/sfcta/transit-wrangler/business/data/store"
	"github.com/sfcta/transit-wrangler/business/servicetime"
)

// TableName is the store table the cleaner appends to.
const TableName = "clipper_transactions"

// Schema is the persisted layout of cleaned smartcard transactions.
var Schema = store.Schema{
	{Name: "month", Kind: store.KindTime},
	{Name: "date", Kind: store.KindTime},
	{Name: "dow", Kind: store.KindInt},
	{Name: "tod", Kind: store.KindInt},
	{Name: "cardid", Kind: store.KindString, Width: 32},
	{Name: "agency", Kind: store.KindString, Width: 16},
	{Name: "route", Kind: store.KindString, Width: 16},
	{Name: "qstop", Kind: store.KindInt},
	{Name: "tagtime", Kind: store.KindTime},
}

// batchRows is how many transactions are appended per store call.
const batchRows = 50000

// Cleaner turns raw transaction exports into cleaned records. Malformed rows
// are dropped and counted rather than failing the file.
type Cleaner struct {
	log   *log.Logger
	store *store.Store
}

// NewCleaner creates a Cleaner appending to the store.
func NewCleaner(log *log.Logger, st *store.Store) *Cleaner {
	return &Cleaner{log: log, store: st}
}

// ProcessFile cleans one export. Returns rows read and rows kept.
func (c *Cleaner) ProcessFile(r io.Reader, filename string) (int, int, error) {
	reader := csv.NewReader(r)
	headers, err := reader.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("unable to read header of %s: %w", filename, err)
	}
	columns, err := requiredColumns(headers)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", filename, err)
	}

	rowsRead := 0
	rowsKept := 0
	dropped := 0
	var batch []map[string]interface{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rowsRead, rowsKept, fmt.Errorf("reading %s: %w", filename, err)
		}
		rowsRead++

		row, ok := c.cleanRecord(record, columns)
		if !ok {
			dropped++
			continue
		}
		batch = append(batch, row)
		if len(batch) >= batchRows {
			if err := c.store.Append(TableName, Schema, batch); err != nil {
				return rowsRead, rowsKept, err
			}
			rowsKept += len(batch)
			batch = batch[:0]
		}
	}
	if err := c.store.Append(TableName, Schema, batch); err != nil {
		return rowsRead, rowsKept, err
	}
	rowsKept += len(batch)

	if dropped > 0 {
		c.log.Printf("clipper: %s dropped %d malformed rows", filename, dropped)
	}
	return rowsRead, rowsKept, nil
}

// columnIndexes holds the positions of the columns the cleaner consumes.
type columnIndexes struct {
	date   int
	time   int
	cardID int
	agency int
	route  int
	stop   int
}

func requiredColumns(headers []string) (columnIndexes, error) {
	find := func(name string) (int, error) {
		for i, h := range headers {
			if h == name {
				return i, nil
			}
		}
		return 0, fmt.Errorf("unable to find header: %s", name)
	}
	var columns columnIndexes
	var err error
	if columns.date, err = find("TagOnDate"); err != nil {
		return columns, err
	}
	if columns.time, err = find("TagOnTime"); err != nil {
		return columns, err
	}
	if columns.cardID, err = find("CardID"); err != nil {
		return columns, err
	}
	if columns.agency, err = find("AgencyID"); err != nil {
		return columns, err
	}
	if columns.route, err = find("RouteCode"); err != nil {
		return columns, err
	}
	if columns.stop, err = find("TagOnLocationID"); err != nil {
		return columns, err
	}
	return columns, nil
}

// cleanRecord derives one cleaned transaction, false when the row is
// malformed.
func (c *Cleaner) cleanRecord(record []string, columns columnIndexes) (map[string]interface{}, bool) {
	if len(record) <= columns.stop {
		return nil, false
	}
	calendarDate, err := time.Parse("2006-01-02", record[columns.date])
	if err != nil {
		return nil, false
	}
	tagTime, err := servicetime.WrapAroundTime(calendarDate, record[columns.time])
	if err != nil {
		return nil, false
	}
	cardID := record[columns.cardID]
	if cardID == "" {
		return nil, false
	}
	stopID, err := strconv.ParseInt(record[columns.stop], 10, 64)
	if err != nil {
		return nil, false
	}

	// a tag before 3am happened on the previous service date
	serviceDate := tagTime.Truncate(24 * time.Hour)
	if tagTime.Hour() < 3 {
		serviceDate = serviceDate.AddDate(0, 0, -1)
	}

	return map[string]interface{}{
		"month":   servicetime.MonthOf(serviceDate),
		"date":    serviceDate,
		"dow":     int64(servicetime.DayOfWeekClass(serviceDate)),
		"tod":     int64(servicetime.TimeOfDayBucket(tagTime.Hour()*100 + tagTime.Minute())),
		"cardid":  cardID,
		"agency":  record[columns.agency],
		"route":   record[columns.route],
		"qstop":   stopID,
		"tagtime": tagTime,
	}, true
}
