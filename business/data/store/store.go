// Package store provides append-only columnar tables over postgres with
// explicit per-field schemas, month-predicate selection and schema mismatch
// diagnostics.
package store

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sfcta/transit-wrangler/foundation/database"
)

// Kind is the semantic type of a persisted field.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	}
	return "unknown"
}

// sqlType maps a Kind to its postgres column type. String fields carry an
// explicit maximum width so appends with differing widths share one schema.
func (f Field) sqlType() string {
	switch f.Kind {
	case KindInt:
		return "bigint"
	case KindFloat:
		return "double precision"
	case KindString:
		width := f.Width
		if width <= 0 {
			width = 32
		}
		return fmt.Sprintf("varchar(%d)", width)
	case KindTime:
		return "timestamptz"
	}
	return "text"
}

// Field names one column, its kind, and for strings the maximum width.
type Field struct {
	Name  string
	Kind  Kind
	Width int
}

// Schema is the ordered field list for one table.
type Schema []Field

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

func (s Schema) createStatement(table string) string {
	defs := make([]string, len(s))
	for i, f := range s {
		defs[i] = f.Name + " " + f.sqlType()
	}
	return fmt.Sprintf("create table if not exists %s (%s)", table, strings.Join(defs, ", "))
}

func (s Schema) insertStatement(table string) string {
	names := s.Names()
	params := make([]string, len(names))
	for i, name := range names {
		params[i] = ":" + name
	}
	return fmt.Sprintf("insert into %s (%s) values (%s)",
		table, strings.Join(names, ", "), strings.Join(params, ", "))
}

// appendBatchSize is the number of rows inserted per statement.
const appendBatchSize = 500

// Store is a set of named append-only tables in one database.
type Store struct {
	log *log.Logger
	db  *sqlx.DB
}

// NewStore creates a Store over an open database.
func NewStore(log *log.Logger, db *sqlx.DB) *Store {
	return &Store{log: log, db: db}
}

// EnsureTable creates the table for schema if it does not exist.
func (s *Store) EnsureTable(table string, schema Schema) error {
	_, err := s.db.Exec(schema.createStatement(table))
	if err != nil {
		return fmt.Errorf("unable to create table %s: %w", table, err)
	}
	return nil
}

// RemoveIfExists drops the table when present. Steps call this before their
// first append so a re-run rebuilds the output from scratch.
func (s *Store) RemoveIfExists(table string) error {
	exists, err := database.TableExists(s.db, table)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	_, err = s.db.Exec("drop table " + table)
	if err != nil {
		return fmt.Errorf("unable to drop table %s: %w", table, err)
	}
	return nil
}

// Append inserts rows in schema column order, in batches. On failure both the
// persisted and the incoming schemas are logged before the error is returned,
// since a silent coercion would corrupt the table's history.
func (s *Store) Append(table string, schema Schema, rows []map[string]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	if err := s.EnsureTable(table, schema); err != nil {
		return err
	}
	statement := s.db.Rebind(schema.insertStatement(table))
	for start := 0; start < len(rows); start += appendBatchSize {
		end := start + appendBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := s.db.NamedExec(statement, rows[start:end]); err != nil {
			s.dumpSchemaMismatch(table, schema)
			return fmt.Errorf("unable to append %d rows to table %s: %w", end-start, table, err)
		}
	}
	return nil
}

// dumpSchemaMismatch logs the persisted column types alongside the schema of
// the incoming batch.
func (s *Store) dumpSchemaMismatch(table string, schema Schema) {
	persisted, err := database.ColumnTypes(s.db, table)
	if err != nil {
		s.log.Printf("store: unable to read persisted schema for %s: %v", table, err)
	} else {
		s.log.Printf("store: persisted schema of table %s:", table)
		for _, col := range persisted {
			s.log.Printf("store:   %s %s", col.ColumnName, col.DataType)
		}
	}
	s.log.Printf("store: incoming schema for table %s:", table)
	for _, f := range schema {
		s.log.Printf("store:   %s %s", f.Name, f.Kind)
	}
}

// SelectMonth retrieves all rows whose month column equals month.
func (s *Store) SelectMonth(table string, month time.Time) ([]map[string]interface{}, error) {
	rows, err := database.PrepareNamedQueryRowsFromMap(
		"select * from "+table+" where month = :month", s.db,
		map[string]interface{}{"month": month})
	if err != nil {
		return nil, fmt.Errorf("unable to select month %v from table %s: %w",
			month.Format("2006-01"), table, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []map[string]interface{}
	for rows.Next() {
		row := map[string]interface{}{}
		if err = rows.MapScan(row); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// SelectAll retrieves every row of a table.
func (s *Store) SelectAll(table string) ([]map[string]interface{}, error) {
	rows, err := s.db.Queryx("select * from " + table)
	if err != nil {
		return nil, fmt.Errorf("unable to select from table %s: %w", table, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []map[string]interface{}
	for rows.Next() {
		row := map[string]interface{}{}
		if err = rows.MapScan(row); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// Months retrieves the distinct month values present in a table, sorted.
func (s *Store) Months(table string) ([]time.Time, error) {
	var months []time.Time
	err := s.db.Select(&months, "select distinct month from "+table+" order by month")
	if err != nil {
		return nil, fmt.Errorf("unable to list months in table %s: %w", table, err)
	}
	return months, nil
}

// Count retrieves the number of rows in a table.
func (s *Store) Count(table string) (int64, error) {
	var count int64
	err := s.db.Get(&count, "select count(*) from "+table)
	if err != nil {
		return 0, fmt.Errorf("unable to count rows in table %s: %w", table, err)
	}
	return count, nil
}
