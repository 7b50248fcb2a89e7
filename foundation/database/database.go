// Package database provides support for access the database.
package database

import (
	"fmt"
	"net/url"

	_ "github.com/jackc/pgx/stdlib"
	"github.com/jmoiron/sqlx"
)

// Config is the required properties to use the database.
type Config struct {
	User       string
	Password   string
	Host       string
	Name       string
	DisableTLS bool
}

// Open knows how to open a database connection based on the configuration.
func Open(cfg Config) (*sqlx.DB, error) {
	sslMode := "require"
	if cfg.DisableTLS {
		sslMode = "disable"
	}

	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host,
		Path:     cfg.Name,
		RawQuery: q.Encode(),
	}
	return sqlx.Connect("pgx", u.String())
}

// PrepareNamedQueryFromMap wraps boilerplate sqlx to prepare named query from map of ddl parameters
// returns rebound query string and arguments slice
func PrepareNamedQueryFromMap(
	statementString string,
	db *sqlx.DB,
	sqlArgMap map[string]interface{}) (string, []interface{}, error) {

	query, args, err := sqlx.Named(statementString, sqlArgMap)
	if err != nil {
		return query, nil, err
	}
	query, args, err = sqlx.In(query, args...)
	if err != nil {
		return query, nil, err
	}
	query = db.Rebind(query)
	return query, args, nil
}

// PrepareNamedQueryRowsFromMap wraps boilerplate sqlx to prepare named query from map of ddl parameters
// returns sqlx.Rows after executing query with db.Queryx
func PrepareNamedQueryRowsFromMap(
	statementString string,
	db *sqlx.DB,
	sqlArgMap map[string]interface{}) (*sqlx.Rows, error) {

	query, args, err := PrepareNamedQueryFromMap(statementString, db, sqlArgMap)
	if err != nil {
		return nil, err
	}
	rows, err := db.Queryx(query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// TableExists reports whether a table is present in the public schema.
func TableExists(db *sqlx.DB, table string) (bool, error) {
	query := "select count(*) from information_schema.tables " +
		"where table_schema = 'public' and table_name = $1"
	var count int
	err := db.Get(&count, query, table)
	if err != nil {
		return false, fmt.Errorf("unable to check for table %s: %w", table, err)
	}
	return count > 0, nil
}

// ColumnType describes one persisted column, used for schema mismatch diagnostics.
type ColumnType struct {
	ColumnName string `db:"column_name"`
	DataType   string `db:"data_type"`
}

// ColumnTypes retrieves the persisted column names and types for a table in
// ordinal order.
func ColumnTypes(db *sqlx.DB, table string) ([]ColumnType, error) {
	query := "select column_name, data_type from information_schema.columns " +
		"where table_schema = 'public' and table_name = $1 order by ordinal_position"
	var results []ColumnType
	err := db.Select(&results, query, table)
	if err != nil {
		return nil, fmt.Errorf("unable to read column types for table %s: %w", table, err)
	}
	return results, nil
}
