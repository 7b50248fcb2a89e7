package store

import (
	"strconv"
	"time"
)

// Readback helpers for rows scanned into maps. The driver hands back int64,
// float64, string, []byte or time.Time depending on the column type; callers
// working on map rows use these instead of repeating type switches.

// Int64 reads an integer column, zero when null or not convertible.
func Int64(row map[string]interface{}, name string) int64 {
	switch v := row[name].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case []byte:
		parsed, _ := strconv.ParseInt(string(v), 10, 64)
		return parsed
	case string:
		parsed, _ := strconv.ParseInt(v, 10, 64)
		return parsed
	}
	return 0
}

// Float64 reads a numeric column, zero when null or not convertible.
func Float64(row map[string]interface{}, name string) float64 {
	switch v := row[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case []byte:
		parsed, _ := strconv.ParseFloat(string(v), 64)
		return parsed
	case string:
		parsed, _ := strconv.ParseFloat(v, 64)
		return parsed
	}
	return 0
}

// FloatPointer reads a nullable numeric column, nil when null.
func FloatPointer(row map[string]interface{}, name string) *float64 {
	if row[name] == nil {
		return nil
	}
	v := Float64(row, name)
	return &v
}

// String reads a text column, empty when null.
func String(row map[string]interface{}, name string) string {
	switch v := row[name].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// Time reads a timestamp column, the zero time when null.
func Time(row map[string]interface{}, name string) time.Time {
	if v, ok := row[name].(time.Time); ok {
		return v
	}
	return time.Time{}
}

// IsNull reports whether a column is null or absent.
func IsNull(row map[string]interface{}, name string) bool {
	return row[name] == nil
}
