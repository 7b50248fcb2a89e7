package clipper

import (
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
)

const header = "TagOnDate,TagOnTime,CardID,AgencyID,RouteCode,TagOnLocationID"

func testCleaner() *Cleaner {
	return NewCleaner(log.New(io.Discard, "", 0), nil)
}

func columns(t *testing.T) columnIndexes {
	is := is.New(t)
	cols, err := requiredColumns(strings.Split(header, ","))
	is.NoErr(err)
	return cols
}

func TestCleanRecord(t *testing.T) {
	is := is.New(t)
	row, ok := testCleaner().cleanRecord(
		[]string{"2013-10-09", "08:15:30", "ab12cd", "SFMTA", "14", "4510"}, columns(t))
	is.True(ok)
	is.Equal(time.Date(2013, 10, 9, 0, 0, 0, 0, time.UTC), row["date"])
	is.Equal(time.Date(2013, 10, 1, 0, 0, 0, 0, time.UTC), row["month"])
	is.Equal(int64(1), row["dow"])
	is.Equal(int64(600), row["tod"])
	is.Equal(time.Date(2013, 10, 9, 8, 15, 30, 0, time.UTC), row["tagtime"])
	is.Equal(int64(4510), row["qstop"])
	is.Equal("ab12cd", row["cardid"])
}

func TestCleanRecordEarlyMorningShiftsBack(t *testing.T) {
	is := is.New(t)
	row, ok := testCleaner().cleanRecord(
		[]string{"2013-10-10", "01:30:00", "ab12cd", "SFMTA", "NOWL", "4510"}, columns(t))
	is.True(ok)
	// a 1:30am tag on the 10th belongs to the 9th's service day
	is.Equal(time.Date(2013, 10, 9, 0, 0, 0, 0, time.UTC), row["date"])
	is.Equal(int64(1), row["dow"])
}

func TestCleanRecordMalformed(t *testing.T) {
	tests := []struct {
		name   string
		record []string
	}{
		{"bad date", []string{"10/09/2013", "08:15:30", "ab12cd", "SFMTA", "14", "4510"}},
		{"bad time", []string{"2013-10-09", "8:15", "ab12cd", "SFMTA", "14", "4510"}},
		{"empty card", []string{"2013-10-09", "08:15:30", "", "SFMTA", "14", "4510"}},
		{"bad stop", []string{"2013-10-09", "08:15:30", "ab12cd", "SFMTA", "14", "curb"}},
		{"short row", []string{"2013-10-09", "08:15:30"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			_, ok := testCleaner().cleanRecord(tt.record, columns(t))
			is.True(!ok)
		})
	}
}

func TestProcessFileDropsMalformed(t *testing.T) {
	is := is.New(t)
	input := header + "\n" +
		"bad,row,entirely,,,\n" +
		"2013-10-09,26:00:00,ab12cd,SFMTA,14,curb\n"

	read, kept, err := testCleaner().ProcessFile(strings.NewReader(input), "day.csv")
	is.NoErr(err)
	is.Equal(2, read)
	is.Equal(0, kept)
}

func TestRequiredColumnsMissing(t *testing.T) {
	is := is.New(t)
	_, err := requiredColumns([]string{"TagOnDate", "CardID"})
	is.True(err != nil)
}
