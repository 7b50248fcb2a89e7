// Package servicetime normalizes the time encodings used by the APC/AVL
// sensor files and schedule feeds into absolute timestamps.
//
// The agency considers the operational day to start and end at 3am, so
// events between midnight and 3am belong to the previous service date.
// Schedule times past midnight are encoded with hours >= 24.
package servicetime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

// day-of-week service classes
const (
	Weekday  = 1
	Saturday = 2
	Sunday   = 3
)

var holidayCalendar = newHolidayCalendar()

func newHolidayCalendar() *cal.BusinessCalendar {
	c := cal.NewBusinessCalendar()
	c.AddHoliday(
		us.NewYear,
		us.MemorialDay,
		us.IndependenceDay,
		us.LaborDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)
	return c
}

// WrapAroundTime combines serviceDate with a clock string in HH:MM:SS form.
// Hours >= 24 wrap into the next calendar day. A literal minutes value of
// "60" rolls forward to the top of the next hour before parsing.
func WrapAroundTime(serviceDate time.Time, clock string) (time.Time, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("expected HH:MM:SS time format: %s", clock)
	}
	hours, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse hours in %s: %w", clock, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse minutes in %s: %w", clock, err)
	}
	seconds, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse seconds in %s: %w", clock, err)
	}
	if minutes == 60 {
		hours++
		minutes = 0
	}
	nextDay := false
	if hours >= 24 {
		hours -= 24
		nextDay = true
	}
	result := time.Date(serviceDate.Year(), serviceDate.Month(), serviceDate.Day(),
		hours, minutes, seconds, 0, serviceDate.Location())
	if nextDay {
		result = result.AddDate(0, 0, 1)
	}
	return result, nil
}

// FromHHMMSS combines serviceDate with a compact HHMMSS integer, wrapping
// values of 240000 and above into the next calendar day.
func FromHHMMSS(serviceDate time.Time, v int) time.Time {
	nextDay := false
	if v >= 240000 {
		v -= 240000
		nextDay = true
	}
	result := time.Date(serviceDate.Year(), serviceDate.Month(), serviceDate.Day(),
		v/10000, (v/100)%100, v%100, 0, serviceDate.Location())
	if nextDay {
		result = result.AddDate(0, 0, 1)
	}
	return result
}

// FromHHMM combines serviceDate with a compact HHMM integer, wrapping values
// of 2400 and above into the next calendar day. Schedule encodings sometimes
// carry a literal 60 in the minutes position; those roll forward 40 units to
// the top of the next hour.
func FromHHMM(serviceDate time.Time, v int) time.Time {
	nextDay := false
	if v >= 2400 {
		v -= 2400
		nextDay = true
	}
	if v%100 == 60 {
		v += 40
	}
	result := time.Date(serviceDate.Year(), serviceDate.Month(), serviceDate.Day(),
		v/100, v%100, 0, 0, serviceDate.Location())
	if nextDay {
		result = result.AddDate(0, 0, 1)
	}
	return result
}

// ShiftServiceDay moves timestamps with a clock hour before 3am forward one
// calendar day so they sort with the service date they belong to.
func ShiftServiceDay(t time.Time) time.Time {
	if t.Hour() < 3 {
		return t.AddDate(0, 0, 1)
	}
	return t
}

// TimeOfDayBucket assigns an HHMM trip code to one of seven time-of-day
// bands, identified by the band's starting HHMM. Codes outside the bands
// return 9999.
func TimeOfDayBucket(hhmm int) int {
	switch {
	case hhmm >= 300 && hhmm < 600:
		return 300
	case hhmm >= 600 && hhmm < 900:
		return 600
	case hhmm >= 900 && hhmm < 1400:
		return 900
	case hhmm >= 1400 && hhmm < 1600:
		return 1400
	case hhmm >= 1600 && hhmm < 1900:
		return 1600
	case hhmm >= 1900 && hhmm < 2200:
		return 1900
	case hhmm >= 2200 && hhmm < 9999:
		return 2200
	}
	return 9999
}

// TimeOfDayLabel assigns an HHMM departure code to the labeled form of the
// same seven bands. Codes outside the bands return an empty string.
func TimeOfDayLabel(hhmm int) string {
	switch TimeOfDayBucket(hhmm) {
	case 300:
		return "0300-0559"
	case 600:
		return "0600-0859"
	case 900:
		return "0900-1359"
	case 1400:
		return "1400-1559"
	case 1600:
		return "1600-1859"
	case 1900:
		return "1900-2159"
	case 2200:
		return "2200-0259"
	}
	return ""
}

// TripMinutes converts an HHMM trip code to minutes since midnight.
func TripMinutes(hhmm int) float64 {
	return 60*float64(hhmm/100) + float64(hhmm%100)
}

// DayOfWeekClass classifies a calendar date into the service schedule class
// the agency operates that day. Observed holidays run Sunday service.
func DayOfWeekClass(date time.Time) int {
	if _, observed, _ := holidayCalendar.IsHoliday(date); observed {
		return Sunday
	}
	switch date.Weekday() {
	case time.Saturday:
		return Saturday
	case time.Sunday:
		return Sunday
	}
	return Weekday
}

// MonthOf truncates a date to the first day of its month, the value used for
// month-equality predicates in the store.
func MonthOf(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
}
