package rfq

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jinzhu/now"
)

// DateLayout is how parsed dates are written back into a record's cells.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

var clockOnly = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`)

// The general parser fills a missing year from the clock, so it only sees
// strings that carry one.
var hasYear = regexp.MustCompile(`(^|\D)\d{4}(\D|$)`)

// Sheets day numbers between these bounds are read as serial dates.
const (
	minSerialDay = 20000
	maxSerialDay = 100000
)

var sheetsEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDate parses a cell permissively and returns the calendar date at UTC
// midnight.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || clockOnly.MatchString(s) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return day(t), true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f >= minSerialDay && f < maxSerialDay {
			return day(sheetsEpoch.AddDate(0, 0, int(f))), true
		}
		return time.Time{}, false
	}
	if !hasYear.MatchString(s) {
		return time.Time{}, false
	}
	if t, err := now.Parse(s); err == nil {
		return day(t), true
	}
	return time.Time{}, false
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
