package extract

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"bpmastats/internal/textnorm"

	"github.com/xuri/excelize/v2"
)

// ErrNoSections is returned when a processed sheet yields no section at all.
var ErrNoSections = errors.New("extract: no recognizable sections")

// ValueCoercionError reports a non-empty cell that could not be read as a
// quantity or date.
type ValueCoercionError struct {
	Sheet  string
	Row    int
	Col    int
	Value  string
	Reason string
}

func (e *ValueCoercionError) Error() string {
	return fmt.Sprintf("extract: sheet %q row %d col %d: %q: %s", e.Sheet, e.Row+1, e.Col+1, e.Value, e.Reason)
}

var errNotNumber = errors.New("not a number")

// CoerceQuantity reads a count the way spreadsheet exports write it: integer
// text, float text ("12.0", "1.2E+1") or a decimal comma. The value is
// truncated toward zero.
func CoerceQuantity(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errNotNumber
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, errNotNumber
	}
	return int(f), nil
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Excel serials outside this range are not dates (1900-01-01 .. 9999-12-31).
const (
	minSerial = 1
	maxSerial = 2958465
)

// ParseDate reads a roster date cell. Accepted forms are an Excel serial
// number, the layouts above, "DD/MM" (year taken from baseYear) and a bare
// month abbreviation (first day of that month in baseYear). The result is a
// UTC date with no time part.
func ParseDate(raw string, baseYear int) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < minSerial || f > maxSerial {
			return time.Time{}, fmt.Errorf("serial %v out of range", f)
		}
		t, err := excelize.ExcelDateToTime(f, false)
		if err != nil {
			return time.Time{}, err
		}
		return dateOnly(t), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), nil
		}
	}
	if baseYear > 0 {
		if d, m, ok := strings.Cut(s, "/"); ok && !strings.Contains(m, "/") {
			day, err1 := strconv.Atoi(d)
			mon, err2 := strconv.Atoi(m)
			if err1 == nil && err2 == nil && mon >= 1 && mon <= 12 {
				t := time.Date(baseYear, time.Month(mon), day, 0, 0, 0, 0, time.UTC)
				if t.Day() == day {
					return t, nil
				}
			}
		}
		if m, ok := textnorm.Month(s); ok {
			return time.Date(baseYear, time.Month(m), 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SpanDays counts both ends: the same start and end day is one day.
func SpanDays(start, end time.Time) int {
	return int(dateOnly(end).Sub(dateOnly(start)).Hours()/24) + 1
}
