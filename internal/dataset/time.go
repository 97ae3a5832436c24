package dataset

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

// unitsRe matches CF time units of the form "<unit> since <timestamp>",
// e.g. "days since 2000-01-01" or "hours since 1900-01-01 00:00:00".
var unitsRe = regexp.MustCompile(`^\s*(\w+)\s+since\s+(.+?)\s*$`)

var unitSeconds = map[string]float64{
	"seconds": 1, "second": 1, "secs": 1, "sec": 1, "s": 1,
	"minutes": 60, "minute": 60, "mins": 60, "min": 60,
	"hours": 3600, "hour": 3600, "hrs": 3600, "hr": 3600, "h": 3600,
	"days": 86400, "day": 86400, "d": 86400,
}

var noLeapMonths = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
var allLeapMonths = [12]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DecodeTime converts numeric CF time offsets into concrete timestamps.
// Standard calendars decode exactly. The 360_day, noleap/365_day and
// all_leap/366_day calendars are converted to the proleptic Gregorian
// calendar; that conversion is a lossy approximation (calendar dates with no
// Gregorian counterpart are clamped to the nearest real day) and the returned
// converted flag is true so callers can surface it.
func DecodeTime(values []float64, units, calendar string) (times []time.Time, converted bool, err error) {
	m := unitsRe.FindStringSubmatch(units)
	if m == nil {
		return nil, false, fmt.Errorf("unparseable time units %q", units)
	}
	secsPerUnit, ok := unitSeconds[strings.ToLower(m[1])]
	if !ok {
		return nil, false, fmt.Errorf("unsupported time unit %q", m[1])
	}
	epoch, err := parseEpoch(m[2])
	if err != nil {
		return nil, false, fmt.Errorf("unparseable epoch in time units %q: %w", units, err)
	}

	cal := strings.ToLower(strings.TrimSpace(calendar))
	switch cal {
	case "", "standard", "gregorian", "proleptic_gregorian":
		out := make([]time.Time, len(values))
		for i, v := range values {
			out[i] = epoch.Add(time.Duration(v * secsPerUnit * float64(time.Second)))
		}
		return out, false, nil
	case "360_day", "noleap", "365_day", "all_leap", "366_day":
		out := make([]time.Time, len(values))
		for i, v := range values {
			out[i] = decodeNonStandard(epoch, v*secsPerUnit, cal)
		}
		return out, true, nil
	default:
		return nil, false, fmt.Errorf("unsupported calendar %q", calendar)
	}
}

var epochLayouts = []string{
	"2006-1-2 15:4:5.999999999",
	"2006-1-2T15:4:5.999999999",
	"2006-1-2T15:4:5.999999999Z",
	"2006-1-2 15:4",
	"2006-1-2",
}

func parseEpoch(s string) (time.Time, error) {
	for _, layout := range epochLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// decodeNonStandard walks the fixed-length calendar from the epoch date and
// maps the resulting calendar date onto the proleptic Gregorian calendar.
func decodeNonStandard(epoch time.Time, offsetSecs float64, cal string) time.Time {
	days := math.Floor(offsetSecs / 86400)
	frac := offsetSecs - days*86400

	y, mo, d := epoch.Date()
	dayNum := calDayNumber(y, int(mo), d, cal) + int(days)
	y, m, d2 := calDate(dayNum, cal)

	// Clamp to the real month length (e.g. 360_day Feb 30).
	if last := gregorianMonthDays(y, m); d2 > last {
		d2 = last
	}

	h, min, sec := epoch.Clock()
	t := time.Date(y, time.Month(m), d2, h, min, sec, epoch.Nanosecond(), time.UTC)
	return t.Add(time.Duration(frac * float64(time.Second)))
}

// calDayNumber maps a calendar date to a serial day count since year 0.
func calDayNumber(year, month, day int, cal string) int {
	switch cal {
	case "360_day":
		return year*360 + (month-1)*30 + (day - 1)
	default:
		perYear, months := fixedCalendar(cal)
		n := year * perYear
		for m := 0; m < month-1; m++ {
			n += months[m]
		}
		return n + day - 1
	}
}

// calDate is the inverse of calDayNumber.
func calDate(dayNum int, cal string) (year, month, day int) {
	switch cal {
	case "360_day":
		year = floorDiv(dayNum, 360)
		rem := dayNum - year*360
		return year, rem/30 + 1, rem%30 + 1
	default:
		perYear, months := fixedCalendar(cal)
		year = floorDiv(dayNum, perYear)
		rem := dayNum - year*perYear
		month = 1
		for rem >= months[month-1] {
			rem -= months[month-1]
			month++
		}
		return year, month, rem + 1
	}
}

func fixedCalendar(cal string) (daysPerYear int, months [12]int) {
	if cal == "all_leap" || cal == "366_day" {
		return 366, allLeapMonths
	}
	return 365, noLeapMonths
}

func gregorianMonthDays(year, month int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// TimeGroup is one partition of the time axis: the records whose calendar
// year (or decade start) equals Label, in record order.
type TimeGroup struct {
	Label   int
	Indices []int
}

// GroupByYear partitions records by calendar year, labels ascending.
func (tc *TimeCoordinate) GroupByYear() []TimeGroup {
	return tc.groupBy(func(t time.Time) int { return t.Year() })
}

// GroupByDecade partitions records by decade start (year - year mod 10),
// labels ascending. The boundary is a fixed multiple of ten, not relative to
// the dataset's first year.
func (tc *TimeCoordinate) GroupByDecade() []TimeGroup {
	return tc.groupBy(func(t time.Time) int { return t.Year() - t.Year()%10 })
}

func (tc *TimeCoordinate) groupBy(label func(time.Time) int) []TimeGroup {
	byLabel := map[int][]int{}
	for i, t := range tc.Values {
		l := label(t)
		byLabel[l] = append(byLabel[l], i)
	}
	labels := make([]int, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	out := make([]TimeGroup, len(labels))
	for i, l := range labels {
		out[i] = TimeGroup{Label: l, Indices: byLabel[l]}
	}
	return out
}
