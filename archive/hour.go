package archive

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"time"
)

// HourUnit identifies one hour-aligned archive unit, the atomic fetch
// granularity of the hourly archive.
type HourUnit struct {
	Date time.Time
	Hour int
}

func (u HourUnit) String() string {
	return fmt.Sprintf("%s-%d", u.Date.Format("2006-01-02"), u.Hour)
}

// FileName returns the archive file name for the unit. The upstream
// layout does not zero-pad the hour.
func (u HourUnit) FileName() string {
	return u.String() + ".json.gz"
}

// Time returns the start instant of the hour unit.
func (u HourUnit) Time() time.Time {
	d := u.Date
	return time.Date(d.Year(), d.Month(), d.Day(), u.Hour, 0, 0, 0, time.UTC)
}

// HoursInRange expands a closed day-granularity date range into hour
// units, earliest first. The range is inclusive at both ends: a single
// day expands to 24 units.
func HoursInRange(from, to time.Time) []HourUnit {
	var units []HourUnit
	day := truncateToDay(from)
	last := truncateToDay(to)
	for !day.After(last) {
		for hour := 0; hour < 24; hour++ {
			units = append(units, HourUnit{Date: day, Hour: hour})
		}
		day = day.AddDate(0, 0, 1)
	}
	return units
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// hour file names look like 2024-01-02-15.json.gz
var hourFileRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})-(\d{1,2})\.json\.gz$`)

// ParseHourFileName parses an hourly archive file name (optionally
// prefixed with a path) back into its HourUnit.
func ParseHourFileName(name string) (HourUnit, bool) {
	m := hourFileRe.FindStringSubmatch(path.Base(name))
	if m == nil {
		return HourUnit{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 {
		return HourUnit{}, false
	}
	return HourUnit{
		Date: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC),
		Hour: hour,
	}, true
}
