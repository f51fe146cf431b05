package cleaner

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var monthNames = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdayNames = map[string]bool{
	"mon": true, "tue": true, "tues": true, "wed": true,
	"thu": true, "thur": true, "thurs": true, "fri": true,
	"sat": true, "sun": true,
}

// ParseDayFirst parses a date whose format may vary from row to row.
// Numeric dates are read day first, so 05/01/2023 is 5 January; when the
// second field exceeds 12 and the first does not, the date is read month
// first. A leading four-digit field is a year and the date is read
// year-month-day. Month names and abbreviations are accepted in any
// position, weekday names are skipped and a trailing time of day, with or
// without an ISO "T" separator, is ignored.
func ParseDayFirst(s string) (time.Time, error) {
	fields := strings.FieldsFunc(splitISOTime(strings.TrimSpace(s)), func(r rune) bool {
		return r == '/' || r == '-' || r == '.' || r == ',' || unicode.IsSpace(r)
	})

	var nums []string
	month := time.Month(0)
	for _, f := range fields {
		switch {
		case strings.Contains(f, ":"):
			// time of day
		case isDigits(f):
			nums = append(nums, f)
		case isWeekday(f):
		default:
			m, ok := lookupMonth(f)
			if !ok || month != 0 {
				return time.Time{}, fmt.Errorf("unrecognised date %q", s)
			}
			month = m
		}
	}

	if month != 0 {
		return parseNamedMonth(s, month, nums)
	}
	if len(nums) != 3 {
		return time.Time{}, fmt.Errorf("unrecognised date %q", s)
	}

	a, b, c := atoi(nums[0]), atoi(nums[1]), atoi(nums[2])

	if len(nums[0]) == 4 {
		return build(s, a, b, c)
	}

	year := expandYear(nums[2], c)
	if a > 12 || b <= 12 {
		return build(s, year, b, a)
	}
	return build(s, year, a, b)
}

func parseNamedMonth(s string, month time.Month, nums []string) (time.Time, error) {
	if len(nums) != 2 {
		return time.Time{}, fmt.Errorf("unrecognised date %q", s)
	}
	dayIdx, yearIdx := 0, 1
	if len(nums[0]) == 4 || atoi(nums[0]) > 31 {
		dayIdx, yearIdx = 1, 0
	}
	year := expandYear(nums[yearIdx], atoi(nums[yearIdx]))
	return build(s, year, int(month), atoi(nums[dayIdx]))
}

func build(s string, year, month, day int) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// splitISOTime turns the "T" between a date and a time into a space.
func splitISOTime(s string) string {
	i := strings.IndexAny(s, "Tt")
	if i <= 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
		return s
	}
	return s[:i] + " " + s[i+1:]
}

func isWeekday(f string) bool {
	lower := strings.ToLower(f)
	if weekdayNames[lower] {
		return true
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if lower == strings.ToLower(d.String()) {
			return true
		}
	}
	return false
}

func lookupMonth(f string) (time.Month, bool) {
	if len(f) < 3 {
		return 0, false
	}
	lower := strings.ToLower(f)
	m, ok := monthNames[lower[:3]]
	if !ok {
		return 0, false
	}
	full := strings.ToLower(m.String())
	if lower != full && lower != full[:3] && !(m == time.September && lower == "sept") {
		return 0, false
	}
	return m, true
}

func expandYear(raw string, v int) int {
	if len(raw) <= 2 {
		return 2000 + v
	}
	return v
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
