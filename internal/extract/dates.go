package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Relative date expressions are resolved against the supplied clock so
// "어제" in a transcript replayed later still lands on the original day.
var (
	reYesterday  = regexp.MustCompile(`어제`)
	reToday      = regexp.MustCompile(`오늘`)
	reTomorrow   = regexp.MustCompile(`내일`)
	reDaysAgo    = regexp.MustCompile(`(\d+)일\s*전`)
	reDaysAfter  = regexp.MustCompile(`(\d+)일\s*후`)
	reLastYearMD = regexp.MustCompile(`작년\s*(\d{1,2})월\s*(\d{1,2})일?`)
	reLastYearM  = regexp.MustCompile(`작년\s*(\d{1,2})월`)
	reThisYearMD = regexp.MustCompile(`올해\s*(\d{1,2})월\s*(\d{1,2})일?`)
	reThisYearM  = regexp.MustCompile(`올해\s*(\d{1,2})월`)
	reMonthsAgo  = regexp.MustCompile(`(\d+)개월\s*전`)
	reYearsAgo   = regexp.MustCompile(`(\d+)년\s*전`)

	// Absolute forms: 2023년 10월 15일, 2023-10-15, 2023.10.15, 2023/10.
	reAbsoluteYMD = regexp.MustCompile(`(\d{4})[년.\-/]\s*(\d{1,2})[월.\-/]\s*(\d{1,2})일?`)
	reAbsoluteYM  = regexp.MustCompile(`(\d{4})[년.\-/]\s*(\d{1,2})월?`)

	// Bare month/day forms resolve to the current year.
	reMonthDay = regexp.MustCompile(`(\d{1,2})월\s*(\d{1,2})일`)
	reMonth    = regexp.MustCompile(`(\d{1,2})월`)
)

const dateLayout = "2006-01-02"

// ExtractDate finds a date expression in Korean text and returns it as
// YYYY-MM-DD, or "" when no pattern matches. now anchors relative
// expressions.
func ExtractDate(text string, now time.Time) string {
	switch {
	case reYesterday.MatchString(text):
		return now.AddDate(0, 0, -1).Format(dateLayout)
	case reToday.MatchString(text):
		return now.Format(dateLayout)
	case reTomorrow.MatchString(text):
		return now.AddDate(0, 0, 1).Format(dateLayout)
	}

	if m := reDaysAgo.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.AddDate(0, 0, -n).Format(dateLayout)
	}
	if m := reDaysAfter.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.AddDate(0, 0, n).Format(dateLayout)
	}

	if m := reLastYearMD.FindStringSubmatch(text); m != nil {
		return clampedDate(now.Year()-1, atoi(m[1]), atoi(m[2]))
	}
	if m := reLastYearM.FindStringSubmatch(text); m != nil {
		return clampedDate(now.Year()-1, atoi(m[1]), 1)
	}
	if m := reThisYearMD.FindStringSubmatch(text); m != nil {
		return clampedDate(now.Year(), atoi(m[1]), atoi(m[2]))
	}
	if m := reThisYearM.FindStringSubmatch(text); m != nil {
		return clampedDate(now.Year(), atoi(m[1]), 1)
	}

	if m := reMonthsAgo.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.AddDate(0, 0, -30*n).Format(dateLayout)
	}
	if m := reYearsAgo.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.AddDate(0, 0, -365*n).Format(dateLayout)
	}

	// Absolute dates take precedence over bare month/day forms so
	// "2023년 10월 15일" does not resolve to the current year.
	if m := reAbsoluteYMD.FindStringSubmatch(text); m != nil {
		if d := validDate(atoi(m[1]), atoi(m[2]), atoi(m[3])); d != "" {
			return d
		}
	}
	if m := reAbsoluteYM.FindStringSubmatch(text); m != nil {
		if d := validDate(atoi(m[1]), atoi(m[2]), 1); d != "" {
			return d
		}
	}

	if m := reMonthDay.FindStringSubmatch(text); m != nil {
		return clampedDate(now.Year(), atoi(m[1]), atoi(m[2]))
	}
	if m := reMonth.FindStringSubmatch(text); m != nil {
		return clampedDate(now.Year(), atoi(m[1]), 1)
	}

	return ""
}

// HasDatePattern reports whether the text looks like it mentions a
// date, used to decide whether a date follow-up was answered at all.
var reDateHint = regexp.MustCompile(`\d+월|\d+일|\d+년|올해|작년|내년|인지|발생`)

func HasDatePattern(text string) bool {
	return reDateHint.MatchString(text)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// validDate returns the formatted date or "" when the combination is
// impossible (month 13, day 32).
func validDate(year, month, day int) string {
	if month < 1 || month > 12 || day < 1 {
		return ""
	}
	if day > daysIn(year, month) {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// clampedDate adjusts an out-of-range day to the month's last day, so
// "2월 30일" becomes the end of February instead of failing.
func clampedDate(year, month, day int) string {
	if month < 1 {
		month = 1
	}
	if month > 12 {
		month = 12
	}
	if day < 1 {
		day = 1
	}
	if last := daysIn(year, month); day > last {
		day = last
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
