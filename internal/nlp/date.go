package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/money-assistant/internal/domain"
)

// minYear floors every extracted date. Anything earlier is treated as
// unparseable and falls back to the default.
const minYear = 2000

var (
	yesterdayWords = []string{"hôm qua", "hom qua", "yesterday"}
	todayWords     = []string{"hôm nay", "hom nay", "today"}

	// "ngày 5 tháng 3 năm 2025", "ngày 5/3", "ngày 05"
	dayPhraseRe = regexp.MustCompile(`ngày\s+(\d{1,2})(?:\s*(?:/|tháng\s+)(\d{1,2}))?(?:\s*(?:/|năm\s+)(\d{4}))?`)
	// "5/3", "05/03/2025"
	slashDateRe = regexp.MustCompile(`(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?`)
	// "tháng 3", "tháng 3 năm 2025", "tháng 3/2025"
	monthPhraseRe = regexp.MustCompile(`tháng\s+(\d{1,2})(?:\s*(?:/|năm\s+)(\d{4}))?`)
	// "3/2025" as a bare month/year pair
	monthSlashRe = regexp.MustCompile(`(\d{1,2})/(\d{4})`)
)

// ExtractDate parses a calendar date out of a text segment.
// Relative keywords win over explicit patterns; absence of any date
// content defaults to now. The result is always a UTC calendar day so
// stored dates line up with the UTC month bounds used by range queries,
// whatever zone now carries.
func ExtractDate(segment string, now time.Time) time.Time {
	lower := strings.ToLower(segment)

	for _, w := range yesterdayWords {
		if strings.Contains(lower, w) {
			return utcDay(now.AddDate(0, 0, -1))
		}
	}
	for _, w := range todayWords {
		if strings.Contains(lower, w) {
			return utcDay(now)
		}
	}

	if m := dayPhraseRe.FindStringSubmatch(lower); m != nil {
		if t, ok := buildDate(m[1], m[2], m[3], now); ok {
			return t
		}
	}
	if m := slashDateRe.FindStringSubmatch(lower); m != nil {
		if t, ok := buildDate(m[1], m[2], m[3], now); ok {
			return t
		}
	}

	return utcDay(now)
}

// utcDay keeps the calendar day as the caller's zone sees it, pinned to
// UTC midnight.
func utcDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ExtractMonthYear parses a (month, year) pair for budget-scoped requests.
// Day-of-month content is ignored. Defaults to the current month. Future
// months are allowed; budgets may be planned ahead.
func ExtractMonthYear(text string, now time.Time) (time.Month, int) {
	lower := strings.ToLower(text)

	if m := monthPhraseRe.FindStringSubmatch(lower); m != nil {
		if month, year, ok := buildMonthYear(m[1], m[2], now); ok {
			return month, year
		}
	}
	if m := monthSlashRe.FindStringSubmatch(lower); m != nil {
		if month, year, ok := buildMonthYear(m[1], m[2], now); ok {
			return month, year
		}
	}

	for _, w := range yesterdayWords {
		if strings.Contains(lower, w) {
			y := now.AddDate(0, 0, -1)
			return y.Month(), y.Year()
		}
	}

	return now.Month(), now.Year()
}

// ExtractDateSpec is the DateSpec-shaped entry point: month-scoped for
// budget domains, day-resolved otherwise.
func ExtractDateSpec(text string, d domain.Domain, now time.Time) domain.DateSpec {
	if d == domain.DomainMonthlyBudget || d == domain.DomainCategoryBudget {
		month, year := ExtractMonthYear(text, now)
		return domain.MonthSpec(month, year)
	}
	return domain.DaySpec(ExtractDate(text, now))
}

func buildDate(dayStr, monthStr, yearStr string, now time.Time) (time.Time, bool) {
	day, _ := strconv.Atoi(dayStr)
	month := int(now.Month())
	if monthStr != "" {
		month, _ = strconv.Atoi(monthStr)
	}
	year := now.Year()
	if yearStr != "" {
		year, _ = strconv.Atoi(yearStr)
		if year < 100 {
			year += 2000
		}
	}

	if day < 1 || day > 31 || month < 1 || month > 12 || year < minYear {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject rollover like 31/2 -> 2/3/...
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func buildMonthYear(monthStr, yearStr string, now time.Time) (time.Month, int, bool) {
	month, _ := strconv.Atoi(monthStr)
	year := now.Year()
	if yearStr != "" {
		year, _ = strconv.Atoi(yearStr)
	}
	if month < 1 || month > 12 || year < minYear {
		return 0, 0, false
	}
	return time.Month(month), year, true
}
