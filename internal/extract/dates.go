package extract

import (
	"regexp"
	"time"
)

// Portals publish deadlines in a handful of formats; day-first variants are
// listed after ISO since government circulars favour DD-MM-YYYY only when
// the year is not leading.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-1-2",
	"2006/1/2",
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2/1/2006",
	"2 January 2006",
	"2 January, 2006",
	"January 2, 2006",
	"January 2 2006",
}

var dateRe = regexp.MustCompile(`(?i)(\d{4}[-/]\d{1,2}[-/]\d{1,2}|\d{1,2}[-/]\d{1,2}[-/]\d{4}|\d{1,2}\s+[a-z]+,?\s+\d{4}|[a-z]+\s+\d{1,2},?\s+\d{4})`)

// ParseDate parses a date string in any of the supported layouts.
func ParseDate(s string) (time.Time, bool) {
	s = CleanText(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FindDate locates and parses the first date-looking substring in text.
func FindDate(text string) (time.Time, bool) {
	m := dateRe.FindString(text)
	if m == "" {
		return time.Time{}, false
	}
	return ParseDate(m)
}
