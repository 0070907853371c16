package engine

import "time"

// DateLayouts is the ordered list of accepted date formats. The first layout
// that parses wins, so unambiguous formats come before the regional ones.
var DateLayouts = []string{
	"2006-01-02",      // ISO
	"01/02/2006",      // US
	"02-01-2006",      // EU
	"January 2, 2006", // human month-name
	"Jan 2, 2006",
}

// ParseDate tries each accepted layout in order and returns the first match.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
