package shared

import (
	"fmt"
	"regexp"
	"strconv"
)

var isoDurationPattern = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ParseISODuration converts an ISO-8601 time duration such as "PT3M45S" into milliseconds.
//
// Absent components count as zero. Input that does not contain a PT designator yields 0,
// which callers treat as an unknown duration.
func ParseISODuration(s string) int64 {
	m := isoDurationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}

	var total int64
	units := []int64{3600, 60, 1}
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0
		}
		total += n * unit
	}
	return total * 1000
}

// FormatDuration renders milliseconds as m:ss, or h:mm:ss when at least an hour long.
func FormatDuration(ms int64) string {
	if ms <= 0 {
		return "0:00"
	}
	secs := ms / 1000
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
