package normalizer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const amount = `(\d+(?:,\d{3})*(?:\.\d+)?[kK]?)`

// Tried in order; the first pattern that matches wins.
var salaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$` + amount + `\s*-\s*\$` + amount),
	regexp.MustCompile(`\$` + amount),
	regexp.MustCompile(amount + `\s*-\s*` + amount),
}

// ParseSalary extracts a (min, max) pair from salary text such as "$80k-$120k", "$95,000" or "60-80K".
// A single amount yields min == max. Both are nil when nothing matches.
func ParseSalary(text string) (min, max *int) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	for _, re := range salaryPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		lo, ok := parseAmount(m[1])
		if !ok {
			return nil, nil
		}
		hi := lo
		if len(m) > 2 {
			if hi, ok = parseAmount(m[2]); !ok {
				return nil, nil
			}
		}
		return &lo, &hi
	}

	return nil, nil
}

// parseAmount rejects amounts outside [0, MaxInt32] so they fit the store's INTEGER salary columns
func parseAmount(s string) (int, bool) {
	multiplier := 1.0
	if strings.HasSuffix(s, "k") || strings.HasSuffix(s, "K") {
		multiplier = 1000
		s = s[:len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	v := math.Round(f * multiplier)
	if v < 0 || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

// salaryBound drops amounts that parseAmount would reject
func salaryBound(v int) int {
	if v < 0 || v > math.MaxInt32 {
		return 0
	}
	return v
}
