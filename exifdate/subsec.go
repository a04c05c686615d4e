package exifdate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var subsecDigits = regexp.MustCompile(`^[0-9]+$`)

// SubsecHundredths converts a SubsecTime value the way the full decoder always
// has: the string is read as a number and divided by 100. That is only a true
// fraction for exactly two digits ("5" gives 50ms, not 500ms). Unparsable input
// gives 0.
func SubsecHundredths(s string) time.Duration {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return seconds(v / 100)
}

// SubsecFraction converts a SubsecTime value as the decimal fraction "0.<digits>"
// ("5" gives 500ms, "05" gives 50ms). Anything that is not all ASCII digits
// gives 0.
func SubsecFraction(s string) time.Duration {
	if !subsecDigits.MatchString(s) {
		return 0
	}
	v, err := strconv.ParseFloat("0."+strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return seconds(v)
}

func seconds(v float64) time.Duration {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return time.Duration(math.Round(v * float64(time.Second)))
}
