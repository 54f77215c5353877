package refdata

import (
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

// The reference server serializes timedeltas as ISO-8601 durations, e.g.
// "PT10M" or "P1DT1H30M". Year/month designators are rejected since they have
// no fixed length in minutes.
var isoDurationPattern = regexp.MustCompile(
	`^P(?:(\d+(?:\.\d+)?)W)?(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// parseDurationMinutes converts an ISO-8601 duration string to fractional
// minutes.
func parseDurationMinutes(s string) (float64, error) {
	if s == "" || s == "P" || s == "PT" {
		return 0, errors.Errorf("empty duration %q", s)
	}

	m := isoDurationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, errors.Errorf("invalid duration %q", s)
	}

	weeks, err1 := component(m[1])
	days, err2 := component(m[2])
	hours, err3 := component(m[3])
	minutes, err4 := component(m[4])
	seconds, err5 := component(m[5])
	for _, err := range []error{err1, err2, err3, err4, err5} {
		if err != nil {
			return 0, errors.Wrapf(err, "invalid duration %q", s)
		}
	}

	return weeks*7*24*60 + days*24*60 + hours*60 + minutes + seconds/60, nil
}

func component(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
