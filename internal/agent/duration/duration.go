// Package duration parses and formats the ISO-8601 durations used by twin
// configuration payloads (e.g. "PT15S", "PT1H", "P1D"), canonicalizing them
// to milliseconds on ingest.
package duration

import (
	"regexp"
	"strconv"
	"time"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/errs"
)

// No example repo or ecosystem library in the retrieval pack parses ISO-8601
// durations (the closest, a cron-expression parser, does not apply), so this
// component is implemented directly against the standard library regexp
// package rather than a third-party dependency.
var pattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// Parse converts an ISO-8601 duration string to milliseconds.
func Parse(s string) (int64, error) {
	if s == "" {
		return 0, errs.New("duration", errs.CodeParseException, errs.WithMessage("empty duration string"))
	}
	m := pattern.FindStringSubmatch(s)
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "" && m[4] == "") {
		return 0, errs.New("duration", errs.CodeParseException, errs.WithMessage("malformed ISO-8601 duration"), errs.WithField("value", s))
	}

	var total time.Duration
	if m[1] != "" {
		days, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, errs.New("duration", errs.CodeParseException, errs.WithCause(err))
		}
		total += time.Duration(days) * 24 * time.Hour
	}
	if m[2] != "" {
		hours, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return 0, errs.New("duration", errs.CodeParseException, errs.WithCause(err))
		}
		total += time.Duration(hours) * time.Hour
	}
	if m[3] != "" {
		minutes, err := strconv.ParseInt(m[3], 10, 64)
		if err != nil {
			return 0, errs.New("duration", errs.CodeParseException, errs.WithCause(err))
		}
		total += time.Duration(minutes) * time.Minute
	}
	if m[4] != "" {
		seconds, err := strconv.ParseFloat(m[4], 64)
		if err != nil {
			return 0, errs.New("duration", errs.CodeParseException, errs.WithCause(err))
		}
		total += time.Duration(seconds * float64(time.Second))
	}
	return total.Milliseconds(), nil
}

// Format renders a millisecond duration as an ISO-8601 duration string,
// choosing the coarsest unit that divides evenly.
func Format(ms int64) string {
	if ms == 0 {
		return "PT0S"
	}
	d := time.Duration(ms) * time.Millisecond
	switch {
	case d%(24*time.Hour) == 0:
		return "P" + strconv.FormatInt(int64(d/(24*time.Hour)), 10) + "D"
	case d%time.Hour == 0:
		return "PT" + strconv.FormatInt(int64(d/time.Hour), 10) + "H"
	case d%time.Minute == 0:
		return "PT" + strconv.FormatInt(int64(d/time.Minute), 10) + "M"
	default:
		return "PT" + strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "S"
	}
}
