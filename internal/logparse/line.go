package logparse

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/tinytelemetry/etlq/internal/model"
)

// ErrBadTimestamp is returned when a structurally valid line carries a
// timestamp that does not match model.TimeLayout.
var ErrBadTimestamp = errors.New("bad timestamp")

// parseLayout is model.TimeLayout with month, day, hour, minute and second
// allowed to drop their leading zero, so "2021-1-5 9:00:00" is accepted.
// Padded input parses the same under both layouts.
const parseLayout = "2006-1-2 15:4:5"

// ParseTime parses text in model.TimeLayout, tolerating unpadded fields.
func ParseTime(text string) (time.Time, error) {
	ts, err := time.Parse(parseLayout, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrBadTimestamp, text, err)
	}
	return ts, nil
}

// ParseLine turns one raw log line into a Record.
//
// The line is split on ',' into top-level fields. Field 0 is the timestamp and
// field 1 is split on ':' into message pieces:
//
//	<time>,<source>: <SEVERITY> - <n>: <description>: <...>: <code>
//	<time>,<source>: <SEVERITY> - <n>: <description>,<more description>:<...>:<code>
//
// ok is false for lines without that structure (headers, blank lines, truncated
// events); callers skip them. A structurally valid line whose timestamp does not
// parse returns an error wrapping ErrBadTimestamp.
func ParseLine(line string) (rec model.Record, ok bool, err error) {
	fields := strings.Split(line, ",")
	if len(fields) < 2 {
		return model.Record{}, false, nil
	}
	message := strings.Split(fields[1], ":")
	if len(message) <= 2 {
		return model.Record{}, false, nil
	}

	ts, err := ParseTime(strings.TrimSpace(fields[0]))
	if err != nil {
		return model.Record{}, false, err
	}

	severity, _, _ := strings.Cut(message[1], "-")

	var description, code string
	switch {
	case len(message) > 4:
		// Code lives in field 1 itself.
		description = strings.TrimSpace(message[2])
		code = strings.TrimSpace(message[4])
	case len(message) == 4:
		// No fifth piece to take the code from.
		return model.Record{}, false, nil
	default:
		// Description continues into field 2; code follows its last ':'.
		if len(fields) < 3 {
			return model.Record{}, false, nil
		}
		rest := fields[2]
		head, _, _ := strings.Cut(rest, ":")
		description = strings.TrimSpace(message[2]) + strings.TrimRightFunc(head, unicode.IsSpace)
		code = strings.TrimSpace(rest[strings.LastIndex(rest, ":")+1:])
	}

	return model.Record{
		Timestamp:   ts,
		Severity:    strings.TrimSpace(severity),
		Description: description,
		Code:        code,
	}, true, nil
}
