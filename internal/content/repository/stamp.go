package repository

import (
	"fmt"
	"strings"
	"time"
)

// stampLayout renders UTC time with fixed-width, zero-padded fields down to the
// nanosecond so that byte order of stamps equals chronological order.
const stampLayout = "20060102T150405.000000000"

// StampWidth is the length of every stamp produced by FormatStamp.
const StampWidth = len(stampLayout) + 1

// FormatStamp renders t as a sortable history stamp, e.g. 20260116T093005.000000042Z.
func FormatStamp(t time.Time) string {
	return t.UTC().Format(stampLayout) + "Z"
}

// ParseStamp is the inverse of FormatStamp.
func ParseStamp(s string) (time.Time, error) {
	if len(s) != StampWidth || !strings.HasSuffix(s, "Z") {
		return time.Time{}, fmt.Errorf("malformed stamp %q", s)
	}
	return time.ParseInLocation(stampLayout, strings.TrimSuffix(s, "Z"), time.UTC)
}
