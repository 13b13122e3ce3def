// Package timestamp provides Unix-millisecond timestamp helpers used by the
// pipeline's wire formats. All timestamps on the wire are int64 milliseconds;
// zero means "not set".
package timestamp

import "time"

// Now returns the current time as Unix milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}

// ToUnixMs converts a time.Time to Unix milliseconds. The zero time maps to 0.
func ToUnixMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromUnixMs converts Unix milliseconds to a time.Time. 0 maps to the zero time.
func FromUnixMs(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Parse accepts the timestamp representations seen on the wire and returns
// Unix milliseconds. Supported inputs: int64/float64 Unix seconds or
// milliseconds (values below 1e12 are treated as seconds), and RFC3339
// strings. Anything else yields 0.
func Parse(v any) int64 {
	switch val := v.(type) {
	case int64:
		return normalize(val)
	case float64:
		return normalize(int64(val))
	case string:
		t, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return 0
		}
		return t.UnixMilli()
	default:
		return 0
	}
}

// Format renders Unix milliseconds as an RFC3339 UTC string. 0 renders empty.
func Format(ms int64) string {
	if ms == 0 {
		return ""
	}
	return FromUnixMs(ms).UTC().Format(time.RFC3339)
}

// normalize promotes second-precision values to milliseconds.
func normalize(v int64) int64 {
	if v == 0 {
		return 0
	}
	if v < 1_000_000_000_000 {
		return v * 1000
	}
	return v
}
