package types

import "time"

// Timestamp is a point in time in unix milliseconds, the wire format used by
// every document.
type Timestamp int64

// TimestampOf converts t to a Timestamp.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp(t.UnixMilli())
}

// Time returns the timestamp as a time.Time in the local zone.
func (ts Timestamp) Time() time.Time {
	return time.UnixMilli(int64(ts))
}

// NewTimestamp returns a pointer to the Timestamp of t, for the nullable
// startAt and endAt fields.
func NewTimestamp(t time.Time) *Timestamp {
	ts := TimestampOf(t)
	return &ts
}

// dateLayout is the eventDate format.
const dateLayout = "2006-01-02"

// FormatDate returns t as an eventDate string.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
