package mood

import "time"

// Bucket is a coarse part of the day.
type Bucket string

const (
	Morning   Bucket = "morning"
	Afternoon Bucket = "afternoon"
	Evening   Bucket = "evening"
	Night     Bucket = "night"
)

// TimeOfDay buckets t by its hour in t's own location, so callers convert to
// the listener's timezone first.
func TimeOfDay(t time.Time) Bucket {
	return BucketForHour(t.Hour())
}

// BucketForHour maps [5,12) to morning, [12,17) to afternoon, [17,22) to
// evening and everything else to night.
func BucketForHour(hour int) Bucket {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 22:
		return Evening
	default:
		return Night
	}
}
