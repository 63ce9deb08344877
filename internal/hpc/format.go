package hpc

import "time"

const (
	// submissionLayout is the timestamp format UNICORE sites report.
	submissionLayout = "2006-01-02T15:04:05-0700"
	displayLayout    = "01.02.2006, 15:04:05"
	collisionLayout  = "01.02.2006_15:04:05"
)

// FormatSubmissionTime renders a site timestamp as "MM.DD.YYYY, HH:MM:SS"
// in the site's own offset. Unparseable input is returned unchanged.
func FormatSubmissionTime(raw string) string {
	t, err := time.Parse(submissionLayout, raw)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, raw); err != nil {
			return raw
		}
	}
	return t.Format(displayLayout)
}

// CollisionSuffix is appended to a local results directory name that is
// already taken.
func CollisionSuffix(now time.Time) string {
	return "_" + now.Format(collisionLayout)
}
