package transform

import (
	"regexp"
	"strconv"
)

// isoDuration matches the PT[nH][nM][nS] subset of ISO-8601 durations the
// Data API uses for video lengths.
var isoDuration = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// Seconds converts an ISO-8601 video duration to whole seconds. Empty or
// malformed input yields 0; a bad duration never fails a pipeline run.
func Seconds(iso string) int64 {
	m := isoDuration.FindStringSubmatch(iso)
	if m == nil {
		return 0
	}
	var total int64
	for i, mult := range []int64{3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return 0
		}
		total += n * mult
	}
	return total
}
