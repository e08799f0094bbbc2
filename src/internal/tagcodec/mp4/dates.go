package mp4

import "time"

// formatMP4Year renders epoch milliseconds as a bare year: §4.2 says ©day
// carries "year only" for MP4, unlike ID3's full-date TDRL.
func formatMP4Year(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006")
}
