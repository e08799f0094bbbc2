package id3

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// id3DateLayouts are accepted in order of specificity, per the ID3v2.4
// timestamp grammar (yyyy, yyyy-MM, yyyy-MM-dd, ...).
var id3DateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// parseID3Date parses an ID3v2.4 timestamp string into epoch milliseconds.
func parseID3Date(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty timestamp")
	}
	for _, layout := range id3DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, errors.Errorf("unrecognized ID3v2.4 timestamp %q", s)
}

// formatID3Date renders epoch milliseconds back to a "yyyy-MM-dd" timestamp,
// the most specific form the writer emits.
func formatID3Date(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}

// formatID3Year renders epoch milliseconds as a bare year, for the TDRC
// fallback frame.
func formatID3Year(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006")
}
