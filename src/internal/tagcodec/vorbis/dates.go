package vorbis

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// vorbisDateLayouts mirrors RELEASEDATE's accepted grammar (full date down
// to a bare year, same specificity ladder as ID3v2.4 timestamps).
var vorbisDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

func parseVorbisDate(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty timestamp")
	}
	for _, layout := range vorbisDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, errors.Errorf("unrecognized RELEASEDATE/RELEASEYEAR timestamp %q", s)
}

func formatVorbisDate(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}
