// Package setlist extracts ordered (label, start time) entries from free
// text such as a video description or a user-supplied setlist file.
package setlist

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"showclip/internal/types"
)

// ErrNoSetlist reports that zero valid entries could be extracted.
var ErrNoSetlist = errors.New("no setlist found")

var (
	// "Song Title - 3:45" / "2. Encore — 1:02:03"
	timeAtEndRE = regexp.MustCompile(`^(.*?)\s*[-–—]\s*\(?((?:\d{1,2}:)?\d{1,2}:\d{2})\)?[\s.!]*$`)
	// "3:45 Song Title" / "[1:02:03] - Encore"
	timeAtStartRE = regexp.MustCompile(`^[\[(]?((?:\d{1,2}:)?\d{1,2}:\d{2})[\])]?\s*[-–—:]?\s*(.*?)\s*$`)
	// leading track-number tokens: "1.", "02 -", "3)"
	ordinalRE = regexp.MustCompile(`^\d{1,3}\s*[.\-)]?\s+`)
)

// Parse extracts setlist entries from raw text. One timestamp per line,
// time either leading or trailing, mm:ss or h:mm:ss. Lines that fail to
// parse are skipped; zero valid entries yields ErrNoSetlist. Entries are
// returned sorted by start time; duplicate start times are an error since
// they would produce zero-length clips.
func Parse(text string) ([]types.SetlistEntry, error) {
	var entries []types.SetlistEntry
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		entry, ok := parseLine(line)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, ErrNoSetlist
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Start < entries[j].Start })
	for i := 1; i < len(entries); i++ {
		if entries[i].Start == entries[i-1].Start {
			return nil, fmt.Errorf("duplicate setlist timestamp %s for %q and %q",
				formatSeconds(entries[i].Start), entries[i-1].Label, entries[i].Label)
		}
	}
	return entries, nil
}

func parseLine(line string) (types.SetlistEntry, bool) {
	if m := timeAtEndRE.FindStringSubmatch(line); m != nil {
		label := cleanLabel(m[1])
		if start, err := parseTimestamp(m[2]); err == nil && label != "" {
			return types.SetlistEntry{Label: label, Start: start}, true
		}
	}
	if m := timeAtStartRE.FindStringSubmatch(line); m != nil {
		label := cleanLabel(m[2])
		if start, err := parseTimestamp(m[1]); err == nil && label != "" {
			return types.SetlistEntry{Label: label, Start: start}, true
		}
	}
	return types.SetlistEntry{}, false
}

func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	s = ordinalRE.ReplaceAllString(s, "")
	return strings.Trim(s, " \t-–—.:")
}

func parseTimestamp(ts string) (float64, error) {
	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("bad timestamp %q", ts)
	}
	var seconds int
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("bad timestamp %q", ts)
		}
		seconds = seconds*60 + n
	}
	// sanity: sub-minute fields must be in range
	tail, _ := strconv.Atoi(parts[len(parts)-1])
	if tail > 59 {
		return 0, fmt.Errorf("bad timestamp %q", ts)
	}
	return float64(seconds), nil
}

func formatSeconds(s float64) string {
	total := int(s)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
