package responder

import (
	"regexp"
	"strconv"
	"strings"
)

// scorePattern matches the trailing quality marker the generator appends,
// e.g. "...回复内容<score>0.8".
var scorePattern = regexp.MustCompile(`<score>([\d.]+)`)

// extractScore strips the trailing score marker from a raw generated reply.
// When no marker parses, the full text is kept and score defaults to 0.0
// with scored=false; that case never triggers auto-suspension.
func extractScore(raw string) (reply string, score float64, scored bool) {
	loc := scorePattern.FindStringSubmatchIndex(raw)
	if loc == nil {
		return raw, 0.0, false
	}
	v, err := strconv.ParseFloat(raw[loc[2]:loc[3]], 64)
	if err != nil {
		return raw, 0.0, false
	}
	return raw[:loc[0]], v, true
}

// splitSegments splits a reply on paragraph boundaries into ordered,
// non-empty segments; each becomes one persisted message.
func splitSegments(reply string) []string {
	parts := strings.Split(reply, "\n\n")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		segments = append(segments, p)
	}
	return segments
}
