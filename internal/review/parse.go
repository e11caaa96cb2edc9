package review

import (
	"strings"
)

const noVerdictReason = "no verdict in response"

// ParseLine parses a single "APPROVED | reason" or "REJECTED | reason" line.
// It returns nil for blank lines, preamble, or lines with any other leading
// token.
func ParseLine(line string) *Verdict {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	token, reason, _ := strings.Cut(line, "|")
	v := &Verdict{Reason: strings.TrimSpace(reason)}
	switch strings.ToUpper(strings.Trim(strings.TrimSpace(token), "*.:")) {
	case "APPROVED":
		v.Approved = true
	case "REJECTED":
	default:
		return nil
	}
	return v
}

// ParseVerdict returns the first verdict line found in raw. A response with
// no recognisable verdict is treated as a rejection.
func ParseVerdict(raw string) Verdict {
	for _, line := range strings.Split(raw, "\n") {
		if v := ParseLine(line); v != nil {
			v.RawResponse = raw
			return *v
		}
	}
	return Verdict{Reason: noVerdictReason, RawResponse: raw}
}
