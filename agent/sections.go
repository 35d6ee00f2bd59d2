package agent

import (
	"regexp"
	"strconv"
	"strings"
)

// SplitSections scrapes a free-text model reply into named sections.
//
// The agents ask the model for structured text with numbered headings
// rather than JSON, because smaller models follow that format more
// reliably. A line opens a section when it contains one of the heading
// keywords, optionally prefixed by list numbering or markdown emphasis;
// everything up to the next heading line belongs to that section. Keys
// in the result are the matched keywords, lowercased. Text before the
// first heading is discarded.
func SplitSections(text string, headings []string) map[string]string {
	sections := make(map[string]string)
	var current string
	var body []string

	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(strings.Join(body, "\n"))
		}
		body = body[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if h := matchHeading(line, headings); h != "" {
			flush()
			current = h
			// Keep any text trailing the heading on the same line.
			if rest := headingRest(line, h); rest != "" {
				body = append(body, rest)
			}
			continue
		}
		if current != "" {
			body = append(body, line)
		}
	}
	flush()
	return sections
}

var headingNoise = regexp.MustCompile(`^[\s#*>-]*(\d+[.)])?[\s*]*`)

func matchHeading(line string, headings []string) string {
	stripped := headingNoise.ReplaceAllString(line, "")
	lower := strings.ToLower(stripped)
	for _, h := range headings {
		if strings.HasPrefix(lower, strings.ToLower(h)) {
			return strings.ToLower(h)
		}
	}
	return ""
}

func headingRest(line, heading string) string {
	lower := strings.ToLower(line)
	idx := strings.Index(lower, heading)
	if idx < 0 {
		return ""
	}
	rest := line[idx+len(heading):]
	return strings.TrimSpace(strings.TrimLeft(rest, ":*- \t"))
}

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// firstNumber extracts the first numeric value from the text, tolerating
// both 1,500.50 and European 1.500,50 digit grouping. Returns 0 when the
// text contains no number.
func firstNumber(s string) float64 {
	match := numberPattern.FindString(s)
	if match == "" {
		return 0
	}
	// Treat the last separator as the decimal point and drop the rest.
	lastDot := strings.LastIndexAny(match, ".,")
	if lastDot >= 0 {
		intPart := strings.Map(func(r rune) rune {
			if r == '.' || r == ',' {
				return -1
			}
			return r
		}, match[:lastDot])
		match = intPart + "." + match[lastDot+1:]
		// A separator followed by exactly three digits is grouping, not
		// a decimal point.
		if len(match)-strings.Index(match, ".") == 4 {
			match = strings.Replace(match, ".", "", 1)
		}
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return v
}

// riskLevel classifies a free-text risk statement as low, medium or
// high, defaulting to medium.
func riskLevel(s string) string {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "high") || strings.Contains(lower, "hoch"):
		return "high"
	case strings.Contains(lower, "low") || strings.Contains(lower, "niedrig"):
		return "low"
	default:
		return "medium"
	}
}

// bulletLines extracts the non-empty lines of a section body, stripping
// list markers.
func bulletLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		line = headingNoise.ReplaceAllString(line, "")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
