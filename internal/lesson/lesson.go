// Package lesson extracts lesson numbers from free-form captions and filenames.
package lesson

import (
	"regexp"
	"strconv"
	"strings"
)

// Bounds for accepted lesson numbers. Values outside the range are treated as
// extraction false positives (dates, version suffixes) and skipped.
const (
	MinNumber = 1
	MaxNumber = 100
)

// Patterns are tried in order; the first in-range capture wins.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`dars[_\s-]*(\d+)`),
	regexp.MustCompile(`(?:hw|homework)[_\s-]*(\d+)`),
	regexp.MustCompile(`lesson[_\s-]*(\d+)`),
	regexp.MustCompile(`(\d+)[_\s-]*(?:dars|chi)`),
	regexp.MustCompile(`#\w*\s*(\d+)`),
	regexp.MustCompile(`(?:^|\s)(\d{1,3})(?:\s|$|\.)`),
}

// Extract returns the first lesson number found in text, or false when no
// heuristic matches a number within bounds. It is pure and side-effect free.
func Extract(text string) (int, bool) {
	if strings.TrimSpace(text) == "" {
		return 0, false
	}

	lowered := strings.ToLower(text)
	for _, pattern := range patterns {
		match := pattern.FindStringSubmatch(lowered)
		if match == nil {
			continue
		}

		number, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}

		if number >= MinNumber && number <= MaxNumber {
			return number, true
		}
	}

	return 0, false
}
