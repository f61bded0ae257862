package merge

import "strings"

const fence = "```"

// SplitCandidate turns raw backend text into lines. One terminal newline is
// ignored, carriage returns are dropped, and a fenced code block (```lang ...
// ```) is unwrapped.
func SplitCandidate(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}

	if !strings.HasPrefix(strings.TrimSpace(lines[0]), fence) {
		return lines
	}
	if len(lines) < 2 {
		return nil
	}
	lines = lines[1 : len(lines)-1]
	if n := len(lines); n > 0 && isFence(lines[n-1]) {
		lines = lines[:n-1]
	}
	return lines
}

func isFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), fence)
}
