package generator

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoCode is returned when a reply holds neither a python fence nor the
// manim import signature.
var ErrNoCode = errors.New("Could not extract valid Manim code from response")

var fencePattern = regexp.MustCompile("(?s)```python\\s*(.*?)\\s*```")

const importSignature = "from manim import"

// Extract returns the first ```python fenced block of reply. A reply without
// a fence is accepted whole only when it contains the manim import.
func Extract(reply string) (string, error) {
	if match := fencePattern.FindStringSubmatch(reply); match != nil {
		return strings.TrimSpace(match[1]), nil
	}
	if strings.Contains(reply, importSignature) {
		return strings.TrimSpace(reply), nil
	}
	return "", ErrNoCode
}
