package prompts

import (
	"fmt"
	"strings"
)

const (
	DefaultWidth  = 1920
	DefaultHeight = 1080
	DefaultFPS    = 60
)

// VideoSpec is the per-request rendering directive threaded through every
// provider call of that request.
type VideoSpec struct {
	Width       int
	Height      int
	FPS         int
	Orientation string
}

// NewVideoSpec fills zero dimensions with 1920x1080 and derives the orientation.
func NewVideoSpec(width, height, fps int) VideoSpec {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	return VideoSpec{Width: width, Height: height, FPS: fps, Orientation: orientation(width, height)}
}

func orientation(width, height int) string {
	switch {
	case width > height:
		return "horizontal (landscape)"
	case height > width:
		return "vertical (portrait)"
	default:
		return "square"
	}
}

// Notes renders the directive as prompt text.
func (s VideoSpec) Notes() string {
	var b strings.Builder
	b.WriteString("[VIDEO SPECIFICATIONS]\n")
	fmt.Fprintf(&b, "- Resolution: %dx%d px\n", s.Width, s.Height)
	fmt.Fprintf(&b, "- Frame rate: %d fps\n", s.FPS)
	fmt.Fprintf(&b, "- Orientation: %s; spread objects to use the whole visible frame\n", s.Orientation)
	b.WriteString("- Adjust proportions, scale and text placement to this geometry")
	return b.String()
}
