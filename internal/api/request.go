package api

import (
	"fmt"
	"strings"

	"manimgen/internal/pipeline"
	"manimgen/internal/textutil"
)

// Request bounds.
const (
	MinDescriptionRunes = 10
	MaxDescriptionRunes = 2000
	MinDimension        = 16
	MaxDimension        = 7680
)

var validQualities = map[string]struct{}{
	"l": {},
	"m": {},
	"h": {},
	"k": {},
}

// ValidQuality reports whether q is one of the renderer's quality tiers.
func ValidQuality(q string) bool {
	_, ok := validQualities[q]
	return ok
}

// RequestError reports a request that failed validation. Field names the
// offending JSON key.
type RequestError struct {
	Field   string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Input validates the request and converts it to a pipeline input. The
// description is NFC-normalized before its length is checked.
func (r VideoRequest) Input() (pipeline.Input, error) {
	description := textutil.NormalizeDescription(r.Description)
	switch n := textutil.RuneLength(description); {
	case n < MinDescriptionRunes:
		return pipeline.Input{}, &RequestError{Field: "description", Message: fmt.Sprintf("must be at least %d characters", MinDescriptionRunes)}
	case n > MaxDescriptionRunes:
		return pipeline.Input{}, &RequestError{Field: "description", Message: fmt.Sprintf("must be at most %d characters", MaxDescriptionRunes)}
	}

	width, err := dimension("width", r.Width)
	if err != nil {
		return pipeline.Input{}, err
	}
	height, err := dimension("height", r.Height)
	if err != nil {
		return pipeline.Input{}, err
	}

	quality := strings.ToLower(strings.TrimSpace(r.Quality))
	if quality != "" {
		if !ValidQuality(quality) {
			return pipeline.Input{}, &RequestError{Field: "quality", Message: "must be one of l, m, h, k"}
		}
	}

	return pipeline.Input{
		Description: description,
		Width:       width,
		Height:      height,
		Quality:     quality,
	}, nil
}

func dimension(field string, value *int) (int, error) {
	if value == nil {
		return 0, nil
	}
	v := *value
	if v < MinDimension || v > MaxDimension {
		return 0, &RequestError{Field: field, Message: fmt.Sprintf("must be between %d and %d", MinDimension, MaxDimension)}
	}
	if v%2 != 0 {
		return 0, &RequestError{Field: field, Message: "must be even"}
	}
	return v, nil
}
