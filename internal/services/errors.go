package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrProvider      = errors.New("provider error")
	ErrExtraction    = errors.New("extraction error")
	ErrValidation    = errors.New("validation error")
	ErrRenderTimeout = errors.New("render timeout")
	ErrRenderFailure = errors.New("render failure")
	ErrConfiguration = errors.New("configuration error")
	ErrUnexpected    = errors.New("unexpected error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrUnexpected
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to the taxonomy name used for metric labels and log fields.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProvider):
		return "provider"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrRenderTimeout):
		return "render_timeout"
	case errors.Is(err, ErrRenderFailure):
		return "render_failure"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "unexpected"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
