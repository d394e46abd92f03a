package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers used to classify failures at the top of the pipeline.
// Input and not-found errors are user-fixable; external tool errors are
// retryable because completed stages stay cached across runs.
var (
	ErrInput        = errors.New("input error")
	ErrNotFound     = errors.New("not found")
	ErrExternalTool = errors.New("external tool error")
	ErrNoClips      = errors.New("no usable clips")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserFixable reports whether the error is something the user can correct
// (bad URL, unreadable setlist, unknown persona) rather than a transient
// collaborator failure.
func UserFixable(err error) bool {
	return errors.Is(err, ErrInput) || errors.Is(err, ErrNotFound)
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
