package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMove marks a failed relocation. The file stays un-moved and
	// unregistered so a later filesystem event can retry it.
	ErrMove = errors.New("move error")
	// ErrRegistry marks a ledger persistence failure.
	ErrRegistry = errors.New("registry error")
	// ErrPanic marks a recovered panic from a job.
	ErrPanic = errors.New("job panic")
)

// Wrap builds an error message that includes job context while tagging it
// with the provided marker for later classification by errors.Is.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		return fmt.Errorf("%s: %w", detail, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "job failure"
	}
	return strings.Join(parts, ": ")
}
