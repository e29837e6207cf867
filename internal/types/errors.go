package types

import "fmt"

// ValidationError represents a posting or value that fails validation.
// Ingestion counts and skips these instead of aborting the run.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
