package pipeline

import (
	"fmt"

	"github.com/tarmor/tarmor/internal/policy"
)

// UserInputError marks invalid command input (bad flags, missing paths) so
// the CLI can map it to its own exit code, distinct from policy failures.
type UserInputError struct {
	Msg string
}

func (e *UserInputError) Error() string { return e.Msg }

func userInputErrorf(format string, args ...any) error {
	return &UserInputError{Msg: fmt.Sprintf(format, args...)}
}

// PolicyRunError is the terminal failure of an operation that encountered
// policy violations. In strict mode it carries the single aborting
// violation; in permissive mode it aggregates everything recorded while the
// operation ran to completion. Either way the run counts as failed.
type PolicyRunError struct {
	Violations []*policy.Violation
}

func (e *PolicyRunError) Error() string {
	if len(e.Violations) == 1 {
		return e.Violations[0].Error()
	}
	return fmt.Sprintf("%d policy violations (first: %s)", len(e.Violations), e.Violations[0].Error())
}

// Unwrap exposes the first violation for errors.As matching.
func (e *PolicyRunError) Unwrap() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e.Violations[0]
}
