package broadcast

import (
	"errors"
	"fmt"

	"morningcast/internal/services"
)

var (
	// ErrPlanParse matches any *PlanParseError.
	ErrPlanParse = errors.New("program plan is not valid structured data")
	// ErrRunInProgress reports that another process holds the slug's lock.
	ErrRunInProgress = errors.New("broadcast run already in progress")
)

// PlanParseError carries the planner output that failed to parse.
type PlanParseError struct {
	Raw string
	Err error
}

func (e *PlanParseError) Error() string {
	return fmt.Sprintf("parse program plan: %v", e.Err)
}

func (e *PlanParseError) Unwrap() error { return e.Err }

// Is matches ErrPlanParse and the validation marker.
func (e *PlanParseError) Is(target error) bool {
	return target == ErrPlanParse || target == services.ErrValidation
}
