package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrConfig           = errors.New("configuration error")
	ErrGuideNotFound    = errors.New("guide not found")
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// FlowError attributes a collaborator failure to the node it happened in, so
// a retrieval failure can be told apart from a generation failure.
type FlowError struct {
	Node string
	Err  error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("flow node %q: %v", e.Node, e.Err)
}

func (e *FlowError) Unwrap() error { return e.Err }
