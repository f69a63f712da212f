package tool

import (
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/planweave/internal/pool"
)

// ErrInvalidInput is returned synchronously when a value that is not a
// function is registered or described. Nothing is queued in that case.
var ErrInvalidInput = errors.New("the provided value must be a function")

// PoolNotInitializedError is returned when a wrapped synchronous tool is
// invoked before its designated worker pool has been configured. It is
// raised at invocation time, not registration time.
type PoolNotInitializedError struct {
	Kind pool.Kind
}

func (e *PoolNotInitializedError) Error() string {
	return fmt.Sprintf("%s worker pool not initialized", e.Kind)
}
