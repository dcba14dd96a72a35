package jobs

import (
	"errors"
	"fmt"

	"github.com/sevigo/autoci/internal/core"
)

// ErrInvalidTask is returned for tasks missing the fields their kind needs.
var ErrInvalidTask = errors.New("invalid task")

func validateTask(task *core.Task) error {
	if task == nil {
		return fmt.Errorf("%w: task is nil", ErrInvalidTask)
	}
	if task.RepositoryID == "" {
		return fmt.Errorf("%w: repository id is required", ErrInvalidTask)
	}
	switch task.Kind {
	case core.TaskOnboarding:
	case core.TaskHealing:
		if task.RunID == "" {
			return fmt.Errorf("%w: run id is required for healing", ErrInvalidTask)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTask, task.Kind)
	}
	return nil
}
