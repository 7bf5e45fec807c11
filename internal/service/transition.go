package service

import "github.com/taskdeck/taskdeck/internal/model"

// ValidateTransition enforces the task status state machine:
//
//	PENDING -> COMPLETED
//	PENDING -> CANCELED
//
// COMPLETED and CANCELED are terminal. Requesting the current status is a
// no-op and always allowed, terminal states included.
func ValidateTransition(current, requested model.TaskStatus) error {
	if requested == current {
		return nil
	}
	if current.IsTerminal() {
		return model.ErrTerminalState
	}
	// current is PENDING; only the two terminal states are reachable.
	if requested != model.StatusCompleted && requested != model.StatusCanceled {
		return model.ErrInvalidTransition
	}
	return nil
}
