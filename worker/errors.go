package worker

import (
	"errors"
	"fmt"
)

var (
	// ErrActivityNotRegistered is returned when a task names an activity
	// this worker does not host
	ErrActivityNotRegistered = errors.New("activity not registered")

	// ErrDuplicateRegistration is returned when attempting to register a name that is already taken
	ErrDuplicateRegistration = errors.New("activity already registered")

	// ErrNoActivities is returned when Run is called on a worker with an empty registry
	ErrNoActivities = errors.New("worker has no registered activities")
)

// RegistrationError represents an error that occurred during activity registration
type RegistrationError struct {
	ActivityName string
	Cause        error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("failed to register activity %s: %v", e.ActivityName, e.Cause)
}

func (e *RegistrationError) Unwrap() error {
	return e.Cause
}

// TaskProcessingError represents an error that occurred while processing a task
type TaskProcessingError struct {
	ActivityName string
	WorkflowID   string
	Cause        error
}

func (e *TaskProcessingError) Error() string {
	return fmt.Sprintf("failed to process activity task %s (workflow=%s): %v",
		e.ActivityName, e.WorkflowID, e.Cause)
}

func (e *TaskProcessingError) Unwrap() error {
	return e.Cause
}
