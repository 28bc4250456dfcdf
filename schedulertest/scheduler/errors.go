package meshscheduler

import (
	"fmt"
)

type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Msg)
}

type InsufficientResourceError struct {
	ResourceType ResourceType
	NodeId       int
}

func (e *InsufficientResourceError) Error() string {
	return fmt.Sprintf("insufficient resource %s on node %d", e.ResourceType, e.NodeId)
}

// InvalidInputError reports a malformed topology or workflow description.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConstraintError reports a placement that breaks the workflow uniqueness or
// reachability constraint.
type ConstraintError struct {
	Constraint string
	TaskId     int
	NodeId     int
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("task %d on node %d violates %s constraint", e.TaskId, e.NodeId, e.Constraint)
}

const (
	ConstraintAlreadyMapped = "already-mapped"
	ConstraintUniqueness    = "uniqueness"
	ConstraintReachability  = "reachability"
)
