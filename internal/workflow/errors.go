package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict is returned when a machine is checked in while it is
	// already at a workstation.
	ErrConflict = errors.New("machine is already checked in")
	// ErrNotFound is returned for unknown barcodes and for check-outs from a
	// workstation the machine is not at.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("invalid input")
	// ErrOutOfSequence is returned when the previous workstation has not been
	// completed.
	ErrOutOfSequence = errors.New("previous workstation not completed")
)

// ConflictError reports the workstation a machine is already checked in to.
type ConflictError struct {
	BarcodeID   string
	Workstation int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("machine %s is already in workstation %d", e.BarcodeID, e.Workstation)
}

// Is makes errors.Is(err, ErrConflict) hold.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// SequenceError reports the workstation that has to be completed first.
type SequenceError struct {
	BarcodeID   string
	Workstation int
	Required    int
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("machine %s must complete workstation %d before workstation %d", e.BarcodeID, e.Required, e.Workstation)
}

// Is makes errors.Is(err, ErrOutOfSequence) hold.
func (e *SequenceError) Is(target error) bool {
	return target == ErrOutOfSequence
}
