package service

import (
	"errors"

	"github.com/campusfix/dispatch/internal/db"
)

var (
	ErrNotFound              = db.ErrNotFound
	ErrNoAvailableTechnician = errors.New("no available technician")
	ErrInvalidTransition     = errors.New("invalid assignment status transition")
	ErrAlreadyAssigned       = errors.New("report already has an active assignment")
	ErrTechnicianBusy        = errors.New("technician has active assignments")
	ErrValidation            = errors.New("validation failed")
)

const (
	CodeNotFound              = "NOT_FOUND"
	CodeNoAvailableTechnician = "NO_AVAILABLE_TECHNICIAN"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeConflict              = "CONFLICT"
	CodeValidation            = "VALIDATION_ERROR"
	CodeDependencyFailure     = "DEPENDENCY_FAILURE"
)

// Kind maps an error returned by the engine to its machine-readable code.
// Anything unrecognised is treated as a failing dependency.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNoAvailableTechnician):
		return CodeNoAvailableTechnician
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrAlreadyAssigned), errors.Is(err, ErrTechnicianBusy),
		errors.Is(err, db.ErrActiveAssignmentExists), errors.Is(err, db.ErrTechnicianBusy):
		return CodeConflict
	case errors.Is(err, ErrValidation):
		return CodeValidation
	}
	return CodeDependencyFailure
}
