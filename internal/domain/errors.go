package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing required field, unknown origin).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrInvalidRange is returned by the conflict checker when start >= end.
// Handlers should map this to HTTP 422.
var ErrInvalidRange = errors.New("invalid time range")

// ErrInvalidSequence is returned when stop data is structurally unsound:
// duplicated order values within a trip, or group/ticket rows missing a
// booking request id. It is never silently repaired.
var ErrInvalidSequence = errors.New("invalid stop sequence data")

// ErrIllegalTransition is returned when an action is invoked against a group
// or trip whose current state does not permit it. This indicates a broken
// client guard, not user error; callers log it and reject the action.
// Handlers should map this to HTTP 409 Conflict.
var ErrIllegalTransition = errors.New("illegal state transition")

// ErrScheduleConflict is returned when a candidate schedule entry overlaps
// one or more committed entries for the same driver.
// Handlers should map this to HTTP 409 Conflict.
var ErrScheduleConflict = errors.New("schedule conflict")
