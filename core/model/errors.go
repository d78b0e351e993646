package model

import "errors"

// Validation failures reported by the Validate methods. Callers match them
// with errors.Is.
var (
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidWeight   = errors.New("invalid weight")
	ErrInvalidCapacity = errors.New("invalid capacity")
	ErrInvalidRating   = errors.New("invalid rating")
	ErrInvalidInterval = errors.New("invalid interval")
	ErrInvalidMileage  = errors.New("invalid mileage")
	ErrInvalidWindow   = errors.New("invalid time window")
	ErrMissingID       = errors.New("missing id")
	ErrUnknownValue    = errors.New("unknown value")
)
