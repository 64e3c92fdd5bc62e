package scan

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnregistered = errors.New("sheet not registered")
	ErrNilImage     = errors.New("nil source image")
	ErrInvalidRange = errors.New("invalid question range")
)

// UnregisteredError is returned by every query that needs the registered
// image when registration failed. It carries the per-corner outcome.
type UnregisteredError struct {
	Marks [4]RegistrationMark
	// Cause is set when all marks were found but the stretch failed.
	Cause error
}

func (ue *UnregisteredError) Error() string {
	parts := make([]string, 0, 4)
	for _, m := range ue.Marks {
		parts = append(parts, fmt.Sprintf("%s=%s", m.Corner, m.Status))
	}
	msg := "sheet not registered: " + strings.Join(parts, " ")
	if ue.Cause != nil {
		msg += fmt.Sprintf(" (%v)", ue.Cause)
	}
	return msg
}

func (ue *UnregisteredError) Is(target error) bool {
	return target == ErrUnregistered
}

func (ue *UnregisteredError) Unwrap() error {
	return ue.Cause
}

// RangeError reports a question or choice index outside the layout.
type RangeError struct {
	What  string
	Value int
	Limit int
}

func (re *RangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [0,%d)", re.What, re.Value, re.Limit)
}

func (re *RangeError) Unwrap() error {
	return ErrInvalidRange
}
