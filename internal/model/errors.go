package model

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the fetch layer, the calculators and the HTTP surface.
var (
	ErrProvider         = errors.New("provider error")
	ErrInsufficientData = errors.New("insufficient data")
	ErrDegenerateInput  = errors.New("degenerate input")
	ErrValidation       = errors.New("validation error")
)

// ProviderError reports an upstream fetch that failed or returned an unusable payload.
type ProviderError struct {
	Provider string
	Symbol   string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Symbol, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrProvider) match any ProviderError.
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// ValidationError names the request parameter that was missing or malformed.
type ValidationError struct {
	Param  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
