// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import "fmt"

// Strategy identifies how the rendering backend is chosen.
type Strategy int

const (
	// StrategyEnumerate lists candidate adapters and probes them in order.
	StrategyEnumerate Strategy = iota

	// StrategyNamed opens a conventional named connection directly.
	StrategyNamed

	// StrategyExternal adopts a device the host application already
	// holds, with no selection of our own.
	StrategyExternal
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyEnumerate:
		return "enumerate"
	case StrategyNamed:
		return "named"
	case StrategyExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Error reports that no usable rendering backend could be selected.
// Under StrategyNamed the runtime treats it as unrecoverable; under
// StrategyEnumerate callers designed to retry may see it repeatedly.
type Error struct {
	// Strategy is the selection strategy that failed.
	Strategy Strategy

	// Name is the configured device name filter, empty if none.
	Name string

	// Cause is the underlying failure, if a single one exists.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("device: no usable rendering backend named %q (%s strategy)", e.Name, e.Strategy)
	}
	return fmt.Sprintf("device: no usable rendering backend (%s strategy)", e.Strategy)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error { return e.Cause }

// CapabilityError reports that a required backend entry point could not
// be resolved at startup. The runtime cannot intercept correctly without
// it, so this is always fatal.
type CapabilityError struct {
	// Name identifies the missing capability.
	Name string
}

// Error implements the error interface.
func (e *CapabilityError) Error() string {
	return fmt.Sprintf("device: required capability %q unavailable", e.Name)
}
