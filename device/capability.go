// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	_ "github.com/gogpu/wgpu/hal/vulkan" // register the Vulkan HAL backend
)

// Capabilities is the table of HAL entry points the selector needs,
// resolved once at startup and injected into dependents. Resolution
// failure is reported at resolve time rather than scattered through
// call sites.
type Capabilities struct {
	// Backend identifies the HAL backend the table was resolved from.
	Backend gputypes.Backend

	// CreateInstance opens a HAL instance on the resolved backend.
	CreateInstance func(*hal.InstanceDescriptor) (hal.Instance, error)
}

// Resolve looks up the HAL backend and builds the capability table.
// It returns a CapabilityError when the backend, or any required entry
// point, is not available in this process.
func Resolve(backend gputypes.Backend) (*Capabilities, error) {
	b, ok := hal.GetBackend(backend)
	if !ok {
		return nil, &CapabilityError{Name: backend.String() + " backend"}
	}
	caps := &Capabilities{
		Backend:        backend,
		CreateInstance: b.CreateInstance,
	}
	if caps.CreateInstance == nil {
		return nil, &CapabilityError{Name: "CreateInstance"}
	}
	return caps, nil
}

// loggerPtr stores the logger propagated from the relay root package.
// device cannot import the root without a cycle, so the root pushes its
// logger here.
var loggerPtr atomic.Pointer[slog.Logger]

// SetLogger installs the logger used by this package. A nil logger
// silences it.
func SetLogger(l *slog.Logger) {
	loggerPtr.Store(l)
}

func logger() *slog.Logger {
	if l := loggerPtr.Load(); l != nil {
		return l
	}
	return slog.New(discardHandler{})
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
