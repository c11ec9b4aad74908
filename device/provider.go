// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// Provider gives the runtime GPU device access supplied by a host
// application instead of running selection. The host (e.g. a gogpu.App
// already holding a device) implements Provider and hands it to
// relay.WithDeviceProvider; the runtime then skips enumeration entirely
// and shares the host's device.
//
// Provider is an alias for gpucontext.DeviceProvider, keeping full
// compatibility with the gpucontext ecosystem under a relay-local name.
type Provider = gpucontext.DeviceProvider

// External wraps a host-supplied provider as a committed Selection
// under StrategyExternal. The host keeps ownership of the device:
// Release drops the reference without destroying anything.
func External(name string, p Provider) *Selection {
	if name == "" {
		name = "external"
	}
	return &Selection{Name: name, Strategy: StrategyExternal, external: p}
}

// NullProvider is a Provider with nil implementations. It stands in for
// the retryable "no device yet" state under the enumeration strategy.
type NullProvider struct{}

// Device returns nil for the null provider.
func (NullProvider) Device() gpucontext.Device { return nil }

// Queue returns nil for the null provider.
func (NullProvider) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null provider.
func (NullProvider) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo returns an empty descriptor for the null provider.
func (NullProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{}
}

// SurfaceFormat returns undefined format for the null provider.
func (NullProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Ensure NullProvider implements Provider.
var _ Provider = NullProvider{}
