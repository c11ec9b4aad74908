// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"
	"github.com/gogpu/wgpu/hal"
)

// Candidate is one enumerated rendering device. Probe performs the
// minimal init/teardown handshake; Open commits to the candidate and
// returns a live selection.
type Candidate interface {
	// Name returns the adapter name used for exact-match filtering.
	Name() string

	// Probe attempts a minimal open/teardown handshake.
	Probe() error

	// Open opens the device for real and returns the selection.
	Open() (*Selection, error)
}

// Selection is a committed rendering backend: the opened device, its
// queue, and the handles needed to release them. A Selection is shared
// by reference through the runtime; Release is idempotent.
type Selection struct {
	// Name is the adapter name of the selected device.
	Name string

	// Strategy records how the selection was made.
	Strategy Strategy

	releaseOnce sync.Once

	// HAL handles, set under StrategyEnumerate.
	halInstance hal.Instance
	halDevice   hal.Device
	halQueue    hal.Queue

	// Core handles, set under StrategyNamed.
	coreInstance *core.Instance
	adapter      core.AdapterID
	device       core.DeviceID
	queue        core.QueueID

	// external is the host-supplied provider, set under StrategyExternal.
	external Provider
}

// HalDevice returns the opened hal.Device, or nil under StrategyNamed.
// The any return matches the provider shape gpucontext consumers expect.
func (s *Selection) HalDevice() any {
	if s.halDevice == nil {
		return nil
	}
	return s.halDevice
}

// HalQueue returns the opened hal.Queue, or nil under StrategyNamed.
func (s *Selection) HalQueue() any {
	if s.halQueue == nil {
		return nil
	}
	return s.halQueue
}

// Provider returns the host-supplied provider behind a StrategyExternal
// selection, or nil when the selection was made here.
func (s *Selection) Provider() Provider {
	return s.external
}

// Release frees the device, queue, and instance. Safe to call more
// than once; resources are released in reverse order of creation.
func (s *Selection) Release() {
	s.releaseOnce.Do(func() {
		if s.halDevice != nil {
			s.halDevice.Destroy()
			s.halDevice = nil
			s.halQueue = nil
		}
		if s.halInstance != nil {
			s.halInstance.Destroy()
			s.halInstance = nil
		}
		if !s.device.IsZero() {
			if err := core.DeviceDrop(s.device); err != nil {
				logger().Warn("device: error releasing device", "err", err)
			}
			s.device = core.DeviceID{}
			s.queue = core.QueueID{}
		}
		if !s.adapter.IsZero() {
			if err := core.AdapterDrop(s.adapter); err != nil {
				logger().Warn("device: error releasing adapter", "err", err)
			}
			s.adapter = core.AdapterID{}
		}
		s.coreInstance = nil
		// A host-supplied device is the host's to destroy.
		s.external = nil
	})
}

// Selector chooses the rendering backend at startup.
type Selector struct {
	// Caps is the resolved capability table. Required for Enumerate.
	Caps *Capabilities

	// Name is the configured device name. When set, only an exact match
	// is eligible under enumeration, even if an earlier unnamed candidate
	// would have worked. Empty means first working candidate.
	Name string
}

// Enumerate lists candidate adapters through the HAL, filters them on
// the required capability, and probes them left to right. A candidate
// that fails its probe is skipped, not escalated. The returned *Error
// is retryable: callers designed for it may call Enumerate again.
func (s *Selector) Enumerate() (*Selection, error) {
	if s.Caps == nil {
		return nil, &Error{Strategy: StrategyEnumerate, Name: s.Name,
			Cause: &CapabilityError{Name: "capability table"}}
	}
	instance, err := s.Caps.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, &Error{Strategy: StrategyEnumerate, Name: s.Name,
			Cause: fmt.Errorf("create instance: %w", err)}
	}

	adapters := instance.EnumerateAdapters(nil)
	candidates := make([]Candidate, 0, len(adapters))
	for i := range adapters {
		if !acceptable(adapters[i].Info.DeviceType) {
			continue
		}
		candidates = append(candidates, &halCandidate{exposed: &adapters[i]})
	}
	if len(candidates) == 0 {
		// Nothing advertises the capability; fall back to probing every
		// enumerated adapter before giving up.
		for i := range adapters {
			candidates = append(candidates, &halCandidate{exposed: &adapters[i]})
		}
	}

	sel, err := s.Select(candidates)
	if err != nil {
		instance.Destroy()
		return nil, err
	}
	sel.halInstance = instance
	return sel, nil
}

// Select probes candidates left to right and commits to the first one
// that matches the name filter (if any) and survives its handshake.
// No further candidates are probed after a commit.
func (s *Selector) Select(candidates []Candidate) (*Selection, error) {
	for _, c := range candidates {
		if s.Name != "" && c.Name() != s.Name {
			continue
		}
		if err := c.Probe(); err != nil {
			logger().Warn("device: candidate failed probe", "adapter", c.Name(), "err", err)
			continue
		}
		sel, err := c.Open()
		if err != nil {
			logger().Warn("device: candidate failed open", "adapter", c.Name(), "err", err)
			continue
		}
		sel.Strategy = StrategyEnumerate
		logger().Info("device: selected rendering backend", "adapter", sel.Name)
		return sel, nil
	}
	return nil, &Error{Strategy: StrategyEnumerate, Name: s.Name}
}

// OpenNamed opens a conventional connection to the configured device
// through the wgpu core API, with no enumeration. The runtime treats a
// failure here as unrecoverable.
func (s *Selector) OpenNamed() (*Selection, error) {
	instance := core.NewInstance(&gputypes.InstanceDescriptor{
		Backends: gputypes.BackendsPrimary,
		Flags:    0,
	})

	adapterID, err := instance.RequestAdapter(&gputypes.RequestAdapterOptions{
		PowerPreference: gputypes.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, &Error{Strategy: StrategyNamed, Name: s.Name,
			Cause: fmt.Errorf("request adapter: %w", err)}
	}

	name := s.Name
	if info, err := core.GetAdapterInfo(adapterID); err == nil {
		if s.Name != "" && info.Name != s.Name {
			_ = core.AdapterDrop(adapterID)
			return nil, &Error{Strategy: StrategyNamed, Name: s.Name,
				Cause: fmt.Errorf("adapter %q does not match", info.Name)}
		}
		name = info.Name
		logger().Info("device: opening named connection",
			"adapter", info.Name, "backend", info.Backend, "driver", info.Driver)
	}

	deviceID, err := core.RequestDevice(adapterID, &gputypes.DeviceDescriptor{
		Label:            "relay-render-device",
		RequiredFeatures: nil,
		RequiredLimits:   gputypes.DefaultLimits(),
	})
	if err != nil {
		_ = core.AdapterDrop(adapterID)
		return nil, &Error{Strategy: StrategyNamed, Name: s.Name,
			Cause: fmt.Errorf("request device: %w", err)}
	}

	queueID, err := core.GetDeviceQueue(deviceID)
	if err != nil {
		_ = core.DeviceDrop(deviceID)
		_ = core.AdapterDrop(adapterID)
		return nil, &Error{Strategy: StrategyNamed, Name: s.Name,
			Cause: fmt.Errorf("queue retrieval: %w", err)}
	}

	return &Selection{
		Name:         name,
		Strategy:     StrategyNamed,
		coreInstance: instance,
		adapter:      adapterID,
		device:       deviceID,
		queue:        queueID,
	}, nil
}

// acceptable reports whether the adapter type advertises the capability
// required for off-screen rendering.
func acceptable(t gputypes.DeviceType) bool {
	return t == gputypes.DeviceTypeDiscreteGPU || t == gputypes.DeviceTypeIntegratedGPU
}

// halCandidate adapts one exposed HAL adapter to the Candidate interface.
type halCandidate struct {
	exposed *hal.ExposedAdapter
}

func (c *halCandidate) Name() string { return c.exposed.Info.Name }

// Probe opens the adapter with default features and limits, then tears
// the device straight back down.
func (c *halCandidate) Probe() error {
	openDev, err := c.exposed.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return err
	}
	openDev.Device.Destroy()
	return nil
}

func (c *halCandidate) Open() (*Selection, error) {
	openDev, err := c.exposed.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, err
	}
	return &Selection{
		Name:      c.exposed.Info.Name,
		halDevice: openDev.Device,
		halQueue:  openDev.Queue,
	}, nil
}
