// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package device selects the rendering backend used for off-screen GPU
// work.
//
// Two strategies exist, mirroring the two ways a headless host can reach
// a GPU:
//
//   - Enumeration: list the adapters exposed by the wgpu HAL, filter on
//     the required capability, and probe candidates left to right with a
//     minimal open/teardown handshake. The first candidate that matches
//     the configured name (if any) and survives the handshake wins.
//   - Named: open a conventional connection to a named device through
//     the wgpu core API, with no enumeration.
//
// The runtime decides what a selection failure means: a failed named
// connection is unrecoverable, while a failed enumeration may be retried
// by callers designed for it.
package device
