// Package relay implements the interception runtime for remote GPU
// rendering: it redirects graphics-API calls from an unmodified
// application into an internally managed rendering backend and relays
// rendered frames to a remote viewer.
//
// # Overview
//
// The package owns the process-wide lifecycle of the interception layer:
//
//   - one-time initialization, safe under any number of racing threads
//   - lazy selection of the off-screen rendering device (package
//     github.com/gogpu/relay/device)
//   - shadow bookkeeping for every graphics resource the application
//     creates (package github.com/gogpu/relay/registry)
//   - exactly-once shutdown, no matter how many threads request it
//
// Rendered frames are described by frame.Descriptor values and carried
// to the viewer by package github.com/gogpu/relay/transport.
//
// # Quick Start
//
//	rt := relay.New()
//	if err := rt.Init(); err != nil {
//		rt.Fatal(err)
//	}
//	sel, err := rt.AcquireRenderDevice()
//	...
//	defer rt.Close()
//
// Interception hooks (the dispatch table that redirects the native API)
// live outside this module; they call into Runtime on every intercepted
// entry point. A hook thread can call DisableInterception and
// EnableInterception to reach the real underlying API without being
// re-intercepted.
//
// # Logging
//
// relay produces no log output by default. Call SetLogger to enable it,
// or set RELAY_LOG/RELAY_VERBOSE and let Init install a sink.
package relay

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
