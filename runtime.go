package relay

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/relay/device"
)

// ErrShutdown is returned by runtime operations invoked after the
// shutdown transition has been observed.
var ErrShutdown = errors.New("relay: runtime is shut down")

// renderBackend is the HAL backend the capability table is resolved
// from under the enumeration strategy.
const renderBackend = gputypes.BackendVulkan

// Runtime is the process-wide interception state machine. It owns the
// shadow registries, the selected rendering device, and the lifecycle
// flags, all serialized by one process mutex. Hook threads share a
// single Runtime; Default returns it.
type Runtime struct {
	mu sync.Mutex

	initOnce sync.Once
	initErr  error

	// deadYet transitions false→true exactly once; the transitioning
	// caller runs cleanup and terminates the process.
	deadYet bool

	// trapErrors turns asynchronous backend errors into logged warnings.
	trapErrors bool

	caps      *device.Capabilities
	selection *device.Selection

	// extensions is the capability summary cached on device selection
	// and released during cleanup.
	extensions string

	tables  registries
	threads threadMap

	// provider is the host-supplied device, set by WithDeviceProvider.
	// When present, AcquireRenderDevice adopts it instead of selecting.
	provider device.Provider

	// selectDevice runs the configured selection strategy. Swappable so
	// tests can exercise the fatality policy without a live backend.
	selectDevice func(cfg *Config) (*device.Selection, error)

	// exit terminates the process. Swappable so tests can observe the
	// exactly-once exit without dying.
	exit func(code int)
}

// Option configures a Runtime during creation.
type Option func(*Runtime)

// WithDeviceProvider hands the runtime a device the host application
// already holds. AcquireRenderDevice adopts it under StrategyExternal
// instead of enumerating or opening anything itself; the host keeps
// ownership of the device's lifecycle.
//
// Example:
//
//	rt := relay.New(relay.WithDeviceProvider(app))
func WithDeviceProvider(p device.Provider) Option {
	return func(r *Runtime) {
		r.provider = p
	}
}

// New returns a fresh, uninitialized Runtime. Production code uses the
// process-wide instance from Default; New exists for tests and for
// embedders that manage their own lifecycle.
func New(opts ...Option) *Runtime {
	r := &Runtime{exit: os.Exit}
	r.selectDevice = r.runSelector
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var std = New()

// Default returns the process-wide Runtime shared by all hook threads.
func Default() *Runtime { return std }

// Init performs the one-time process initialization: load the
// configuration, establish the log sink, and optionally arm the error
// trap. It is safe to call from any number of threads concurrently; the
// expensive body runs exactly once, and its completion happens-before
// any registry access by any caller of Init.
func (r *Runtime) Init() error {
	r.initOnce.Do(func() { r.initErr = r.initialize() })
	return r.initErr
}

func (r *Runtime) initialize() error {
	cfg := Reload()

	logger, err := openLogSink(cfg.Log, cfg.Verbose)
	if err != nil {
		return fmt.Errorf("relay: opening log sink: %w", err)
	}
	SetLogger(logger)

	if cfg.Verbose {
		logger.Info("relay: runtime initialized",
			"version", Version,
			"os", runtime.GOOS,
			"arch", runtime.GOARCH,
			"device", cfg.Device,
			"enumerate", cfg.Enumerate,
		)
	}
	if cfg.TrapErrors {
		r.mu.Lock()
		r.trapErrors = true
		r.mu.Unlock()
		logger.Info("relay: backend error trap armed")
	}
	return nil
}

// AcquireRenderDevice returns the selected rendering backend, running
// the device selector on first use. A host-supplied provider (see
// WithDeviceProvider) is adopted without any selection. Otherwise,
// under the named strategy a selection failure is unrecoverable and
// shuts the process down with exit code 1; under the enumeration
// strategy the error is returned so callers built for it can retry.
func (r *Runtime) AcquireRenderDevice() (*device.Selection, error) {
	r.mu.Lock()
	if r.deadYet {
		r.mu.Unlock()
		return nil, ErrShutdown
	}
	if r.selection != nil {
		sel := r.selection
		r.mu.Unlock()
		return sel, nil
	}

	cfg := CurrentConfig()
	if r.provider != nil {
		sel := device.External(cfg.Device, r.provider)
		r.selection = sel
		r.extensions = fmt.Sprintf("adapter=%s strategy=%s", sel.Name, sel.Strategy)
		r.mu.Unlock()
		Logger().Info("relay: adopted host rendering device", "adapter", sel.Name)
		return sel, nil
	}

	sel, err := r.selectDevice(cfg)
	if err != nil {
		r.mu.Unlock()
		if cfg.Enumerate {
			Logger().Warn("relay: no rendering device yet", "err", err)
			return nil, err
		}
		r.Fatal(err)
		return nil, err
	}
	r.selection = sel
	r.extensions = fmt.Sprintf("backend=%s adapter=%s strategy=%s",
		renderBackend, sel.Name, sel.Strategy)
	r.mu.Unlock()

	Logger().Info("relay: rendering device acquired",
		"adapter", sel.Name, "strategy", sel.Strategy)
	return sel, nil
}

// runSelector resolves the capability table once and runs the strategy
// named by the configuration. Called with the process mutex held.
func (r *Runtime) runSelector(cfg *Config) (*device.Selection, error) {
	if r.caps == nil {
		caps, err := device.Resolve(renderBackend)
		if err != nil {
			return nil, err
		}
		r.caps = caps
	}
	sel := &device.Selector{Caps: r.caps, Name: cfg.Device}
	if cfg.Enumerate {
		return sel.Enumerate()
	}
	return sel.OpenNamed()
}

// Extensions returns the capability summary cached when the device was
// selected. Empty before the first AcquireRenderDevice and after
// shutdown.
func (r *Runtime) Extensions() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.extensions
}

// Shutdown tears the runtime down and terminates. Exactly one caller
// makes the false→true transition of the shutdown flag; that caller
// runs cleanup while still holding the process mutex and then exits the
// whole process with code. Every other concurrent or later caller
// terminates only its own thread of execution. Callers that must not
// die should use Close instead.
func (r *Runtime) Shutdown(code int) {
	r.mu.Lock()
	already := r.deadYet
	r.deadYet = true
	if !already {
		r.cleanupLocked()
	}
	r.mu.Unlock()

	if !already {
		r.exit(code)
		return
	}
	runtime.Goexit()
}

// Close runs the same idempotent shutdown transition as Shutdown but
// never terminates anything. It is the unload-time fallback for
// processes that exit without an explicit Shutdown.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deadYet {
		return nil
	}
	r.deadYet = true
	r.cleanupLocked()
	return nil
}

// cleanupLocked releases everything the runtime accumulated: every
// shadow table, the cached extension summary, the committed device
// selection, the capability table, and the configuration singleton.
// Caller holds r.mu.
func (r *Runtime) cleanupLocked() {
	r.tables.clear()
	r.extensions = ""
	if r.selection != nil {
		r.selection.Release()
		r.selection = nil
	}
	r.caps = nil
	dropConfig()
	Logger().Info("relay: runtime shut down")
}

// Fatal logs err and shuts the process down with exit code 1. All
// unrecoverable conditions funnel through here: registry misuse, a
// failed named-device selection, a missing required capability.
func (r *Runtime) Fatal(err error) {
	Logger().Error("relay: fatal", "err", err)
	r.Shutdown(1)
}

// TrapError consumes err when the error trap is armed, logging it as a
// warning and reporting it handled. With the trap disarmed the error is
// returned unchanged for the caller to surface.
func (r *Runtime) TrapError(err error) error {
	if err == nil {
		return nil
	}
	r.mu.Lock()
	trap := r.trapErrors
	r.mu.Unlock()
	if trap {
		Logger().Warn("relay: trapped backend error", "err", err)
		return nil
	}
	return err
}

// IsExcluded reports whether name appears in the configured exclusion
// list. The configuration is re-read on every call because the list may
// be reloaded externally between calls. Tokens are delimited by commas,
// spaces, and tabs; matching is case-insensitive and exact.
func (r *Runtime) IsExcluded(name string) bool {
	cfg := Reload()
	tokens := strings.FieldsFunc(cfg.Exclude, func(c rune) bool {
		return c == ',' || c == ' ' || c == '\t'
	})
	for _, tok := range tokens {
		if strings.EqualFold(tok, name) {
			return true
		}
	}
	return false
}
