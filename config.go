package relay

import (
	"os"
	"strconv"
	"sync/atomic"
)

// Environment keys consumed by Reload. The format and source of the
// configuration are owned by the embedding layer; this package only
// consumes the resulting values.
const (
	envLog       = "RELAY_LOG"
	envVerbose   = "RELAY_VERBOSE"
	envExclude   = "RELAY_EXCLUDE"
	envDevice    = "RELAY_DEVICE"
	envEnumerate = "RELAY_ENUMERATE"
	envTrap      = "RELAY_TRAP"
	envDiagAddr  = "RELAY_DIAG"
)

// Config holds the option values the runtime consumes. It is reloadable:
// hook code re-reads the current snapshot through Runtime on every call
// that is documented as reload-sensitive (exclusion checks, notably).
type Config struct {
	// Log is the log destination. Empty means stderr.
	Log string

	// Verbose enables debug-level logging and the startup banner.
	Verbose bool

	// Exclude is the excluded-display-name list, delimited by commas,
	// spaces, or tabs. Matching is case-insensitive and exact.
	Exclude string

	// Device names the local rendering device or display. Empty selects
	// the first working candidate under the enumeration strategy and the
	// platform default under the named strategy.
	Device string

	// Enumerate selects the device-enumeration strategy instead of a
	// direct named connection.
	Enumerate bool

	// TrapErrors installs the low-level error trap during Init, turning
	// asynchronous backend errors into logged warnings instead of
	// application-visible failures.
	TrapErrors bool

	// DiagAddr is the listen address for the diagnostics HTTP endpoint.
	// Empty disables it.
	DiagAddr string
}

// configPtr is the process-wide configuration snapshot. A nil pointer
// means the singleton has been dropped by shutdown.
var configPtr atomic.Pointer[Config]

// Reload re-reads the configuration from the environment and publishes
// a new snapshot. It returns the snapshot it installed.
func Reload() *Config {
	cfg := &Config{
		Log:        os.Getenv(envLog),
		Verbose:    envBool(envVerbose),
		Exclude:    os.Getenv(envExclude),
		Device:     os.Getenv(envDevice),
		Enumerate:  envBool(envEnumerate),
		TrapErrors: envBool(envTrap),
		DiagAddr:   os.Getenv(envDiagAddr),
	}
	configPtr.Store(cfg)
	return cfg
}

// CurrentConfig returns the active configuration snapshot, loading it
// from the environment on first use.
func CurrentConfig() *Config {
	if cfg := configPtr.Load(); cfg != nil {
		return cfg
	}
	return Reload()
}

// dropConfig releases the configuration singleton. Called only from the
// shutdown path.
func dropConfig() {
	configPtr.Store(nil)
}

func envBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}
