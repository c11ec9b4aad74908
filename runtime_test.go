package relay

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gogpu/relay/device"
)

// newTestRuntime returns a Runtime whose exit and device-selection
// hooks are captured instead of touching the process or a live backend.
func newTestRuntime(t *testing.T) (*Runtime, *int32, *int32) {
	t.Helper()
	r := New()
	exitCalls := new(int32)
	exitCode := new(int32)
	r.exit = func(code int) {
		atomic.AddInt32(exitCalls, 1)
		atomic.StoreInt32(exitCode, int32(code))
	}
	return r, exitCalls, exitCode
}

func TestInitRunsExactlyOnce(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "relay.log")
	t.Setenv(envLog, logPath)
	t.Setenv(envVerbose, "1")
	dropConfig()

	r, _, _ := newTestRuntime(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Init(); err != nil {
				t.Errorf("Init() error = %v", err)
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log sink: %v", err)
	}
	if got := strings.Count(string(data), "runtime initialized"); got != 1 {
		t.Errorf("initialization banner logged %d times, want 1", got)
	}
}

func TestInitMemoizesFailure(t *testing.T) {
	t.Setenv(envLog, filepath.Join(t.TempDir(), "no-such-dir", "relay.log"))
	dropConfig()

	r, _, _ := newTestRuntime(t)
	first := r.Init()
	if first == nil {
		t.Fatal("Init() with unwritable log sink: error = nil, want non-nil")
	}
	if second := r.Init(); !errors.Is(second, first) && second.Error() != first.Error() {
		t.Errorf("second Init() error = %v, want the memoized %v", second, first)
	}
}

func TestShutdownCleanupRunsExactlyOnce(t *testing.T) {
	dropConfig()
	r, exitCalls, exitCode := newTestRuntime(t)

	if err := r.Windows().Add(7, WindowShadow{Width: 640, Height: 480, Dirty: true}); err != nil {
		t.Fatalf("seeding window table: %v", err)
	}
	if err := r.Contexts().Add(1, ContextShadow{Config: 0x2b}); err != nil {
		t.Fatalf("seeding context table: %v", err)
	}

	const callers = 8
	var proceeded int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Shutdown(3)
			// Latecomers terminate via Goexit and never reach here.
			atomic.AddInt32(&proceeded, 1)
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(exitCalls); got != 1 {
		t.Errorf("exit called %d times, want 1", got)
	}
	if got := atomic.LoadInt32(exitCode); got != 3 {
		t.Errorf("exit code = %d, want 3", got)
	}
	if got := atomic.LoadInt32(&proceeded); got != 1 {
		t.Errorf("%d callers survived Shutdown, want only the transitioning one", got)
	}
	if r.Windows().IsAllocated() {
		t.Error("window table still allocated after shutdown")
	}
	if r.Contexts().IsAllocated() {
		t.Error("context table still allocated after shutdown")
	}
	if configPtr.Load() != nil {
		t.Error("configuration singleton not dropped by cleanup")
	}
}

func TestCloseIsIdempotentAndNonTerminating(t *testing.T) {
	dropConfig()
	r, exitCalls, _ := newTestRuntime(t)

	if err := r.Pixmaps().Add(9, PixmapShadow{Width: 4, Height: 4, Depth: 24}); err != nil {
		t.Fatalf("seeding pixmap table: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if got := atomic.LoadInt32(exitCalls); got != 0 {
		t.Errorf("Close called exit %d times, want 0", got)
	}
	if r.Pixmaps().IsAllocated() {
		t.Error("pixmap table still allocated after Close")
	}
}

func TestFatalExitsWithCodeOne(t *testing.T) {
	dropConfig()
	r, exitCalls, exitCode := newTestRuntime(t)

	r.Fatal(errors.New("display open failure"))

	if got := atomic.LoadInt32(exitCalls); got != 1 {
		t.Fatalf("exit called %d times, want 1", got)
	}
	if got := atomic.LoadInt32(exitCode); got != 1 {
		t.Errorf("exit code = %d, want 1", got)
	}
}

func TestAcquireRenderDeviceMemoizes(t *testing.T) {
	t.Setenv(envEnumerate, "1")
	dropConfig()
	r, _, _ := newTestRuntime(t)

	var selects int32
	r.selectDevice = func(cfg *Config) (*device.Selection, error) {
		atomic.AddInt32(&selects, 1)
		return &device.Selection{Name: "fake-adapter", Strategy: device.StrategyEnumerate}, nil
	}

	first, err := r.AcquireRenderDevice()
	if err != nil {
		t.Fatalf("AcquireRenderDevice() error = %v", err)
	}
	second, err := r.AcquireRenderDevice()
	if err != nil {
		t.Fatalf("second AcquireRenderDevice() error = %v", err)
	}
	if first != second {
		t.Error("second acquire returned a different selection")
	}
	if got := atomic.LoadInt32(&selects); got != 1 {
		t.Errorf("selector ran %d times, want 1", got)
	}
	if ext := r.Extensions(); !strings.Contains(ext, "fake-adapter") {
		t.Errorf("Extensions() = %q, want it to name the adapter", ext)
	}
}

func TestAcquireRenderDeviceEnumerateFailureIsRetryable(t *testing.T) {
	t.Setenv(envEnumerate, "1")
	dropConfig()
	r, exitCalls, _ := newTestRuntime(t)

	probeErr := &device.Error{Strategy: device.StrategyEnumerate}
	r.selectDevice = func(cfg *Config) (*device.Selection, error) { return nil, probeErr }

	if _, err := r.AcquireRenderDevice(); !errors.Is(err, probeErr) {
		t.Fatalf("AcquireRenderDevice() error = %v, want %v", err, probeErr)
	}
	if got := atomic.LoadInt32(exitCalls); got != 0 {
		t.Errorf("enumeration failure called exit %d times, want 0", got)
	}

	// A later call retries the selector instead of caching the failure.
	r.selectDevice = func(cfg *Config) (*device.Selection, error) {
		return &device.Selection{Name: "late-adapter", Strategy: device.StrategyEnumerate}, nil
	}
	sel, err := r.AcquireRenderDevice()
	if err != nil {
		t.Fatalf("retry AcquireRenderDevice() error = %v", err)
	}
	if sel.Name != "late-adapter" {
		t.Errorf("retry selected %q, want %q", sel.Name, "late-adapter")
	}
}

func TestAcquireRenderDeviceNamedFailureIsFatal(t *testing.T) {
	t.Setenv(envEnumerate, "0")
	dropConfig()
	r, exitCalls, exitCode := newTestRuntime(t)

	r.selectDevice = func(cfg *Config) (*device.Selection, error) {
		return nil, &device.Error{Strategy: device.StrategyNamed, Name: "gpu9"}
	}

	if _, err := r.AcquireRenderDevice(); err == nil {
		t.Fatal("AcquireRenderDevice() error = nil, want selection failure")
	}
	if got := atomic.LoadInt32(exitCalls); got != 1 {
		t.Fatalf("exit called %d times, want 1", got)
	}
	if got := atomic.LoadInt32(exitCode); got != 1 {
		t.Errorf("exit code = %d, want 1", got)
	}
}

func TestAcquireRenderDeviceAdoptsHostProvider(t *testing.T) {
	t.Setenv(envDevice, "host-gpu")
	dropConfig()

	r := New(WithDeviceProvider(device.NullProvider{}))
	exitCalls := new(int32)
	r.exit = func(int) { atomic.AddInt32(exitCalls, 1) }
	r.selectDevice = func(cfg *Config) (*device.Selection, error) {
		t.Error("selector ran despite a host-supplied provider")
		return nil, &device.Error{Strategy: device.StrategyNamed}
	}

	sel, err := r.AcquireRenderDevice()
	if err != nil {
		t.Fatalf("AcquireRenderDevice() error = %v", err)
	}
	if sel.Strategy != device.StrategyExternal {
		t.Errorf("selection strategy = %v, want %v", sel.Strategy, device.StrategyExternal)
	}
	if sel.Name != "host-gpu" {
		t.Errorf("selection name = %q, want %q", sel.Name, "host-gpu")
	}
	if sel.Provider() == nil {
		t.Error("Provider() = nil, want the host-supplied provider")
	}

	second, err := r.AcquireRenderDevice()
	if err != nil {
		t.Fatalf("second AcquireRenderDevice() error = %v", err)
	}
	if second != sel {
		t.Error("second acquire returned a different selection")
	}
	if got := atomic.LoadInt32(exitCalls); got != 0 {
		t.Errorf("exit called %d times, want 0", got)
	}
}

func TestAcquireRenderDeviceAfterShutdown(t *testing.T) {
	dropConfig()
	r, _, _ := newTestRuntime(t)

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := r.AcquireRenderDevice(); !errors.Is(err, ErrShutdown) {
		t.Errorf("AcquireRenderDevice() after shutdown error = %v, want %v", err, ErrShutdown)
	}
}

func TestIsExcluded(t *testing.T) {
	r := New()
	tests := []struct {
		list string
		name string
		want bool
	}{
		{"a, B,\tc", "b", true},
		{"a, B,\tc", "A", true},
		{"a, B,\tc", "c", true},
		{"a, B,\tc", "d", false},
		{"a, B,\tc", "ab", false},
		{"", "a", false},
		{"gpu:0 gpu:1", "GPU:1", true},
	}
	for _, tt := range tests {
		t.Setenv(envExclude, tt.list)
		if got := r.IsExcluded(tt.name); got != tt.want {
			t.Errorf("IsExcluded(%q) with list %q = %v, want %v", tt.name, tt.list, got, tt.want)
		}
	}
}

func TestIsExcludedReloadsList(t *testing.T) {
	r := New()
	t.Setenv(envExclude, "first")
	if !r.IsExcluded("first") {
		t.Fatal("IsExcluded(first) = false before reload, want true")
	}
	t.Setenv(envExclude, "second")
	if r.IsExcluded("first") {
		t.Error("IsExcluded(first) = true after the list changed, want false")
	}
	if !r.IsExcluded("second") {
		t.Error("IsExcluded(second) = false after the list changed, want true")
	}
}

func TestTrapError(t *testing.T) {
	r := New()
	cause := errors.New("backend request failed")

	if got := r.TrapError(cause); !errors.Is(got, cause) {
		t.Errorf("TrapError() with trap disarmed = %v, want %v", got, cause)
	}

	r.mu.Lock()
	r.trapErrors = true
	r.mu.Unlock()
	if got := r.TrapError(cause); got != nil {
		t.Errorf("TrapError() with trap armed = %v, want nil", got)
	}
	if got := r.TrapError(nil); got != nil {
		t.Errorf("TrapError(nil) = %v, want nil", got)
	}
}
