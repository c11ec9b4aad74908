package relay

import "sync"

// threadState is the per-OS-thread slice of runtime state. Hook calls
// are OS-thread-bound (the intercepted application is native code), so
// the state is keyed by OS thread id rather than by goroutine.
type threadState struct {
	// nesting counts DisableInterception calls not yet matched by
	// EnableInterception. Interception is active only at zero.
	nesting int

	// traceLevel is the per-thread hook trace verbosity.
	traceLevel int

	// excludeCurrent marks the display the thread is working against as
	// excluded, short-circuiting per-call exclusion checks.
	excludeCurrent bool

	// probe holds the self-test instrumentation fields. They validate
	// the interception machinery itself and carry no production meaning.
	probe ThreadProbe
}

// ThreadProbe is the self-test instrumentation state for one thread:
// where the synthetic test frame is headed and what pixel values the
// checker expects to read back.
type ThreadProbe struct {
	Display  string
	Drawable Handle
	Frame    int

	// Color and RightColor are the expected readback values for the
	// left and right buffers of a stereo drawable. RightColor is
	// ignored for mono drawables.
	Color      int
	RightColor int
}

type threadMap struct {
	mu     sync.Mutex
	states map[uint64]*threadState
}

// get returns the state for the calling OS thread, creating it on first
// touch. Callers that need a stable view across calls must lock the OS
// thread themselves; the runtime never migrates state between threads.
func (m *threadMap) get() *threadState {
	id := currentThreadID()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states == nil {
		m.states = make(map[uint64]*threadState)
	}
	ts, ok := m.states[id]
	if !ok {
		ts = &threadState{}
		m.states[id] = ts
	}
	return ts
}

// DisableInterception suspends hook interception for the calling OS
// thread and marks its display excluded, so per-call exclusion checks
// short-circuit while the hooks are bypassed. Calls nest: each one must
// be matched by EnableInterception before interception resumes. The
// runtime's own internals use this to call through the real underlying
// API without re-entering the hooks.
func (r *Runtime) DisableInterception() {
	ts := r.threads.get()
	r.threads.mu.Lock()
	ts.nesting++
	ts.excludeCurrent = true
	r.threads.mu.Unlock()
}

// EnableInterception undoes one DisableInterception and clears the
// thread's exclusion mark. The counter never goes negative: an
// unmatched enable is ignored, but the mark is still cleared.
func (r *Runtime) EnableInterception() {
	ts := r.threads.get()
	r.threads.mu.Lock()
	if ts.nesting > 0 {
		ts.nesting--
	}
	ts.excludeCurrent = false
	r.threads.mu.Unlock()
}

// InterceptionActive reports whether hook interception is live for the
// calling OS thread, i.e. its nesting counter is exactly zero.
func (r *Runtime) InterceptionActive() bool {
	ts := r.threads.get()
	r.threads.mu.Lock()
	defer r.threads.mu.Unlock()
	return ts.nesting == 0
}

// TraceLevel returns the calling thread's hook trace verbosity.
func (r *Runtime) TraceLevel() int {
	ts := r.threads.get()
	r.threads.mu.Lock()
	defer r.threads.mu.Unlock()
	return ts.traceLevel
}

// SetTraceLevel sets the calling thread's hook trace verbosity.
func (r *Runtime) SetTraceLevel(level int) {
	ts := r.threads.get()
	r.threads.mu.Lock()
	ts.traceLevel = level
	r.threads.mu.Unlock()
}

// ExcludeCurrent reports whether the calling thread's display has been
// marked excluded.
func (r *Runtime) ExcludeCurrent() bool {
	ts := r.threads.get()
	r.threads.mu.Lock()
	defer r.threads.mu.Unlock()
	return ts.excludeCurrent
}

// SetExcludeCurrent marks or unmarks the calling thread's display as
// excluded.
func (r *Runtime) SetExcludeCurrent(excluded bool) {
	ts := r.threads.get()
	r.threads.mu.Lock()
	ts.excludeCurrent = excluded
	r.threads.mu.Unlock()
}

// Probe returns the calling thread's self-test instrumentation state.
func (r *Runtime) Probe() ThreadProbe {
	ts := r.threads.get()
	r.threads.mu.Lock()
	defer r.threads.mu.Unlock()
	return ts.probe
}

// SetProbe replaces the calling thread's self-test instrumentation
// state.
func (r *Runtime) SetProbe(p ThreadProbe) {
	ts := r.threads.get()
	r.threads.mu.Lock()
	ts.probe = p
	r.threads.mu.Unlock()
}
