package device

import (
	"errors"
	"testing"
)

// fakeCandidate counts handshakes so tests can verify probe order.
type fakeCandidate struct {
	name     string
	probeErr error
	openErr  error
	probed   int
	opened   int
}

func (f *fakeCandidate) Name() string { return f.name }

func (f *fakeCandidate) Probe() error {
	f.probed++
	return f.probeErr
}

func (f *fakeCandidate) Open() (*Selection, error) {
	f.opened++
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &Selection{Name: f.name}, nil
}

func TestSelectFirstWorkingCandidate(t *testing.T) {
	bad := errors.New("probe failed")
	cands := []*fakeCandidate{
		{name: "gpu0", probeErr: bad},
		{name: "gpu1", probeErr: bad},
		{name: "gpu2"},
		{name: "gpu3"},
	}

	s := &Selector{}
	sel, err := s.Select(asCandidates(cands))
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if sel.Name != "gpu2" {
		t.Errorf("selected %q, want %q", sel.Name, "gpu2")
	}

	// Failing candidates are each probed once; nothing past the commit
	// is probed at all.
	for i, want := range []int{1, 1, 1, 0} {
		if cands[i].probed != want {
			t.Errorf("candidate %d probed %d times, want %d", i, cands[i].probed, want)
		}
	}
	if cands[3].opened != 0 {
		t.Errorf("candidate past commit was opened %d times, want 0", cands[3].opened)
	}
}

func TestSelectNameFilterExactMatchOnly(t *testing.T) {
	cands := []*fakeCandidate{
		{name: "gpu0"}, // would succeed, but is not the configured name
		{name: "gpu1"},
	}

	s := &Selector{Name: "gpu1"}
	sel, err := s.Select(asCandidates(cands))
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if sel.Name != "gpu1" {
		t.Errorf("selected %q, want %q", sel.Name, "gpu1")
	}
	if cands[0].probed != 0 {
		t.Errorf("unnamed candidate probed %d times, want 0", cands[0].probed)
	}
}

func TestSelectNameFilterNoMatch(t *testing.T) {
	cands := []*fakeCandidate{{name: "gpu0"}}

	s := &Selector{Name: "gpu9"}
	sel, err := s.Select(asCandidates(cands))
	if sel != nil {
		t.Fatalf("Select() = %v, want nil", sel)
	}
	var derr *Error
	if !errors.As(err, &derr) {
		t.Fatalf("Select() error = %T, want *Error", err)
	}
	if derr.Strategy != StrategyEnumerate || derr.Name != "gpu9" {
		t.Errorf("error = {%v %q}, want {enumerate \"gpu9\"}", derr.Strategy, derr.Name)
	}
}

func TestSelectAllCandidatesFail(t *testing.T) {
	bad := errors.New("no vulkan")
	cands := []*fakeCandidate{
		{name: "gpu0", probeErr: bad},
		{name: "gpu1", openErr: bad},
	}

	s := &Selector{}
	if _, err := s.Select(asCandidates(cands)); err == nil {
		t.Fatal("Select() error = nil, want *Error")
	}
	// An open failure after a successful probe is skipped too, never
	// escalated.
	if cands[1].opened != 1 {
		t.Errorf("candidate 1 opened %d times, want 1", cands[1].opened)
	}
}

func TestStrategyString(t *testing.T) {
	tests := []struct {
		s    Strategy
		want string
	}{
		{StrategyEnumerate, "enumerate"},
		{StrategyNamed, "named"},
		{StrategyExternal, "external"},
		{Strategy(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Strategy(%d).String() = %q, want %q", int(tt.s), got, tt.want)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	e := &Error{Strategy: StrategyNamed, Name: "gpu0"}
	if got := e.Error(); got != `device: no usable rendering backend named "gpu0" (named strategy)` {
		t.Errorf("Error() = %q", got)
	}

	ce := &CapabilityError{Name: "CreateInstance"}
	if got := ce.Error(); got != `device: required capability "CreateInstance" unavailable` {
		t.Errorf("CapabilityError() = %q", got)
	}
}

func asCandidates(fakes []*fakeCandidate) []Candidate {
	out := make([]Candidate, len(fakes))
	for i, f := range fakes {
		out[i] = f
	}
	return out
}
