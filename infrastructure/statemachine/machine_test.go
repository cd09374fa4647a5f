package statemachine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/domguard/domain/dispatch"
)

func newTestInterpreter(t *testing.T) *Interpreter {
	t.Helper()

	machine, err := NewDispatchMachine()
	if err != nil {
		t.Fatalf("NewDispatchMachine() error = %v", err)
	}
	interp := NewInterpreter(machine, NewContext())
	interp.Start()
	return interp
}

func TestNewContext(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	if ctx.Current != dispatch.StateStart {
		t.Errorf("Current = %s, want start", ctx.Current)
	}
	if ctx.Transitions == nil {
		t.Error("Transitions should be initialized")
	}
	if ctx.Now == nil {
		t.Error("Now should be initialized")
	}
}

func TestEventForTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state    dispatch.State
		expected string
	}{
		{dispatch.StateValidating, "VALIDATE"},
		{dispatch.StateClassifying, "CLASSIFY"},
		{dispatch.StateFallingBack, "FALLBACK"},
		{dispatch.StateInvoking, "INVOKE"},
		{dispatch.StateDone, "DONE"},
		{dispatch.StateFailed, "FAIL"},
		{dispatch.State("custom"), "custom"},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			t.Parallel()

			event := EventForTransition(tt.state)
			if string(event) != tt.expected {
				t.Errorf("EventForTransition(%s) = %s, want %s", tt.state, event, tt.expected)
			}
			if tt.state != "custom" && stateFromEventType(event) != tt.state {
				t.Errorf("stateFromEventType(%s) = %s, want %s", event, stateFromEventType(event), tt.state)
			}
		})
	}
}

func TestInterpreter_GeneratedPath(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t)
	if interp.State() != dispatch.StateStart {
		t.Fatalf("initial state = %s, want start", interp.State())
	}

	steps := []dispatch.State{
		dispatch.StateValidating,
		dispatch.StateClassifying,
		dispatch.StateInvoking,
		dispatch.StateDone,
	}
	for _, s := range steps {
		if err := interp.Transition(s, ""); err != nil {
			t.Fatalf("Transition(%s) error = %v", s, err)
		}
	}

	if !interp.IsTerminal() {
		t.Error("IsTerminal() = false after done")
	}
	trail := interp.Trail()
	if len(trail) != len(steps) {
		t.Fatalf("len(Trail) = %d, want %d", len(trail), len(steps))
	}
	if trail[0].From != dispatch.StateStart || trail[3].To != dispatch.StateDone {
		t.Errorf("Trail = %+v", trail)
	}
}

func TestInterpreter_RejectsOutOfProtocol(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t)

	err := interp.Transition(dispatch.StateInvoking, "")
	if !errors.Is(err, dispatch.ErrInvalidTransition) {
		t.Fatalf("Transition(invoking) error = %v, want ErrInvalidTransition", err)
	}
	if interp.State() != dispatch.StateStart {
		t.Errorf("State() = %s, want start", interp.State())
	}
	if len(interp.Trail()) != 0 {
		t.Errorf("rejected transition was recorded: %+v", interp.Trail())
	}
}

func TestInterpreter_FallbackOnlyOnce(t *testing.T) {
	t.Parallel()

	interp := newTestInterpreter(t)
	for _, s := range []dispatch.State{
		dispatch.StateValidating,
		dispatch.StateClassifying,
		dispatch.StateInvoking,
		dispatch.StateFallingBack,
		dispatch.StateInvoking,
	} {
		if err := interp.Transition(s, "step"); err != nil {
			t.Fatalf("Transition(%s) error = %v", s, err)
		}
	}

	if interp.CanTransition(dispatch.StateFallingBack) {
		t.Error("CanTransition(falling_back) = true after a fallback")
	}
	if err := interp.Transition(dispatch.StateFallingBack, ""); !errors.Is(err, dispatch.ErrInvalidTransition) {
		t.Fatalf("second fallback error = %v, want ErrInvalidTransition", err)
	}
	if err := interp.Transition(dispatch.StateFailed, "executor down"); err != nil {
		t.Fatalf("Transition(failed) error = %v", err)
	}

	trail := interp.Trail()
	last := trail[len(trail)-1]
	if last.To != dispatch.StateFailed || last.Reason != "executor down" {
		t.Errorf("last transition = %+v", last)
	}
}

func TestInterpreter_OnTransitionAndClock(t *testing.T) {
	t.Parallel()

	machine, err := NewDispatchMachine()
	if err != nil {
		t.Fatalf("NewDispatchMachine() error = %v", err)
	}

	fixed := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	var seen []dispatch.Transition
	ctx := NewContext()
	ctx.Now = func() time.Time { return fixed }
	ctx.OnTransition = func(tr dispatch.Transition) { seen = append(seen, tr) }

	interp := NewInterpreter(machine, ctx)
	interp.Start()
	if err := interp.Transition(dispatch.StateFallingBack, "source manual"); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}

	if len(seen) != 1 {
		t.Fatalf("OnTransition called %d times, want 1", len(seen))
	}
	if !seen[0].At.Equal(fixed) || seen[0].Reason != "source manual" {
		t.Errorf("transition = %+v", seen[0])
	}
	if !interp.Context().FellBack {
		t.Error("FellBack = false after entering falling_back")
	}
}

func TestInterpreter_IndependentCycles(t *testing.T) {
	t.Parallel()

	machine, err := NewDispatchMachine()
	if err != nil {
		t.Fatalf("NewDispatchMachine() error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for n := 0; n < 16; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			interp := NewInterpreter(machine, NewContext())
			interp.Start()
			for _, s := range []dispatch.State{dispatch.StateFallingBack, dispatch.StateInvoking, dispatch.StateDone} {
				if err := interp.Transition(s, ""); err != nil {
					errs <- err
					return
				}
			}
			if len(interp.Trail()) != 3 {
				errs <- errors.New("trail leaked between cycles")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
