package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/domguard/application"
	"github.com/felixgeelhaar/domguard/domain/action"
	"github.com/felixgeelhaar/domguard/domain/dispatch"
)

const (
	buttonsRed = "document.querySelectorAll('button').forEach(btn => btn.style.backgroundColor = 'red')"
	target     = "page-1"
)

// Test helpers

type invocation struct {
	id     action.ID
	params action.Params
	target string
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls []invocation

	// fail returns the error for the nth call (zero based).
	fail func(n int) error
}

func (e *fakeExecutor) Invoke(_ context.Context, id action.ID, params action.Params, target string) error {
	e.mu.Lock()
	n := len(e.calls)
	e.calls = append(e.calls, invocation{id: id, params: params, target: target})
	e.mu.Unlock()

	if e.fail != nil {
		return e.fail(n)
	}
	return nil
}

func (e *fakeExecutor) Calls() []invocation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]invocation(nil), e.calls...)
}

type fakeReporter struct {
	mu      sync.Mutex
	reports []dispatch.Report
	ctxErrs []error
	err     error
}

func (r *fakeReporter) Report(ctx context.Context, report dispatch.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
	return r.err
}

func (r *fakeReporter) Reports() []dispatch.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dispatch.Report(nil), r.reports...)
}

type fakeGenerator struct {
	gen dispatch.Generated
	err error
}

func (g fakeGenerator) Generate(context.Context, string) (dispatch.Generated, error) {
	return g.gen, g.err
}

func newTestDispatcher(t *testing.T, opts ...application.Option) *application.Dispatcher {
	t.Helper()

	d, err := application.NewDispatcherWithOptions(opts...)
	if err != nil {
		t.Fatalf("NewDispatcherWithOptions() error = %v", err)
	}
	return d
}

func states(trail []dispatch.Transition) []dispatch.State {
	out := make([]dispatch.State, 0, len(trail))
	for _, tr := range trail {
		out = append(out, tr.To)
	}
	return out
}

func equalStates(a, b []dispatch.State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Tests

func TestNewDispatcher_RequiresExecutor(t *testing.T) {
	t.Parallel()

	if _, err := application.NewDispatcher(application.DispatcherConfig{}); err == nil {
		t.Error("NewDispatcher() without executor should fail")
	}
}

func TestNewDispatcher_DefaultRegistry(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, application.WithExecutor(&fakeExecutor{}))
	if d.Registry().Len() != action.DefaultRegistry().Len() {
		t.Errorf("Registry().Len() = %d, want %d", d.Registry().Len(), action.DefaultRegistry().Len())
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	t.Parallel()

	fallbackGreen, err := action.DefaultRegistry().Render(action.RecolorBackground, action.WithColor("green"))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	tests := []struct {
		name       string
		req        dispatch.Request
		wantID     action.ID
		wantParams action.Params
		wantSource dispatch.Source
		wantCode   string
		wantStates []dispatch.State
	}{
		{
			name:       "generated code is classified",
			req:        dispatch.Request{Command: "make buttons red", Code: buttonsRed, Source: "ai", Target: target},
			wantID:     action.RecolorButtons,
			wantParams: action.WithColor("red"),
			wantSource: dispatch.SourceGenerated,
			wantCode:   buttonsRed,
			wantStates: []dispatch.State{
				dispatch.StateValidating, dispatch.StateClassifying, dispatch.StateInvoking, dispatch.StateDone,
			},
		},
		{
			name:       "well-formed unknown color is kept",
			req:        dispatch.Request{Code: "document.body.style.backgroundColor = 'teal'", Target: target},
			wantID:     action.RecolorBackground,
			wantParams: action.WithColor("teal"),
			wantSource: dispatch.SourceGenerated,
			wantCode:   "document.body.style.backgroundColor = 'teal'",
			wantStates: []dispatch.State{
				dispatch.StateValidating, dispatch.StateClassifying, dispatch.StateInvoking, dispatch.StateDone,
			},
		},
		{
			name:       "foreign code falls back to the command",
			req:        dispatch.Request{Command: "make the background green", Code: "print('hello')", Source: "generated", Target: target},
			wantID:     action.RecolorBackground,
			wantParams: action.WithColor("green"),
			wantSource: dispatch.SourceClientFallback,
			wantCode:   fallbackGreen,
			wantStates: []dispatch.State{
				dispatch.StateValidating, dispatch.StateFallingBack, dispatch.StateInvoking, dispatch.StateDone,
			},
		},
		{
			name:       "non-primary source skips validation",
			req:        dispatch.Request{Command: "make the background green", Code: buttonsRed, Source: "cache", Target: target},
			wantID:     action.RecolorBackground,
			wantParams: action.WithColor("green"),
			wantSource: dispatch.SourceClientFallback,
			wantCode:   fallbackGreen,
			wantStates: []dispatch.State{
				dispatch.StateFallingBack, dispatch.StateInvoking, dispatch.StateDone,
			},
		},
		{
			name:       "no signature resolves to the catch-all",
			req:        dispatch.Request{Command: "do a barrel roll", Code: "document.querySelectorAll('a').forEach(a => a.remove())", Target: target},
			wantID:     action.GenericFeedback,
			wantSource: dispatch.SourceGenerated,
			wantCode:   "document.querySelectorAll('a').forEach(a => a.remove())",
			wantStates: []dispatch.State{
				dispatch.StateValidating, dispatch.StateClassifying, dispatch.StateInvoking, dispatch.StateDone,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exec := &fakeExecutor{}
			rep := &fakeReporter{}
			d := newTestDispatcher(t, application.WithExecutor(exec), application.WithReporter(rep))

			out, err := d.Dispatch(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if !out.Succeeded {
				t.Errorf("Succeeded = false, reason %q", out.Reason)
			}
			if out.ActionID != tt.wantID {
				t.Errorf("ActionID = %s, want %s", out.ActionID, tt.wantID)
			}
			if out.Params != tt.wantParams {
				t.Errorf("Params = %+v, want %+v", out.Params, tt.wantParams)
			}
			if out.Source != tt.wantSource {
				t.Errorf("Source = %s, want %s", out.Source, tt.wantSource)
			}
			if out.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", out.Code, tt.wantCode)
			}
			if got := states(out.Trail); !equalStates(got, tt.wantStates) {
				t.Errorf("trail = %v, want %v", got, tt.wantStates)
			}

			calls := exec.Calls()
			if len(calls) != 1 {
				t.Fatalf("executor calls = %d, want 1", len(calls))
			}
			if calls[0].id != tt.wantID || calls[0].target != target {
				t.Errorf("invoked %s on %q, want %s on %q", calls[0].id, calls[0].target, tt.wantID, target)
			}

			reports := rep.Reports()
			if len(reports) != 1 {
				t.Fatalf("reports = %d, want 1", len(reports))
			}
			if reports[0].CycleID != out.CycleID || !reports[0].Success {
				t.Errorf("report = %+v, want success for cycle %s", reports[0], out.CycleID)
			}
		})
	}
}

func TestDispatcher_ValidationIgnoresClaimedSource(t *testing.T) {
	t.Parallel()

	labels := []string{"ai", "AI", "", "generated", "model", " Model "}
	tests := []struct {
		name       string
		code       string
		wantID     action.ID
		wantSource dispatch.Source
		wantStates []dispatch.State
	}{
		{
			name:       "foreign code",
			code:       "print('hello')",
			wantID:     action.RecolorBackground,
			wantSource: dispatch.SourceClientFallback,
			wantStates: []dispatch.State{
				dispatch.StateValidating, dispatch.StateFallingBack, dispatch.StateInvoking, dispatch.StateDone,
			},
		},
		{
			name:       "valid code",
			code:       buttonsRed,
			wantID:     action.RecolorButtons,
			wantSource: dispatch.SourceGenerated,
			wantStates: []dispatch.State{
				dispatch.StateValidating, dispatch.StateClassifying, dispatch.StateInvoking, dispatch.StateDone,
			},
		},
	}

	for _, tt := range tests {
		for _, label := range labels {
			t.Run(tt.name+"/"+label, func(t *testing.T) {
				t.Parallel()

				d := newTestDispatcher(t, application.WithExecutor(&fakeExecutor{}), application.WithReporter(&fakeReporter{}))
				out, err := d.Dispatch(context.Background(), dispatch.Request{
					Command: "make the background green",
					Code:    tt.code,
					Source:  label,
					Target:  target,
				})
				if err != nil {
					t.Fatalf("Dispatch() error = %v", err)
				}
				if out.Source != tt.wantSource || out.ActionID != tt.wantID {
					t.Errorf("outcome = %s/%s, want %s/%s", out.Source, out.ActionID, tt.wantSource, tt.wantID)
				}
				if got := states(out.Trail); !equalStates(got, tt.wantStates) {
					t.Errorf("trail = %v, want %v", got, tt.wantStates)
				}
			})
		}
	}
}

func TestDispatcher_GeneratedFailureFallsBack(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{fail: func(n int) error {
		if n == 0 {
			return errors.New("stale element")
		}
		return nil
	}}
	d := newTestDispatcher(t, application.WithExecutor(exec))

	out, err := d.Dispatch(context.Background(), dispatch.Request{
		Command: "make the background green",
		Code:    buttonsRed,
		Target:  target,
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !out.Succeeded || out.Source != dispatch.SourceClientFallback {
		t.Errorf("outcome = %s succeeded=%v, want client-fallback success", out.Source, out.Succeeded)
	}
	if out.ActionID != action.RecolorBackground {
		t.Errorf("ActionID = %s, want %s", out.ActionID, action.RecolorBackground)
	}
	if !out.FellBack() {
		t.Error("FellBack() = false, want true")
	}
	if n := len(exec.Calls()); n != 2 {
		t.Errorf("executor calls = %d, want 2", n)
	}
}

func TestDispatcher_TotalFailure(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{fail: func(int) error { return errors.New("page closed") }}
	rep := &fakeReporter{}
	d := newTestDispatcher(t, application.WithExecutor(exec), application.WithReporter(rep))

	out, err := d.Dispatch(context.Background(), dispatch.Request{Command: "bold", Code: buttonsRed, Target: target})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if out.Succeeded {
		t.Error("Succeeded = true, want false")
	}
	if out.Source != dispatch.SourceError {
		t.Errorf("Source = %s, want %s", out.Source, dispatch.SourceError)
	}
	if out.Reason == "" {
		t.Error("Reason should describe the failure")
	}
	if out.FinalState() != dispatch.StateFailed {
		t.Errorf("FinalState() = %s, want %s", out.FinalState(), dispatch.StateFailed)
	}
	if n := len(exec.Calls()); n != 2 {
		t.Errorf("executor calls = %d, want 2", n)
	}

	reports := rep.Reports()
	if len(reports) != 1 || reports[0].Success {
		t.Errorf("reports = %+v, want one failed report", reports)
	}
}

func TestDispatcher_FallbackFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{fail: func(int) error { return errors.New("page closed") }}
	d := newTestDispatcher(t, application.WithExecutor(exec))

	out, _ := d.Dispatch(context.Background(), dispatch.Request{Command: "bold", Code: "print('x')", Target: target})
	if out.Succeeded {
		t.Error("Succeeded = true, want false")
	}
	if n := len(exec.Calls()); n != 1 {
		t.Errorf("executor calls = %d, want 1", n)
	}
}

func TestDispatcher_ReporterFailureKeepsOutcome(t *testing.T) {
	t.Parallel()

	rep := &fakeReporter{err: errors.New("collector down")}
	d := newTestDispatcher(t, application.WithExecutor(&fakeExecutor{}), application.WithReporter(rep))

	out, err := d.Dispatch(context.Background(), dispatch.Request{Code: buttonsRed, Target: target})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !out.Succeeded || out.Source != dispatch.SourceGenerated {
		t.Errorf("outcome = %s succeeded=%v, want generated success", out.Source, out.Succeeded)
	}
}

func TestDispatcher_ReportsAfterCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep := &fakeReporter{}
	d := newTestDispatcher(t, application.WithExecutor(&fakeExecutor{}), application.WithReporter(rep))

	if _, err := d.Dispatch(ctx, dispatch.Request{Code: buttonsRed, Target: target}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	rep.mu.Lock()
	defer rep.mu.Unlock()
	if len(rep.ctxErrs) != 1 {
		t.Fatalf("reports = %d, want 1", len(rep.ctxErrs))
	}
	if rep.ctxErrs[0] != nil {
		t.Errorf("report context error = %v, want nil", rep.ctxErrs[0])
	}
}

func TestDispatcher_UnknownAction(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{fail: func(int) error {
		return fmt.Errorf("%w: recolor_buttons", action.ErrUnknownAction)
	}}
	d := newTestDispatcher(t, application.WithExecutor(exec))

	out, err := d.Dispatch(context.Background(), dispatch.Request{Code: buttonsRed, Target: target})
	if !errors.Is(err, action.ErrUnknownAction) {
		t.Fatalf("Dispatch() error = %v, want ErrUnknownAction", err)
	}
	if out.Succeeded || out.Source != dispatch.SourceError {
		t.Errorf("outcome = %s succeeded=%v, want error", out.Source, out.Succeeded)
	}
	if n := len(exec.Calls()); n != 1 {
		t.Errorf("executor calls = %d, want 1", n)
	}
}

func TestDispatcher_StrictPanicsOnUnknownAction(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{fail: func(int) error { return action.ErrUnknownAction }}
	d := newTestDispatcher(t, application.WithExecutor(exec), application.WithStrict())

	defer func() {
		if recover() == nil {
			t.Error("Dispatch() should panic in strict mode")
		}
	}()
	_, _ = d.Dispatch(context.Background(), dispatch.Request{Code: buttonsRed, Target: target})
}

func TestDispatcher_ClockAndID(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	d := newTestDispatcher(t,
		application.WithExecutor(&fakeExecutor{}),
		application.WithClock(now),
		application.WithIDGenerator(func() string { return "cycle-1" }),
	)

	out, _ := d.Dispatch(context.Background(), dispatch.Request{Code: buttonsRed, Target: target})
	if out.CycleID != "cycle-1" {
		t.Errorf("CycleID = %s, want cycle-1", out.CycleID)
	}
	if !out.StartedAt.After(base) {
		t.Errorf("StartedAt = %v, want after %v", out.StartedAt, base)
	}
	if out.Duration <= 0 {
		t.Errorf("Duration = %v, want > 0", out.Duration)
	}
}

func TestDispatcher_ConcurrentCycles(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{}
	d := newTestDispatcher(t, application.WithExecutor(exec))

	const n = 32
	outcomes := make([]dispatch.Outcome, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := dispatch.Request{Code: buttonsRed, Target: target}
			if i%2 == 1 {
				req = dispatch.Request{Command: "hide images", Code: "print(1)", Target: target}
			}
			outcomes[i], _ = d.Dispatch(context.Background(), req)
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i, out := range outcomes {
		if seen[out.CycleID] {
			t.Errorf("duplicate cycle id %s", out.CycleID)
		}
		seen[out.CycleID] = true

		want := action.RecolorButtons
		if i%2 == 1 {
			want = action.HideImages
		}
		if out.ActionID != want || !out.Succeeded {
			t.Errorf("outcome %d = %s succeeded=%v, want %s", i, out.ActionID, out.Succeeded, want)
		}
	}
	if len(exec.Calls()) != n {
		t.Errorf("executor calls = %d, want %d", len(exec.Calls()), n)
	}
}

func TestDispatcher_Run(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		gen        fakeGenerator
		wantID     action.ID
		wantSource dispatch.Source
	}{
		{
			name:       "generated code",
			gen:        fakeGenerator{gen: dispatch.Generated{Code: buttonsRed, Source: "ai"}},
			wantID:     action.RecolorButtons,
			wantSource: dispatch.SourceGenerated,
		},
		{
			name:       "generator unavailable",
			gen:        fakeGenerator{err: errors.New("connection refused")},
			wantID:     action.RecolorBackground,
			wantSource: dispatch.SourceClientFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := newTestDispatcher(t, application.WithExecutor(&fakeExecutor{}), application.WithGenerator(tt.gen))

			out, err := d.Run(context.Background(), "make the background green", target)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if out.ActionID != tt.wantID {
				t.Errorf("ActionID = %s, want %s", out.ActionID, tt.wantID)
			}
			if out.Source != tt.wantSource {
				t.Errorf("Source = %s, want %s", out.Source, tt.wantSource)
			}
		})
	}
}

func TestDispatcher_RunWithoutGenerator(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, application.WithExecutor(&fakeExecutor{}))

	out, _ := d.Run(context.Background(), "hide the buttons", target)
	if out.ActionID != action.HideButtons || out.Source != dispatch.SourceClientFallback {
		t.Errorf("outcome = %s/%s, want %s/%s", out.ActionID, out.Source, action.HideButtons, dispatch.SourceClientFallback)
	}
}
