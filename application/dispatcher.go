// Package application provides the dispatch service: it resolves a command
// and its generated code to a whitelisted action and invokes it.
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/felixgeelhaar/domguard/domain/action"
	"github.com/felixgeelhaar/domguard/domain/classify"
	"github.com/felixgeelhaar/domguard/domain/dispatch"
	"github.com/felixgeelhaar/domguard/domain/fallback"
	"github.com/felixgeelhaar/domguard/domain/validate"
	"github.com/felixgeelhaar/domguard/infrastructure/logging"
	"github.com/felixgeelhaar/domguard/infrastructure/observability"
	"github.com/felixgeelhaar/domguard/infrastructure/statemachine"
)

// DefaultReportTimeout bounds a single report call.
const DefaultReportTimeout = 5 * time.Second

// OriginUnavailable is the claimed source used when no generated code
// could be fetched.
const OriginUnavailable = "unavailable"

// Dispatcher runs dispatch cycles. It holds only immutable collaborators,
// so any number of cycles may run concurrently.
type Dispatcher struct {
	registry      *action.Registry
	validator     *validate.Validator
	classifier    *classify.Classifier
	synthesizer   *fallback.Synthesizer
	executor      dispatch.Executor
	reporter      dispatch.Reporter
	generator     dispatch.Generator
	machine       *statekit.MachineConfig[*statemachine.Context]
	reportTimeout time.Duration
	strict        bool
	tracer        trace.Tracer
	metrics       *observability.DispatchMetrics
	now           func() time.Time
	newID         func() string
}

// DispatcherConfig contains configuration for the dispatcher.
type DispatcherConfig struct {
	// Registry is the action whitelist. Defaults to action.DefaultRegistry.
	Registry *action.Registry

	// Validator defaults to validate.New.
	Validator *validate.Validator

	// Executor applies actions. Required.
	Executor dispatch.Executor

	// Reporter records outcomes. Optional.
	Reporter dispatch.Reporter

	// Generator fetches code for Run. Optional.
	Generator dispatch.Generator

	// ReportTimeout bounds reporting. Defaults to DefaultReportTimeout.
	ReportTimeout time.Duration

	// Strict panics on an unknown action id instead of returning an error.
	Strict bool

	// Tracer defaults to a no-op tracer.
	Tracer trace.Tracer

	// Metrics records outcomes when set.
	Metrics *observability.DispatchMetrics

	// Now and NewID are clock and id sources. They default to time.Now
	// and random UUIDs.
	Now   func() time.Time
	NewID func() string
}

// NewDispatcher creates a new dispatcher with the given configuration.
func NewDispatcher(config DispatcherConfig) (*Dispatcher, error) {
	if config.Executor == nil {
		return nil, errors.New("executor is required")
	}

	machine, err := statemachine.NewDispatchMachine()
	if err != nil {
		return nil, fmt.Errorf("failed to create state machine: %w", err)
	}

	d := &Dispatcher{
		registry:      config.Registry,
		validator:     config.Validator,
		executor:      config.Executor,
		reporter:      config.Reporter,
		generator:     config.Generator,
		machine:       machine,
		reportTimeout: config.ReportTimeout,
		strict:        config.Strict,
		tracer:        config.Tracer,
		metrics:       config.Metrics,
		now:           config.Now,
		newID:         config.NewID,
	}

	// Set defaults
	if d.registry == nil {
		d.registry = action.DefaultRegistry()
	}
	if d.validator == nil {
		d.validator = validate.New()
	}
	if d.reportTimeout <= 0 {
		d.reportTimeout = DefaultReportTimeout
	}
	if d.tracer == nil {
		d.tracer = tracenoop.NewTracerProvider().Tracer("domguard")
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.newID == nil {
		d.newID = uuid.NewString
	}
	d.classifier = classify.New(d.registry)
	d.synthesizer = fallback.New(d.registry)

	return d, nil
}

// Registry returns the action whitelist the dispatcher resolves against.
func (d *Dispatcher) Registry() *action.Registry {
	return d.registry
}

// resolution is the action a cycle decided on.
type resolution struct {
	id     action.ID
	params action.Params
	code   string
	source dispatch.Source
}

// Dispatch runs one dispatch cycle. It always returns an outcome; the
// error is non-nil only when an action id unknown to the executor's
// registry surfaced, which is a wiring defect.
func (d *Dispatcher) Dispatch(ctx context.Context, req dispatch.Request) (dispatch.Outcome, error) {
	cycleID := d.newID()
	start := d.now()

	ctx, span := d.tracer.Start(ctx, "dispatch", trace.WithAttributes(
		observability.AttrCycleID.String(cycleID),
		observability.AttrOrigin.String(req.Source),
	))
	defer span.End()

	mctx := statemachine.NewContext()
	mctx.Now = d.now
	mctx.OnTransition = func(tr dispatch.Transition) {
		logging.Debug().
			Add(logging.CycleID(cycleID)).
			Add(logging.FromState(tr.From)).
			Add(logging.ToState(tr.To)).
			Add(logging.Reason(tr.Reason)).
			Msg("state transition")
	}
	interp := statemachine.NewInterpreter(d.machine, mctx)
	interp.Start()

	var res resolution
	if dispatch.IsPrimaryOrigin(req.Source) {
		d.step(interp, cycleID, dispatch.StateValidating, "")
		if err := d.validate(ctx, req.Code); err != nil {
			d.step(interp, cycleID, dispatch.StateFallingBack, err.Error())
			res = d.fallBack(ctx, cycleID, req.Command)
		} else {
			d.step(interp, cycleID, dispatch.StateClassifying, "")
			res = d.classify(ctx, req.Code)
		}
	} else {
		d.step(interp, cycleID, dispatch.StateFallingBack, "source "+req.Source+" is not a primary generator")
		res = d.fallBack(ctx, cycleID, req.Command)
	}

	d.step(interp, cycleID, dispatch.StateInvoking, "")
	err := d.invoke(ctx, res, req.Target)

	if err != nil && res.source == dispatch.SourceGenerated &&
		!errors.Is(err, action.ErrUnknownAction) && ctx.Err() == nil {
		logging.Warn().
			Add(logging.CycleID(cycleID)).
			Add(logging.ActionID(res.id)).
			Add(logging.ErrorField(err)).
			Msg("invocation failed, falling back")

		d.step(interp, cycleID, dispatch.StateFallingBack, err.Error())
		res = d.fallBack(ctx, cycleID, req.Command)
		d.step(interp, cycleID, dispatch.StateInvoking, "")
		err = d.invoke(ctx, res, req.Target)
	}

	out := dispatch.Outcome{
		CycleID:   cycleID,
		ActionID:  res.id,
		Params:    res.params,
		Source:    res.source,
		Succeeded: err == nil,
		Command:   req.Command,
		Code:      res.code,
		Target:    req.Target,
		StartedAt: start,
	}
	if err != nil {
		out.Source = dispatch.SourceError
		out.Reason = err.Error()
		d.step(interp, cycleID, dispatch.StateFailed, err.Error())
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
	} else {
		d.step(interp, cycleID, dispatch.StateDone, "")
	}
	out.Trail = interp.Trail()
	out.Duration = d.now().Sub(start)

	span.SetAttributes(observability.OutcomeAttributes(out)...)
	if d.metrics != nil {
		d.metrics.RecordOutcome(ctx, out)
	}

	logging.Info().
		Add(logging.CycleID(cycleID)).
		Add(logging.ActionID(out.ActionID)).
		Add(logging.Source(out.Source)).
		Add(logging.Succeeded(out.Succeeded)).
		Add(logging.Target(out.Target)).
		Add(logging.Duration(out.Duration)).
		Msg("dispatch completed")

	d.report(ctx, out)

	if errors.Is(err, action.ErrUnknownAction) {
		if d.strict {
			panic(err)
		}
		return out, err
	}
	return out, nil
}

// Run fetches generated code for the command and dispatches it. A
// generator failure degrades to the fallback path, never to an error.
func (d *Dispatcher) Run(ctx context.Context, command, target string) (dispatch.Outcome, error) {
	req := dispatch.Request{
		Command: command,
		Source:  OriginUnavailable,
		Target:  target,
	}

	if d.generator != nil {
		gen, err := d.generator.Generate(ctx, command)
		if err != nil {
			logging.Warn().
				Add(logging.Component("generator")).
				Add(logging.ErrorField(err)).
				Msg("generation failed, using fallback")
		} else {
			req.Code = gen.Code
			req.Source = gen.Source
		}
	}

	return d.Dispatch(ctx, req)
}

// step performs a protocol transition. The dispatcher only requests
// transitions the protocol allows, so a rejection is logged as a defect.
func (d *Dispatcher) step(interp *statemachine.Interpreter, cycleID string, to dispatch.State, reason string) {
	if err := interp.Transition(to, reason); err != nil {
		logging.Error().
			Add(logging.CycleID(cycleID)).
			Add(logging.State(interp.State())).
			Add(logging.ErrorField(err)).
			Msg("unexpected transition rejection")
	}
}

func (d *Dispatcher) validate(ctx context.Context, code string) error {
	_, span := d.tracer.Start(ctx, "dispatch.validate")
	defer span.End()

	err := d.validator.Validate(code)
	var rej *validate.Rejection
	if errors.As(err, &rej) {
		span.SetAttributes(observability.AttrRule.String(string(rej.Rule)))
		logging.Debug().
			Add(logging.Rule(string(rej.Rule))).
			Msg("generated code rejected")
	}
	return err
}

func (d *Dispatcher) classify(ctx context.Context, code string) resolution {
	_, span := d.tracer.Start(ctx, "dispatch.classify")
	defer span.End()

	r := d.classifier.Classify(code)
	span.SetAttributes(
		observability.AttrAction.String(string(r.ActionID)),
		attribute.Bool("domguard.matched", r.Matched),
	)
	return resolution{
		id:     r.ActionID,
		params: r.Params,
		code:   code,
		source: dispatch.SourceGenerated,
	}
}

func (d *Dispatcher) fallBack(ctx context.Context, cycleID, command string) resolution {
	_, span := d.tracer.Start(ctx, "dispatch.fallback")
	defer span.End()

	r := d.synthesizer.Synthesize(command)
	span.SetAttributes(
		observability.AttrAction.String(string(r.ActionID)),
		observability.AttrIntent.String(r.Intent),
	)
	logging.Debug().
		Add(logging.CycleID(cycleID)).
		Add(logging.ActionID(r.ActionID)).
		Add(logging.Intent(r.Intent)).
		Msg("action synthesized from command")

	code, _ := d.registry.Render(r.ActionID, r.Params)
	return resolution{
		id:     r.ActionID,
		params: r.Params,
		code:   code,
		source: dispatch.SourceClientFallback,
	}
}

func (d *Dispatcher) invoke(ctx context.Context, res resolution, target string) error {
	ctx, span := d.tracer.Start(ctx, "dispatch.invoke", trace.WithAttributes(
		observability.AttrAction.String(string(res.id)),
	))
	defer span.End()

	if err := d.executor.Invoke(ctx, res.id, res.params, target); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invoke failed")
		return err
	}
	return nil
}

// report forwards the outcome. It is detached from caller cancellation and
// never affects the outcome.
func (d *Dispatcher) report(ctx context.Context, out dispatch.Outcome) {
	if d.reporter == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.reportTimeout)
	defer cancel()

	if err := d.reporter.Report(ctx, dispatch.NewReport(out)); err != nil {
		logging.Warn().
			Add(logging.CycleID(out.CycleID)).
			Add(logging.ErrorField(fmt.Errorf("%w: %w", dispatch.ErrReportingFailed, err))).
			Msg("outcome not reported")
	}
}
