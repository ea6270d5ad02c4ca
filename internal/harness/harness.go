package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/firanno/internal/compiler"
	"github.com/roach88/firanno/internal/ir"
	"github.com/roach88/firanno/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios against a context with a fixed ID and a fresh clock.
type Harness struct {
	ictx   *ir.Context
	logger *slog.Logger
}

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger routes harness and context logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh ir.Context for isolation.
//
// Execution flow:
// 1. Create the context and register scenario variants
// 2. Execute steps, recording one trace event per request
// 3. Evaluate assertions
// 4. Return result with pass/fail, trace, and errors
//
// A returned error means the scenario could not be set up; failed steps and
// assertions are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}

	ictx := ir.NewContext(
		ir.WithIDGenerator(testutil.NewFixedIDGenerator(scenario.ContextID)),
		ir.WithClock(ir.NewClock()),
		ir.WithLogger(cfg.logger),
	)
	for i, v := range scenario.Variants {
		err := ictx.Register(ir.Variant{
			Kind:    ir.Kind(v.Kind),
			Params:  v.Params,
			Aliases: v.Aliases,
		})
		if err != nil {
			return nil, fmt.Errorf("variants[%d]: %w", i, err)
		}
	}

	h := &Harness{ictx: ictx, logger: cfg.logger}

	result := NewResult()
	h.executeSteps(scenario.Steps, result)
	result.StorageCount = ictx.Len()

	actx := &AssertionContext{
		Context: ictx,
		Ctx:     context.Background(),
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"storages", result.StorageCount,
	)
	return result, nil
}

// executeSteps runs every step in order. A failing request is traced and
// reported, and execution continues.
func (h *Harness) executeSteps(steps []Step, result *Result) {
	for i, step := range steps {
		if step.File != "" {
			h.executeFile(i, step, result)
			continue
		}

		repeat := step.Repeat
		if repeat == 0 {
			repeat = 1
		}
		for range repeat {
			ann, ok := h.make(i, step.Make, step.Params, step.Target, result)
			if ok && step.As != "" {
				result.Handles[step.As] = ann
			}
		}
	}
}

// make issues one request and records it. name may be a kind or a class.
func (h *Harness) make(step int, name string, params []string, target string, result *Result) (ir.Annotation, bool) {
	kind := h.resolve(name)
	before := h.ictx.Len()

	event := TraceEvent{
		Step:   step,
		Kind:   string(kind),
		Params: params,
		Target: target,
	}

	ann, err := h.ictx.Make(kind, params...)
	if err != nil {
		event.Error = err.Error()
		result.AddTrace(event)
		result.AddError(fmt.Sprintf("steps[%d]: %v", step, err))
		return ir.Annotation{}, false
	}

	event.Seq = ann.Storage().Seq()
	event.New = h.ictx.Len() > before
	result.AddTrace(event)
	result.Targeted = append(result.Targeted, ir.Targeted{Target: target, Annotation: ann})
	return ann, true
}

func (h *Harness) executeFile(step int, s Step, result *Result) {
	records, err := compiler.DecodeFile(s.File)
	if err != nil {
		result.AddError(fmt.Sprintf("steps[%d]: %v", step, err))
		return
	}

	for _, rec := range records {
		before := h.ictx.Len()
		t, err := compiler.CompileRecord(h.ictx, rec)
		event := TraceEvent{Step: step, Kind: rec.Class, Target: rec.Target}
		if err != nil {
			event.Error = err.Error()
			result.AddTrace(event)
			result.AddError(fmt.Sprintf("steps[%d]: %v", step, err))
			continue
		}
		event.Kind = string(t.Annotation.Kind())
		event.Params = t.Annotation.Params()
		event.Seq = t.Annotation.Storage().Seq()
		event.New = h.ictx.Len() > before
		result.AddTrace(event)
		result.Targeted = append(result.Targeted, t)
	}
}

// resolve maps a class name to its kind; unknown names are used as kinds so
// that Make reports them as malformed.
func (h *Harness) resolve(name string) ir.Kind {
	if kind, ok := h.ictx.LookupClass(name); ok {
		return kind
	}
	return ir.Kind(name)
}
