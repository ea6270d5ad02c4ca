package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/firanno/internal/ir"
	"github.com/roach88/firanno/internal/store"
	"github.com/roach88/firanno/internal/testutil"
)

// AssertionContext provides what assertions need beyond the trace.
type AssertionContext struct {
	Context *ir.Context
	Ctx     context.Context
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			status := "reused"
			switch {
			case event.Error != "":
				status = "error: " + event.Error
			case event.New:
				status = fmt.Sprintf("new seq=%d", event.Seq)
			}
			fmt.Fprintf(&buf, "  [%d] %s%v %s\n", i+1, event.Kind, event.Params, status)
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertStorageCount:
		return assertStorageCount(result, a, actx.Context)
	case AssertSame:
		return assertSame(result, a)
	case AssertDistinct:
		return assertDistinct(result, a)
	case AssertRejects:
		return assertRejects(result, a, actx.Context)
	case AssertTransformName:
		return assertTransformName(result, a)
	case AssertKindMismatch:
		return assertKindMismatch(result, a)
	case AssertRoundTrip:
		return assertRoundTrip(result, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// handle returns the named handle, or an AssertionError if the step that
// should have produced it failed.
func handle(result *Result, typ, ref string) (ir.Annotation, error) {
	ann, ok := result.Handles[ref]
	if !ok {
		return ir.Annotation{}, &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("handle %q", ref),
			Actual:   "step did not produce a handle",
			Trace:    result.Trace,
		}
	}
	return ann, nil
}

// assertStorageCount checks the number of distinct storages in the context.
func assertStorageCount(result *Result, a Assertion, ictx *ir.Context) error {
	if n := ictx.Len(); n != a.Count {
		return &AssertionError{
			Type:     AssertStorageCount,
			Expected: fmt.Sprintf("%d storage(s)", a.Count),
			Actual:   fmt.Sprintf("%d storage(s)", n),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertSame checks that every ref names the same handle.
func assertSame(result *Result, a Assertion) error {
	first, err := handle(result, AssertSame, a.Refs[0])
	if err != nil {
		return err
	}
	for _, ref := range a.Refs[1:] {
		ann, err := handle(result, AssertSame, ref)
		if err != nil {
			return err
		}
		if ann != first {
			return &AssertionError{
				Type:     AssertSame,
				Expected: fmt.Sprintf("%s and %s to be the same handle", a.Refs[0], ref),
				Actual:   fmt.Sprintf("%s vs %s", first, ann),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

// assertDistinct checks that the refs name pairwise different handles.
func assertDistinct(result *Result, a Assertion) error {
	seen := make(map[ir.Annotation]string, len(a.Refs))
	for _, ref := range a.Refs {
		ann, err := handle(result, AssertDistinct, ref)
		if err != nil {
			return err
		}
		if other, dup := seen[ann]; dup {
			return &AssertionError{
				Type:     AssertDistinct,
				Expected: fmt.Sprintf("%s and %s to be distinct", other, ref),
				Actual:   fmt.Sprintf("both are %s", ann),
				Trace:    result.Trace,
			}
		}
		seen[ann] = ref
	}
	return nil
}

// assertRejects checks that a request fails as malformed and interns nothing.
func assertRejects(result *Result, a Assertion, ictx *ir.Context) error {
	kind, ok := ictx.LookupClass(a.Make)
	if !ok {
		kind = ir.Kind(a.Make)
	}
	before := ictx.Len()

	ann, err := ictx.Make(kind, a.Params...)
	if err == nil {
		return &AssertionError{
			Type:     AssertRejects,
			Expected: fmt.Sprintf("%s%v to be rejected", a.Make, a.Params),
			Actual:   fmt.Sprintf("built %s", ann),
			Trace:    result.Trace,
		}
	}
	if !errors.Is(err, ir.ErrMalformed) {
		return &AssertionError{
			Type:     AssertRejects,
			Expected: "a malformed-annotation error",
			Actual:   err.Error(),
			Trace:    result.Trace,
		}
	}
	if after := ictx.Len(); after != before {
		return &AssertionError{
			Type:     AssertRejects,
			Expected: fmt.Sprintf("storage count to stay %d", before),
			Actual:   fmt.Sprintf("storage count is %d", after),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTransformName checks the transform name of a handle.
func assertTransformName(result *Result, a Assertion) error {
	ann, err := handle(result, AssertTransformName, a.Ref)
	if err != nil {
		return err
	}

	name, perr := safeTransformName(ann)
	if perr != nil {
		return &AssertionError{
			Type:     AssertTransformName,
			Expected: fmt.Sprintf("transform name %q", a.Expect),
			Actual:   perr.Error(),
			Trace:    result.Trace,
		}
	}
	if name != a.Expect {
		return &AssertionError{
			Type:     AssertTransformName,
			Expected: fmt.Sprintf("transform name %q", a.Expect),
			Actual:   fmt.Sprintf("transform name %q", name),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertKindMismatch checks that the transform-name accessor panics with a
// kind mismatch for a handle of another kind.
func assertKindMismatch(result *Result, a Assertion) error {
	ann, err := handle(result, AssertKindMismatch, a.Ref)
	if err != nil {
		return err
	}

	name, perr := safeTransformName(ann)
	var mismatch *ir.KindMismatchError
	if !errors.As(perr, &mismatch) {
		actual := fmt.Sprintf("returned %q", name)
		if perr != nil {
			actual = perr.Error()
		}
		return &AssertionError{
			Type:     AssertKindMismatch,
			Expected: fmt.Sprintf("TransformName on %s to panic with a kind mismatch", a.Ref),
			Actual:   actual,
			Trace:    result.Trace,
		}
	}
	return nil
}

// safeTransformName converts an accessor panic into an error.
func safeTransformName(ann ir.Annotation) (name string, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return ann.TransformName(), nil
}

// assertRoundTrip stores the context and its targeted annotations in an
// in-memory store, reloads them into a fresh context and compares.
func assertRoundTrip(result *Result, actx *AssertionContext) error {
	fail := func(expected, actual string) error {
		return &AssertionError{
			Type:     AssertRoundTrip,
			Expected: expected,
			Actual:   actual,
			Trace:    result.Trace,
		}
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return fmt.Errorf("open in-memory store: %w", err)
	}
	defer st.Close()

	src := actx.Context
	if err := st.WriteContext(actx.Ctx, src); err != nil {
		return fail("context to be written", err.Error())
	}
	if err := st.WriteTargeted(actx.Ctx, src.ID(), result.Targeted); err != nil {
		return fail("targeted annotations to be written", err.Error())
	}

	dst := ir.NewContext(ir.WithIDGenerator(testutil.NewFixedIDGenerator(src.ID())), ir.WithClock(ir.NewClock()))
	for _, kind := range src.Kinds() {
		if _, ok := dst.Variant(kind); ok {
			continue
		}
		v, _ := src.Variant(kind)
		if err := dst.Register(v); err != nil {
			return fmt.Errorf("register %s: %w", kind, err)
		}
	}

	loaded, err := st.Load(actx.Ctx, dst)
	if err != nil {
		return fail("stored annotations to reload", err.Error())
	}
	original := src.Annotations()
	if len(loaded) != len(original) {
		return fail(fmt.Sprintf("%d annotation(s) after reload", len(original)), fmt.Sprintf("%d", len(loaded)))
	}
	for i, ann := range loaded {
		if !ann.Key().Equal(original[i].Key()) {
			return fail(fmt.Sprintf("annotation %d to be %s", i, original[i]), ann.String())
		}
		again, err := dst.Make(ann.Kind(), ann.Params()...)
		if err != nil || again != ann {
			return fail(fmt.Sprintf("reloaded %s to be canonical", ann), "a different handle")
		}
	}

	targeted, err := st.LoadTargeted(actx.Ctx, dst, src.ID())
	if err != nil {
		return fail("attachments to reload", err.Error())
	}
	if want := countDistinctTargeted(result.Targeted); len(targeted) != want {
		return fail(fmt.Sprintf("%d attachment(s) after reload", want), fmt.Sprintf("%d", len(targeted)))
	}
	return nil
}

func countDistinctTargeted(items []ir.Targeted) int {
	seen := make(map[ir.Targeted]bool, len(items))
	for _, t := range items {
		seen[t] = true
	}
	return len(seen)
}
