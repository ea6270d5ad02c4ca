package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/firanno/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	ContextID    string       `json:"context_id,omitempty"`
	StorageCount int          `json:"storage_count"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles primitives, slices and maps.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"step": event.Step,
			"kind": event.Kind,
			"new":  event.New,
		}
		if len(event.Params) > 0 {
			eventMap["params"] = event.Params
		}
		if event.Target != "" {
			eventMap["target"] = event.Target
		}
		if event.Seq != 0 {
			eventMap["seq"] = event.Seq
		}
		if event.Error != "" {
			eventMap["error"] = event.Error
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"storage_count": s.StorageCount,
		"trace":         traceList,
	}
	if s.ContextID != "" {
		result["context_id"] = s.ContextID
	}
	return result
}

// MarshalSnapshot renders the snapshot of a result as canonical JSON
// followed by a newline.
func MarshalSnapshot(name, contextID string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: name,
		ContextID:    contextID,
		StorageCount: result.StorageCount,
		Trace:        result.Trace,
	}
	data, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, scenario.ContextID, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName, contextID string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalSnapshot(scenarioName, contextID, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
