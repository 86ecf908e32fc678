// Package testutil provides shared helpers for Remex conformance
// tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/remexlang/remex/pkg/capabilities"
)

// ScenariosDir is the relative path from cmd/remex to the shared
// conformance scenarios.
const ScenariosDir = "../../testdata/scenarios"

// Scenario is one conformance case: a program document, an input
// event, an optional embedding policy, and the expected outcome.
type Scenario struct {
	Program string                   `json:"program"`
	Event   json.RawMessage          `json:"event,omitempty"`
	Policy  *capabilities.PolicyFile `json:"policy,omitempty"`
	Expect  ExpectedResult           `json:"expect"`
}

// ExpectedResult describes the expected outcome of a scenario.
//
// Status is one of "ok", "abort", "error" (runtime failure), or
// "reject" (fatal compile diagnostics). Event and EventSubset check
// the transformed record; Value checks the program's final value.
type ExpectedResult struct {
	Status             string          `json:"status"`
	Event              json.RawMessage `json:"event,omitempty"`
	EventSubset        json.RawMessage `json:"eventSubset,omitempty"`
	Value              json.RawMessage `json:"value,omitempty"`
	ErrorContains      string          `json:"errorContains,omitempty"`
	DiagnosticsContain []string        `json:"diagnosticsContain,omitempty"`
}

// LoadScenario loads a scenario from a directory containing
// scenario.json.
func LoadScenario(dir string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Join(dir, "scenario.json"))
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Program == "" {
		s.Program = "program.json"
	}
	return &s, nil
}

// ListScenarios returns all scenario directories under the given root.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), "scenario.json")); err == nil {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	return dirs, nil
}

// ReadProgramDoc reads the program document a scenario references.
func ReadProgramDoc(dir string, s *Scenario) ([]byte, error) {
	return os.ReadFile(filepath.Join(dir, s.Program))
}

// NormalizeJSON re-marshals raw JSON so two documents compare by
// structure rather than formatting.
func NormalizeJSON(raw []byte) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("bad JSON %q: %w", string(raw), err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// JSONSubset reports whether expected is structurally contained in
// actual: every object key in expected must exist in actual with a
// matching value, arrays compare per index as a prefix.
func JSONSubset(expected, actual []byte) (bool, error) {
	var e, a any
	if err := json.Unmarshal(expected, &e); err != nil {
		return false, err
	}
	if err := json.Unmarshal(actual, &a); err != nil {
		return false, err
	}
	return isSubset(e, a), nil
}

func isSubset(expected, actual any) bool {
	switch e := expected.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, ev := range e {
			av, exists := a[k]
			if !exists {
				return false
			}
			if !isSubset(ev, av) {
				return false
			}
		}
		return true

	case []any:
		a, ok := actual.([]any)
		if !ok {
			return false
		}
		if len(e) > len(a) {
			return false
		}
		for i, ev := range e {
			if !isSubset(ev, a[i]) {
				return false
			}
		}
		return true

	case nil:
		return actual == nil

	default:
		return expected == actual
	}
}
