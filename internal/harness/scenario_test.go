package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenario(t, `
name: minimal
description: "smallest valid scenario"
steps:
  - add:
      node: a
      kind: text
      value: "x"
assertions:
  - type: outgoing_count
    node: a
    count: 1
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", scenario.Name)
	assert.Len(t, scenario.Steps, 1)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	// "assertion:" instead of "assertions:" is a typo strict decoding catches.
	path := writeScenario(t, `
name: typo
description: "misspelled field"
steps:
  - add:
      node: a
      kind: text
      value: "x"
assertion:
  - type: outgoing_count
    node: a
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field")
}

func TestLoadScenario_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			"missing name",
			`
description: "no name"
steps:
  - add: {node: a, kind: text, value: "x"}
assertions:
  - {type: outgoing_count, node: a, count: 1}
`,
			"name is required",
		},
		{
			"missing steps",
			`
name: s
description: "no steps"
assertions:
  - {type: outgoing_count, node: a, count: 1}
`,
			"steps list is required",
		},
		{
			"missing assertions",
			`
name: s
description: "no assertions"
steps:
  - add: {node: a, kind: text, value: "x"}
`,
			"assertions list is required",
		},
		{
			"step with two operations",
			`
name: s
description: "ambiguous step"
steps:
  - add: {node: a, kind: text, value: "x"}
    remove_node: b
assertions:
  - {type: outgoing_count, node: a, count: 1}
`,
			"exactly one operation",
		},
		{
			"replace policy without target",
			`
name: s
description: "replace needs a target"
steps:
  - add: {node: a, kind: text, value: "x", policy: replace}
assertions:
  - {type: outgoing_count, node: a, count: 1}
`,
			"target is required",
		},
		{
			"unknown assertion type",
			`
name: s
description: "bad assertion"
steps:
  - add: {node: a, kind: text, value: "x"}
assertions:
  - {type: trace_contains, node: a}
`,
			"unknown assertion type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
