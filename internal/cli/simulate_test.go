package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSimulate_PassingScenario(t *testing.T) {
	path := writeScenarioFile(t, `
name: smoke
description: "one packet crosses one connection"
connections:
  - source: a
    target: b
steps:
  - add:
      node: a
      kind: text
      value: "hello"
      label: card
assertions:
  - type: incoming_contains
    node: b
    packet: card
    value: "hello"
`)

	out, err := executeCommand("simulate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Scenario: smoke")
	assert.Contains(t, out, "update pkt-1 at a")
	assert.Contains(t, out, "update pkt-1 at b")
	assert.Contains(t, out, "All assertions passed")
}

func TestSimulate_FailingScenario(t *testing.T) {
	path := writeScenarioFile(t, `
name: failing
description: "asserts a count that cannot hold"
steps:
  - add:
      node: a
      kind: text
      value: "x"
assertions:
  - type: outgoing_count
    node: a
    count: 2
`)

	out, err := executeCommand("simulate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Scenario failed")
}

func TestSimulate_MalformedScenario(t *testing.T) {
	path := writeScenarioFile(t, `name: [broken`)

	_, err := executeCommand("simulate", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSimulate_JSONOutput(t *testing.T) {
	path := writeScenarioFile(t, `
name: json-smoke
description: "json trace output"
steps:
  - add:
      node: a
      kind: color
      value: "#ff8800"
assertions:
  - type: outgoing_count
    node: a
    count: 1
`)

	out, err := executeCommand("--format", "json", "simulate", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"status":"ok"`)
	assert.Contains(t, out, `"pass":true`)
}
