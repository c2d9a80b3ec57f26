package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const scenariosDir = "../../testdata/scenarios"

// jsonResponse mirrors CLIResponse with the payload left undecoded.
type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decode parses a JSON response and its data payload.
func decode(t *testing.T, output string, data any) jsonResponse {
	t.Helper()
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp), output)
	if data != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

// writeFile writes content under dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const passingScenario = `
name: pings
description: two handlers, one wait
handlers:
  - name: first
    wait_for: [second]
  - name: second
steps:
  - action: ping
assertions:
  - type: complete_order
    handlers: [second, first]
`

const failingScenario = `
name: broken
description: assertion that cannot hold
handlers:
  - name: only
steps:
  - action: ping
assertions:
  - type: call_count
    handler: only
    count: 2
`

const circularScenario = `
name: loop
description: handlers waiting for each other
handlers:
  - name: a
    wait_for: [b]
  - name: b
    wait_for: [a]
steps:
  - action: ping
    expect_error: CircularDependency
`
