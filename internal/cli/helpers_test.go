package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const rotateScenario = `name: rotate
description: "Rotating left moves the first item to the end"
key: id
passes:
  - items: [{id: a}, {id: b}, {id: c}]
    expect:
      ops: ["append a", "append b", "append c"]
  - items: [{id: b}, {id: c}, {id: a}]
    expect:
      ops: ["retain b", "retain c", "move a before END"]
assertions:
  - type: final_order
    keys: [b, c, a]
`

const failingScenario = `name: wrong_order
description: "Expects an order the synchronizer never produces"
key: id
passes:
  - items: [{id: a}, {id: b}]
    expect:
      order: [b, a]
`

const invalidScenario = `name: broken
description: "Refers to an op that does not exist"
passes:
  - items: [a]
    expect:
      ops: ["shuffle a"]
`

// writeFile writes content to dir/name and returns the full path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
