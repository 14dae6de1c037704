package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const personSchema = `type: object
properties:
  id: {type: string}
  name: {type: string}
  age: {type: integer}
  address:
    type: object
    properties:
      city: {type: string}
`

// writeFile creates name under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// storeArgs returns the global flags selecting a fresh SQLite store in dir
// with the person schema.
func storeArgs(t *testing.T, dir string) []string {
	t.Helper()
	schemaPath := writeFile(t, dir, "person.yaml", personSchema)
	return []string{"--schema", schemaPath, "--backend", "sqlite", "--db", filepath.Join(dir, "store.db")}
}

func withArgs(global []string, args ...string) []string {
	return append(append([]string{}, args...), global...)
}
