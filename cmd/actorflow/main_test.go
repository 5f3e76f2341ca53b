package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloWorkflow = `name: hello
steps:
  - states: ["0", "1"]
    vertexName: greet
    actions:
      - {actor: this, method: print, arguments: [hello, cli]}
  - states: ["1", "end"]
    actions:
      - {actor: this, method: doNothing}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// resetFlags restores scalar flags to their defaults between executions of
// the shared command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		switch f.Value.Type() {
		case "string", "bool", "int", "duration":
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "actorflow version dev\n", out)
}

func TestRun_PrintsAndReachesEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "hello.yaml"), helloWorkflow)

	out, err := execute(t, "run", "hello.yaml", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "hello cli\n")

	_, err = execute(t, "run", "missing.yaml", "--dir", dir)
	assert.Error(t, err)
}

func TestRun_Every(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "hello.yaml"), helloWorkflow)

	out, err := execute(t, "run", "hello.yaml", "--dir", dir, "--every", "5ms", "--repeat", "3")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "hello cli\n"))
}

func TestRun_SessionLifecycle(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(t.TempDir(), "state")
	writeFile(t, filepath.Join(dir, "hello.yaml"), helloWorkflow)

	out, err := execute(t, "run", "hello.yaml", "--dir", dir, "--session", "s1", "--state-dir", state)
	require.NoError(t, err)
	assert.Contains(t, out, "session: s1")

	out, err = execute(t, "session", "ls", "--state-dir", state)
	require.NoError(t, err)
	assert.Contains(t, out, "s1")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "end")

	out, err = execute(t, "session", "inspect", "s1", "--state-dir", state)
	require.NoError(t, err)
	assert.Contains(t, out, `"end"`)

	// A finished session does not run again.
	out, err = execute(t, "run", "hello.yaml", "--dir", dir, "--session", "s1", "--state-dir", state)
	require.NoError(t, err)
	assert.NotContains(t, out, "hello cli")

	out, err = execute(t, "session", "rm", "s1", "--state-dir", state)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed session 's1'")

	out, err = execute(t, "session", "ls", "--state-dir", state)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found.")

	_, err = execute(t, "session", "rm", "--state-dir", state)
	assert.Error(t, err)
}

func TestSession_DefaultFileStore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "hello.yaml"), helloWorkflow)

	_, err := execute(t, "run", "hello.yaml", "--dir", dir, "--session", "local")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, ".actorflow", "sessions", "local.json"))

	out, err := execute(t, "session", "rm", "--all", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed session 'local'")
}

func TestRun_RedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "hello.yaml"), helloWorkflow)

	_, err := execute(t, "run", "hello.yaml", "--dir", dir, "--session", "r1", "--redis", mr.Addr())
	require.NoError(t, err)
	assert.True(t, mr.Exists("actorflow:session:r1"))

	out, err := execute(t, "session", "ls", "--redis", mr.Addr())
	require.NoError(t, err)
	assert.Contains(t, out, "r1")
}

func TestRun_EncryptedSessions(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(t.TempDir(), "state")
	key := strings.Repeat("ab", 32)
	writeFile(t, filepath.Join(dir, "hello.yaml"), helloWorkflow)

	_, err := execute(t, "run", "hello.yaml", "--dir", dir, "--session", "enc", "--state-dir", state, "--encryption-key", key)
	require.NoError(t, err)

	out, err := execute(t, "session", "inspect", "enc", "--state-dir", state)
	require.NoError(t, err)
	assert.Contains(t, out, `"sealed"`)
	assert.NotContains(t, out, "hello")

	out, err = execute(t, "session", "inspect", "enc", "--state-dir", state, "--encryption-key", key)
	require.NoError(t, err)
	assert.Contains(t, out, `"workflow": "hello"`)

	_, err = execute(t, "session", "ls", "--state-dir", state, "--encryption-key", "short")
	assert.Error(t, err)
}

func TestRun_Tools(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tools.yaml"), `
tools:
  - name: check
    command: sh
    args: ["-c", "test \"$ACTORFLOW_ARG_0\" = ok"]
`)
	writeFile(t, filepath.Join(dir, "flow.yaml"), `
name: flow
steps:
  - states: ["0", "end"]
    actions:
      - {actor: shell, method: check, arguments: [ok]}
`)
	writeFile(t, filepath.Join(dir, "broken.yaml"), `
name: broken
steps:
  - states: ["0", "end"]
    actions:
      - {actor: shell, method: check, arguments: [nope]}
`)

	tools := filepath.Join(dir, "tools.yaml")
	_, err := execute(t, "run", "flow.yaml", "--dir", dir, "--tools", tools)
	require.NoError(t, err)

	_, err = execute(t, "run", "broken.yaml", "--dir", dir, "--tools", tools)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "hello.yaml"), helloWorkflow)

	out, err := execute(t, "validate", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "ok   hello.yaml (2 steps)")

	writeFile(t, filepath.Join(dir, "empty.yaml"), "name: empty\nsteps: []\n")
	out, err = execute(t, "validate", "--dir", dir)
	assert.Error(t, err)
	assert.Contains(t, out, "FAIL empty.yaml")
}

func TestGraph(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "hello.yaml"), helloWorkflow)

	out, err := execute(t, "graph", "hello.yaml", "--dir", dir, "--current", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "greet")
}

func TestMerge(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "base", "hello.yaml"), helloWorkflow)
	writeFile(t, filepath.Join(root, "prod", "overlay.yaml"), "bases: [../base]\nnamePrefix: prod-\n")

	out, err := execute(t, "merge", filepath.Join(root, "prod"))
	require.NoError(t, err)
	assert.Contains(t, out, "# prod-hello.yaml")
	assert.Contains(t, out, "name: prod-hello")

	dest := filepath.Join(t.TempDir(), "out")
	out, err = execute(t, "merge", filepath.Join(root, "prod"), "--out", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 1 workflow(s)")
	assert.FileExists(t, filepath.Join(dest, "prod-hello.yaml"))

	out, err = execute(t, "run", "prod-hello.yaml", "--overlay", filepath.Join(root, "prod"))
	require.NoError(t, err)
	assert.Contains(t, out, "hello cli")
}
