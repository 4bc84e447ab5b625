package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/pacer"
	"github.com/aretw0/pacer/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyDoc = `{"version": 1, "patterns": {"square": [{"x": 1, "y": 1, "delay": 0}, {"x": 3, "y": 1, "delay": 0}]}}`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeDoc(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pacer version "+strings.TrimSpace(pacer.Version)+"\n", out)
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "validate", writeDoc(t, "p.json", legacyDoc))
	require.NoError(t, err)
	assert.Contains(t, out, "Document is valid: 1 pattern(s)")
	assert.Contains(t, out, "square: 2 step(s)")

	_, err = execute(t, "validate", writeDoc(t, "bad.yaml", "patterns:\n  empty: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `pattern "empty"`)
}

func TestMigrate(t *testing.T) {
	in := writeDoc(t, "legacy.json", legacyDoc)

	out, err := execute(t, "migrate", in, "--format", "json")
	require.NoError(t, err)

	set, err := schema.Decode([]byte(out))
	require.NoError(t, err)
	steps := set.Patterns[0].Steps
	assert.Equal(t, 1.0, steps[0].DX)
	assert.Equal(t, 2.0, steps[1].DX)
	assert.Equal(t, 0.0, steps[1].DY)

	dst := filepath.Join(t.TempDir(), "patterns.yaml")
	_, err = execute(t, "migrate", in, "--format", "", "--out", dst)
	require.NoError(t, err)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version: 2")
}

func TestShowAndPlay(t *testing.T) {
	path := writeDoc(t, "patterns.json", legacyDoc)

	out, err := execute(t, "show", "--raw", "--storage", "file", "--patterns", path)
	require.NoError(t, err)
	assert.Contains(t, out, "| square | 2 |")

	out, err = execute(t, "show", "--mermaid", "square", "--storage", "file", "--patterns", path)
	require.NoError(t, err)
	assert.Contains(t, out, `p1 -- "+2, +0" --> p2(["(3, 1)"])`)
	require.NoError(t, showCmd.Flags().Set("mermaid", ""))

	out, err = execute(t, "play", "square", "--storage", "file", "--patterns", path, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, ">>> Finished 'square'")

	_, err = execute(t, "play", "missing", "--storage", "file", "--patterns", path)
	assert.ErrorContains(t, err, "missing")
}

func TestHistoryRequiresSQLite(t *testing.T) {
	_, err := execute(t, "history", "--storage", "memory")
	assert.ErrorContains(t, err, "sqlite")
}
