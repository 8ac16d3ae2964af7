package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphmdo/internal/model"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConvertCommand(t *testing.T) {
	out, err := execute(t, "convert", "1", "ft", "m")
	require.NoError(t, err)
	assert.Equal(t, "1 ft = 0.3048 m\n", out)

	_, err = execute(t, "convert", "1", "ft", "s")
	assert.Error(t, err)
	_, err = execute(t, "convert", "one", "ft", "m")
	assert.Error(t, err)
}

func TestInitAndRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case.yaml")
	out, err := execute(t, "init", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")

	out, err = execute(t, "run", "-c", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "mvp.b (1, 3) [None]", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "  [0] "))
	assert.Len(t, strings.Fields(lines[1]), 4)
}

func TestRunUnits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "torque.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: torque
engine: graph
logging: {level: warn, format: json}
component:
  vec_size: 2
  A_units: m
  x_units: N
  b_units: N*m
sources:
  - {name: A, units: ft}
  - {name: x, units: lbf}
report:
  - {name: b, units: ft*lbf}
`), 0o644))

	out, err := execute(t, "run", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "b (2, 3) [ft*lbf]")
	assert.Contains(t, out, "  [1] ")

	out, err = execute(t, "check", "-c", path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, " ok\n"), out)
}

func TestRunMissingConfig(t *testing.T) {
	_, err := execute(t, "run", "-c", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPrintChecksSorted(t *testing.T) {
	checks := map[string][]model.PartialCheck{
		"zeta":  {{Of: "b", Wrt: "A"}, {Of: "b", Wrt: "x", RelErr: 1}},
		"alpha": {{Of: "c", Wrt: "B"}},
		"mid":   {{Of: "b", Wrt: "x"}},
	}
	for range 5 {
		var out bytes.Buffer
		failed := printChecks(&out, checks, 1e-6)
		assert.Equal(t, 1, failed)

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 4)
		assert.True(t, strings.HasPrefix(lines[0], "alpha  dc/dB "))
		assert.True(t, strings.HasPrefix(lines[1], "mid  db/dx "))
		assert.True(t, strings.HasPrefix(lines[2], "zeta  db/dA "))
		assert.True(t, strings.HasSuffix(lines[3], " FAIL"))
	}
}
