package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphmdo/internal/mvp"
	"graphmdo/internal/units"
)

const torqueCase = `
name: torque
engine: graph
logging:
  level: debug
  format: json
component:
  name: mat_vec_product_comp
  vec_size: 2
  A_shape: [5, 3]
  A_units: m
  x_units: N
  b_units: N*m
  products:
    - {A_name: A, x_name: y, b_name: c, A_units: m, x_units: N, b_units: N*m}
sources:
  - {name: A, units: ft, seed: matrix}
  - {name: x, units: lbf}
  - {name: y, units: N}
report:
  - {name: mat_vec_product_comp.b, units: ft*lbf}
  - {name: c, units: N*m}
`

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, EngineDense, cfg.Engine)
	assert.Equal(t, "mvp", cfg.Component.Name)
	assert.Equal(t, []int{3, 3}, cfg.Component.AShape)
	assert.Equal(t, 1, cfg.Component.VecSize)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(torqueCase))
	require.NoError(t, err)
	assert.Equal(t, "torque", cfg.Name)
	assert.Equal(t, EngineGraph, cfg.Engine)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, []int{5, 3}, cfg.Component.AShape)
	assert.True(t, cfg.Component.Promote, "promote defaults to true")
	assert.Equal(t, "A", cfg.Component.AName, "names default to A, x, b")
	require.Len(t, cfg.Component.Products, 1)
	assert.Equal(t, "N*m", cfg.Component.Products[0].BUnits)
	require.Len(t, cfg.Sources, 3)
	assert.Equal(t, "matrix", cfg.Sources[0].Seed)
}

func TestParseInvalid(t *testing.T) {
	tests := map[string]string{
		"engine":        "engine: cuda",
		"A_shape":       "component: {A_shape: [3]}",
		"product names": "component: {products: [{A_name: A}]}",
		"product shape": "component: {products: [{A_name: A, x_name: y, b_name: c, shape: [1, 2, 3]}]}",
		"source name":   "sources: [{units: m}]",
		"yaml":          "component: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	for _, k := range []string{EnvEngine, EnvLogLevel, EnvLogFormat, EnvVecSize} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "case.yaml")
	cfg := Default()
	cfg.Component.VecSize = 4
	cfg.Component.Products = []ProductConfig{{AName: "B", XName: "x", BName: "c", Shape: []int{2, 3}}}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBuildTorqueCase(t *testing.T) {
	cfg, err := Parse([]byte(torqueCase))
	require.NoError(t, err)

	cs, err := cfg.Build(zerolog.Nop())
	require.NoError(t, err)
	defer cs.Close()

	// The shared vector source y must hold x converted to newtons for b and
	// c to agree.
	x, err := cs.Problem.Get("x")
	require.NoError(t, err)
	y, err := units.Convert(x, "lbf", "N")
	require.NoError(t, err)
	require.NoError(t, cs.Problem.Set("y", y))
	require.NoError(t, cs.Problem.RunModel(context.Background()))

	require.Len(t, cs.Report, 2)
	b, err := cs.Problem.GetVal(cs.Report[0].Name, cs.Report[0].Units)
	require.NoError(t, err)
	c, err := cs.Problem.GetVal(cs.Report[1].Name, cs.Report[1].Units)
	require.NoError(t, err)

	bNm, err := units.Convert(b, "ft*lbf", "N*m")
	require.NoError(t, err)
	assert.InDeltaSlice(t, c, bNm, 1e-9)

	checks, err := cs.Problem.CheckPartials(context.Background())
	require.NoError(t, err)
	for _, pc := range checks["mat_vec_product_comp"] {
		assert.Less(t, pc.RelErr, 1e-6, "d%s/d%s", pc.Of, pc.Wrt)
	}
}

func TestBuildExplicitValues(t *testing.T) {
	cfg, err := Parse([]byte(`
component: {promote: false, A_shape: [2, 2]}
sources:
  - {name: A, value: [1, 2, 3, 4]}
  - {name: x, value: [1, -1]}
`))
	require.NoError(t, err)
	cs, err := cfg.Build(zerolog.Nop())
	require.NoError(t, err)
	defer cs.Close()

	require.NoError(t, cs.Problem.RunModel(context.Background()))
	require.Len(t, cs.Report, 1)
	assert.Equal(t, "mvp.b", cs.Report[0].Name)
	b, err := cs.Problem.Get("mvp.b")
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -1}, b)
}

func TestBuildErrors(t *testing.T) {
	cfg := Default()
	cfg.Component.Products = []ProductConfig{{AName: "A", XName: "y", BName: "c", VecSize: 10}}
	_, err := cfg.Build(zerolog.Nop())
	assert.ErrorIs(t, err, mvp.ErrShapeConflict)
	assert.EqualError(t, err,
		"MatrixVectorProductComp (mvp): Conflicting shapes specified for matrix 'A', (1, 3, 3) and (10, 3, 3).")

	cfg = Default()
	cfg.Sources = []SourceConfig{{Name: "Q"}}
	_, err = cfg.Build(zerolog.Nop())
	assert.Error(t, err)

	cfg = Default()
	cfg.Sources = []SourceConfig{{Name: "A", Value: []float64{1}}}
	_, err = cfg.Build(zerolog.Nop())
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "case.yaml")
	require.NoError(t, Default().Save(path))

	t.Setenv(EnvEngine, EngineGraph)
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvVecSize, "7")
	t.Setenv(EnvLogFormat, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, EngineGraph, cfg.Engine)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 7, cfg.Component.VecSize)

	t.Setenv(EnvVecSize, "many")
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvVecSize)

	t.Setenv(EnvVecSize, "")
	t.Setenv(EnvEngine, "cuda")
	_, err = Load(path)
	assert.Error(t, err)
}
