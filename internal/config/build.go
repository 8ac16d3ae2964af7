package config

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"graphmdo/internal/graph"
	"graphmdo/internal/model"
	"graphmdo/internal/mvp"
)

// Case is a set-up problem built from a Config.
type Case struct {
	Problem   *model.Problem
	Component *mvp.Comp
	Report    []ReportConfig

	engine *graph.Engine
}

// Close releases the evaluation backend.
func (c *Case) Close() error {
	if c.engine == nil {
		return nil
	}
	return c.engine.Close()
}

func (c *Config) options(log zerolog.Logger) []mvp.Option {
	cc := c.Component
	return []mvp.Option{
		mvp.WithLogger(log),
		mvp.WithMatrixName(cc.AName),
		mvp.WithVectorName(cc.XName),
		mvp.WithOutputName(cc.BName),
		mvp.WithBatchSize(cc.VecSize),
		mvp.WithShape(cc.AShape[0], cc.AShape[1]),
		mvp.WithMatrixUnits(cc.AUnits),
		mvp.WithVectorUnits(cc.XUnits),
		mvp.WithOutputUnits(cc.BUnits),
	}
}

func (p ProductConfig) options() []mvp.Option {
	opts := []mvp.Option{
		mvp.WithMatrixUnits(p.AUnits),
		mvp.WithVectorUnits(p.XUnits),
		mvp.WithOutputUnits(p.BUnits),
	}
	if p.VecSize != 0 {
		opts = append(opts, mvp.WithBatchSize(p.VecSize))
	}
	if len(p.Shape) == 2 {
		opts = append(opts, mvp.WithShape(p.Shape[0], p.Shape[1]))
	}
	return opts
}

// Build declares the component, adds one source per component input, sets
// the problem up and fills the sources. The returned Case must be closed.
func (c *Config) Build(log zerolog.Logger) (*Case, error) {
	opts := c.options(log)
	var eng *graph.Engine
	if c.Engine == EngineGraph {
		eng = graph.NewEngine(log)
		opts = append(opts, mvp.WithEngine(eng))
	}

	comp := mvp.New(opts...)
	for _, p := range c.Component.Products {
		comp.AddProduct(p.AName, p.XName, p.BName, p.options()...)
	}
	cs := &Case{Component: comp, engine: eng, Report: c.Report}

	// Input shapes are only known once the declarations are validated.
	name := c.Component.Name
	if err := comp.Setup(name); err != nil {
		cs.Close()
		return nil, err
	}

	inputs := make(map[string]bool)
	for _, in := range comp.Inputs() {
		inputs[in.Name] = true
	}
	sources := make(map[string]SourceConfig, len(c.Sources))
	for _, s := range c.Sources {
		if !inputs[s.Name] {
			cs.Close()
			return nil, errors.Errorf("source %q does not feed any input of %q", s.Name, name)
		}
		sources[s.Name] = s
	}

	prob := model.NewProblem(model.WithLogger(log))
	for _, in := range comp.Inputs() {
		u := in.Units
		if s, ok := sources[in.Name]; ok && s.Units != "" {
			u = s.Units
		}
		prob.AddSource(in.Name, in.Shape, u)
		if !c.Component.Promote {
			prob.Connect(in.Name, name+"."+in.Name)
		}
	}
	prob.AddComponent(name, comp, c.Component.Promote)
	if err := prob.Setup(); err != nil {
		cs.Close()
		return nil, err
	}

	for _, in := range comp.Inputs() {
		vals := make([]float64, in.Size())
		s, ok := sources[in.Name]
		switch {
		case ok && len(s.Value) > 0:
			vals = s.Value
		case ok && s.Seed != "":
			model.FillDeterministic(vals, s.Seed)
		default:
			model.FillDeterministic(vals, in.Name)
		}
		if err := prob.Set(in.Name, vals); err != nil {
			cs.Close()
			return nil, errors.Wrapf(err, "source %q", in.Name)
		}
	}

	if len(cs.Report) == 0 {
		for _, out := range comp.Outputs() {
			cs.Report = append(cs.Report, ReportConfig{Name: name + "." + out.Name, Units: out.Units})
		}
	}
	cs.Problem = prob
	return cs, nil
}
