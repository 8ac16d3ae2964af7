// Package model is a small model graph: independent sources feed
// components through unit-converting connections.
package model

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"graphmdo/internal/units"
)

var (
	// ErrNotFound is returned for a variable name that resolves to nothing.
	ErrNotFound = errors.New("variable not found")
	// ErrNotSetup is returned when the problem is used before Setup.
	ErrNotSetup = errors.New("problem is not set up")
	// ErrConnection is returned for an invalid connection.
	ErrConnection = errors.New("invalid connection")
)

type slot struct {
	path  string
	v     Variable
	data  []float64
	input bool
	src   *slot
}

type entry struct {
	name    string
	comp    Component
	promote bool
	in, out []*slot
}

type connection struct {
	src, tgt string
}

// Problem owns a model's variables and runs its components in the order
// they were added.
type Problem struct {
	log     zerolog.Logger
	sources []*slot
	entries []*entry
	conns   []connection

	ready     bool
	slots     map[string]*slot   // absolute path
	promOut   map[string]*slot   // promoted output or source
	promIn    map[string][]*slot // promoted inputs
	promNames []string           // keys of promIn in first-use order
	inOrder   []*slot
	outOrder  []*slot
}

// Option configures a Problem.
type Option func(*Problem)

// WithLogger sets the problem logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Problem) { p.log = l }
}

// NewProblem returns an empty problem.
func NewProblem(opts ...Option) *Problem {
	p := &Problem{log: zerolog.Nop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// AddSource declares an independent variable.
func (p *Problem) AddSource(name string, shape []int, units string) {
	p.ready = false
	p.sources = append(p.sources, &slot{
		path: name,
		v:    Variable{Name: name, Shape: shape, Units: units},
	})
}

// AddComponent adds comp under name. A promoted component exposes its
// variables under their bare names.
func (p *Problem) AddComponent(name string, comp Component, promote bool) {
	p.ready = false
	p.entries = append(p.entries, &entry{name: name, comp: comp, promote: promote})
}

// Connect feeds the input tgt from the source or output src. Both accept
// absolute ("comp.A") or promoted names.
func (p *Problem) Connect(src, tgt string) {
	p.ready = false
	p.conns = append(p.conns, connection{src, tgt})
}

// Setup sets up every component, allocates storage and resolves
// connections. Component declaration errors are returned unchanged.
func (p *Problem) Setup() error {
	p.ready = false
	p.slots = make(map[string]*slot)
	p.promOut = make(map[string]*slot)
	p.promIn = make(map[string][]*slot)
	p.promNames, p.inOrder, p.outOrder = nil, nil, nil

	for _, s := range p.sources {
		if _, dup := p.slots[s.path]; dup {
			return errors.Errorf("duplicate source %q", s.path)
		}
		s.data = make([]float64, s.v.Size())
		p.slots[s.path] = s
		p.promOut[s.path] = s
	}

	names := make(map[string]bool, len(p.entries))
	for _, e := range p.entries {
		switch {
		case names[e.name]:
			return errors.Errorf("duplicate component %q", e.name)
		case p.slots[e.name] != nil:
			return errors.Errorf("component %q has the name of a source", e.name)
		}
		names[e.name] = true
	}

	for _, e := range p.entries {
		if err := e.comp.Setup(e.name); err != nil {
			return err
		}
		e.in, e.out = nil, nil
		for _, v := range e.comp.Inputs() {
			s := &slot{path: pathName(e.name, v.Name), v: v, data: make([]float64, v.Size()), input: true}
			if err := p.addSlot(s); err != nil {
				return err
			}
			e.in = append(e.in, s)
			p.inOrder = append(p.inOrder, s)
			if e.promote {
				if _, seen := p.promIn[v.Name]; !seen {
					p.promNames = append(p.promNames, v.Name)
				}
				p.promIn[v.Name] = append(p.promIn[v.Name], s)
			}
		}
		for _, v := range e.comp.Outputs() {
			s := &slot{path: pathName(e.name, v.Name), v: v, data: make([]float64, v.Size())}
			if err := p.addSlot(s); err != nil {
				return err
			}
			e.out = append(e.out, s)
			p.outOrder = append(p.outOrder, s)
			if e.promote {
				if prev, dup := p.promOut[v.Name]; dup {
					return errors.Errorf("output %q of %q is promoted to %q, which is already %q",
						v.Name, e.name, v.Name, prev.path)
				}
				p.promOut[v.Name] = s
			}
		}
	}

	for _, c := range p.conns {
		src, err := p.resolveSource(c.src)
		if err != nil {
			return errors.Wrapf(err, "connect %q to %q", c.src, c.tgt)
		}
		tgts := p.resolveInputs(c.tgt)
		if len(tgts) == 0 {
			return errors.Wrapf(ErrNotFound, "connect %q to %q: no input %q", c.src, c.tgt, c.tgt)
		}
		for _, t := range tgts {
			if err := connect(src, t); err != nil {
				return err
			}
		}
	}

	for _, name := range p.promNames {
		var open []*slot
		for _, t := range p.promIn[name] {
			if t.src == nil {
				open = append(open, t)
			}
		}
		if len(open) == 0 {
			continue
		}
		src, ok := p.promOut[name]
		if !ok {
			src = p.implicitSource(name, open[0].v)
		}
		for _, t := range open {
			if err := connect(src, t); err != nil {
				return err
			}
		}
	}

	for _, s := range p.inOrder {
		if s.src == nil {
			p.log.Debug().Str("input", s.path).Msg("input is not connected")
		}
	}
	p.ready = true
	p.log.Debug().Int("components", len(p.entries)).Int("sources", len(p.sources)).Msg("problem set up")
	return nil
}

func (p *Problem) addSlot(s *slot) error {
	if _, dup := p.slots[s.path]; dup {
		return errors.Errorf("duplicate variable %q", s.path)
	}
	p.slots[s.path] = s
	return nil
}

// implicitSource creates the source behind promoted inputs that share a name
// and are not fed by anything else. It takes the shape and units of the
// first such input.
func (p *Problem) implicitSource(name string, v Variable) *slot {
	v.Name = name
	s := &slot{path: name, v: v, data: make([]float64, v.Size())}
	p.slots[name] = s
	p.promOut[name] = s
	p.log.Debug().Str("input", name).Str("units", v.Units).Msg("added implicit source")
	return s
}

func connect(src, tgt *slot) error {
	switch {
	case tgt.src != nil:
		return errors.Wrapf(ErrConnection, "input %q is already connected to %q", tgt.path, tgt.src.path)
	case src.v.Size() != tgt.v.Size():
		return errors.Wrapf(ErrConnection, "%q %s and %q %s differ in size",
			src.path, ShapeString(src.v.Shape), tgt.path, ShapeString(tgt.v.Shape))
	case src.v.Units != "" && tgt.v.Units != "" && !units.Compatible(src.v.Units, tgt.v.Units):
		return errors.Wrapf(ErrConnection, "units %q of %q are not compatible with %q of %q",
			src.v.Units, src.path, tgt.v.Units, tgt.path)
	}
	tgt.src = src
	return nil
}

func (p *Problem) resolveSource(name string) (*slot, error) {
	if s, ok := p.promOut[name]; ok {
		return s, nil
	}
	if s, ok := p.slots[name]; ok && !s.input {
		return s, nil
	}
	return nil, errors.Wrapf(ErrNotFound, "no source or output %q", name)
}

func (p *Problem) resolveInputs(name string) []*slot {
	if ins, ok := p.promIn[name]; ok {
		return ins
	}
	if s, ok := p.slots[name]; ok && s.input {
		return []*slot{s}
	}
	return nil
}

// resolve finds the storage behind a name. A connected input resolves to
// its source.
func (p *Problem) resolve(name string) (*slot, error) {
	if !p.ready {
		return nil, ErrNotSetup
	}
	s, err := p.resolveSource(name)
	if err == nil {
		return s, nil
	}
	ins := p.resolveInputs(name)
	if len(ins) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "%q", name)
	}
	if ins[0].src != nil {
		return ins[0].src, nil
	}
	return ins[0], nil
}

// Set stores values, in the variable's own units, under name.
func (p *Problem) Set(name string, values []float64) error {
	s, err := p.resolve(name)
	if err != nil {
		return err
	}
	if len(values) != len(s.data) {
		return errors.Errorf("set %q: got %d values, want %d for shape %s",
			name, len(values), len(s.data), ShapeString(s.v.Shape))
	}
	copy(s.data, values)
	return nil
}

// Get returns a copy of the values under name in the variable's own units.
func (p *Problem) Get(name string) ([]float64, error) {
	s, err := p.resolve(name)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), s.data...), nil
}

// GetVal returns the values under name converted to u. An empty u means
// the variable's own units.
func (p *Problem) GetVal(name, u string) ([]float64, error) {
	s, err := p.resolve(name)
	if err != nil {
		return nil, err
	}
	if u == "" || u == s.v.Units {
		return append([]float64(nil), s.data...), nil
	}
	if s.v.Units == "" {
		return nil, errors.Errorf("get %q: cannot convert a unitless variable to %q", name, u)
	}
	out, err := units.Convert(s.data, s.v.Units, u)
	return out, errors.Wrapf(err, "get %q", name)
}

// Variable returns the metadata behind name.
func (p *Problem) Variable(name string) (Variable, error) {
	s, err := p.resolve(name)
	if err != nil {
		return Variable{}, err
	}
	return s.v, nil
}

// Outputs lists the absolute paths of every component output.
func (p *Problem) Outputs() []string {
	paths := make([]string, len(p.outOrder))
	for i, s := range p.outOrder {
		paths[i] = s.path
	}
	return paths
}

// transfer copies connected sources into the inputs of e, converting units.
func (e *entry) transfer() error {
	for _, in := range e.in {
		if in.src == nil {
			continue
		}
		vals, err := units.Convert(in.src.data, in.src.v.Units, in.v.Units)
		if err != nil {
			return errors.Wrapf(err, "transfer %q to %q", in.src.path, in.path)
		}
		copy(in.data, vals)
	}
	return nil
}

func (e *entry) inputData() [][]float64 {
	d := make([][]float64, len(e.in))
	for i, s := range e.in {
		d[i] = s.data
	}
	return d
}

func (e *entry) outputData() [][]float64 {
	d := make([][]float64, len(e.out))
	for i, s := range e.out {
		d[i] = s.data
	}
	return d
}

// RunModel evaluates every component once, in order.
func (p *Problem) RunModel(ctx context.Context) error {
	if !p.ready {
		return ErrNotSetup
	}
	for _, e := range p.entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.transfer(); err != nil {
			return err
		}
		if err := e.comp.Compute(e.inputData(), e.outputData()); err != nil {
			return errors.Wrapf(err, "compute %q", e.name)
		}
		p.log.Debug().Str("component", e.name).Msg("computed")
	}
	p.log.Info().Int("components", len(p.entries)).Msg("model run complete")
	return nil
}

func pathName(component, variable string) string {
	return strings.Join([]string{component, variable}, ".")
}
