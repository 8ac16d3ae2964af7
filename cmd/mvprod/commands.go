package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"graphmdo/internal/config"
	"graphmdo/internal/logging"
	"graphmdo/internal/model"
	"graphmdo/internal/units"
)

type rootFlags struct {
	configPath string
	verbose    bool
	logFormat  string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:   "mvprod",
		Short: "Batched matrix-vector product cases",
		Long: `mvprod evaluates MatrixVectorProductComp cases described in YAML.

A case declares the component (default product plus extra products), the
units of each source feeding it, and which outputs to report in which units.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&f.configPath, "config", "c", "case.yaml", "case file")
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&f.logFormat, "log-format", "", "console or json (overrides the case file)")

	root.AddCommand(newRunCmd(f), newCheckCmd(f), newConvertCmd(), newInitCmd(f))
	return root
}

// loadCase reads the case file and builds its logger and problem.
func loadCase(cmd *cobra.Command, f *rootFlags) (*config.Case, zerolog.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	level, format := cfg.Logging.Level, cfg.Logging.Format
	if f.verbose {
		level = "debug"
	}
	if f.logFormat != "" {
		format = f.logFormat
	}
	log, err := logging.New(cmd.ErrOrStderr(), level, format)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log = log.With().Str("case", cfg.Name).Logger()

	cs, err := cfg.Build(log)
	if err != nil {
		return nil, log, err
	}
	return cs, log, nil
}

func newRunCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Evaluate a case and print its outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, _, err := loadCase(cmd, f)
			if err != nil {
				return err
			}
			defer cs.Close()

			if err := cs.Problem.RunModel(cmd.Context()); err != nil {
				return err
			}
			for _, r := range cs.Report {
				if err := printVariable(cmd.OutOrStdout(), cs.Problem, r); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// printVariable prints one output, one batch element per line.
func printVariable(w io.Writer, p *model.Problem, r config.ReportConfig) error {
	v, err := p.Variable(r.Name)
	if err != nil {
		return err
	}
	vals, err := p.GetVal(r.Name, r.Units)
	if err != nil {
		return err
	}
	u := r.Units
	if u == "" {
		u = v.Units
	}
	fmt.Fprintf(w, "%s %s [%s]\n", r.Name, model.ShapeString(v.Shape), model.UnitsLabel(u))

	width := v.Shape[len(v.Shape)-1]
	for k := 0; k*width < len(vals); k++ {
		row := vals[k*width : (k+1)*width]
		parts := make([]string, len(row))
		for i, x := range row {
			parts[i] = strconv.FormatFloat(x, 'g', 10, 64)
		}
		fmt.Fprintf(w, "  [%d] %s\n", k, strings.Join(parts, " "))
	}
	return nil
}

func newCheckCmd(f *rootFlags) *cobra.Command {
	var tol float64
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare analytic partials with finite differences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, log, err := loadCase(cmd, f)
			if err != nil {
				return err
			}
			defer cs.Close()

			if err := cs.Problem.RunModel(cmd.Context()); err != nil {
				return err
			}
			checks, err := cs.Problem.CheckPartials(cmd.Context())
			if err != nil {
				return err
			}

			if failed := printChecks(cmd.OutOrStdout(), checks, tol); failed > 0 {
				log.Error().Int("failed", failed).Float64("tolerance", tol).Msg("partials check failed")
				return errors.Errorf("%d partials exceed tolerance %g", failed, tol)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&tol, "tol", 1e-6, "relative error tolerance")
	return cmd
}

// printChecks prints one line per partial, components in name order, and
// returns how many exceed tol.
func printChecks(w io.Writer, checks map[string][]model.PartialCheck, tol float64) int {
	failed := 0
	for _, comp := range slices.Sorted(maps.Keys(checks)) {
		for _, c := range checks[comp] {
			status := "ok"
			if c.RelErr > tol {
				status = "FAIL"
				failed++
			}
			fmt.Fprintf(w, "%s  d%s/d%s  abs %.3e  rel %.3e  %s\n", comp, c.Of, c.Wrt, c.AbsErr, c.RelErr, status)
		}
	}
	return failed
}

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert VALUE FROM TO",
		Short: "Convert a value between units",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return errors.Wrapf(err, "value %q", args[0])
			}
			out, err := units.ConvertValue(v, args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s %s\n",
				args[0], args[1], strconv.FormatFloat(out, 'g', 12, 64), args[2])
			return nil
		},
	}
}

func newInitCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default case file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Default().Save(f.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", f.configPath)
			return nil
		},
	}
}
