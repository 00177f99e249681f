package main

import (
	"context"
	"errors"
	"fmt"

	merger "github.com/e19044/reducer_go/pkg"
	"github.com/spf13/cobra"
)

func newDumpCmd() *cobra.Command {
	var field, unit, cutExpr, output string
	var beta, gamma []float64
	var addback bool

	cmd := &cobra.Command{
		Use:   "dump --field dT --unit ms -o out.txt [input.root...]",
		Short: "Write one field of the output tree for the entries passing a cut",
		RunE: func(cmd *cobra.Command, args []string) error {
			configuration.FilesIn = append(configuration.FilesIn, args...)
			inputs := configuration.Inputs()
			if len(inputs) == 0 {
				return errors.New("no input files")
			}

			parts := []string{cutExpr}
			if len(beta) > 0 {
				cut, err := betaCut(beta)
				if err != nil {
					return err
				}
				parts = append(parts, cut)
			}
			if len(gamma) > 0 {
				if len(gamma) != 4 {
					return fmt.Errorf("--gamma needs tlow,thigh,elow,ehigh")
				}
				parts = append(parts, merger.GammaCut(gamma[0], gamma[1], gamma[2], gamma[3], addback))
			}
			cut, err := merger.ParseCut(merger.JoinCuts(parts...))
			if err != nil {
				return err
			}
			if VerbosityLevel > 0 {
				logger.Info(fmt.Sprintf("Cut: %s", cut), "dump")
			}

			fields := append([]string{field}, cut.Fields()...)
			chain, err := merger.OpenChain(inputs, configuration.OutputTree, uniqueFields(fields))
			if err != nil {
				return err
			}
			defer chain.Close()

			out, err := merger.CreateDumpFile(output)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			n, err := merger.DumpField(ctx, chain, field, unit, cut, out)
			if err := errors.Join(err, out.Close()); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Error("dump interrupted")
				}
				return err
			}
			if VerbosityLevel > 0 {
				logger.Info(fmt.Sprintf("%d values written to %s", n, output), "dump")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&field, "field", "dT", "field to write")
	cmd.Flags().StringVar(&unit, "unit", "ms", "unit written in the header")
	cmd.Flags().StringVar(&cutExpr, "cut", "", "cut expression, e.g. \"dr < 0.35 && betaEnergyLowGain > 0\"")
	cmd.Flags().Float64SliceVar(&beta, "beta", nil, "beta window start,width (ns), correlation radius and optional elow,ehigh (keV)")
	cmd.Flags().Float64SliceVar(&gamma, "gamma", nil, "gamma window tlow,thigh (ns) and elow,ehigh (keV)")
	cmd.Flags().BoolVar(&addback, "addback", false, "gamma window on addback clusters")
	cmd.Flags().StringVarP(&output, "output", "o", "field.txt", "output file, zstd compressed if it ends in .zst")
	return cmd
}

// betaCut accepts start,width,radius with an optional elow,ehigh energy
// window that defaults to 0..600 keV.
func betaCut(values []float64) (string, error) {
	switch len(values) {
	case 3:
		return merger.BetaCut(values[0], values[1], values[2], merger.DefaultBetaEnergyLow, merger.DefaultBetaEnergyHigh), nil
	case 5:
		return merger.BetaCut(values[0], values[1], values[2], values[3], values[4]), nil
	}
	return "", fmt.Errorf("--beta needs start,width,radius[,elow,ehigh]")
}

func uniqueFields(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
