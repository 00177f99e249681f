package main

import (
	"fmt"
	"strconv"
	"strings"

	merger "github.com/e19044/reducer_go/pkg"
	"github.com/spf13/cobra"
)

func newCutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cut",
		Short: "Create and test PID cuts",
	}
	cmd.AddCommand(newCutMakeCmd())
	cmd.AddCommand(newCutClassifyCmd())
	return cmd
}

func parsePoint(s string) (x, y float64, err error) {
	xs, ys, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid point %q, expected tof:dE", s)
	}
	if x, err = strconv.ParseFloat(xs, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid point %q: %w", s, err)
	}
	if y, err = strconv.ParseFloat(ys, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return x, y, nil
}

func newCutMakeCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "make NAME tof:dE tof:dE tof:dE...",
		Short: "Write the cut file CUT/NAME.txt",
		Args:  cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cut := &merger.PIDCut{Name: args[0]}
			for _, arg := range args[1:] {
				x, y, err := parsePoint(arg)
				if err != nil {
					return err
				}
				cut.X = append(cut.X, x)
				cut.Y = append(cut.Y, y)
			}
			filename, err := merger.MakePIDCut(dir, cut)
			if err != nil {
				return err
			}
			logger.Info(fmt.Sprintf("Cut %s with %d points written to %s", cut.Name, cut.Len(), filename), "cut")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory holding the CUT folder")
	return cmd
}

func newCutClassifyCmd() *cobra.Command {
	var tof, dE float64

	cmd := &cobra.Command{
		Use:   "classify --tof X --de Y",
		Short: "Print the isotope the configured cuts assign to a point",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configuration.CutDir == "" {
				return fmt.Errorf("cut_dir is not configured")
			}
			names := configuration.Cuts
			if len(names) == 0 {
				names = merger.DefaultPIDCutNames
			}
			gate, err := merger.LoadPIDGate(configuration.CutDir, names)
			if err != nil {
				return err
			}
			zed, amass := gate.Classify(tof, dE)
			fmt.Fprintf(cmd.OutOrStdout(), "Zed %d AMass %d\n", zed, amass)
			return nil
		},
	}
	cmd.Flags().Float64Var(&tof, "tof", 0, "time of flight")
	cmd.Flags().Float64Var(&dE, "de", 0, "energy loss")
	return cmd
}
