package main

import (
	"fmt"

	merger "github.com/e19044/reducer_go/pkg"
	"github.com/spf13/cobra"
)

func newFtCmd() *cobra.Command {
	var zed int
	var qbeta, dqbeta, hl, dhl, br, dbr float64

	cmd := &cobra.Command{
		Use:   "ft",
		Short: "Compute the ft and log ft values of a beta transition",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := merger.CalcFtStrict(zed, qbeta, dqbeta, hl, dhl, br, dbr)
			if err != nil {
				return err
			}
			logft, dlow, dhigh := merger.LogFt(res.Ft, res.Lower, res.Upper)
			fmt.Fprintf(cmd.OutOrStdout(), "f = %.6g (+%.3g -%.3g)\n", res.F, res.FPlus-res.F, res.F-res.FMinus)
			fmt.Fprintf(cmd.OutOrStdout(), "ft = %.6g (+%.3g -%.3g) s\n", res.Ft, res.Upper, res.Lower)
			fmt.Fprintf(cmd.OutOrStdout(), "log ft = %.3f (+%.3f -%.3f)\n", logft, dhigh, dlow)
			return nil
		},
	}
	cmd.Flags().IntVarP(&zed, "zed", "z", 0, "proton number of the mother")
	cmd.Flags().Float64Var(&qbeta, "qbeta", 0, "decay energy (keV)")
	cmd.Flags().Float64Var(&dqbeta, "dqbeta", 0, "decay energy uncertainty (keV)")
	cmd.Flags().Float64Var(&hl, "hl", 0, "halflife (ms)")
	cmd.Flags().Float64Var(&dhl, "dhl", 0, "halflife uncertainty (ms)")
	cmd.Flags().Float64Var(&br, "br", 1, "branching ratio")
	cmd.Flags().Float64Var(&dbr, "dbr", 0, "branching ratio uncertainty")
	cmd.MarkFlagRequired("zed")
	cmd.MarkFlagRequired("qbeta")
	cmd.MarkFlagRequired("hl")
	return cmd
}
