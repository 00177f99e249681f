package main

import (
	"errors"
	"fmt"

	merger "github.com/e19044/reducer_go/pkg"
	"github.com/spf13/cobra"
)

func newIsomerCmd() *cobra.Command {
	var output, tree string

	cmd := &cobra.Command{
		Use:   "isomer [input.root...]",
		Short: "Re-reduce flat trees for isomer searches (addback and gamma-gamma pairs)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("output") {
				configuration.FileOut = output
			}
			configuration.FilesIn = append(configuration.FilesIn, args...)
			groups, err := merger.ParseCloverGroups(configuration.CloverGroups)
			if err != nil {
				return err
			}
			return forEachInput(configuration.Inputs(), func(input string, multi bool) error {
				ctx, cancel := signalContext()
				defer cancel()

				source, err := merger.OpenFlatSource(input, tree, configuration.FlatSchema, groups,
					configuration.AddbackThreshold, configuration.Skip, configuration.MaxEvents)
				if err != nil {
					return err
				}
				defer source.Close()

				name := outputName(input, configuration.FileOut, configuration.OutputDir, "_isomer.root", multi)
				sink, err := merger.CreateRootRecordSink(name, configuration.OutputTree)
				if err != nil {
					return err
				}
				stats, err := merger.CopyRecords(ctx, source, sink)
				if err := errors.Join(err, sink.Close()); err != nil {
					return err
				}
				if VerbosityLevel > 0 {
					logger.Info(fmt.Sprintf("%s: %d entries written to %s", input, stats.Records, name), "isomer")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output ROOT file (single input)")
	cmd.Flags().StringVar(&tree, "tree", "OutputTree", "input tree name")
	return cmd
}
