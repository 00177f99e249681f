package main

import (
	"errors"

	merger "github.com/e19044/reducer_go/pkg"
	"github.com/spf13/cobra"
)

func newPidCmd() *cobra.Command {
	var output, tree string

	cmd := &cobra.Command{
		Use:   "pid [input.root...]",
		Short: "Extract PID records of accepted implants from implant detector trees",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("output") {
				configuration.FileOut = output
			}
			configuration.FilesIn = append(configuration.FilesIn, args...)
			return forEachInput(configuration.Inputs(), func(input string, multi bool) error {
				ctx, cancel := signalContext()
				defer cancel()

				end := int64(-1)
				if configuration.MaxEvents > 0 {
					end = int64(configuration.Skip + configuration.MaxEvents)
				}
				schema := configuration.TraceSchema
				rows, err := merger.OpenTree(input, tree, schema.Fields(), int64(configuration.Skip), end)
				if err != nil {
					return err
				}
				defer rows.Close()

				name := outputName(input, configuration.FileOut, configuration.OutputDir, "_pid.root", multi)
				sink, err := merger.CreateTraceSink(name, configuration.OutputTree)
				if err != nil {
					return err
				}
				_, err = merger.ExtractTraces(ctx, rows, schema, sink)
				return errors.Join(err, sink.Close())
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output ROOT file (single input)")
	cmd.Flags().StringVar(&tree, "tree", merger.DefaultTraceTree, "input tree name")
	return cmd
}
