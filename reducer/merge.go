package main

import (
	"errors"
	"fmt"
	"time"

	merger "github.com/e19044/reducer_go/pkg"
	sqlx "github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func newMergeCmd() *cobra.Command {
	var output string
	var workers int

	cmd := &cobra.Command{
		Use:   "merge [input.root...]",
		Short: "Correlate implants, betas, gammas and neutrons into the output tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("output") {
				configuration.FileOut = output
			}
			if cmd.Flags().Changed("workers") {
				configuration.NumWorkers = workers
			}
			configuration.FilesIn = append(configuration.FilesIn, args...)
			merger.SetConfiguration(configuration)
			if VerbosityLevel > 0 {
				printConfiguration(configuration, logger)
			}

			var dbConn *sqlx.DB
			if !configuration.NoDB {
				var err error
				dbConn, err = merger.OpenDatabase(configuration)
				if err != nil {
					return fmt.Errorf("error connecting to database: %w", err)
				}
				defer dbConn.Close()
			}
			cal, err := merger.LoadCalibration(configuration, dbConn)
			if err != nil {
				return err
			}
			m, err := merger.NewMerger(cal)
			if err != nil {
				return err
			}
			return forEachInput(configuration.Inputs(), func(input string, multi bool) error {
				return mergeFile(m, input, multi)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output ROOT file (single input)")
	cmd.Flags().IntVarP(&workers, "workers", "j", 1, "number of workers")
	return cmd
}

type mergeSinks struct {
	sink       merger.RecordSink
	histograms *merger.HistogramSink
}

func createMergeSinks(input string, multi bool) (mergeSinks, error) {
	cfg := configuration
	var primary merger.MultiSink
	var result mergeSinks
	fail := func(err error) (mergeSinks, error) {
		primary.Close()
		return mergeSinks{}, err
	}

	if cfg.WriteRoot {
		name := outputName(input, cfg.FileOut, cfg.OutputDir, "_reduced.root", multi)
		root, err := merger.CreateRootRecordSink(name, cfg.OutputTree)
		if err != nil {
			return fail(err)
		}
		primary = append(primary, root)
		if cfg.WriteHistograms {
			result.histograms = merger.NewHistogramSink(root.Directory())
			primary = append(primary, result.histograms)
		}
	}
	if cfg.WriteHDF5 {
		name := outputName(input, "", cfg.OutputDir, "_reduced.h5", multi)
		writer, err := merger.NewWriter(name, cfg.RunNumber)
		if err != nil {
			return fail(err)
		}
		primary = append(primary, writer)
	}
	if len(primary) == 0 {
		return mergeSinks{}, errors.New("no output enabled, set write_root or write_hdf5")
	}

	result.sink = primary
	if cfg.SplitPID {
		name := outputName(input, cfg.FileOut2, cfg.OutputDir, "_unidentified.root", multi)
		writer2, err := merger.CreateRootRecordSink(name, cfg.OutputTree)
		if err != nil {
			return fail(err)
		}
		result.sink = &merger.SplitSink{Identified: primary, Unidentified: writer2}
	}
	return result, nil
}

func mergeFile(m *merger.Merger, input string, multi bool) error {
	ctx, cancel := signalContext()
	defer cancel()

	source, err := merger.OpenRootEventSource(input, configuration.InputTree, configuration.TreeSchema,
		configuration.Skip, configuration.MaxEvents)
	if err != nil {
		return err
	}
	defer source.Close()

	sinks, err := createMergeSinks(input, multi)
	if err != nil {
		return err
	}

	start := time.Now()
	stats, runErr := m.Run(ctx, source, sinks.sink, merger.RunOptions{
		NumWorkers: configuration.NumWorkers,
		Discard:    configuration.Discard,
	})
	closeErr := sinks.sink.Close()
	if err := errors.Join(runErr, closeErr); err != nil {
		return err
	}

	if VerbosityLevel > 0 {
		logger.Info(fmt.Sprintf("%s: %d events, %d records (%d identified, %d discarded) in %d ms",
			input, stats.Events, stats.Records, stats.Identified, stats.Discarded,
			time.Since(start).Milliseconds()), "main")
	}

	if configuration.PlotFile != "" && sinks.histograms != nil {
		name := outputName(input, configuration.PlotFile, configuration.OutputDir, "_addback.png", multi)
		if err := sinks.histograms.Set.PlotAddback(name); err != nil {
			return err
		}
	}
	return nil
}
