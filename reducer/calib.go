package main

import (
	"fmt"

	merger "github.com/e19044/reducer_go/pkg"
	"github.com/spf13/cobra"
)

func newCalibCmd() *cobra.Command {
	var minRun, maxRun int

	cmd := &cobra.Command{
		Use:   "calib",
		Short: "Store the configured VANDLE setup and clover mapping in the calibration database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configuration.VandleSetup == "" {
				return fmt.Errorf("vandle_setup is not configured")
			}
			setup, err := merger.LoadVandleSetup(configuration.VandleSetup, configuration.NumBars)
			if err != nil {
				return err
			}
			groups, err := merger.ParseCloverGroups(configuration.CloverGroups)
			if err != nil {
				return err
			}

			dbConn, err := merger.OpenDatabase(configuration)
			if err != nil {
				return fmt.Errorf("error connecting to database: %w", err)
			}
			defer dbConn.Close()

			if err := merger.CreateCalibrationTables(dbConn); err != nil {
				return err
			}
			if err := merger.InsertVandleSetup(dbConn, setup, minRun, maxRun); err != nil {
				return err
			}
			if err := merger.InsertCloverGroups(dbConn, groups, minRun, maxRun); err != nil {
				return err
			}
			logger.Info(fmt.Sprintf("Stored %d bars and %d clover channels for runs %d-%d",
				len(setup.Bars()), len(groups), minRun, maxRun), "calib")
			return nil
		},
	}
	cmd.Flags().IntVar(&minRun, "min-run", 0, "first run the calibration applies to")
	cmd.Flags().IntVar(&maxRun, "max-run", 1<<30, "last run the calibration applies to")
	return cmd
}
