package main

import (
	"fmt"
	"log/slog"
	"os"

	merger "github.com/e19044/reducer_go/pkg"
	"github.com/spf13/cobra"
)

var configuration merger.Configuration

var (
	logger         Logger
	VerbosityLevel int
)

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handlerStdOut := NewHandler(os.Stdout, opts)
	handlerStdErr := slog.NewJSONHandler(os.Stderr, opts)
	logger = Logger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}
}

func newRootCmd() *cobra.Command {
	var configFilename string
	var verbosity int

	root := &cobra.Command{
		Use:           "reducer",
		Short:         "Merge and reduce e19044 beta-decay data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			configuration, err = LoadConfiguration(configFilename)
			if err != nil {
				return fmt.Errorf("error reading configuration file: %w", err)
			}
			if cmd.Flags().Changed("verbosity") {
				configuration.Verbosity = verbosity
			}
			VerbosityLevel = configuration.Verbosity
			merger.SetConfiguration(configuration)
			merger.SetLogger(logger)

			if VerbosityLevel > 0 && configFilename != "" {
				logger.Info(fmt.Sprintf("Reading configuration file: %s", configFilename), "main")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFilename, "config", "", "Configuration file path")
	root.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 0, "Verbosity level")

	root.AddCommand(newMergeCmd())
	root.AddCommand(newIsomerCmd())
	root.AddCommand(newPidCmd())
	root.AddCommand(newDumpCmd())
	root.AddCommand(newFtCmd())
	root.AddCommand(newCutCmd())
	root.AddCommand(newCalibCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
