package main

import (
	"encoding/json"
	"fmt"
	"os"

	merger "github.com/e19044/reducer_go/pkg"
)

// LoadConfiguration returns the defaults overridden by the JSON file, if
// one is given.
func LoadConfiguration(filename string) (merger.Configuration, error) {
	var config merger.Configuration

	// Set default values
	config.MaxEvents = 0
	config.Skip = 0
	config.Verbosity = 0
	config.InputTree = "mergedBeta"
	config.OutputTree = "OutputTree"
	config.NumBars = merger.DefaultNumBars
	config.AddbackThreshold = merger.GammaEnergyThreshold
	config.IdealFlightPath = merger.DefaultIdealFlightPath
	config.CrossTalk = merger.DefaultCrossTalkWindows()
	config.TofWindows = merger.DefaultTofWindows()
	config.ShortQdcMode = string(merger.ShortQdcPerHit)
	config.NumWorkers = 1
	config.Discard = true
	config.WriteRoot = true
	config.WriteHDF5 = false
	config.CompressionLevel = 4
	config.WriteHistograms = false
	config.NoDB = true
	config.DBDriver = "mysql"
	config.Host = "localhost"
	config.User = "reader"
	config.Passwd = "readonly"
	config.DBName = "e19044"
	config.TreeSchema = merger.DefaultTreeSchema()
	config.FlatSchema = merger.DefaultFlatSchema()
	config.TraceSchema = merger.DefaultTraceSchema()

	if filename == "" {
		return config, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, nil
}

func printConfiguration(config merger.Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("Files in: %v", config.Inputs()), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("File out2: %s", config.FileOut2), "config")
	logger.Info(fmt.Sprintf("Output dir: %s", config.OutputDir), "config")
	logger.Info(fmt.Sprintf("Split PID: %t", config.SplitPID), "config")
	logger.Info(fmt.Sprintf("Input tree: %s", config.InputTree), "config")
	logger.Info(fmt.Sprintf("Output tree: %s", config.OutputTree), "config")
	logger.Info(fmt.Sprintf("VANDLE setup: %s", config.VandleSetup), "config")
	logger.Info(fmt.Sprintf("Number of bars: %d", config.NumBars), "config")
	logger.Info(fmt.Sprintf("Cut dir: %s", config.CutDir), "config")
	logger.Info(fmt.Sprintf("Cuts: %v", config.Cuts), "config")
	logger.Info(fmt.Sprintf("Clover groups: %v", config.CloverGroups), "config")
	logger.Info(fmt.Sprintf("Addback threshold: %v", config.AddbackThreshold), "config")
	logger.Info(fmt.Sprintf("Ideal flight path: %v", config.IdealFlightPath), "config")
	logger.Info(fmt.Sprintf("Cross-talk windows: %+v", config.CrossTalk), "config")
	logger.Info(fmt.Sprintf("TOF windows: %+v", config.TofWindows), "config")
	logger.Info(fmt.Sprintf("Short QDC mode: %s", config.ShortQdcMode), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max events: %d", config.MaxEvents), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("Discard: %t", config.Discard), "config")
	logger.Info(fmt.Sprintf("Write ROOT: %t", config.WriteRoot), "config")
	logger.Info(fmt.Sprintf("Write HDF5: %t", config.WriteHDF5), "config")
	logger.Info(fmt.Sprintf("Compression level: %d", config.CompressionLevel), "config")
	logger.Info(fmt.Sprintf("Write histograms: %t", config.WriteHistograms), "config")
	logger.Info(fmt.Sprintf("Plot file: %s", config.PlotFile), "config")
	logger.Info(fmt.Sprintf("No DB: %t", config.NoDB), "config")
	logger.Info(fmt.Sprintf("DB driver: %s", config.DBDriver), "config")
	logger.Info(fmt.Sprintf("DB file: %s", config.DBFile), "config")
	logger.Info(fmt.Sprintf("Host: %s", config.Host), "config")
	logger.Info(fmt.Sprintf("DB name: %s", config.DBName), "config")
	logger.Info(fmt.Sprintf("Run number: %d", config.RunNumber), "config")
}
