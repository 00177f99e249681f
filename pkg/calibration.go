package merger

import (
	"fmt"

	sqlx "github.com/jmoiron/sqlx"
)

// LoadCalibration builds the calibration of a run. With no_db set (or a nil
// db) the VANDLE setup is read from the vandle_setup file and the clover
// groups from the configuration; otherwise both come from the database.
func LoadCalibration(config Configuration, db *sqlx.DB) (*Calibration, error) {
	opts, err := config.MergerOptions()
	if err != nil {
		return nil, err
	}
	numBars := config.NumBars
	if numBars <= 0 {
		numBars = DefaultNumBars
	}

	cal := &Calibration{Options: opts}
	if config.NoDB || db == nil {
		if config.VandleSetup == "" {
			return nil, fmt.Errorf("no VANDLE setup file configured")
		}
		if cal.Setup, err = LoadVandleSetup(config.VandleSetup, numBars); err != nil {
			return nil, err
		}
		if cal.Groups, err = ParseCloverGroups(config.CloverGroups); err != nil {
			return nil, err
		}
	} else {
		if cal.Setup, cal.Groups, err = LoadDatabase(db, config.RunNumber, numBars); err != nil {
			return nil, err
		}
	}

	if config.CutDir != "" {
		names := config.Cuts
		if len(names) == 0 {
			names = DefaultPIDCutNames
		}
		if cal.Gate, err = LoadPIDGate(config.CutDir, names); err != nil {
			return nil, err
		}
	} else if configuration.Verbosity > 0 {
		logger.Info("No PID cut directory, every implant is left unidentified", "calibration")
	}
	return cal, nil
}
