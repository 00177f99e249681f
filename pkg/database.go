package merger

import (
	"fmt"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

// OpenSQLiteDatabase opens a local calibration database, used offline and
// when no connection to the run database is available.
func OpenSQLiteDatabase(filename string) (*sqlx.DB, error) {
	return sqlx.Connect("sqlite", filename)
}

// OpenDatabase connects to the calibration database selected by config.
func OpenDatabase(config Configuration) (*sqlx.DB, error) {
	switch config.DBDriver {
	case "", "mysql":
		return ConnectToDatabase(config.User, config.Passwd, config.Host, config.DBName)
	case "sqlite":
		return OpenSQLiteDatabase(config.DBFile)
	}
	return nil, fmt.Errorf("unknown database driver %q", config.DBDriver)
}

var calibrationSchema = []string{
	`CREATE TABLE IF NOT EXISTS VandleSetup (
		BarNum  INTEGER NOT NULL,
		Z0      DOUBLE  NOT NULL,
		XOffset DOUBLE  NOT NULL,
		MinRun  INTEGER NOT NULL,
		MaxRun  INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS CloverMapping (
		Channel  INTEGER NOT NULL,
		CloverID INTEGER NOT NULL,
		MinRun   INTEGER NOT NULL,
		MaxRun   INTEGER NOT NULL
	)`,
}

func CreateCalibrationTables(db *sqlx.DB) error {
	for _, stmt := range calibrationSchema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("error creating calibration tables: %w", err)
		}
	}
	return nil
}

type VandleSetupEntry struct {
	BarNum  int     `db:"BarNum"`
	Z0      float64 `db:"Z0"`
	XOffset float64 `db:"XOffset"`
	MinRun  int     `db:"MinRun"`
	MaxRun  int     `db:"MaxRun"`
}

type CloverMappingEntry struct {
	Channel  int `db:"Channel"`
	CloverID int `db:"CloverID"`
	MinRun   int `db:"MinRun"`
	MaxRun   int `db:"MaxRun"`
}

// InsertVandleSetup stores every bar of setup as valid for [minRun, maxRun].
func InsertVandleSetup(db *sqlx.DB, setup *VandleSetup, minRun, maxRun int) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	query := "INSERT INTO VandleSetup (BarNum, Z0, XOffset, MinRun, MaxRun) VALUES (:BarNum, :Z0, :XOffset, :MinRun, :MaxRun)"
	for _, bar := range setup.Bars() {
		geo, _ := setup.Bar(bar)
		entry := VandleSetupEntry{BarNum: bar, Z0: geo.Z0, XOffset: geo.XOffset, MinRun: minRun, MaxRun: maxRun}
		if _, err := tx.NamedExec(query, entry); err != nil {
			tx.Rollback()
			return fmt.Errorf("error inserting bar %d: %w", bar, err)
		}
	}
	return tx.Commit()
}

func InsertCloverGroups(db *sqlx.DB, groups CloverGroups, minRun, maxRun int) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	query := "INSERT INTO CloverMapping (Channel, CloverID, MinRun, MaxRun) VALUES (:Channel, :CloverID, :MinRun, :MaxRun)"
	for _, ch := range groups.Channels() {
		entry := CloverMappingEntry{Channel: ch, CloverID: groups[ch], MinRun: minRun, MaxRun: maxRun}
		if _, err := tx.NamedExec(query, entry); err != nil {
			tx.Rollback()
			return fmt.Errorf("error inserting clover channel %d: %w", ch, err)
		}
	}
	return tx.Commit()
}

func getVandleSetupFromDB(db *sqlx.DB, runNumber int, numBars int) (*VandleSetup, error) {
	query := "SELECT BarNum, Z0, XOffset, MinRun, MaxRun FROM VandleSetup WHERE MinRun <= ? and MaxRun >= ? ORDER BY BarNum"
	if configuration.Verbosity > 0 {
		logger.Info("Reading VANDLE setup from database", "database")
	}
	if configuration.Verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s (run %d)", query, runNumber), "database")
	}

	rows, err := db.Queryx(db.Rebind(query), runNumber, runNumber)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	setup := NewVandleSetup(numBars)
	nbars := 0
	for rows.Next() {
		result := VandleSetupEntry{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		if err := setup.SetBar(result.BarNum, result.Z0, result.XOffset); err != nil {
			return nil, err
		}
		nbars++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading DB rows: %w", err)
	}
	if nbars == 0 {
		return nil, fmt.Errorf("no VANDLE setup for run %d", runNumber)
	}
	return setup, nil
}

func getCloverGroupsFromDB(db *sqlx.DB, runNumber int) (CloverGroups, error) {
	query := "SELECT Channel, CloverID, MinRun, MaxRun FROM CloverMapping WHERE MinRun <= ? and MaxRun >= ? ORDER BY Channel"
	if configuration.Verbosity > 0 {
		logger.Info("Clover mapping read from DB", "database")
	}
	if configuration.Verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s (run %d)", query, runNumber), "database")
	}

	entries := []CloverMappingEntry{}
	if err := db.Select(&entries, db.Rebind(query), runNumber, runNumber); err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	if len(entries) == 0 {
		return DefaultCloverGroups(), nil
	}
	groups := make(CloverGroups, len(entries))
	for _, e := range entries {
		if err := checkCloverGroup(e.Channel, e.CloverID); err != nil {
			return nil, fmt.Errorf("run %d: %w", runNumber, err)
		}
		groups[e.Channel] = e.CloverID
	}
	return groups, nil
}

// LoadDatabase reads the detector calibration valid for runNumber.
func LoadDatabase(dbConn *sqlx.DB, runNumber int, numBars int) (*VandleSetup, CloverGroups, error) {
	setup, err := getVandleSetupFromDB(dbConn, runNumber, numBars)
	if err != nil {
		errMessage := fmt.Errorf("error getting VANDLE setup from database: %w", err)
		logger.Error(errMessage.Error())
		return nil, nil, errMessage
	}
	groups, err := getCloverGroupsFromDB(dbConn, runNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting clover mapping from database: %w", err)
		logger.Error(errMessage.Error())
		return nil, nil, errMessage
	}
	return setup, groups, nil
}
