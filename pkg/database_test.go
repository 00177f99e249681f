package merger

import (
	"path/filepath"
	"testing"

	sqlx "github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDatabase(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := OpenSQLiteDatabase(filepath.Join(t.TempDir(), "calib.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, CreateCalibrationTables(db))
	return db
}

func TestLoadDatabase(t *testing.T) {
	db := openTestDatabase(t)

	early := NewVandleSetup(DefaultNumBars)
	require.NoError(t, early.SetBar(0, 100, 1))
	require.NoError(t, early.SetBar(1, 101, 2))
	late := NewVandleSetup(DefaultNumBars)
	require.NoError(t, late.SetBar(0, 120, -1))

	require.NoError(t, InsertVandleSetup(db, early, 0, 100))
	require.NoError(t, InsertVandleSetup(db, late, 101, 300))
	require.NoError(t, InsertCloverGroups(db, CloverGroups{0: 0, 1: 0, 2: 1}, 0, 100))

	setup, groups, err := LoadDatabase(db, 50, DefaultNumBars)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, setup.Bars())
	geo, _ := setup.Bar(1)
	assert.Equal(t, 101., geo.Z0)
	assert.Equal(t, 2., geo.XOffset)
	assert.Equal(t, CloverGroups{0: 0, 1: 0, 2: 1}, groups)

	setup, groups, err = LoadDatabase(db, 200, DefaultNumBars)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, setup.Bars())
	geo, _ = setup.Bar(0)
	assert.Equal(t, 120., geo.Z0)
	// No clover mapping for this run
	assert.Equal(t, DefaultCloverGroups(), groups)

	_, _, err = LoadDatabase(db, 1000, DefaultNumBars)
	assert.Error(t, err)
}

func TestLoadDatabaseNegativeCloverGroup(t *testing.T) {
	db := openTestDatabase(t)
	setup := NewVandleSetup(DefaultNumBars)
	require.NoError(t, setup.SetBar(0, 100, 1))
	require.NoError(t, InsertVandleSetup(db, setup, 0, 100))
	require.NoError(t, InsertCloverGroups(db, CloverGroups{0: 0, 1: -1}, 0, 100))

	_, _, err := LoadDatabase(db, 50, DefaultNumBars)
	assert.Error(t, err)
}

func TestCreateCalibrationTablesTwice(t *testing.T) {
	db := openTestDatabase(t)
	assert.NoError(t, CreateCalibrationTables(db))
}

func TestOpenDatabase(t *testing.T) {
	config := Configuration{DBDriver: "sqlite", DBFile: filepath.Join(t.TempDir(), "calib.db")}
	db, err := OpenDatabase(config)
	require.NoError(t, err)
	assert.NoError(t, db.Close())

	_, err = OpenDatabase(Configuration{DBDriver: "postgres"})
	assert.Error(t, err)
}
