package merger

import (
	"errors"
	"fmt"

	"github.com/jmbenlloch/go-hdf5"
)

type eventHDF5 struct {
	record         int32
	entry          int64
	implant        int32
	dE             float64
	tof            float64
	zed            int32
	amass          int32
	ionX           float64
	ionY           float64
	betaX          float64
	betaY          float64
	betaEnergyLow  float64
	betaEnergyHigh float64
	fitEnergy      float64
	dT             float64
	dr             float64
	cloverMult     int32
	addbackMult    int32
	vandleMult     int32
	multNeutron    int32
	multBKG        int32
	invalidPath    int32
	neutronScatter int32
}

type runInfoHDF5 struct {
	run_number int32
}

type cloverHitHDF5 struct {
	record    int32
	channel   int32
	energy    float64
	rawEnergy float64
	time      float64
}

type addbackHDF5 struct {
	record  int32
	channel int32
	energy  float64
	time    float64
}

type pairHDF5 struct {
	record int32
	e1     float64
	t1     float64
	e2     float64
	t2     float64
}

type vandleHitHDF5 struct {
	record   int32
	bar      int32
	tof      float64
	corTof   float64
	qdc      float64
	shortQdc float64
	tdiff    float64
}

type vandleTestHDF5 struct {
	record int32
	bar    int32
	tof    float64
	qdc    float64
}

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

// table is an extensible one-dimensional dataset of compound rows.
type table struct {
	name    string
	dataset *hdf5.Dataset
	rows    uint
}

func createTable(group *hdf5.Group, name string, datatype interface{}, compression int) (*table, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer fileSpace.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer plist.Close()

	chunks := []uint{32768}
	if err := plist.SetChunk(chunks); err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	if compression > 0 {
		if err := plist.SetDeflate(compression); err != nil {
			return nil, &ErrCreateTable{TableName: name, Err: err}
		}
	}

	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return &table{name: name, dataset: dset}, nil
}

func writeEntryToTable[T any](t *table, data T) error {
	array := []T{data}
	return writeArrayToTable(t, &array)
}

// writeArrayToTable appends data to the end of the table.
func writeArrayToTable[T any](t *table, data *[]T) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dataspace, err := hdf5.CreateSimpleDataspace([]uint{length}, nil)
	if err != nil {
		return fmt.Errorf("error creating dataspace for %s: %w", t.name, err)
	}
	defer dataspace.Close()

	if err := t.dataset.Resize([]uint{t.rows + length}); err != nil {
		return fmt.Errorf("error extending %s: %w", t.name, err)
	}
	filespace := t.dataset.Space()
	defer filespace.Close()

	start := []uint{t.rows}
	count := []uint{length}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return fmt.Errorf("error selecting rows of %s: %w", t.name, err)
	}
	if err := t.dataset.WriteSubset(data, dataspace, filespace); err != nil {
		return fmt.Errorf("error writing %s: %w", t.name, err)
	}
	t.rows += length
	return nil
}

func (t *table) Close() error {
	if t == nil {
		return nil
	}
	if err := t.dataset.Close(); err != nil {
		return fmt.Errorf("error closing %s table: %w", t.name, err)
	}
	return nil
}

func closeTables(tables ...*table) error {
	var errs []error
	for _, t := range tables {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
