package merger

type Configuration struct {
	MaxEvents        int              `json:"max_events"`
	Skip             int              `json:"skip"`
	Verbosity        int              `json:"verbosity"`
	FileIn           string           `json:"file_in"`
	FilesIn          []string         `json:"files_in"`
	FileOut          string           `json:"file_out"`
	FileOut2         string           `json:"file_out2"`
	OutputDir        string           `json:"output_dir"`
	SplitPID         bool             `json:"split_pid"`
	InputTree        string           `json:"input_tree"`
	OutputTree       string           `json:"output_tree"`
	VandleSetup      string           `json:"vandle_setup"`
	NumBars          int              `json:"num_bars"`
	CutDir           string           `json:"cut_dir"`
	Cuts             []string         `json:"cuts"`
	CloverGroups     map[string]int   `json:"clover_groups"`
	AddbackThreshold float64          `json:"addback_threshold"`
	IdealFlightPath  float64          `json:"ideal_flight_path"`
	CrossTalk        CrossTalkWindows `json:"crosstalk"`
	TofWindows       TofWindows       `json:"tof_windows"`
	ShortQdcMode     string           `json:"short_qdc_mode"`
	NumWorkers       int              `json:"num_workers"`
	Discard          bool             `json:"discard"`
	WriteRoot        bool             `json:"write_root"`
	WriteHDF5        bool             `json:"write_hdf5"`
	CompressionLevel int              `json:"compression_level"`
	WriteHistograms  bool             `json:"write_histograms"`
	PlotFile         string           `json:"plot_file"`
	NoDB             bool             `json:"no_db"`
	DBDriver         string           `json:"db_driver"`
	DBFile           string           `json:"db_file"`
	Host             string           `json:"host"`
	User             string           `json:"user"`
	Passwd           string           `json:"pass"`
	DBName           string           `json:"dbname"`
	RunNumber        int              `json:"run_number"`
	TreeSchema       TreeSchema       `json:"tree_schema"`
	FlatSchema       FlatSchema       `json:"flat_schema"`
	TraceSchema      TraceSchema      `json:"trace_schema"`
}

// Inputs returns the list of input files, FileIn first.
func (c Configuration) Inputs() []string {
	inputs := make([]string, 0, len(c.FilesIn)+1)
	if c.FileIn != "" {
		inputs = append(inputs, c.FileIn)
	}
	return append(inputs, c.FilesIn...)
}

// MergerOptions converts the reconstruction settings of the configuration.
func (c Configuration) MergerOptions() (Options, error) {
	mode, err := ParseShortQdcMode(c.ShortQdcMode)
	if err != nil {
		return Options{}, err
	}
	return Options{
		AddbackThreshold: c.AddbackThreshold,
		IdealFlightPath:  c.IdealFlightPath,
		CrossTalk:        c.CrossTalk,
		Tof:              c.TofWindows,
		ShortQdc:         mode,
	}, nil
}

var configuration Configuration

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}
