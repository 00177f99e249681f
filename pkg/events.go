package merger

// Sentinels used for output fields that have no value for a record.
const (
	UnsetPID     = -999
	UnsetValue   = -999.
	UnsetTiming  = -99999.
	InvalidValue = -999.
)

type CloverHit struct {
	Energy    float64
	RawEnergy float64
	Time      float64
	Channel   int
	HighGain  bool
}

type AddbackCluster struct {
	Energy    float64
	Time      float64
	Channel   int
	MaxEnergy float64
}

type CoincidencePair struct {
	E1 float64
	T1 float64
	E2 float64
	T2 float64
}

type VandleHit struct {
	TOF      float64
	Bar      int
	Qdc      float64
	ShortQdc float64
	TDiff    float64
}

// Implant is one particle identification record. A tree entry may carry
// several of them and each one produces its own output record.
type Implant struct {
	DE   float64
	TOF  float64
	X    float64
	Y    float64
	Time float64
}

type BetaInfo struct {
	Time           float64
	X              float64
	Y              float64
	QdcHighGain    float64
	QdcLowGain     float64
	EnergyHighGain float64
	EnergyLowGain  float64
	FitB1Energy    float64
	FitB2Energy    float64
}

// FitEnergy sums the front ion detector energies that fired.
func (b BetaInfo) FitEnergy() float64 {
	sum := 0.
	if b.FitB1Energy > 0 {
		sum += b.FitB1Energy
	}
	if b.FitB2Energy > 0 {
		sum += b.FitB2Energy
	}
	return sum
}

type InputEvent struct {
	Entry    int64
	Beta     BetaInfo
	Clovers  []CloverHit
	Vandles  []VandleHit
	Implants []Implant
}

// EventReconstruction holds everything computed once per input event. It is
// shared by all the output records of that event and must not be modified
// after the merger returns it.
type EventReconstruction struct {
	Entry        int64
	Beta         BetaInfo
	Clovers      []CloverHit
	CloverPairs  []CoincidencePair
	Addback      []AddbackCluster
	AddbackPairs []CoincidencePair
	Vandles      []VandleHit
	// NeutronScatter is set when at least one VANDLE hit was rejected as
	// cross-talk.
	NeutronScatter bool
}

type OutputRecord struct {
	Event   *EventReconstruction
	Implant int

	DE    float64
	ToF   float64
	Zed   int
	AMass int
	IonX  float64
	IonY  float64
	DT    float64
	DR    float64

	VandleCorTof      []float64
	VandleMultNeutron int
	VandleMultBKG     int
	VandleInvalidPath int
	VandleTofTest     []float64
	VandleQdcTest     []float64
	VandleBarTest     []int
}

func (r *OutputRecord) Identified() bool {
	return r.Zed != UnsetPID && r.AMass != UnsetPID
}
