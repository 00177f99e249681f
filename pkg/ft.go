package merger

import (
	"fmt"
	"math"
)

// Coefficients of the log10 Fermi integral fit, four per power of ln(E).
var fermiCoeff = [16]float64{
	-17.2, 7.9015, -2.54, 0.28482,
	3.31368, -2.06273, 0.703822, -0.075039,
	-0.364018, 0.387961, -0.142528, 0.016,
	0.0278071, -0.026519, 0.0098854, -0.00113772,
}

const minBranchingRatio = 1e-5

// FermiIntegralLog10 returns log10 of the integrated Fermi function for a
// mother with proton number zed and an endpoint energy emax in keV.
func FermiIntegralLog10(zed int, emax float64) float64 {
	lz := math.Log(float64(zed))
	var eval [4]float64
	for i := range eval {
		c := fermiCoeff[4*i:]
		eval[i] = c[0] + c[1]*lz + c[2]*math.Pow(lz, 2) + c[3]*math.Pow(lz, 3)
	}
	le := math.Log(emax)
	return eval[0] + eval[1]*le + eval[2]*math.Pow(le, 2) + eval[3]*math.Pow(le, 3)
}

type FtResult struct {
	Ft    float64
	Lower float64
	Upper float64

	F      float64
	FPlus  float64
	FMinus float64
	BrMin  float64
	BrMax  float64
}

// CalcFtStrict computes the ft value of a transition and its asymmetric
// uncertainties.
//
// zed is the proton number of the mother, qbeta the decay energy in keV,
// hl the halflife in ms and br the fractional branching ratio; the d-
// prefixed arguments are their uncertainties.
func CalcFtStrict(zed int, qbeta, dqbeta, hl, dhl, br, dbr float64) (FtResult, error) {
	switch {
	case zed <= 0:
		return FtResult{}, fmt.Errorf("%w: proton number %d", ErrFtDomain, zed)
	case qbeta <= 0:
		return FtResult{}, fmt.Errorf("%w: qbeta %g", ErrFtDomain, qbeta)
	case br <= 0:
		return FtResult{}, fmt.Errorf("%w: branching ratio %g", ErrFtDomain, br)
	case dqbeta != 0 && qbeta-dqbeta <= 0:
		return FtResult{}, fmt.Errorf("%w: qbeta-dqbeta %g", ErrFtDomain, qbeta-dqbeta)
	}

	res := FtResult{}
	res.F = math.Pow(10, FermiIntegralLog10(zed, qbeta))
	if dqbeta == 0 {
		res.FPlus = res.F
		res.FMinus = res.F
	} else {
		res.FPlus = math.Pow(10, FermiIntegralLog10(zed, qbeta+dqbeta))
		res.FMinus = math.Pow(10, FermiIntegralLog10(zed, qbeta-dqbeta))
	}
	dfh := res.FPlus - res.F
	dfl := res.F - res.FMinus

	res.Ft = res.F * hl / 1000. / br

	res.BrMin = br - dbr
	if res.BrMin <= 0 {
		res.BrMin = minBranchingRatio
	}
	res.BrMax = math.Min(1., br+dbr)

	dfth1 := dfh * hl / 1000. / br
	dfth2 := res.F * dhl / 1000. / br
	dfth3 := res.F * hl / 1000. * (1/res.BrMin - 1/br)
	res.Upper = math.Sqrt(dfth1*dfth1 + dfth2*dfth2 + dfth3*dfth3)

	dftl1 := dfl * hl / 1000. / br
	dftl2 := res.F * dhl / 1000. / br
	dftl3 := res.F * hl / 1000. * (1/br - 1/res.BrMax)
	res.Lower = math.Sqrt(dftl1*dftl1 + dftl2*dftl2 + dftl3*dftl3)
	if res.Lower >= res.Ft {
		res.Lower = res.Ft
	}

	for _, v := range []float64{res.Ft, res.Lower, res.Upper} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return FtResult{}, fmt.Errorf("%w: non-finite result %v", ErrFtDomain, v)
		}
	}
	return res, nil
}

// CalcFt is the sentinel variant of CalcFtStrict: any failure is logged and
// reported as (0, 0, 0).
func CalcFt(zed int, qbeta, dqbeta, hl, dhl, br, dbr float64) (ft, lower, upper float64) {
	res, err := CalcFtStrict(zed, qbeta, dqbeta, hl, dhl, br, dbr)
	if err != nil {
		logger.Error(fmt.Errorf("calcft: %w", err).Error())
		return 0, 0, 0
	}
	return res.Ft, res.Lower, res.Upper
}

// LogFt converts an ft value and its uncertainties to log10 scale.
func LogFt(ft, lower, upper float64) (logft, dlow, dhigh float64) {
	if ft <= 0 {
		return 0, 0, 0
	}
	logft = math.Log10(ft)
	dhigh = math.Log10(ft+upper) - logft
	if ft-lower > 0 {
		dlow = logft - math.Log10(ft-lower)
	} else {
		dlow = math.Inf(1)
	}
	return logft, dlow, dhigh
}
