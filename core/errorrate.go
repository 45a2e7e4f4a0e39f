package core

import "math"

// ErrorRateModel maps a signal-to-noise ratio to the probability that a
// chunk of bits is received without error. The snr argument is a linear
// ratio, not dB.
type ErrorRateModel interface {
	ChunkSuccessRate(mode Mode, v TxVector, snr float64, nbits uint64) float64
}

// NistErrorRateModel computes bit error rates from closed-form AWGN
// expressions per constellation and bounds the coded error rate with the
// first ten terms of the convolutional union bound.
type NistErrorRateModel struct{}

// Free distances and union-bound coefficients of the 802.11 convolutional
// codes, per puncturing pattern.
var (
	ubRate12 = unionBound{dFree: 10, ak: []float64{
		36, 211, 1404, 11633, 77433, 502690, 3322763, 21292910, 134365911, 843425871}}
	ubRate23 = unionBound{dFree: 6, ak: []float64{
		3, 70, 285, 1276, 6160, 27128, 117019, 498860, 2103891, 8784123}}
	ubRate34 = unionBound{dFree: 5, ak: []float64{
		42, 201, 1492, 10469, 62935, 379644, 2253373, 13073811, 75152755, 428005675}}
	ubRate56 = unionBound{dFree: 4, ak: []float64{
		92, 528, 8694, 79453, 792114, 7375573, 67884974, 610875423, 5427275376, 47664215639}}
)

type unionBound struct {
	dFree int
	ak    []float64
}

// errorRateBound returns an upper bound on the first-event error probability
// of the Viterbi decoder at raw channel bit error rate ber.
func (ub unionBound) errorRateBound(ber float64) float64 {
	if ber == 0 {
		return 0
	}
	d := math.Sqrt(4 * ber * (1 - ber))
	pe := 0.0
	dk := math.Pow(d, float64(ub.dFree))
	for _, ak := range ub.ak {
		pe += ak * dk
		dk *= d * d
	}
	pe *= 0.5
	if pe > 1 {
		pe = 1
	}
	return pe
}

// ber returns the raw channel bit error rate for the mode's constellation at
// linear SNR per bit stream.
func (NistErrorRateModel) ber(mode Mode, snr float64) float64 {
	switch mode.Constellation {
	case 2:
		return 0.5 * math.Erfc(math.Sqrt(snr))
	case 4:
		return 0.5 * math.Erfc(math.Sqrt(snr/2))
	case 16:
		return 3.0 / 8.0 * math.Erfc(math.Sqrt(snr/10))
	case 64:
		return 7.0 / 24.0 * math.Erfc(math.Sqrt(snr/42))
	case 256:
		return 15.0 / 64.0 * math.Erfc(math.Sqrt(snr/170))
	case 1024:
		return 31.0 / 160.0 * math.Erfc(math.Sqrt(snr/682))
	}
	return 0.5 * math.Erfc(math.Sqrt(snr))
}

func unionBoundForCode(num, den int) unionBound {
	switch {
	case num == 1 && den == 2:
		return ubRate12
	case num == 2 && den == 3:
		return ubRate23
	case num == 3 && den == 4:
		return ubRate34
	case num == 5 && den == 6:
		return ubRate56
	}
	return ubRate12
}

// ChunkSuccessRate returns (1-pe)^nbits where pe is the per-bit decoded
// error probability of the mode at the given linear SNR.
func (m NistErrorRateModel) ChunkSuccessRate(mode Mode, _ TxVector, snr float64, nbits uint64) float64 {
	if nbits == 0 {
		return 1
	}
	ber := m.ber(mode, snr)
	if mode.Class == ModulationDsss {
		// Uncoded: the raw bit error rate is the decoded one.
		return math.Pow(1-ber, float64(nbits))
	}
	pe := unionBoundForCode(mode.CodeNum, mode.CodeDen).errorRateBound(ber)
	return math.Pow(1-pe, float64(nbits))
}

// ThresholdErrorRateModel succeeds iff the SNR is at or above a fixed
// threshold. Deterministic, for tests and coarse link budgets.
type ThresholdErrorRateModel struct {
	// ThresholdDb is the minimum SNR for success, in dB.
	ThresholdDb float64
}

func (m ThresholdErrorRateModel) ChunkSuccessRate(_ Mode, _ TxVector, snr float64, nbits uint64) float64 {
	if nbits == 0 {
		return 1
	}
	if RatioToDb(snr) >= m.ThresholdDb {
		return 1
	}
	return 0
}
