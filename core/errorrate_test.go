package core

import (
	"testing"
	"time"
)

func TestNistChunkSuccessRateMonotoneInSnr(t *testing.T) {
	model := NistErrorRateModel{}
	v := vhtVector(5, 20)
	prev := -1.0
	for _, db := range []float64{0, 5, 10, 15, 20, 25, 30} {
		psr := model.ChunkSuccessRate(v.Mode, v, DbToRatio(db), 12000)
		if psr < prev {
			t.Fatalf("success rate not monotone: %v at %v dB < %v", psr, db, prev)
		}
		if psr < 0 || psr > 1 {
			t.Fatalf("success rate out of range: %v", psr)
		}
		prev = psr
	}
}

func TestNistChunkSuccessRateLimits(t *testing.T) {
	model := NistErrorRateModel{}
	v := vhtVector(0, 20)
	if psr := model.ChunkSuccessRate(v.Mode, v, DbToRatio(40), 8*1500); psr < 0.99999 {
		t.Errorf("BPSK 1/2 at 40 dB: psr = %v, want ~1", psr)
	}
	if psr := model.ChunkSuccessRate(v.Mode, v, DbToRatio(-10), 8*1500); psr > 1e-6 {
		t.Errorf("BPSK 1/2 at -10 dB: psr = %v, want ~0", psr)
	}
	if psr := model.ChunkSuccessRate(v.Mode, v, DbToRatio(-10), 0); psr != 1 {
		t.Errorf("zero bits must always succeed, got %v", psr)
	}
}

func TestNistHigherOrderModesNeedMoreSnr(t *testing.T) {
	model := NistErrorRateModel{}
	snr := DbToRatio(12)
	v := vhtVector(0, 20)
	robust := model.ChunkSuccessRate(VhtMcs(0), v, snr, 12000)
	fragile := model.ChunkSuccessRate(VhtMcs(8), v, snr, 12000)
	if fragile >= robust {
		t.Fatalf("256-QAM 3/4 (%v) should fail more than BPSK 1/2 (%v) at 12 dB", fragile, robust)
	}
}

func TestThresholdErrorRateModel(t *testing.T) {
	model := ThresholdErrorRateModel{ThresholdDb: 5}
	v := TxVector{Mode: HtMcs(0), Preamble: PreambleHt,
		ChannelWidthMHz: 20, GuardInterval: 800 * time.Nanosecond, Nss: 1}
	if psr := model.ChunkSuccessRate(v.Mode, v, DbToRatio(5.0), 100); psr != 1 {
		t.Errorf("at threshold: psr = %v, want 1", psr)
	}
	if psr := model.ChunkSuccessRate(v.Mode, v, DbToRatio(4.9), 100); psr != 0 {
		t.Errorf("below threshold: psr = %v, want 0", psr)
	}
}
