package core

import (
	"math"
	"testing"
	"time"
)

func evenSplit(bands []Band, totalW float64) map[Band]float64 {
	m := make(map[Band]float64, len(bands))
	for _, b := range bands {
		m[b] = totalW / float64(len(bands))
	}
	return m
}

func TestPowerAtTracksSignalLifetime(t *testing.T) {
	tr := NewInterferenceTracker(7)
	band := SubBand(5180, 20, 0)

	tr.AddForeignSignal(10*time.Microsecond, 50*time.Microsecond,
		map[Band]float64{band: 1e-6})

	for _, tc := range []struct {
		at   time.Duration
		want float64
	}{
		{5 * time.Microsecond, 0},
		{10 * time.Microsecond, 1e-6},
		{30 * time.Microsecond, 1e-6},
		{60 * time.Microsecond, 0},
		{100 * time.Microsecond, 0},
	} {
		if got := tr.PowerAt(band, tc.at); math.Abs(got-tc.want) > 1e-15 {
			t.Errorf("PowerAt(%s) = %v, want %v", tc.at, got, tc.want)
		}
	}
}

func TestPowerAtSumsOverlappingSignals(t *testing.T) {
	tr := NewInterferenceTracker(7)
	band := SubBand(5180, 20, 0)

	tr.AddForeignSignal(0, 100*time.Microsecond, map[Band]float64{band: 1e-6})
	tr.AddForeignSignal(40*time.Microsecond, 20*time.Microsecond, map[Band]float64{band: 3e-6})

	if got := tr.PowerAt(band, 50*time.Microsecond); math.Abs(got-4e-6) > 1e-15 {
		t.Fatalf("overlap total = %v, want 4e-6", got)
	}
	if got := tr.PowerAt(band, 70*time.Microsecond); math.Abs(got-1e-6) > 1e-15 {
		t.Fatalf("after overlap = %v, want 1e-6", got)
	}
}

func TestBandIsolation(t *testing.T) {
	tr := NewInterferenceTracker(7)
	bands := SubBands(5190, 40)

	tr.AddForeignSignal(0, time.Millisecond, map[Band]float64{bands[0]: 1e-6})

	if got := tr.PowerAt(bands[1], 500*time.Microsecond); got != 0 {
		t.Fatalf("energy leaked across sub-bands: %v W on %v", got, bands[1])
	}
}

func TestEnergyDuration(t *testing.T) {
	tr := NewInterferenceTracker(7)
	band := SubBand(5180, 20, 0)
	tr.AddForeignSignal(10*time.Microsecond, 50*time.Microsecond,
		map[Band]float64{band: 1e-6})

	now := 20 * time.Microsecond
	if got := tr.EnergyDuration(band, 5e-7, now); got != 40*time.Microsecond {
		t.Errorf("EnergyDuration above threshold = %s, want 40us", got)
	}
	if got := tr.EnergyDuration(band, 2e-6, now); got != 0 {
		t.Errorf("EnergyDuration below threshold = %s, want 0", got)
	}
}

func TestPruneKeepsBaseline(t *testing.T) {
	tr := NewInterferenceTracker(7)
	band := SubBand(5180, 20, 0)
	tr.AddForeignSignal(0, 10*time.Microsecond, map[Band]float64{band: 1e-6})
	tr.AddForeignSignal(5*time.Microsecond, 100*time.Microsecond, map[Band]float64{band: 2e-6})

	tr.NotifyRxStart()
	tr.NotifyRxEnd(50 * time.Microsecond)

	if got := tr.PowerAt(band, 60*time.Microsecond); math.Abs(got-2e-6) > 1e-15 {
		t.Fatalf("after prune, ongoing signal power = %v, want 2e-6", got)
	}
	if got := tr.PowerAt(band, 200*time.Microsecond); math.Abs(got) > 1e-15 {
		t.Fatalf("after all signals end, power = %v, want 0", got)
	}
}

// Effective SNR across bonded sub-bands: the weakest band's linear SNR plus
// the diversity gain. With every band at 3 dB the combined values follow the
// reference ladder below.
func TestEffectiveSnrCombining(t *testing.T) {
	for _, tc := range []struct {
		widthMHz uint16
		center   uint16
		wantDb   float64
	}{
		{20, 5180, 3.01},
		{40, 5190, 10.93},
		{80, 5210, 13.58},
		{160, 5250, 15.21},
	} {
		tr := NewInterferenceTracker(0)
		bands := SubBands(tc.center, tc.widthMHz)

		// Per-band received power pinned to twice the thermal floor, i.e.
		// a per-band SNR of exactly 3.01 dB.
		rx := make(map[Band]float64, len(bands))
		for _, b := range bands {
			rx[b] = 2 * kT0 * float64(b.WidthMHz) * 1e6
		}
		v := vhtVector(0, tc.widthMHz)
		ppdu := NewPpdu(Psdu{Mpdus: []Mpdu{{Size: 1000}}}, v, 1)
		ev := tr.Add(ppdu, v, 0, rx)

		got := RatioToDb(tr.CalculateSnr(ev, bands, 10*time.Microsecond))
		if math.Abs(got-tc.wantDb) > 0.1 {
			t.Errorf("%d MHz: effective SNR = %.2f dB, want %.2f dB", tc.widthMHz, got, tc.wantDb)
		}
	}
}

func TestPayloadPerCleanVsJammed(t *testing.T) {
	tr := NewInterferenceTracker(7)
	v := vhtVector(0, 20)
	band := SubBand(5180, 20, 0)
	bands := []Band{band}

	ppdu := NewPpdu(Psdu{Mpdus: []Mpdu{{Size: 1000}}}, v, 1)
	// -60 dBm over a 7 dB noise figure floor: comfortably decodable BPSK.
	ev := tr.Add(ppdu, v, 0, map[Band]float64{band: DbmToW(-60)})
	window := MpduWindow{Begin: 0, End: PayloadDuration(1000, v)}

	snr, per := tr.CalculatePayloadSnrPer(ev, bands, window)
	if per > 1e-6 {
		t.Fatalf("clean reception: per = %v, want ~0 (snr %.1f dB)", per, RatioToDb(snr))
	}

	// A co-channel burst 20 dB hotter over the middle of the payload.
	mid := ev.Start + v.PreambleAndHeaderDuration() + window.End/4
	tr.AddForeignSignal(mid, window.End/2, map[Band]float64{band: DbmToW(-40)})

	_, per = tr.CalculatePayloadSnrPer(ev, bands, window)
	if per < 0.999 {
		t.Fatalf("jammed reception: per = %v, want ~1", per)
	}
}

// A 20 MHz frame overlapped by an equal-power 40 MHz frame sees half the
// interferer's power on its band: an SNR of about 3 dB, survivable for the
// BPSK-coded headers but not for a 16-QAM payload.
func TestOverlappingWideSignalHeaderPassesPayloadFails(t *testing.T) {
	tr := NewInterferenceTracker(7)
	v := vhtVector(4, 20)
	band := SubBand(5180, 20, 0)

	ppdu := NewPpdu(Psdu{Mpdus: []Mpdu{{Size: 1000}}}, v, 1)
	ev := tr.Add(ppdu, v, 0, map[Band]float64{band: DbmToW(-34)})

	wide := evenSplit(SubBands(5190, 40), DbmToW(-34))
	tr.AddForeignSignal(0, 2*time.Millisecond, wide)

	snr, per := tr.CalculateLegacyPhyHeaderSnrPer(ev, band)
	if got := RatioToDb(snr); math.Abs(got-3.01) > 0.1 {
		t.Errorf("header snr = %.2f dB, want ~3.01", got)
	}
	if per > 0.05 {
		t.Errorf("legacy header per = %v, want < 0.05", per)
	}

	window := MpduWindow{Begin: 0, End: PayloadDuration(1000, v)}
	if _, per := tr.CalculatePayloadSnrPer(ev, []Band{band}, window); per < 0.999 {
		t.Errorf("payload per = %v, want ~1", per)
	}
}

func TestPayloadPerZeroWindow(t *testing.T) {
	tr := NewInterferenceTracker(7)
	v := vhtVector(0, 20)
	band := SubBand(5180, 20, 0)
	ppdu := NewPpdu(Psdu{Mpdus: []Mpdu{{Size: 1000}}}, v, 1)
	ev := tr.Add(ppdu, v, 0, map[Band]float64{band: DbmToW(-60)})

	if _, per := tr.CalculatePayloadSnrPer(ev, []Band{band}, MpduWindow{Begin: 5 * time.Microsecond, End: 5 * time.Microsecond}); per != 0 {
		t.Fatalf("empty window: per = %v, want 0", per)
	}
}

func TestHeaderSnrPer(t *testing.T) {
	tr := NewInterferenceTracker(7)
	v := TxVector{Mode: HtMcs(7), Preamble: PreambleHt,
		ChannelWidthMHz: 20, GuardInterval: 800 * time.Nanosecond, Nss: 1}
	band := SubBand(5180, 20, 0)
	ppdu := NewPpdu(Psdu{Mpdus: []Mpdu{{Size: 500}}}, v, 1)
	ev := tr.Add(ppdu, v, 0, map[Band]float64{band: DbmToW(-55)})

	if _, per := tr.CalculateLegacyPhyHeaderSnrPer(ev, band); per > 1e-6 {
		t.Errorf("legacy header at -55 dBm: per = %v, want ~0", per)
	}
	if _, per := tr.CalculateNonLegacyPhyHeaderSnrPer(ev, band); per > 1e-6 {
		t.Errorf("HT-SIG at -55 dBm: per = %v, want ~0", per)
	}

	weak := NewInterferenceTracker(7)
	ev2 := weak.Add(ppdu, v, 0, map[Band]float64{band: DbmToW(-100)})
	if _, per := weak.CalculateLegacyPhyHeaderSnrPer(ev2, band); per < 0.99 {
		t.Errorf("legacy header at -100 dBm: per = %v, want ~1", per)
	}
}
