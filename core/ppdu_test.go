package core

import (
	"testing"
	"time"
)

func vhtVector(mcs uint8, width uint16) TxVector {
	return TxVector{
		Mode:            VhtMcs(mcs),
		Preamble:        PreambleVht,
		ChannelWidthMHz: width,
		GuardInterval:   800 * time.Nanosecond,
		Nss:             1,
	}
}

func TestPreambleAndHeaderDurations(t *testing.T) {
	cases := []struct {
		name string
		v    TxVector
		want time.Duration
	}{
		{
			// 16 preamble + 4 L-SIG.
			name: "legacy OFDM",
			v: TxVector{Mode: OfdmRate(6), Preamble: PreambleLong,
				ChannelWidthMHz: 20, GuardInterval: 800 * time.Nanosecond, Nss: 1},
			want: 20 * time.Microsecond,
		},
		{
			// 16 + 4 + HT-SIG 8 + HT-STF 4 + 1 HT-LTF 4.
			name: "HT one stream",
			v: TxVector{Mode: HtMcs(7), Preamble: PreambleHt,
				ChannelWidthMHz: 20, GuardInterval: 800 * time.Nanosecond, Nss: 1},
			want: 36 * time.Microsecond,
		},
		{
			// 16 + 4 + SIG-A 8 + STF 4 + 2 LTF 8 + SIG-B 4.
			name: "VHT two streams",
			v: TxVector{Mode: VhtMcs(5), Preamble: PreambleVht,
				ChannelWidthMHz: 80, GuardInterval: 800 * time.Nanosecond, Nss: 2},
			want: 44 * time.Microsecond,
		},
		{
			// 144 long preamble + 48 PLCP header.
			name: "DSSS long",
			v: TxVector{Mode: DsssRate(1000), Preamble: PreambleLong,
				ChannelWidthMHz: 20, GuardInterval: 800 * time.Nanosecond, Nss: 1},
			want: 192 * time.Microsecond,
		},
	}
	for _, tc := range cases {
		if got := tc.v.PreambleAndHeaderDuration(); got != tc.want {
			t.Errorf("%s: header duration = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestPayloadDurationWholeSymbols(t *testing.T) {
	v := vhtVector(0, 20) // 6.5 Mbit/s, 26 bits per 4 us symbol
	// 100 bytes: 16 + 800 + 6 = 822 bits -> ceil(822/26) = 32 symbols.
	want := 32 * 4 * time.Microsecond
	if got := PayloadDuration(100, v); got != want {
		t.Fatalf("PayloadDuration(100B) = %s, want %s", got, want)
	}
}

func TestCalculateTxDurationIsHeaderPlusPayload(t *testing.T) {
	v := vhtVector(4, 40)
	got := CalculateTxDuration(1500, v)
	want := v.PreambleAndHeaderDuration() + PayloadDuration(1500, v)
	if got != want {
		t.Fatalf("CalculateTxDuration = %s, want %s", got, want)
	}
	ppdu := NewPpdu(Psdu{Mpdus: []Mpdu{{Size: 1500}}}, v, 1)
	if ppdu.Duration() != want {
		t.Fatalf("Ppdu.Duration = %s, want %s", ppdu.Duration(), want)
	}
}

func TestMpduWindowsTilePayload(t *testing.T) {
	v := vhtVector(7, 80)
	psdu := Psdu{Mpdus: []Mpdu{{Size: 1500}, {Size: 700}, {Size: 1500}}}
	ppdu := NewPpdu(psdu, v, 7)

	windows := ppdu.MpduWindows()
	if len(windows) != 3 {
		t.Fatalf("got %d windows, want 3", len(windows))
	}
	if windows[0].Begin != 0 {
		t.Errorf("first window begins at %s, want 0", windows[0].Begin)
	}
	total := PayloadDuration(psdu.Size(), v)
	if windows[2].End != total {
		t.Errorf("last window ends at %s, want %s", windows[2].End, total)
	}
	for i := 1; i < len(windows); i++ {
		if windows[i].Begin != windows[i-1].End {
			t.Errorf("window %d begins at %s, previous ends at %s", i, windows[i].Begin, windows[i-1].End)
		}
		if windows[i].End <= windows[i].Begin {
			t.Errorf("window %d is empty", i)
		}
	}
}

func TestTxVectorValidate(t *testing.T) {
	good := vhtVector(3, 40)
	if err := good.Validate(); err != nil {
		t.Fatalf("valid vector rejected: %v", err)
	}

	bad := good
	bad.ChannelWidthMHz = 30
	if err := bad.Validate(); err == nil {
		t.Error("width 30 MHz accepted")
	}

	bad = good
	bad.Nss = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero spatial streams accepted")
	}

	legacy := TxVector{Mode: OfdmRate(6), ChannelWidthMHz: 40, GuardInterval: 800 * time.Nanosecond, Nss: 1}
	if err := legacy.Validate(); err == nil {
		t.Error("legacy OFDM at 40 MHz accepted")
	}
}
