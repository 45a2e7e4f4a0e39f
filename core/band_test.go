package core

import "testing"

func TestSubBandsPartition80MHz(t *testing.T) {
	// Channel 42: 80 MHz centered at 5210 MHz.
	bands := SubBands(5210, 80)
	if len(bands) != 4 {
		t.Fatalf("expected 4 sub-bands for 80 MHz, got %d", len(bands))
	}
	wantCenters := []uint16{5180, 5200, 5220, 5240}
	for i, b := range bands {
		if b.CenterMHz != wantCenters[i] {
			t.Errorf("sub-band %d: expected center %d, got %d", i, wantCenters[i], b.CenterMHz)
		}
		if b.WidthMHz != 20 {
			t.Errorf("sub-band %d: expected width 20, got %d", i, b.WidthMHz)
		}
	}
}

func TestSubBandsAgreeAcrossReceivers(t *testing.T) {
	// A 40 MHz channel at 5190 (channel 38) and an 80 MHz channel at 5210
	// (channel 42) overlap on 5170-5210. The shared spectrum must map to
	// identical Band values from both viewpoints.
	forty := SubBands(5190, 40)
	eighty := SubBands(5210, 80)
	if forty[0] != eighty[0] || forty[1] != eighty[1] {
		t.Fatalf("shared sub-bands disagree: %v vs %v", forty[:2], eighty[:2])
	}
}

func TestBandContaining(t *testing.T) {
	b, ok := BandContaining(5190, 40, 5180)
	if !ok {
		t.Fatalf("expected 5180 MHz inside 40 MHz channel at 5190")
	}
	if b.CenterMHz != 5180 {
		t.Fatalf("expected the lower sub-band (5180), got %v", b)
	}

	if _, ok := BandContaining(5190, 40, 5300); ok {
		t.Fatalf("expected 5300 MHz outside the channel")
	}
}

func TestSubChannelAnchorsOnPrimary(t *testing.T) {
	// 80 MHz channel at 5210, primary 20 MHz channel 36 (5180).
	got := SubChannel(5210, 80, 5180, 40)
	if got.CenterMHz != 5190 || got.WidthMHz != 40 {
		t.Fatalf("expected 40 MHz sub-channel at 5190, got %v", got)
	}

	// Primary in the upper half selects the upper 40 MHz block.
	got = SubChannel(5210, 80, 5220, 40)
	if got.CenterMHz != 5230 {
		t.Fatalf("expected upper 40 MHz sub-channel at 5230, got %v", got)
	}
}

func TestSubBandsRejectsBogusWidth(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unsupported width")
		}
	}()
	SubBands(5180, 30)
}

func TestSubBandIndexOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for out-of-range sub-band index")
		}
	}()
	SubBand(5190, 40, 2)
}

func TestChannelCenterMHz(t *testing.T) {
	cases := map[uint8]uint16{36: 5180, 38: 5190, 40: 5200, 42: 5210, 46: 5230}
	for ch, want := range cases {
		if got := ChannelCenterMHz(ch); got != want {
			t.Errorf("channel %d: expected %d MHz, got %d", ch, want, got)
		}
	}
}
