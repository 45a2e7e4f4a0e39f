package scenario

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/wifi-phy-simulator/core"
	"github.com/signalsfoundry/wifi-phy-simulator/sim"
)

const twoBssDoc = `
name: two-bss-overlap
duration: 10ms
default_path_loss_db: 50
phys:
  - id: ap1
    channel: {center_mhz: 5190, width_mhz: 40, primary_mhz: 5180}
    bss_color: 1
    seed: 1
  - id: sta1
    channel: {center_mhz: 5190, width_mhz: 40, primary_mhz: 5180}
    bss_color: 1
    seed: 2
  - id: ap2
    channel: {center_mhz: 5190, width_mhz: 40, primary_mhz: 5200}
    bss_color: 2
    seed: 3
path_loss:
  - {a: ap1, b: sta1, loss_db: 50}
  - {a: ap2, b: sta1, loss_db: 70}
traffic:
  - from: ap1
    start: 1ms
    interval: 2ms
    count: 3
    size_bytes: 1500
    mode: {class: vht, mcs: 4}
    preamble: vht
interferers:
  - start: 0s
    duration: 500us
    power_dbm: -40
    bands: [{center_mhz: 5200, width_mhz: 20}]
`

func TestLoadValidScenario(t *testing.T) {
	s, err := Load(strings.NewReader(twoBssDoc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "two-bss-overlap" {
		t.Errorf("name = %q", s.Name)
	}
	if s.Duration.Std() != 10*time.Millisecond {
		t.Errorf("duration = %s", s.Duration.Std())
	}
	if len(s.Phys) != 3 || len(s.Traffic) != 1 || len(s.Interferers) != 1 {
		t.Errorf("counts: phys=%d traffic=%d interferers=%d", len(s.Phys), len(s.Traffic), len(s.Interferers))
	}
	if s.Traffic[0].Interval.Std() != 2*time.Millisecond {
		t.Errorf("interval = %s", s.Traffic[0].Interval.Std())
	}
}

func TestLoadRejectsBadDocuments(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"no phys", "name: x\nduration: 1ms\n"},
		{"duplicate id", `
phys:
  - {id: a, channel: {center_mhz: 5180, width_mhz: 20, primary_mhz: 5180}}
  - {id: a, channel: {center_mhz: 5180, width_mhz: 20, primary_mhz: 5180}}
`},
		{"bad width", `
phys:
  - {id: a, channel: {center_mhz: 5180, width_mhz: 30, primary_mhz: 5180}}
`},
		{"primary outside channel", `
phys:
  - {id: a, channel: {center_mhz: 5190, width_mhz: 40, primary_mhz: 5250}}
`},
		{"traffic from unknown phy", `
phys:
  - {id: a, channel: {center_mhz: 5180, width_mhz: 20, primary_mhz: 5180}}
traffic:
  - {from: ghost, size_bytes: 100, mode: {class: vht, mcs: 0}}
`},
		{"zero frame size", `
phys:
  - {id: a, channel: {center_mhz: 5180, width_mhz: 20, primary_mhz: 5180}}
traffic:
  - {from: a, size_bytes: 0, mode: {class: vht, mcs: 0}}
`},
		{"unknown modulation class", `
phys:
  - {id: a, channel: {center_mhz: 5180, width_mhz: 20, primary_mhz: 5180}}
traffic:
  - {from: a, size_bytes: 100, mode: {class: qam4096, mcs: 0}}
`},
	}
	for _, tc := range cases {
		_, err := Load(strings.NewReader(tc.doc))
		if !errors.Is(err, ErrInvalidScenario) {
			t.Errorf("%s: err = %v, want ErrInvalidScenario", tc.name, err)
		}
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	doc := `
phys:
  - id: a
    channel: {center_mhz: 5180, width_mhz: 20, primary_mhz: 5180}
    antenna_gain: 3
`
	if _, err := Load(strings.NewReader(doc)); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestModeSpecParsing(t *testing.T) {
	m, err := ModeSpec{Class: "he", Mcs: 11}.toCore()
	if err != nil || m.Class != core.ModulationHe {
		t.Fatalf("he mcs11: %v %v", m, err)
	}
	if _, err := (ModeSpec{Class: "vht", Mcs: 10}).toCore(); err == nil {
		t.Error("vht mcs10 accepted")
	}
	if m, err := (ModeSpec{Class: "ofdm", RateMbps: 54}).toCore(); err != nil || m.Class != core.ModulationOfdm {
		t.Errorf("ofdm 54: %v %v", m, err)
	}
	if _, err := (ModeSpec{Class: "dsss", RateKbps: 3000}).toCore(); err == nil {
		t.Error("dsss 3000 accepted")
	}
}

func TestBuildAndRunScenario(t *testing.T) {
	s, err := Load(strings.NewReader(twoBssDoc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sched := sim.NewScheduler()
	rt, err := Build(s, sched, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var delivered int
	rt.Phys["sta1"].SetReceiveCallbacks(func(_ *core.Ppdu, _ core.RxSignalInfo, statuses []bool) {
		for _, ok := range statuses {
			if ok {
				delivered++
			}
		}
	}, nil)

	sched.RunUntil(s.Duration.Std())

	// ap1 sends three frames at 50 dB loss; all should arrive.
	if delivered != 3 {
		t.Fatalf("delivered = %d, want 3", delivered)
	}
}
