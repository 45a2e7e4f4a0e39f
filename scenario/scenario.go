// Package scenario loads simulation descriptions from YAML and builds the
// corresponding channel, PHYs and traffic schedule.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/wifi-phy-simulator/core"
)

var ErrInvalidScenario = errors.New("invalid scenario")

// Duration wraps time.Duration with YAML parsing of Go duration strings.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// ChannelSpec mirrors core.OperatingChannel.
type ChannelSpec struct {
	CenterMHz  uint16 `yaml:"center_mhz"`
	WidthMHz   uint16 `yaml:"width_mhz"`
	PrimaryMHz uint16 `yaml:"primary_mhz"`
}

// ModeSpec names a modulation and coding scheme. Class is one of dsss,
// ofdm, erp-ofdm, ht, vht or he. Mcs applies to the HT/VHT/HE classes,
// RateMbps to legacy OFDM, RateKbps to DSSS.
type ModeSpec struct {
	Class    string `yaml:"class"`
	Mcs      uint8  `yaml:"mcs"`
	RateMbps int    `yaml:"rate_mbps"`
	RateKbps int    `yaml:"rate_kbps"`
}

// PhySpec describes one PHY instance.
type PhySpec struct {
	ID                 string      `yaml:"id"`
	Channel            ChannelSpec `yaml:"channel"`
	MaxWidthMHz        uint16      `yaml:"max_width_mhz"`
	TxPowerDbm         float64     `yaml:"tx_power_dbm"`
	NoiseFigureDb      float64     `yaml:"noise_figure_db"`
	CcaEdThresholdDbm  float64     `yaml:"cca_ed_threshold_dbm"`
	RxSensitivityDbm   float64     `yaml:"rx_sensitivity_dbm"`
	ObssPdThresholdDbm float64     `yaml:"obss_pd_threshold_dbm"`
	BssColor           uint8       `yaml:"bss_color"`
	Seed               int64       `yaml:"seed"`
}

// PathLossSpec overrides the loss between one pair of PHYs.
type PathLossSpec struct {
	A      string  `yaml:"a"`
	B      string  `yaml:"b"`
	LossDb float64 `yaml:"loss_db"`
}

// TrafficSpec is a periodic frame source on one PHY.
type TrafficSpec struct {
	From          string   `yaml:"from"`
	Start         Duration `yaml:"start"`
	Interval      Duration `yaml:"interval"`
	Count         int      `yaml:"count"`
	SizeBytes     uint32   `yaml:"size_bytes"`
	Mpdus         int      `yaml:"mpdus"`
	Mode          ModeSpec `yaml:"mode"`
	Preamble      string   `yaml:"preamble"`
	GuardInterval Duration `yaml:"guard_interval"`
	Nss           uint8    `yaml:"nss"`
}

// InterfererSpec is a constant non-Wi-Fi emission.
type InterfererSpec struct {
	Start    Duration      `yaml:"start"`
	Duration Duration      `yaml:"duration"`
	PowerDbm float64       `yaml:"power_dbm"`
	Bands    []ChannelSpec `yaml:"bands"`
}

// Scenario is the root document.
type Scenario struct {
	Name              string           `yaml:"name"`
	Duration          Duration         `yaml:"duration"`
	DefaultPathLossDb float64          `yaml:"default_path_loss_db"`
	PropagationDelay  Duration         `yaml:"propagation_delay"`
	Phys              []PhySpec        `yaml:"phys"`
	PathLoss          []PathLossSpec   `yaml:"path_loss"`
	Traffic           []TrafficSpec    `yaml:"traffic"`
	Interferers       []InterfererSpec `yaml:"interferers"`
}

// Load reads and validates a scenario document.
func Load(r io.Reader) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads and validates the scenario at path.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Validate checks internal consistency: PHY IDs must be unique, traffic and
// path loss entries must reference known PHYs, and channel plans must be
// well formed.
func (s *Scenario) Validate() error {
	if len(s.Phys) == 0 {
		return fmt.Errorf("%w: no phys", ErrInvalidScenario)
	}
	ids := make(map[string]bool, len(s.Phys))
	for _, p := range s.Phys {
		if p.ID == "" {
			return fmt.Errorf("%w: phy without id", ErrInvalidScenario)
		}
		if ids[p.ID] {
			return fmt.Errorf("%w: duplicate phy id %q", ErrInvalidScenario, p.ID)
		}
		ids[p.ID] = true
		if _, err := p.Channel.toCore(); err != nil {
			return fmt.Errorf("%w: phy %q: %v", ErrInvalidScenario, p.ID, err)
		}
	}
	for _, pl := range s.PathLoss {
		if !ids[pl.A] || !ids[pl.B] {
			return fmt.Errorf("%w: path loss references unknown phy %q/%q", ErrInvalidScenario, pl.A, pl.B)
		}
	}
	for i, tr := range s.Traffic {
		if !ids[tr.From] {
			return fmt.Errorf("%w: traffic[%d] from unknown phy %q", ErrInvalidScenario, i, tr.From)
		}
		if tr.SizeBytes == 0 {
			return fmt.Errorf("%w: traffic[%d] has zero frame size", ErrInvalidScenario, i)
		}
		if tr.Count > 1 && tr.Interval <= 0 {
			return fmt.Errorf("%w: traffic[%d] repeats without an interval", ErrInvalidScenario, i)
		}
		if _, err := tr.Mode.toCore(); err != nil {
			return fmt.Errorf("%w: traffic[%d]: %v", ErrInvalidScenario, i, err)
		}
		if _, err := parsePreamble(tr.Preamble); err != nil {
			return fmt.Errorf("%w: traffic[%d]: %v", ErrInvalidScenario, i, err)
		}
	}
	for i, in := range s.Interferers {
		if in.Duration <= 0 {
			return fmt.Errorf("%w: interferer[%d] has no duration", ErrInvalidScenario, i)
		}
		if len(in.Bands) == 0 {
			return fmt.Errorf("%w: interferer[%d] has no bands", ErrInvalidScenario, i)
		}
	}
	return nil
}

func (c ChannelSpec) toCore() (core.OperatingChannel, error) {
	ch := core.OperatingChannel{CenterMHz: c.CenterMHz, WidthMHz: c.WidthMHz, PrimaryMHz: c.PrimaryMHz}
	switch c.WidthMHz {
	case 20, 40, 80, 160:
	default:
		return ch, fmt.Errorf("channel width %d MHz", c.WidthMHz)
	}
	if c.PrimaryMHz < ch.CenterMHz-ch.WidthMHz/2 || c.PrimaryMHz >= ch.CenterMHz+ch.WidthMHz/2 {
		return ch, fmt.Errorf("primary %d MHz outside channel", c.PrimaryMHz)
	}
	return ch, nil
}

func (m ModeSpec) toCore() (core.Mode, error) {
	switch strings.ToLower(m.Class) {
	case "ht":
		return core.ModeForMcs(core.ModulationHt, m.Mcs)
	case "vht":
		return core.ModeForMcs(core.ModulationVht, m.Mcs)
	case "he":
		return core.ModeForMcs(core.ModulationHe, m.Mcs)
	case "ofdm":
		if _, ok := map[int]bool{6: true, 9: true, 12: true, 18: true, 24: true, 36: true, 48: true, 54: true}[m.RateMbps]; !ok {
			return core.Mode{}, fmt.Errorf("ofdm rate %d Mbit/s", m.RateMbps)
		}
		return core.OfdmRate(m.RateMbps), nil
	case "erp-ofdm":
		if _, err := (ModeSpec{Class: "ofdm", RateMbps: m.RateMbps}).toCore(); err != nil {
			return core.Mode{}, err
		}
		return core.ErpOfdmRate(m.RateMbps), nil
	case "dsss":
		switch m.RateKbps {
		case 1000, 2000, 5500, 11000:
			return core.DsssRate(m.RateKbps), nil
		}
		return core.Mode{}, fmt.Errorf("dsss rate %d kbit/s", m.RateKbps)
	}
	return core.Mode{}, fmt.Errorf("modulation class %q", m.Class)
}

func parsePreamble(s string) (core.Preamble, error) {
	switch strings.ToLower(s) {
	case "", "long":
		return core.PreambleLong, nil
	case "short":
		return core.PreambleShort, nil
	case "ht":
		return core.PreambleHt, nil
	case "vht":
		return core.PreambleVht, nil
	case "he":
		return core.PreambleHe, nil
	}
	return 0, fmt.Errorf("preamble %q", s)
}
