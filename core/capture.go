package core

import "time"

// PreambleDetectionModel decides whether a receiver locks onto a frame after
// the detection window, given the frame's RSSI and its SNR over current
// interference.
type PreambleDetectionModel interface {
	IsDetected(rssiW, snr float64) bool
}

// ThresholdPreambleDetectionModel detects a preamble when the RSSI clears an
// absolute sensitivity floor and the SNR clears a relative margin.
type ThresholdPreambleDetectionModel struct {
	// ThresholdDb is the minimum SNR for detection, in dB.
	ThresholdDb float64
	// MinimumRssiDbm is the absolute sensitivity floor.
	MinimumRssiDbm float64
}

// NewThresholdPreambleDetectionModel returns the model with its standard
// operating points: 4 dB SNR margin, -82 dBm sensitivity.
func NewThresholdPreambleDetectionModel() *ThresholdPreambleDetectionModel {
	return &ThresholdPreambleDetectionModel{ThresholdDb: 4, MinimumRssiDbm: -82}
}

func (m *ThresholdPreambleDetectionModel) IsDetected(rssiW, snr float64) bool {
	if WToDbm(rssiW) < m.MinimumRssiDbm {
		return false
	}
	return RatioToDb(snr) >= m.ThresholdDb
}

// FrameCaptureModel decides whether a receiver already locked onto one frame
// may drop it in favor of a newer, stronger one.
type FrameCaptureModel interface {
	CaptureNewFrame(current, incoming *SignalEvent, now time.Duration) bool
}

// SimpleFrameCaptureModel captures when the incoming frame is MarginDb
// stronger than the current one and arrives within Window of the current
// frame's start.
type SimpleFrameCaptureModel struct {
	MarginDb float64
	Window   time.Duration
}

// NewSimpleFrameCaptureModel returns the model with a 5 dB margin and a
// 16 us capture window.
func NewSimpleFrameCaptureModel() *SimpleFrameCaptureModel {
	return &SimpleFrameCaptureModel{MarginDb: 5, Window: 16 * time.Microsecond}
}

func (m *SimpleFrameCaptureModel) CaptureNewFrame(current, incoming *SignalEvent, now time.Duration) bool {
	if now-current.Start > m.Window {
		return false
	}
	cur := current.TotalRxPowerW()
	if cur <= 0 {
		return true
	}
	return RatioToDb(incoming.TotalRxPowerW()/cur) >= m.MarginDb
}

// PostReceptionErrorModel corrupts frames after PHY-level decoding has
// succeeded, e.g. to model receiver defects in tests. IsCorrupted is asked
// once per successfully decoded PPDU.
type PostReceptionErrorModel interface {
	IsCorrupted(ppdu *Ppdu) bool
}

// ListErrorModel corrupts the PPDUs whose UIDs appear on the list.
type ListErrorModel struct {
	uids map[uint64]bool
}

func NewListErrorModel(uids ...uint64) *ListErrorModel {
	m := &ListErrorModel{uids: make(map[uint64]bool, len(uids))}
	for _, u := range uids {
		m.uids[u] = true
	}
	return m
}

func (m *ListErrorModel) IsCorrupted(ppdu *Ppdu) bool { return m.uids[ppdu.UID] }
