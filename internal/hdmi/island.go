package hdmi

import (
	"errors"
	"fmt"

	"github.com/terenceang/TN9K-DVI-HDMI/internal/wave"
)

// ErrSignalUnavailable marks a required signal or bus missing from the
// capture. The step that needs it is skipped; unrelated analysis continues.
var ErrSignalUnavailable = errors.New("signal unavailable in capture")

// Framing lengths and the burst safety cap.
const (
	PreambleLength    = 8
	GuardLength       = 2
	HeaderLength      = 4
	EccLength         = 4
	MaxIslandSamples  = 96
	SubPacketSamples  = 4
	MaxSubPackets     = 4
	SubPacketNumBytes = 7
)

// SegmenterConfig names the capture signals the segmenter consumes. Column
// lookup is by substring, so instance-path prefixes in probe names still
// match.
type SegmenterConfig struct {
	EnableSignal   string   `yaml:"enableSignal"`
	PreambleSignal string   `yaml:"preambleSignal"`
	CounterBus     string   `yaml:"counterBus"`
	ChannelBuses   []string `yaml:"channelBuses"`
	MaxSamples     int      `yaml:"maxSamples"`
}

// DefaultSegmenterConfig matches the probe names emitted by the reference
// design.
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		EnableSignal:   "data_island_enable",
		PreambleSignal: "preamble_active",
		CounterBus:     "horizontal_counter",
		ChannelBuses:   []string{"tmds_encoded_red", "tmds_encoded_green", "tmds_encoded_blue"},
		MaxSamples:     MaxIslandSamples,
	}
}

// scanState is the outer burst-detection state.
type scanState int

const (
	stateIdle scanState = iota
	stateActive
)

// Segmenter detects data island bursts in a capture and decomposes each into
// protocol segments. It holds read-only views of the capture's rows and
// buses; deriving islands never mutates the capture.
type Segmenter struct {
	capture *wave.Capture
	cfg     SegmenterConfig

	enableCol   int
	preambleCol int
	// indicatorTriggered marks captures without a dedicated enable probe:
	// bursts start on the preamble indicator's rising edge, and a falling
	// edge does not end them.
	indicatorTriggered bool
	counter            []wave.Value
	channels           [NumChannels][]wave.Value
}

// NewSegmenter resolves the configured signals against the capture. All
// three channel buses are required, along with either the island enable
// signal or the preamble indicator; the position counter is optional,
// degrading wrap detection. When only the indicator is present, bursts
// start on its rising edge and end only at a counter wrap, the sample cap
// or the end of the capture.
func NewSegmenter(c *wave.Capture, cfg SegmenterConfig) (*Segmenter, error) {
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = MaxIslandSamples
	}
	if len(cfg.ChannelBuses) != int(NumChannels) {
		return nil, fmt.Errorf("%d channel buses configured, want %d", len(cfg.ChannelBuses), NumChannels)
	}
	s := &Segmenter{capture: c, cfg: cfg}

	s.enableCol = c.SignalColumn(cfg.EnableSignal)
	s.preambleCol = -1
	if cfg.PreambleSignal != "" {
		s.preambleCol = c.SignalColumn(cfg.PreambleSignal)
	}
	if s.enableCol < 0 {
		if s.preambleCol < 0 {
			return nil, fmt.Errorf("%w: %s", ErrSignalUnavailable, cfg.EnableSignal)
		}
		// The indicator drops after the preamble while the burst goes on,
		// so its falling edge must not terminate collection.
		s.enableCol = s.preambleCol
		s.indicatorTriggered = true
	}
	if vals, ok := c.Bus(cfg.CounterBus); ok {
		s.counter = vals
	}
	for i, name := range cfg.ChannelBuses {
		vals, ok := c.Bus(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSignalUnavailable, name)
		}
		s.channels[i] = vals
	}
	return s, nil
}

func (s *Segmenter) sampleAt(row int) Sample {
	smp := Sample{
		Index:  row,
		Time:   s.capture.TimeAt(row),
		HCount: wave.Unknown,
		Enable: s.capture.SignalHigh(row, s.enableCol),
	}
	if s.preambleCol >= 0 {
		smp.Preamble = s.capture.SignalHigh(row, s.preambleCol)
	}
	if s.counter != nil && row < len(s.counter) {
		smp.HCount = s.counter[row]
	}
	for ch := range s.channels {
		if row < len(s.channels[ch]) {
			smp.Ch[ch] = s.channels[ch][row]
		}
	}
	return smp
}

// Islands scans the capture once and returns every detected burst, bounded
// and decomposed. The scan transitions IDLE to ACTIVE on a rising edge of the
// enable signal; a burst ends at the enable falling edge, at a wrap of the
// position counter (the wrap sample belongs to the next line and is rescanned
// as a candidate start), or at the sample cap which also bounds a stuck-high
// enable. In indicator-triggered mode the falling-edge termination is
// suppressed.
func (s *Segmenter) Islands() []*DataIsland {
	var islands []*DataIsland
	var burst []Sample

	finish := func(cause TerminationCause) {
		if len(burst) == 0 {
			return
		}
		island := &DataIsland{Samples: burst, Termination: cause}
		s.decompose(island)
		islands = append(islands, island)
		burst = nil
	}

	state := stateIdle
	prevEnable := false
	prevH := wave.Unknown
	row := 0
	rows := len(s.capture.Rows)
	for row < rows {
		enable := s.capture.SignalHigh(row, s.enableCol)

		switch state {
		case stateIdle:
			if enable && !prevEnable {
				state = stateActive
				prevH = wave.Unknown
				continue // reprocess this row as the first active sample
			}
			prevEnable = enable
			row++

		case stateActive:
			if !enable && !s.indicatorTriggered {
				finish(TermFallingEdge)
				state = stateIdle
				prevEnable = enable
				row++
				continue
			}
			smp := s.sampleAt(row)
			if prevH.Known && smp.HCount.Known && smp.HCount.Bits < prevH.Bits {
				// Counter wrapped before the enable dropped: this sample
				// opens the next line. Exclude it and rescan it as a fresh
				// rising edge.
				finish(TermCounterWrap)
				state = stateIdle
				prevEnable = false
				continue
			}
			burst = append(burst, smp)
			prevH = smp.HCount
			if len(burst) >= s.cfg.MaxSamples {
				finish(TermSampleCap)
				state = stateIdle
				prevEnable = true
				row++
				continue
			}
			row++
		}
	}
	if state == stateActive {
		finish(TermEndOfCapture)
	}
	return islands
}

// decompose splits a completed burst into preamble, guard, header, ECC,
// payload and trailing guard segments.
func (s *Segmenter) decompose(d *DataIsland) {
	samples := d.Samples

	preambleLen := 0
	if s.preambleCol >= 0 {
		for _, smp := range samples {
			if !smp.Preamble {
				break
			}
			preambleLen++
		}
		d.PreambleByIndicator = preambleLen > 0
	}
	if preambleLen == 0 {
		// Indicator unavailable or never asserted: fixed-length prefix.
		preambleLen = PreambleLength
		if preambleLen > len(samples) {
			preambleLen = len(samples)
		}
		d.PreambleByIndicator = false
	}
	d.Segments.Preamble = samples[:preambleLen]

	leading, dataStart, leadingFound := locateLeadingGuard(samples, preambleLen)
	d.Segments.LeadingGuard = leading
	d.LeadingGuardByPattern = leadingFound

	trailing, trailingStart, trailingFound := locateTrailingGuard(samples, dataStart)

	var data []Sample
	if trailingStart <= dataStart {
		// No room for a trailing guard ahead of the data region; the flag
		// must not claim one that the segment list does not carry.
		data = samples[dataStart:]
		trailing = nil
		trailingFound = false
	} else {
		data = samples[dataStart:trailingStart]
	}
	d.TrailingGuardByPattern = trailingFound
	d.Segments.TrailingGuard = trailing

	if len(data) >= HeaderLength+EccLength {
		d.Segments.Header = data[:HeaderLength]
		d.Segments.Ecc = data[HeaderLength : HeaderLength+EccLength]
		d.Segments.Payload = data[HeaderLength+EccLength:]
	} else {
		// Too short for header plus ECC: keep what can be a header and
		// leave the rest empty so downstream marks the record incomplete.
		if len(data) > HeaderLength {
			d.Segments.Header = data[:HeaderLength]
		} else {
			d.Segments.Header = data
		}
	}
}

// isGuardSample reports whether every channel of the sample carries the
// guard-band pattern.
func isGuardSample(smp Sample) bool {
	for ch := Channel(0); ch < NumChannels; ch++ {
		if !smp.Ch[ch].Equals(uint32(GuardPattern)) {
			return false
		}
	}
	return true
}

// locateLeadingGuard finds the first GuardLength-wide window of guard
// symbols at or after start. When no window matches, the next GuardLength
// samples are taken unconditionally.
func locateLeadingGuard(samples []Sample, start int) (guard []Sample, next int, found bool) {
	if start >= len(samples) {
		return nil, start, false
	}
	for idx := start; idx+GuardLength <= len(samples); idx++ {
		window := samples[idx : idx+GuardLength]
		if allGuard(window) {
			return window, idx + GuardLength, true
		}
	}
	end := start + GuardLength
	if end > len(samples) {
		end = len(samples)
	}
	return samples[start:end], end, false
}

// locateTrailingGuard searches backwards from the end of the burst for the
// guard pattern, never overlapping the region before minStart. The fallback
// takes the final GuardLength samples.
func locateTrailingGuard(samples []Sample, minStart int) (guard []Sample, start int, found bool) {
	if len(samples) == 0 {
		return nil, 0, false
	}
	for idx := len(samples) - GuardLength; idx >= minStart; idx-- {
		window := samples[idx : idx+GuardLength]
		if allGuard(window) {
			return window, idx, true
		}
	}
	start = len(samples) - GuardLength
	if start < minStart {
		start = minStart
	}
	if start < len(samples) {
		return samples[start:], start, false
	}
	return nil, len(samples), false
}

func allGuard(window []Sample) bool {
	for _, smp := range window {
		if !isGuardSample(smp) {
			return false
		}
	}
	return true
}

// SegmentIslands is the package-level convenience: build a segmenter with
// the default signal names and return every island in the capture.
func SegmentIslands(c *wave.Capture) ([]*DataIsland, error) {
	seg, err := NewSegmenter(c, DefaultSegmenterConfig())
	if err != nil {
		return nil, err
	}
	return seg.Islands(), nil
}
