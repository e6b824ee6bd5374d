package hdmi

import (
	"github.com/terenceang/TN9K-DVI-HDMI/internal/common"
	"github.com/terenceang/TN9K-DVI-HDMI/internal/wave"
)

// Analysis is the full derived record for one capture: timing context,
// island statistics and every decoded packet. It is rebuilt from scratch for
// each capture; derived structures are never patched in place.
type Analysis struct {
	CapturePath string        `json:"capturePath,omitempty"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	TimeUnit    string        `json:"timeUnit,omitempty"`
	SampleCount int           `json:"sampleCount"`
	Duration    float64       `json:"duration,omitempty"`
	Timing      TimingSummary `json:"timing"`
	Stats       IslandStats   `json:"islandStats"`
	Packets     []*Packet     `json:"packets"`

	// HSyncTransitions and VSyncTransitions count edges of the sync
	// signals, when present in the capture.
	HSyncTransitions int `json:"hsyncTransitions"`
	VSyncTransitions int `json:"vsyncTransitions"`

	// SignalsSkipped lists analysis steps skipped because a required
	// signal was absent.
	SignalsSkipped []string `json:"signalsSkipped,omitempty"`
}

// Analyze runs the full pipeline over a capture: segmentation, per-island
// decode, timing analysis and sync-signal counting. A missing island enable
// or channel bus skips segmentation but still yields the timing portion.
func Analyze(c *wave.Capture, cfg Config, m *common.Metrics) *Analysis {
	if m == nil {
		m = common.NewMetrics()
	}
	m.Start()
	defer m.Stop()
	m.SetTotalRows(int64(len(c.Rows)))

	a := &Analysis{
		CapturePath: c.Path,
		TimeUnit:    c.TimeUnit,
		SampleCount: len(c.Rows),
	}
	if len(c.Rows) > 0 {
		a.Duration = float64(c.TimeAt(len(c.Rows)-1)) * c.Period
	}

	seg, err := NewSegmenter(c, cfg.Segmenter)
	if err != nil {
		common.Logf("segmentation skipped: %v", err)
		a.SignalsSkipped = append(a.SignalsSkipped, err.Error())
	} else {
		islands := seg.Islands()
		a.Stats = ComputeIslandStats(islands)
		for _, island := range islands {
			m.IncIsland()
			pkt := DecodeIsland(island)
			m.IncPacket()
			m.AddSymbolErrors(int64(pkt.SymbolErrors))
			a.Packets = append(a.Packets, pkt)
		}
	}

	a.Timing = AnalyzeTiming(c, cfg.Segmenter.CounterBus, cfg.VerticalBus)
	a.HSyncTransitions = len(c.Transitions(cfg.HSyncSignal, "", ""))
	a.VSyncTransitions = len(c.Transitions(cfg.VSyncSignal, "", ""))

	m.AddRows(int64(len(c.Rows)))
	return a
}

// PacketTypeCounts tallies packets by resolved name, for the summary
// section of the report.
func (a *Analysis) PacketTypeCounts() map[string]int {
	counts := make(map[string]int)
	for _, p := range a.Packets {
		counts[p.Header.Name()]++
	}
	return counts
}
