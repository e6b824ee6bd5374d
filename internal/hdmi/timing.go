package hdmi

import (
	"gonum.org/v1/gonum/stat"

	"github.com/terenceang/TN9K-DVI-HDMI/internal/wave"
)

// 640x480@60Hz VESA timing the reference design drives.
const (
	HActive = 640
	HTotal  = 800
	VActive = 480
	VTotal  = 525
)

// CounterRange bounds the known values of a position counter over the
// capture. Valid is false when the bus is absent or carried no known value.
type CounterRange struct {
	Min   uint32 `json:"min"`
	Max   uint32 `json:"max"`
	Valid bool   `json:"valid"`
}

func rangeOf(values []wave.Value) CounterRange {
	var r CounterRange
	for _, v := range values {
		if !v.Known {
			continue
		}
		if !r.Valid {
			r.Min, r.Max, r.Valid = v.Bits, v.Bits, true
			continue
		}
		if v.Bits < r.Min {
			r.Min = v.Bits
		}
		if v.Bits > r.Max {
			r.Max = v.Bits
		}
	}
	return r
}

// Region classifies a counter range against an active/total split.
func (r CounterRange) Region(active uint32, activeLabel, blankLabel string) string {
	if !r.Valid {
		return ""
	}
	switch {
	case r.Max < active:
		return activeLabel
	case r.Min >= active:
		return blankLabel
	default:
		return activeLabel + " + " + blankLabel
	}
}

// TimingSummary describes where in the frame the capture sits and what line
// and frame totals the counter wraps imply.
type TimingSummary struct {
	HRange         CounterRange `json:"hRange"`
	VRange         CounterRange `json:"vRange"`
	HRegion        string       `json:"hRegion,omitempty"`
	VRegion        string       `json:"vRegion,omitempty"`
	LineWraps      int          `json:"lineWraps"`
	FrameWraps     int          `json:"frameWraps"`
	DetectedHTotal uint32       `json:"detectedHTotal,omitempty"`
	DetectedVTotal uint32       `json:"detectedVTotal,omitempty"`
}

// countWraps walks a counter bus and reports the number of wraps and the
// largest value seen immediately before one, both over known samples only.
func countWraps(values []wave.Value) (wraps int, maxBefore uint32) {
	prev := wave.Unknown
	for _, v := range values {
		if prev.Known && v.Known && v.Bits < prev.Bits {
			wraps++
			if prev.Bits > maxBefore {
				maxBefore = prev.Bits
			}
		}
		if v.Known {
			prev = v
		} else {
			prev = wave.Unknown
		}
	}
	return wraps, maxBefore
}

// AnalyzeTiming inspects the horizontal and vertical counter buses. Either
// bus may be absent; the corresponding fields stay zero.
func AnalyzeTiming(c *wave.Capture, hBus, vBus string) TimingSummary {
	var s TimingSummary
	if h, ok := c.Bus(hBus); ok {
		s.HRange = rangeOf(h)
		s.HRegion = s.HRange.Region(HActive, "Active Video", "Horizontal Blanking")
		var maxBefore uint32
		s.LineWraps, maxBefore = countWraps(h)
		if s.LineWraps > 0 {
			s.DetectedHTotal = maxBefore + 1
		}
	}
	if v, ok := c.Bus(vBus); ok {
		s.VRange = rangeOf(v)
		s.VRegion = s.VRange.Region(VActive, "Active Video", "Vertical Blanking")
		var maxBefore uint32
		s.FrameWraps, maxBefore = countWraps(v)
		if s.FrameWraps > 0 {
			s.DetectedVTotal = maxBefore + 1
		}
	}
	return s
}

// IslandStats summarizes island durations in samples.
type IslandStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   int     `json:"min"`
	Max   int     `json:"max"`
}

// ComputeIslandStats aggregates the lengths of the detected islands.
func ComputeIslandStats(islands []*DataIsland) IslandStats {
	s := IslandStats{Count: len(islands)}
	if len(islands) == 0 {
		return s
	}
	durations := make([]float64, len(islands))
	s.Min = len(islands[0].Samples)
	for i, island := range islands {
		n := len(island.Samples)
		durations[i] = float64(n)
		if n < s.Min {
			s.Min = n
		}
		if n > s.Max {
			s.Max = n
		}
	}
	s.Mean = stat.Mean(durations, nil)
	return s
}
