package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/terenceang/TN9K-DVI-HDMI/internal/hdmi"
	"github.com/terenceang/TN9K-DVI-HDMI/internal/wave"
)

// SaveSummary writes the plain-text analysis report next to artifacts the
// capture tooling already produces.
func SaveSummary(a *hdmi.Analysis, out string) error {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteSummary(f, a)
}

// WriteSummary renders the full analysis as a readable text report: capture
// description, timing context, sync activity and the per-packet detail of
// every data island.
func WriteSummary(w io.Writer, a *hdmi.Analysis) error {
	banner(w, "HDMI WAVEFORM ANALYSIS REPORT")
	fmt.Fprintf(w, "Source: %s\n", a.CapturePath)
	if a.Fingerprint != "" {
		fmt.Fprintf(w, "SHA-256: %s\n", a.Fingerprint)
	}
	fmt.Fprintf(w, "Samples: %d\n", a.SampleCount)
	if a.Duration > 0 {
		fmt.Fprintf(w, "Duration: %.2f %s\n", a.Duration, a.TimeUnit)
	}

	writeTimingSection(w, a.Timing)
	writeSyncSection(w, a)
	writeIslandSection(w, a)

	if len(a.SignalsSkipped) > 0 {
		fmt.Fprintln(w)
		for _, s := range a.SignalsSkipped {
			fmt.Fprintf(w, "[-] skipped: %s\n", s)
		}
	}
	return nil
}

func banner(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", 60))
}

func writeTimingSection(w io.Writer, t hdmi.TimingSummary) {
	banner(w, "TIMING ANALYSIS")
	fmt.Fprintln(w, "\n640x480@60Hz VESA Timing:")
	fmt.Fprintf(w, "  H-Total: %d  H-Active: %d\n", hdmi.HTotal, hdmi.HActive)
	fmt.Fprintf(w, "  V-Total: %d  V-Active: %d\n", hdmi.VTotal, hdmi.VActive)

	fmt.Fprintln(w, "\nCapture Range:")
	if t.HRange.Valid {
		fmt.Fprintf(w, "  H_COUNT: %d to %d (of %d total)\n", t.HRange.Min, t.HRange.Max, hdmi.HTotal)
	} else {
		fmt.Fprintln(w, "  H_COUNT: not captured")
	}
	if t.VRange.Valid {
		fmt.Fprintf(w, "  V_COUNT: %d to %d (of %d total)\n", t.VRange.Min, t.VRange.Max, hdmi.VTotal)
	}

	if t.HRegion != "" || t.VRegion != "" {
		fmt.Fprintln(w, "\nFrame Position:")
		if t.HRegion != "" {
			fmt.Fprintf(w, "  Horizontal: %s\n", t.HRegion)
		}
		if t.VRegion != "" {
			fmt.Fprintf(w, "  Vertical: %s\n", t.VRegion)
		}
	}
	if t.LineWraps > 0 {
		fmt.Fprintf(w, "\nLine wraps: %d (detected H-Total %d)\n", t.LineWraps, t.DetectedHTotal)
	}
	if t.FrameWraps > 0 {
		fmt.Fprintf(w, "Frame wraps: %d (detected V-Total %d)\n", t.FrameWraps, t.DetectedVTotal)
	}
}

func writeSyncSection(w io.Writer, a *hdmi.Analysis) {
	banner(w, "SYNC SIGNAL ANALYSIS")
	fmt.Fprintf(w, "\nHSync transitions: %d\n", a.HSyncTransitions)
	fmt.Fprintf(w, "VSync transitions: %d\n", a.VSyncTransitions)
}

var segmentOrder = []struct {
	label   string
	entries func(hdmi.SegmentDetail) []hdmi.SegmentEntry
}{
	{"Preamble", func(d hdmi.SegmentDetail) []hdmi.SegmentEntry { return d.Preamble }},
	{"Guard Band (Start)", func(d hdmi.SegmentDetail) []hdmi.SegmentEntry { return d.LeadingGuard }},
	{"Header Symbols", func(d hdmi.SegmentDetail) []hdmi.SegmentEntry { return d.Header }},
	{"ECC Symbols", func(d hdmi.SegmentDetail) []hdmi.SegmentEntry { return d.Ecc }},
	{"Packet Data", func(d hdmi.SegmentDetail) []hdmi.SegmentEntry { return d.Payload }},
	{"Guard Band (End)", func(d hdmi.SegmentDetail) []hdmi.SegmentEntry { return d.TrailingGuard }},
}

func writeIslandSection(w io.Writer, a *hdmi.Analysis) {
	banner(w, "DATA ISLAND ANALYSIS")
	fmt.Fprintf(w, "\nIslands detected: %d\n", a.Stats.Count)
	if a.Stats.Count > 0 {
		fmt.Fprintf(w, "Island length: mean %.1f, min %d, max %d samples\n",
			a.Stats.Mean, a.Stats.Min, a.Stats.Max)
	}
	if counts := a.PacketTypeCounts(); len(counts) > 0 {
		fmt.Fprintln(w, "Packet types:")
		for _, name := range sortedKeys(counts) {
			fmt.Fprintf(w, "  %s: %d\n", name, counts[name])
		}
	}

	for idx, p := range a.Packets {
		writePacket(w, idx+1, p)
	}
}

func writePacket(w io.Writer, num int, p *hdmi.Packet) {
	fmt.Fprintf(w, "\nPacket #%d\n", num)
	fmt.Fprintf(w, "  Time range: %d -> %d\n", p.Island.StartTime(), p.Island.EndTime())
	fmt.Fprintf(w, "  H_COUNT range: %s -> %s\n",
		fmtCount(firstHCount(p.Island)), fmtCount(lastHCount(p.Island)))
	fmt.Fprintf(w, "  Samples captured: %d (terminated by %s)\n", p.TotalSamples, p.Island.Termination)

	if p.Header.Complete {
		fmt.Fprintf(w, "  Packet Type: %s (0x%02X)\n", p.Header.Name(), p.Header.HB0)
	} else {
		fmt.Fprintf(w, "  Packet Type: %s\n", p.Header.Name())
	}
	fmt.Fprintf(w, "  Header Bytes: HB0=%s, HB1=%s, HB2=%s\n",
		fmtByte(headerByte(p.Header, hdmi.ChannelRed, p.Header.HB0)),
		fmtByte(headerByte(p.Header, hdmi.ChannelGreen, p.Header.HB1)),
		fmtByte(headerByte(p.Header, hdmi.ChannelBlue, p.Header.HB2)))

	received := wave.Unknown
	if p.Ecc.Complete {
		received = wave.Known(uint32(p.Ecc.Received))
	}
	fmt.Fprintf(w, "  ECC Byte: received=%s, expected=%s, status=%s\n",
		fmtByte(received), fmtByte(p.Ecc.Expected), eccStatus(p.Ecc.Match))

	if p.ACR != nil {
		rate := p.ACR.SampleRate
		if rate == "" {
			rate = "unknown"
		}
		fmt.Fprintf(w, "  ACR: CTS=%s, N=%s (%s)\n", fmtCount(p.ACR.CTS), fmtCount(p.ACR.N), rate)
	}
	if p.Audio != nil {
		for i, sub := range p.Audio.SubPackets {
			if !sub.Complete {
				fmt.Fprintf(w, "  Audio sub-packet %d: incomplete\n", i)
				continue
			}
			fmt.Fprintf(w, "  Audio sub-packet %d: present=0x%02X L=%d R=%d\n",
				i, sub.Present, sub.Left, sub.Right)
		}
	}
	if p.SymbolErrors > 0 {
		fmt.Fprintf(w, "  Symbol anomalies: %d\n", p.SymbolErrors)
	}

	for _, seg := range segmentOrder {
		entries := seg.entries(p.Detail)
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s:\n", seg.label)
		for _, entry := range entries {
			writeSegmentEntry(w, entry)
		}
	}
}

func writeSegmentEntry(w io.Writer, entry hdmi.SegmentEntry) {
	parts := make([]string, 0, int(hdmi.NumChannels))
	for ch := hdmi.Channel(0); ch < hdmi.NumChannels; ch++ {
		d := entry.Channels[ch]
		name := strings.ToUpper(ch.String()[:1])
		part := fmt.Sprintf("%s:%s/%s %s", name, fmtHex(d.Code), fmtHex(d.Expected), fmtMatch(d.Match))
		if d.Symbol.Known {
			part += fmt.Sprintf(" nib:0x%X", d.Symbol.Bits)
		}
		parts = append(parts, part)
	}
	fmt.Fprintf(w, "    H:%4s Time:%6d | %s\n", fmtCount(entry.HCount), entry.Time, strings.Join(parts, "  "))
}

func firstHCount(d *hdmi.DataIsland) wave.Value {
	if len(d.Samples) == 0 {
		return wave.Unknown
	}
	return d.Samples[0].HCount
}

func lastHCount(d *hdmi.DataIsland) wave.Value {
	if len(d.Samples) == 0 {
		return wave.Unknown
	}
	return d.Samples[len(d.Samples)-1].HCount
}

// headerByte reports the assembled byte for one channel as long as every
// contributing nibble was determinate.
func headerByte(h hdmi.PacketHeader, ch hdmi.Channel, assembled uint8) wave.Value {
	nibbles := h.Nibbles[ch]
	if len(nibbles) < hdmi.HeaderLength {
		return wave.Unknown
	}
	for _, n := range nibbles {
		if !n.Known {
			return wave.Unknown
		}
	}
	return wave.Known(uint32(assembled))
}

func fmtHex(v wave.Value) string {
	if !v.Known {
		return "----"
	}
	return fmt.Sprintf("0x%03X", v.Bits)
}

func fmtByte(v wave.Value) string {
	if !v.Known {
		return "--"
	}
	return fmt.Sprintf("0x%02X", v.Bits)
}

func fmtCount(v wave.Value) string {
	if !v.Known {
		return "N/A"
	}
	return fmt.Sprintf("%d", v.Bits)
}

func fmtMatch(m hdmi.MatchState) string {
	switch m {
	case hdmi.MatchOK:
		return "OK "
	case hdmi.MatchMismatch:
		return "ERR"
	}
	return "   "
}

func eccStatus(m hdmi.MatchState) string {
	switch m {
	case hdmi.MatchOK:
		return "OK"
	case hdmi.MatchMismatch:
		return "MISMATCH"
	}
	return "N/A"
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
