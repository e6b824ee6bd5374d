package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/terenceang/TN9K-DVI-HDMI/internal/hdmi"
	"github.com/terenceang/TN9K-DVI-HDMI/internal/wave"
)

func sampleAnalysis() *hdmi.Analysis {
	island := &hdmi.DataIsland{
		Samples: []hdmi.Sample{
			{Time: 10, HCount: wave.Known(660)},
			{Time: 11, HCount: wave.Known(661)},
		},
		Termination: hdmi.TermFallingEdge,
	}
	packet := &hdmi.Packet{
		Island: island,
		Header: hdmi.PacketHeader{
			HB0: 0x01, Complete: true, Kind: hdmi.KindAudioClockRegen, KindKnown: true,
			Nibbles: [hdmi.NumChannels][]wave.Value{
				{wave.Known(1), wave.Known(0), wave.Known(0), wave.Known(0)},
				{wave.Known(0), wave.Known(0), wave.Known(0), wave.Known(0)},
				{wave.Known(0), wave.Known(0), wave.Known(0), wave.Known(0)},
			},
		},
		Ecc: hdmi.EccResult{
			Received: 0x75, Complete: true,
			Expected: wave.Known(0x75), Match: hdmi.MatchOK,
		},
		ACR:          &hdmi.ACRPayload{CTS: wave.Known(28000), N: wave.Known(6144), SampleRate: "48 kHz"},
		TotalSamples: 2,
	}
	packet.Detail.Header = []hdmi.SegmentEntry{
		{
			Time:   10,
			HCount: wave.Known(660),
			Channels: [hdmi.NumChannels]hdmi.SymbolDetail{
				{Code: wave.Known(0x263), Symbol: wave.Known(1), Expected: wave.Known(0x263), Match: hdmi.MatchOK},
				{Code: wave.Known(0x29C), Symbol: wave.Known(0), Expected: wave.Known(0x29C), Match: hdmi.MatchOK},
				{Code: wave.Unknown, Symbol: wave.Unknown, Expected: wave.Unknown, Match: hdmi.MatchUnknown},
			},
		},
	}
	return &hdmi.Analysis{
		CapturePath: "capture.csv",
		Fingerprint: "abc123",
		TimeUnit:    "ns",
		SampleCount: 100,
		Duration:    3968.25,
		Timing: hdmi.TimingSummary{
			HRange:  hdmi.CounterRange{Min: 650, Max: 700, Valid: true},
			HRegion: "Horizontal Blanking",
		},
		Stats:            hdmi.IslandStats{Count: 1, Mean: 2, Min: 2, Max: 2},
		Packets:          []*hdmi.Packet{packet},
		HSyncTransitions: 4,
		VSyncTransitions: 0,
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, sampleAnalysis()); err != nil {
		t.Fatalf("write summary: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"HDMI WAVEFORM ANALYSIS REPORT",
		"Source: capture.csv",
		"SHA-256: abc123",
		"Samples: 100",
		"Duration: 3968.25 ns",
		"H_COUNT: 650 to 700 (of 800 total)",
		"Horizontal: Horizontal Blanking",
		"HSync transitions: 4",
		"Islands detected: 1",
		"Packet #1",
		"Packet Type: Audio Clock Regeneration (ACR) (0x01)",
		"Header Bytes: HB0=0x01, HB1=0x00, HB2=0x00",
		"ECC Byte: received=0x75, expected=0x75, status=OK",
		"ACR: CTS=28000, N=6144 (48 kHz)",
		"Header Symbols:",
		"R:0x263/0x263 OK  nib:0x1",
		"B:----/----",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q\n---\n%s", want, out)
		}
	}
}

func TestWriteSummaryIncompleteHeader(t *testing.T) {
	a := sampleAnalysis()
	a.Packets[0].Header = hdmi.PacketHeader{}
	a.Packets[0].Ecc = hdmi.EccResult{Match: hdmi.MatchUnknown}

	var buf bytes.Buffer
	if err := WriteSummary(&buf, a); err != nil {
		t.Fatalf("write summary: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Packet Type: Incomplete header",
		"Header Bytes: HB0=--, HB1=--, HB2=--",
		"ECC Byte: received=--, expected=--, status=N/A",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q\n---\n%s", want, out)
		}
	}
}

func TestWriteSummarySkippedSignals(t *testing.T) {
	a := &hdmi.Analysis{SignalsSkipped: []string{"signal unavailable in capture: data_island_enable"}}
	var buf bytes.Buffer
	if err := WriteSummary(&buf, a); err != nil {
		t.Fatalf("write summary: %v", err)
	}
	if !strings.Contains(buf.String(), "[-] skipped: signal unavailable") {
		t.Fatalf("skipped note missing:\n%s", buf.String())
	}
}
