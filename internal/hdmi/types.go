package hdmi

import (
	"fmt"

	"github.com/terenceang/TN9K-DVI-HDMI/internal/wave"
)

// Channel indexes the three TMDS channels. Header byte HB0 travels on the
// red channel, HB1 on green, HB2 on blue; payload bytes rotate across all
// three.
type Channel int

const (
	ChannelRed Channel = iota
	ChannelGreen
	ChannelBlue
	NumChannels
)

var channelNames = [NumChannels]string{"red", "green", "blue"}

func (c Channel) String() string {
	if c < 0 || c >= NumChannels {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelNames[c]
}

// Sample is one captured pixel inside a data island: its row index and time
// in the capture, the horizontal position counter, the island enable and
// preamble indicator flags, and the 10-bit code observed on each channel.
type Sample struct {
	Index    int
	Time     int
	HCount   wave.Value
	Enable   bool
	Preamble bool
	Ch       [NumChannels]wave.Value
}

// TerminationCause records which condition ended a burst.
type TerminationCause string

const (
	TermFallingEdge  TerminationCause = "enable-falling-edge"
	TermCounterWrap  TerminationCause = "counter-wrap"
	TermSampleCap    TerminationCause = "sample-cap"
	TermEndOfCapture TerminationCause = "end-of-capture"
)

// Segments partitions a data island's samples. Preamble and guard segments
// may be empty when they were not structurally confirmed; no two segments
// share a sample.
type Segments struct {
	Preamble      []Sample
	LeadingGuard  []Sample
	Header        []Sample
	Ecc           []Sample
	Payload       []Sample
	TrailingGuard []Sample
}

// DataIsland is one bounded burst of framed auxiliary traffic, decomposed
// into protocol segments.
type DataIsland struct {
	Samples     []Sample
	Termination TerminationCause
	Segments    Segments

	// How the segment boundaries were established: by structural pattern
	// match, or by the fixed-offset fallback.
	PreambleByIndicator    bool
	LeadingGuardByPattern  bool
	TrailingGuardByPattern bool
}

// StartTime and EndTime bound the island in capture time.
func (d *DataIsland) StartTime() int {
	if len(d.Samples) == 0 {
		return 0
	}
	return d.Samples[0].Time
}

func (d *DataIsland) EndTime() int {
	if len(d.Samples) == 0 {
		return 0
	}
	return d.Samples[len(d.Samples)-1].Time
}

// PacketKind is the closed enumeration of known packet types.
type PacketKind uint8

const (
	KindNull            PacketKind = 0x00
	KindAudioClockRegen PacketKind = 0x01
	KindAudioSample     PacketKind = 0x02
	KindGeneralControl  PacketKind = 0x03
	KindAVIInfoFrame    PacketKind = 0x04
	KindSPDInfoFrame    PacketKind = 0x05
	KindAudioInfoFrame  PacketKind = 0x06
	KindMPEGInfoFrame   PacketKind = 0x07
	KindGamutMetadata   PacketKind = 0x0A
	KindVendorInfoFrame PacketKind = 0x0D
)

var packetKindNames = map[PacketKind]string{
	KindNull:            "Null Packet",
	KindAudioClockRegen: "Audio Clock Regeneration (ACR)",
	KindAudioSample:     "Audio Sample Packet",
	KindGeneralControl:  "General Control Packet",
	KindAVIInfoFrame:    "AVI InfoFrame",
	KindSPDInfoFrame:    "Source Product Description InfoFrame",
	KindAudioInfoFrame:  "Audio InfoFrame",
	KindMPEGInfoFrame:   "MPEG Source InfoFrame",
	KindGamutMetadata:   "Gamut Metadata Packet",
	KindVendorInfoFrame: "Vendor-Specific InfoFrame",
}

// KindOf resolves a header type byte against the known kinds.
func KindOf(hb0 uint8) (PacketKind, bool) {
	k := PacketKind(hb0)
	_, ok := packetKindNames[k]
	return k, ok
}

func (k PacketKind) String() string {
	if name, ok := packetKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (0x%02X)", uint8(k))
}

// PacketHeader is the three-byte island packet header assembled from the
// first four data samples. Complete is false when any contributing nibble was
// indeterminate; incomplete headers keep their best-effort byte values but
// must not be treated as authoritative.
type PacketHeader struct {
	HB0, HB1, HB2 uint8
	Complete      bool
	Kind          PacketKind
	KindKnown     bool

	// Per-channel decoded nibbles for diagnostics, one per header sample.
	Nibbles [NumChannels][]wave.Value
}

// Name labels the packet kind, falling back to the Unknown form with the raw
// type byte, or to an incomplete marker when the header could not be fully
// reconstructed.
func (h PacketHeader) Name() string {
	if !h.Complete {
		return "Incomplete header"
	}
	return h.Kind.String()
}

// MatchState is a tri-state comparison outcome.
type MatchState string

const (
	MatchUnknown  MatchState = "unknown"
	MatchOK       MatchState = "ok"
	MatchMismatch MatchState = "mismatch"
)

// EccResult compares the checksum received on the wire against the one the
// header implies. Expected is unknown when the header was incomplete, and
// Match is unknown whenever Expected is. A mismatch is a derived fact about
// the capture, never an error.
type EccResult struct {
	Received uint8
	Complete bool
	Expected wave.Value
	Match    MatchState
	Nibbles  []wave.Value
}

// AudioSubPacket is one decoded 4-sample sub-packet of an Audio Sample
// Packet: a sample-present flag byte and two 24-bit PCM samples sign-extended
// to 32 bits. Complete is false when any contributing symbol was
// indeterminate.
type AudioSubPacket struct {
	Bytes    [7]uint8
	Complete bool
	Present  uint8
	Left     int32
	Right    int32
}

// AudioSamplePayload collects the sub-packets of an Audio Sample Packet.
type AudioSamplePayload struct {
	SubPackets []AudioSubPacket
}

// ACRPayload carries the decoded Audio Clock Regeneration fields. SampleRate
// labels well-known N values and is "custom" for any other positive N.
type ACRPayload struct {
	CTS        wave.Value
	N          wave.Value
	SampleRate string
}

// SymbolDetail is the per-channel decode record for one sample of a segment:
// the captured code, the decoded symbol (unknown when the code matched no
// TERC4 entry), the code expected at that position and the tri-state
// comparison between them.
type SymbolDetail struct {
	Code     wave.Value
	Symbol   wave.Value
	Expected wave.Value
	Match    MatchState
}

// SegmentEntry annotates one sample of a named segment.
type SegmentEntry struct {
	Time     int
	HCount   wave.Value
	Channels [NumChannels]SymbolDetail
}

// SegmentDetail groups the annotated entries for every segment of an island.
type SegmentDetail struct {
	Preamble      []SegmentEntry
	LeadingGuard  []SegmentEntry
	Header        []SegmentEntry
	Ecc           []SegmentEntry
	Payload       []SegmentEntry
	TrailingGuard []SegmentEntry
}

// Packet is the fully decoded record for one data island.
type Packet struct {
	Island       *DataIsland
	Header       PacketHeader
	Ecc          EccResult
	Audio        *AudioSamplePayload
	ACR          *ACRPayload
	Detail       SegmentDetail
	SymbolErrors int
	TotalSamples int
}
