package hdmi

import (
	"github.com/terenceang/TN9K-DVI-HDMI/internal/wave"
)

// decodeSymbol maps a captured channel value onto its TERC4 symbol. The
// result is unknown both for indeterminate captures and for codes outside
// the 16-entry table; the latter is additionally a decode anomaly.
func decodeSymbol(code wave.Value) (sym wave.Value, anomaly bool) {
	if !code.Known {
		return wave.Unknown, false
	}
	s, ok := DecodeTERC4(uint16(code.Bits))
	if !ok {
		return wave.Unknown, true
	}
	return wave.Known(uint32(s)), false
}

// decodeHeader assembles HB0..HB2 from the first four data samples. Each
// sample contributes 2 bits per channel, least significant window first.
// Complete is false when fewer than four samples are present or any nibble
// was indeterminate.
func decodeHeader(header []Sample) PacketHeader {
	h := PacketHeader{Complete: len(header) >= HeaderLength}
	bytes := [NumChannels]*uint8{&h.HB0, &h.HB1, &h.HB2}

	n := len(header)
	if n > HeaderLength {
		n = HeaderLength
	}
	for i := 0; i < n; i++ {
		for ch := Channel(0); ch < NumChannels; ch++ {
			nibble, _ := decodeSymbol(header[i].Ch[ch])
			h.Nibbles[ch] = append(h.Nibbles[ch], nibble)
			if nibble.Known {
				*bytes[ch] |= uint8(nibble.Bits&0x3) << uint(i*2)
			} else {
				h.Complete = false
			}
		}
	}

	if h.Complete {
		h.Kind, h.KindKnown = KindOf(h.HB0)
	}
	return h
}

// decodeEcc reads the received checksum from the red channel of the four
// samples after the header and derives the expected checksum when the header
// is complete. Match stays unknown whenever the expected value is
// unavailable.
func decodeEcc(ecc []Sample, header PacketHeader) EccResult {
	r := EccResult{Complete: len(ecc) >= EccLength, Match: MatchUnknown, Expected: wave.Unknown}

	n := len(ecc)
	if n > EccLength {
		n = EccLength
	}
	for i := 0; i < n; i++ {
		nibble, _ := decodeSymbol(ecc[i].Ch[ChannelRed])
		r.Nibbles = append(r.Nibbles, nibble)
		if nibble.Known {
			r.Received |= uint8(nibble.Bits&0x3) << uint(i*2)
		} else {
			r.Complete = false
		}
	}

	if header.Complete {
		r.Expected = wave.Known(uint32(ComputeECC(header.HB0, header.HB1, header.HB2)))
		if uint32(r.Received) == r.Expected.Bits {
			r.Match = MatchOK
		} else {
			r.Match = MatchMismatch
		}
	}
	return r
}

// decodeSubPacket turns four payload samples into the sub-packet's seven
// bytes. Byte j is carried on channel j mod 3, two bits per sample assembled
// least significant window first. complete is false when any contributing
// symbol was indeterminate or the window is short.
func decodeSubPacket(payload []Sample, start int) (bytes [SubPacketNumBytes]uint8, complete bool) {
	if start+SubPacketSamples > len(payload) {
		return bytes, false
	}
	complete = true
	for byteIdx := 0; byteIdx < SubPacketNumBytes; byteIdx++ {
		ch := Channel(byteIdx % int(NumChannels))
		for pixel := 0; pixel < SubPacketSamples; pixel++ {
			nibble, _ := decodeSymbol(payload[start+pixel].Ch[ch])
			if !nibble.Known {
				complete = false
				continue
			}
			bytes[byteIdx] |= uint8(nibble.Bits&0x3) << uint(pixel*2)
		}
	}
	return bytes, complete
}

// signExtend24 widens a 24-bit two's-complement sample using bit 23 as the
// sign bit.
func signExtend24(v uint32) int32 {
	v &= 0xFFFFFF
	if v&0x800000 != 0 {
		v |= 0xFF000000
	}
	return int32(v)
}

// decodeAudioSample interprets the payload as up to four PCM sub-packets.
func decodeAudioSample(payload []Sample) *AudioSamplePayload {
	out := &AudioSamplePayload{}
	count := len(payload) / SubPacketSamples
	if count > MaxSubPackets {
		count = MaxSubPackets
	}
	for sp := 0; sp < count; sp++ {
		bytes, complete := decodeSubPacket(payload, sp*SubPacketSamples)
		sub := AudioSubPacket{
			Bytes:    bytes,
			Complete: complete,
			Present:  bytes[0],
			Left:     signExtend24(uint32(bytes[1]) | uint32(bytes[2])<<8 | uint32(bytes[3])<<16),
			Right:    signExtend24(uint32(bytes[4]) | uint32(bytes[5])<<8 | uint32(bytes[6])<<16),
		}
		out.SubPackets = append(out.SubPackets, sub)
	}
	return out
}

// Well-known ACR N values for the standard audio sample rates.
const (
	acrN48kHz = 6144
	acrN44kHz = 6272
	acrN96kHz = 12288
)

// ClassifyACRN labels an N value against the well-known sample rates.
func ClassifyACRN(n wave.Value) string {
	if !n.Known {
		return ""
	}
	switch n.Bits {
	case acrN48kHz:
		return "48 kHz"
	case acrN44kHz:
		return "44.1 kHz"
	case acrN96kHz:
		return "96 kHz"
	}
	if n.Bits > 0 {
		return "custom"
	}
	return ""
}

// acrField packs three sub-packet bytes into a 20-bit CTS or N value.
func acrField(bytes [SubPacketNumBytes]uint8, complete bool) wave.Value {
	if !complete {
		return wave.Unknown
	}
	return wave.Known(uint32(bytes[0]) | uint32(bytes[1])<<8 | uint32(bytes[2]&0x0F)<<16)
}

// decodeACR reads CTS from sub-packet 0 and N from sub-packet 1.
func decodeACR(payload []Sample) *ACRPayload {
	out := &ACRPayload{CTS: wave.Unknown, N: wave.Unknown}
	if len(payload) >= SubPacketSamples {
		bytes, complete := decodeSubPacket(payload, 0)
		out.CTS = acrField(bytes, complete)
	}
	if len(payload) >= 2*SubPacketSamples {
		bytes, complete := decodeSubPacket(payload, SubPacketSamples)
		out.N = acrField(bytes, complete)
	}
	out.SampleRate = ClassifyACRN(out.N)
	return out
}

// expectedCode gives the 10-bit code a channel should carry at a position:
// the fixed pattern inside preamble and guard segments, otherwise the
// re-encoded form of whatever symbol was decoded.
func expectedCode(pattern uint16, symbol wave.Value) wave.Value {
	if pattern != 0 {
		return wave.Known(uint32(pattern))
	}
	if !symbol.Known {
		return wave.Unknown
	}
	return wave.Known(uint32(EncodeTERC4(uint8(symbol.Bits))))
}

// buildSegmentEntries annotates each sample of a segment with the decoded
// symbol, the expected code and the tri-state comparison. pattern is zero for
// data segments. The returned anomaly count tallies captured codes outside
// the TERC4 table.
func buildSegmentEntries(samples []Sample, pattern uint16) ([]SegmentEntry, int) {
	entries := make([]SegmentEntry, 0, len(samples))
	anomalies := 0
	for _, smp := range samples {
		entry := SegmentEntry{Time: smp.Time, HCount: smp.HCount}
		for ch := Channel(0); ch < NumChannels; ch++ {
			code := smp.Ch[ch]
			symbol, anomaly := decodeSymbol(code)
			if anomaly {
				anomalies++
			}
			expected := expectedCode(pattern, symbol)
			match := MatchUnknown
			if code.Known && expected.Known {
				if code.Bits == expected.Bits {
					match = MatchOK
				} else {
					match = MatchMismatch
				}
			}
			entry.Channels[ch] = SymbolDetail{Code: code, Symbol: symbol, Expected: expected, Match: match}
		}
		entries = append(entries, entry)
	}
	return entries, anomalies
}

// DecodeIsland interprets a segmented burst as one packet record. Decoding
// never fails: indeterminate inputs yield incomplete fields and anomalies are
// counted per sample.
func DecodeIsland(island *DataIsland) *Packet {
	p := &Packet{Island: island, TotalSamples: len(island.Samples)}

	p.Header = decodeHeader(island.Segments.Header)
	p.Ecc = decodeEcc(island.Segments.Ecc, p.Header)

	if p.Header.Complete && p.Header.KindKnown {
		switch p.Header.Kind {
		case KindAudioSample:
			p.Audio = decodeAudioSample(island.Segments.Payload)
		case KindAudioClockRegen:
			p.ACR = decodeACR(island.Segments.Payload)
		}
	}

	// Control segments legitimately carry non-TERC4 patterns; only data
	// segments contribute decode anomalies.
	var anomalies int
	p.Detail.Preamble, _ = buildSegmentEntries(island.Segments.Preamble, PreamblePattern)
	p.Detail.LeadingGuard, _ = buildSegmentEntries(island.Segments.LeadingGuard, GuardPattern)
	p.Detail.Header, anomalies = buildSegmentEntries(island.Segments.Header, 0)
	p.SymbolErrors += anomalies
	p.Detail.Ecc, anomalies = buildSegmentEntries(island.Segments.Ecc, 0)
	p.SymbolErrors += anomalies
	p.Detail.Payload, anomalies = buildSegmentEntries(island.Segments.Payload, 0)
	p.SymbolErrors += anomalies
	p.Detail.TrailingGuard, _ = buildSegmentEntries(island.Segments.TrailingGuard, GuardPattern)

	return p
}
