package rules

import (
	"fmt"
	"time"

	"github.com/terenceang/TN9K-DVI-HDMI/internal/hdmi"
)

func intPtr(v int) *int { return &v }

func (e *Engine) RegisterBuiltins() {
	e.Register("CheckEccMatch", CheckEccMatch)
	e.Register("CheckGuardBands", CheckGuardBands)
	e.Register("CheckPreambleLength", CheckPreambleLength)
	e.Register("CheckSymbolAnomalies", CheckSymbolAnomalies)
	e.Register("CheckIslandTermination", CheckIslandTermination)
	e.Register("CheckPacketKinds", CheckPacketKinds)
	e.Register("CheckAudioClockRate", CheckAudioClockRate)
}

func baseDiag(ctx *Context, rule Rule, sev Severity, msg string) Diagnostic {
	return Diagnostic{
		Ts: time.Now(), File: ctx.InputFile, RuleId: rule.RuleId,
		Severity: sev, Message: msg, Refs: rule.Refs,
	}
}

func packetDiag(ctx *Context, rule Rule, idx int, p *hdmi.Packet, sev Severity, msg string) Diagnostic {
	d := baseDiag(ctx, rule, sev, msg)
	d.PacketIndex = idx
	d.CaptureTime = intPtr(p.Island.StartTime())
	return d
}

// CheckEccMatch flags every packet whose received checksum disagrees with
// the one its header implies, and warns when the comparison stayed
// indeterminate.
func CheckEccMatch(ctx *Context, rule Rule) ([]Diagnostic, error) {
	var out []Diagnostic
	for idx, p := range ctx.Analysis.Packets {
		switch p.Ecc.Match {
		case hdmi.MatchMismatch:
			out = append(out, packetDiag(ctx, rule, idx, p, ERROR,
				fmt.Sprintf("checksum mismatch: received 0x%02X, expected 0x%02X",
					p.Ecc.Received, p.Ecc.Expected.Bits)))
		case hdmi.MatchUnknown:
			out = append(out, packetDiag(ctx, rule, idx, p, WARN,
				"checksum comparison indeterminate"))
		}
	}
	if len(out) == 0 {
		out = append(out, baseDiag(ctx, rule, INFO,
			fmt.Sprintf("checksums verified on %d packets", len(ctx.Analysis.Packets))))
	}
	return out, nil
}

// CheckGuardBands warns for islands whose guard bands were placed by the
// fixed-offset fallback rather than found on the wire.
func CheckGuardBands(ctx *Context, rule Rule) ([]Diagnostic, error) {
	var out []Diagnostic
	for idx, p := range ctx.Analysis.Packets {
		d := p.Island
		if !d.LeadingGuardByPattern {
			out = append(out, packetDiag(ctx, rule, idx, p, WARN, "leading guard band not observed"))
		}
		if !d.TrailingGuardByPattern {
			out = append(out, packetDiag(ctx, rule, idx, p, WARN, "trailing guard band not observed"))
		}
	}
	if len(out) == 0 {
		out = append(out, baseDiag(ctx, rule, INFO, "guard bands present on every island"))
	}
	return out, nil
}

// CheckPreambleLength warns when an indicator-bounded preamble deviates from
// the nominal eight pixels.
func CheckPreambleLength(ctx *Context, rule Rule) ([]Diagnostic, error) {
	var out []Diagnostic
	for idx, p := range ctx.Analysis.Packets {
		d := p.Island
		if !d.PreambleByIndicator {
			continue
		}
		if n := len(d.Segments.Preamble); n != hdmi.PreambleLength {
			out = append(out, packetDiag(ctx, rule, idx, p, WARN,
				fmt.Sprintf("preamble is %d pixels, nominal %d", n, hdmi.PreambleLength)))
		}
	}
	if len(out) == 0 {
		out = append(out, baseDiag(ctx, rule, INFO, "preamble lengths nominal"))
	}
	return out, nil
}

// CheckSymbolAnomalies warns for packets whose data segments carried codes
// outside the symbol table.
func CheckSymbolAnomalies(ctx *Context, rule Rule) ([]Diagnostic, error) {
	var out []Diagnostic
	var total int
	for idx, p := range ctx.Analysis.Packets {
		if p.SymbolErrors > 0 {
			total += p.SymbolErrors
			out = append(out, packetDiag(ctx, rule, idx, p, WARN,
				fmt.Sprintf("%d of %d data symbols undecodable", p.SymbolErrors, 3*p.TotalSamples)))
		}
	}
	if len(out) == 0 {
		out = append(out, baseDiag(ctx, rule, INFO, "all data symbols decoded"))
	}
	return out, nil
}

// CheckIslandTermination warns for bursts that only ended because the sample
// cap cut them off, which points at a stuck enable or a runaway burst.
func CheckIslandTermination(ctx *Context, rule Rule) ([]Diagnostic, error) {
	var out []Diagnostic
	for idx, p := range ctx.Analysis.Packets {
		switch p.Island.Termination {
		case hdmi.TermSampleCap:
			out = append(out, packetDiag(ctx, rule, idx, p, WARN,
				fmt.Sprintf("burst cut off at the %d-sample cap", p.TotalSamples)))
		case hdmi.TermEndOfCapture:
			out = append(out, packetDiag(ctx, rule, idx, p, INFO,
				"burst truncated by the end of the capture"))
		}
	}
	if len(out) == 0 {
		out = append(out, baseDiag(ctx, rule, INFO, "all bursts terminated cleanly"))
	}
	return out, nil
}

// CheckPacketKinds warns for unrecognized header type bytes and for headers
// that never fully resolved.
func CheckPacketKinds(ctx *Context, rule Rule) ([]Diagnostic, error) {
	var out []Diagnostic
	for idx, p := range ctx.Analysis.Packets {
		if !p.Header.Complete {
			out = append(out, packetDiag(ctx, rule, idx, p, WARN, "header incomplete"))
			continue
		}
		if !p.Header.KindKnown {
			out = append(out, packetDiag(ctx, rule, idx, p, WARN,
				fmt.Sprintf("unrecognized packet type 0x%02X", p.Header.HB0)))
		}
	}
	if len(out) == 0 {
		out = append(out, baseDiag(ctx, rule, INFO, "all packet types recognized"))
	}
	return out, nil
}

// CheckAudioClockRate warns when an ACR packet carries an N value that maps
// to no standard audio sample rate.
func CheckAudioClockRate(ctx *Context, rule Rule) ([]Diagnostic, error) {
	var out []Diagnostic
	var acrs int
	for idx, p := range ctx.Analysis.Packets {
		if p.ACR == nil {
			continue
		}
		acrs++
		switch p.ACR.SampleRate {
		case "custom":
			out = append(out, packetDiag(ctx, rule, idx, p, WARN,
				fmt.Sprintf("nonstandard ACR N value %d", p.ACR.N.Bits)))
		case "":
			out = append(out, packetDiag(ctx, rule, idx, p, WARN, "ACR N value indeterminate"))
		}
	}
	if len(out) == 0 {
		out = append(out, baseDiag(ctx, rule, INFO,
			fmt.Sprintf("audio clock regeneration nominal on %d packets", acrs)))
	}
	return out, nil
}

// DefaultRulePack is the built-in compliance profile for captures of the
// 640x480 reference design.
func DefaultRulePack() RulePack {
	return RulePack{
		RulePackId: "hdmi-di-default",
		Version:    "1.0.0",
		Profile:    "dvi-hdmi-1.4",
		Rules: []Rule{
			{RuleId: "HDMI-ECC-1", Name: "Header checksum", Scope: "packet", Severity: ERROR,
				CheckFunc: "CheckEccMatch", Refs: []string{"HDMI 1.4b 5.2.3.4"},
				Message: "packet header checksum must verify"},
			{RuleId: "HDMI-GB-1", Name: "Guard bands", Scope: "island", Severity: WARN,
				CheckFunc: "CheckGuardBands", Refs: []string{"HDMI 1.4b 5.2.3.3"},
				Message: "data islands must be bracketed by guard bands"},
			{RuleId: "HDMI-PRE-1", Name: "Preamble length", Scope: "island", Severity: WARN,
				CheckFunc: "CheckPreambleLength", Refs: []string{"HDMI 1.4b 5.2.1.1"},
				Message: "data island preamble is eight pixels"},
			{RuleId: "HDMI-SYM-1", Name: "Symbol validity", Scope: "packet", Severity: WARN,
				CheckFunc: "CheckSymbolAnomalies", Refs: []string{"HDMI 1.4b 5.4.3"},
				Message: "data periods carry only TERC4 codes"},
			{RuleId: "HDMI-TERM-1", Name: "Burst termination", Scope: "island", Severity: WARN,
				CheckFunc: "CheckIslandTermination", Refs: []string{"HDMI 1.4b 5.2.3.1"},
				Message: "data islands end before the blanking interval does"},
			{RuleId: "HDMI-KIND-1", Name: "Packet types", Scope: "packet", Severity: WARN,
				CheckFunc: "CheckPacketKinds", Refs: []string{"HDMI 1.4b 5.3.1"},
				Message: "packet type bytes come from the defined set"},
			{RuleId: "HDMI-ACR-1", Name: "Audio clock regeneration", Scope: "packet", Severity: WARN,
				CheckFunc: "CheckAudioClockRate", Refs: []string{"HDMI 1.4b 7.2.3"},
				Message: "ACR N selects a standard audio rate"},
		},
	}
}
