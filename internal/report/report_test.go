package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/terenceang/TN9K-DVI-HDMI/internal/rules"
)

func TestAnalysisJSONRoundTrip(t *testing.T) {
	a := sampleAnalysis()
	path := filepath.Join(t.TempDir(), "analysis.json")
	if err := SaveAnalysisJSON(a, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	back, err := LoadAnalysisJSON(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if back.CapturePath != a.CapturePath || back.SampleCount != a.SampleCount {
		t.Fatalf("round trip lost capture identity: %+v", back)
	}
	if len(back.Packets) != 1 {
		t.Fatalf("got %d packets, want 1", len(back.Packets))
	}
	p := back.Packets[0]
	if !p.Header.Complete || p.Header.HB0 != 0x01 {
		t.Fatalf("header = %+v", p.Header)
	}
	if !p.ACR.N.Equals(6144) {
		t.Fatalf("ACR N = %+v, want 6144", p.ACR.N)
	}
	// Indeterminate channel detail survives as null.
	if p.Detail.Header[0].Channels[2].Code.Known {
		t.Fatal("indeterminate code became known through JSON")
	}
}

func TestAcceptanceJSONRoundTrip(t *testing.T) {
	var rep rules.AcceptanceReport
	rep.Summary.Total = 2
	rep.Summary.Errors = 1
	rep.Findings = []rules.Diagnostic{
		{Ts: time.Unix(0, 0).UTC(), RuleId: "HDMI-ECC-1", Severity: rules.ERROR, Message: "m"},
	}
	path := filepath.Join(t.TempDir(), "acceptance.json")
	if err := SaveAcceptanceJSON(rep, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	back, err := LoadAcceptanceJSON(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if back.Summary.Total != 2 || back.Summary.Errors != 1 {
		t.Fatalf("summary = %+v", back.Summary)
	}
	if len(back.Findings) != 1 || back.Findings[0].RuleId != "HDMI-ECC-1" {
		t.Fatalf("findings = %+v", back.Findings)
	}
}

func TestSaveAnalysisPDF(t *testing.T) {
	var rep rules.AcceptanceReport
	rep.Summary.Pass = true
	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := SaveAnalysisPDF(sampleAnalysis(), rep, path); err != nil {
		t.Fatalf("save pdf: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF, starts with %q", data[:4])
	}
}

func TestFingerprintToQR(t *testing.T) {
	png, err := FingerprintToQR("ab12cd34", 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("output is not a PNG")
	}
	if _, err := FingerprintToQR("  ", 128); err == nil {
		t.Fatal("expected error for empty fingerprint")
	}
	if _, err := FingerprintToQR("zz--!!", 128); err == nil {
		t.Fatal("expected error for fingerprint with no hex digits")
	}
}
