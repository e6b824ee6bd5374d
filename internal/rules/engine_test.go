package rules

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terenceang/TN9K-DVI-HDMI/internal/hdmi"
)

func bytesTrimSplit(data []byte) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestWriteDiagnosticsNDJSON(t *testing.T) {
	eng := NewEngine(RulePack{})
	eng.diagnostics = []Diagnostic{
		{
			Ts: time.Unix(0, 0), File: "capture.csv", RuleId: "HDMI-ECC-1",
			Severity: ERROR, Message: "checksum mismatch", Refs: []string{"ref"},
			PacketIndex: 2, CaptureTime: intPtr(661),
		},
		{
			Ts: time.Unix(1, 0), File: "capture.csv", RuleId: "HDMI-GB-1",
			Severity: INFO, Message: "guard bands present", Refs: []string{"ref"},
		},
	}

	outPath := filepath.Join(t.TempDir(), "diagnostics.jsonl")
	require.NoError(t, eng.WriteDiagnosticsNDJSON(outPath))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	lines := bytesTrimSplit(data)
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.EqualValues(t, 661, first["captureTime"])
	assert.EqualValues(t, 2, first["packetIndex"])

	// The second finding has no island to point at.
	var second map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &second))
	_, present := second["captureTime"]
	assert.False(t, present)
}

func TestWriteDiagnosticsNDJSONWithoutCaptureTimes(t *testing.T) {
	eng := NewEngine(RulePack{})
	eng.SetConfigValue("diag.include_capture_times", "false")
	eng.diagnostics = []Diagnostic{
		{Ts: time.Unix(0, 0), RuleId: "HDMI-ECC-1", Severity: ERROR, CaptureTime: intPtr(10)},
	}

	outPath := filepath.Join(t.TempDir(), "diagnostics.jsonl")
	require.NoError(t, eng.WriteDiagnosticsNDJSON(outPath))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	lines := bytesTrimSplit(data)
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	_, present := entry["captureTime"]
	assert.False(t, present)
}

func TestMakeAcceptance(t *testing.T) {
	eng := NewEngine(RulePack{})
	eng.diagnostics = []Diagnostic{
		{Severity: ERROR}, {Severity: WARN}, {Severity: WARN}, {Severity: INFO},
	}
	rep := eng.MakeAcceptance()
	assert.Equal(t, 4, rep.Summary.Total)
	assert.Equal(t, 1, rep.Summary.Errors)
	assert.Equal(t, 2, rep.Summary.Warnings)
	assert.False(t, rep.Summary.Pass)

	eng.diagnostics = []Diagnostic{{Severity: INFO}}
	rep = eng.MakeAcceptance()
	assert.True(t, rep.Summary.Pass)
}

func TestLoadRulePack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.json")
	content := `{
  "rulePackId": "hdmi-di-custom",
  "version": "0.1.0",
  "profile": "bench",
  "rules": [
    {"ruleId": "HDMI-ECC-1", "scope": "packet", "severity": "ERROR",
     "checkFunction": "CheckEccMatch", "refs": ["r"], "message": "m"}
  ]
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rp, err := LoadRulePack(path)
	require.NoError(t, err)
	assert.Equal(t, "hdmi-di-custom", rp.RulePackId)
	require.Len(t, rp.Rules, 1)
	assert.Equal(t, "CheckEccMatch", rp.Rules[0].CheckFunc)
	assert.Equal(t, ERROR, rp.Rules[0].Severity)
}

func TestEvalUnknownFunction(t *testing.T) {
	eng := NewEngine(RulePack{Rules: []Rule{{RuleId: "T-1", CheckFunc: "Nope", Refs: []string{"r"}}}})
	ctx := &Context{Analysis: &hdmi.Analysis{}}
	diags, err := eng.Eval(ctx)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, WARN, diags[0].Severity)
	assert.Equal(t, "no function for rule", diags[0].Message)
}

func TestEvalNeedsAnalysisOrFile(t *testing.T) {
	eng := NewEngine(RulePack{})
	_, err := eng.Eval(&Context{})
	assert.Error(t, err)
}
