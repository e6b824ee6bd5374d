package rules

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/terenceang/TN9K-DVI-HDMI/internal/hdmi"
	"github.com/terenceang/TN9K-DVI-HDMI/internal/wave"
)

type Severity string

const (
	ERROR Severity = "ERROR"
	WARN  Severity = "WARN"
	INFO  Severity = "INFO"
)

type Rule struct {
	RuleId    string         `json:"ruleId"`
	Name      string         `json:"name,omitempty"`
	Scope     string         `json:"scope"` // packet|island|capture
	Severity  Severity       `json:"severity"`
	CheckFunc string         `json:"checkFunction,omitempty"`
	Refs      []string       `json:"refs"`
	Params    map[string]any `json:"params,omitempty"`
	Message   string         `json:"message"`
}

type RulePack struct {
	RulePackId string `json:"rulePackId"`
	Version    string `json:"version"`
	Profile    string `json:"profile"`
	Rules      []Rule `json:"rules"`
}

type Diagnostic struct {
	Ts          time.Time `json:"ts"`
	File        string    `json:"file"`
	PacketIndex int       `json:"packetIndex,omitempty"`
	RuleId      string    `json:"ruleId"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	Refs        []string  `json:"refs"`

	// Capture time of the island the finding points at, when it has one.
	CaptureTime *int `json:"captureTime,omitempty"`
}

type AcceptanceReport struct {
	Summary struct {
		Total    int  `json:"total"`
		Errors   int  `json:"errors"`
		Warnings int  `json:"warnings"`
		Pass     bool `json:"pass"`
	} `json:"summary"`
	Findings []Diagnostic `json:"findings,omitempty"`
}

// Context carries what a check inspects: the capture file, the analyzer
// configuration and the decoded analysis. Analysis is loaded on demand when
// only the file is given.
type Context struct {
	InputFile string
	Config    hdmi.Config
	Analysis  *hdmi.Analysis
}

func (ctx *Context) EnsureAnalysis() error {
	if ctx == nil {
		return errors.New("nil context")
	}
	if ctx.Analysis != nil {
		return nil
	}
	if ctx.InputFile == "" {
		return errors.New("no analysis and no input file")
	}
	c, err := wave.ReadCapture(ctx.InputFile)
	if err != nil {
		return err
	}
	ctx.Analysis = hdmi.Analyze(c, ctx.Config, nil)
	return nil
}

type CheckFunc func(ctx *Context, rule Rule) ([]Diagnostic, error)

type Engine struct {
	rulePack         RulePack
	registry         map[string]CheckFunc
	diagnostics      []Diagnostic
	includeTimeField bool
}

func NewEngine(rp RulePack) *Engine {
	return &Engine{
		rulePack:         rp,
		registry:         make(map[string]CheckFunc),
		includeTimeField: true,
	}
}

func (e *Engine) Register(name string, f CheckFunc) {
	e.registry[name] = f
}

// Eval runs every rule of the pack against the context and retains the
// findings for NDJSON export and the acceptance summary.
func (e *Engine) Eval(ctx *Context) ([]Diagnostic, error) {
	if ctx == nil {
		return nil, errors.New("nil context")
	}
	if err := ctx.EnsureAnalysis(); err != nil {
		return nil, err
	}
	var diags []Diagnostic
	for _, r := range e.rulePack.Rules {
		if r.CheckFunc == "" {
			continue
		}
		fn, ok := e.registry[r.CheckFunc]
		if !ok {
			diags = append(diags, Diagnostic{
				Ts: time.Now(), File: ctx.InputFile, RuleId: r.RuleId, Severity: WARN,
				Message: "no function for rule", Refs: r.Refs,
			})
			continue
		}
		found, err := fn(ctx, r)
		if err != nil {
			diags = append(diags, Diagnostic{
				Ts: time.Now(), File: ctx.InputFile, RuleId: r.RuleId, Severity: ERROR,
				Message: fmt.Sprintf("%s (%v)", r.Message, err), Refs: r.Refs,
			})
			continue
		}
		diags = append(diags, found...)
	}
	e.diagnostics = diags
	return diags, nil
}

func (e *Engine) WriteDiagnosticsNDJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()
	for _, d := range e.diagnostics {
		var b []byte
		if e.includeTimeField {
			b, _ = json.Marshal(d)
		} else {
			b, _ = json.Marshal(d.toNoCaptureTime())
		}
		w.Write(b)
		w.WriteString("\n")
	}
	return nil
}

type diagnosticNoCaptureTime struct {
	Ts          time.Time `json:"ts"`
	File        string    `json:"file"`
	PacketIndex int       `json:"packetIndex,omitempty"`
	RuleId      string    `json:"ruleId"`
	Severity    Severity  `json:"severity"`
	Message     string    `json:"message"`
	Refs        []string  `json:"refs"`
}

func (d Diagnostic) toNoCaptureTime() diagnosticNoCaptureTime {
	return diagnosticNoCaptureTime{
		Ts:          d.Ts,
		File:        d.File,
		PacketIndex: d.PacketIndex,
		RuleId:      d.RuleId,
		Severity:    d.Severity,
		Message:     d.Message,
		Refs:        d.Refs,
	}
}

func (e *Engine) SetConfigValue(key string, value any) {
	if e == nil {
		return
	}
	switch key {
	case "diag.include_capture_times":
		switch v := value.(type) {
		case bool:
			e.includeTimeField = v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				e.includeTimeField = b
			}
		}
	}
}

func (e *Engine) MakeAcceptance() AcceptanceReport {
	var rep AcceptanceReport
	var errs, warns int
	for _, d := range e.diagnostics {
		switch d.Severity {
		case ERROR:
			errs++
		case WARN:
			warns++
		}
	}
	rep.Summary.Total = len(e.diagnostics)
	rep.Summary.Errors = errs
	rep.Summary.Warnings = warns
	rep.Summary.Pass = errs == 0
	rep.Findings = e.diagnostics
	return rep
}

func LoadRulePack(path string) (RulePack, error) {
	var rp RulePack
	b, err := os.ReadFile(path)
	if err != nil {
		return rp, err
	}
	err = json.Unmarshal(b, &rp)
	return rp, err
}
