package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/terenceang/TN9K-DVI-HDMI/internal/common"
	"github.com/terenceang/TN9K-DVI-HDMI/internal/hdmi"
	"github.com/terenceang/TN9K-DVI-HDMI/internal/report"
	"github.com/terenceang/TN9K-DVI-HDMI/internal/rules"
	"github.com/terenceang/TN9K-DVI-HDMI/internal/wave"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	switch os.Args[1] {
	case "analyze":
		analyzeCmd(os.Args[2:])
	case "check":
		checkCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	case "test-ecc":
		testEccCmd(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Printf(`hdmiwave %s (built %s) <command> [options]

Commands:
  analyze   --in <capture.csv> [--config <analyzer.yaml>] [--time-unit <unit>] [--json <analysis.json>] [--export <summary.txt>] [--metrics] [--progress]
  check     --in <capture.csv> [--config <analyzer.yaml>] [--rules <rulepack.json>] [--out <diagnostics.ndjson>] [--acceptance <acceptance.json>] [--pdf <report.pdf>]
  report    --analysis <analysis.json> --acceptance <acceptance.json> --pdf <report.pdf> [--qr <fingerprint.png>]
  test-ecc  --header <hb0,hb1,hb2> --received <byte> [--poly <byte>[,<byte>...]]
`, version, buildDate)
}

func loadCapture(in, configPath, timeUnit string) (*wave.Capture, hdmi.Config, error) {
	cfg := hdmi.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = hdmi.LoadConfig(configPath)
		if err != nil {
			return nil, cfg, fmt.Errorf("load config: %w", err)
		}
	}
	capture, err := wave.ReadCapture(in)
	if err != nil {
		return nil, cfg, fmt.Errorf("read capture: %w", err)
	}
	if timeUnit != "" {
		if err := capture.SetTimeUnit(timeUnit); err != nil {
			return nil, cfg, fmt.Errorf("time unit: %w", err)
		}
	}
	return capture, cfg, nil
}

func analyzeCmd(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	in := fs.String("in", "", "input capture CSV")
	configPath := fs.String("config", "", "analyzer YAML configuration")
	timeUnit := fs.String("time-unit", "", "override the capture time unit (ns, us, ms or a sample clock like 25.2MHz)")
	jsonOut := fs.String("json", "", "write the full analysis record as JSON")
	exportPath := fs.String("export", "", "write the plain-text summary")
	metricsFlag := fs.Bool("metrics", false, "print analysis throughput metrics")
	progressFlag := fs.Bool("progress", false, "display progress updates")
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	capture, cfg, err := loadCapture(*in, *configPath, *timeUnit)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	var metrics *common.Metrics
	if *metricsFlag || *progressFlag {
		metrics = common.NewMetrics()
		metrics.SetTotalRows(int64(len(capture.Rows)))
		metrics.Start()
	}
	var stopProgress func()
	if metrics != nil && *progressFlag {
		stopProgress = common.StartProgressPrinter(os.Stderr, metrics, 500*time.Millisecond)
	}
	analysis := hdmi.Analyze(capture, cfg, metrics)
	if stopProgress != nil {
		stopProgress()
	}
	if metrics != nil {
		metrics.Stop()
	}
	if hash, _, err := common.Sha256OfFile(*in); err == nil {
		analysis.Fingerprint = hash
	}

	if *jsonOut != "" {
		if err := report.SaveAnalysisJSON(analysis, *jsonOut); err != nil {
			fmt.Println("write analysis:", err)
			os.Exit(1)
		}
	}
	if *exportPath != "" {
		if err := report.SaveSummary(analysis, *exportPath); err != nil {
			fmt.Println("write summary:", err)
			os.Exit(1)
		}
		fmt.Println("Wrote", *exportPath)
	} else {
		if err := report.WriteSummary(os.Stdout, analysis); err != nil {
			fmt.Println("render summary:", err)
			os.Exit(1)
		}
	}
	if metrics != nil && *metricsFlag {
		snap := metrics.Snapshot()
		fmt.Printf("Metrics: duration=%s rows=%d islands=%d packets=%d symbolErrors=%d (%.0f rows/s)\n",
			snap.Duration.Round(10*time.Millisecond),
			snap.Rows, snap.Islands, snap.Packets, snap.SymbolErrors,
			snap.RowsPerSecond())
	}
}

func checkCmd(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	in := fs.String("in", "", "input capture CSV")
	configPath := fs.String("config", "", "analyzer YAML configuration")
	timeUnit := fs.String("time-unit", "", "override the capture time unit")
	rulesPath := fs.String("rules", "", "rule pack JSON (defaults to the built-in pack)")
	outDiag := fs.String("out", "diagnostics.ndjson", "diagnostics output")
	outAcc := fs.String("acceptance", "acceptance_report.json", "acceptance json")
	pdfPath := fs.String("pdf", "", "also render the analysis report PDF")
	includeTimes := fs.Bool("diag-include-capture-times", true, "include capture times in diagnostics output")
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	capture, cfg, err := loadCapture(*in, *configPath, *timeUnit)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	rp := rules.DefaultRulePack()
	if *rulesPath != "" {
		rp, err = rules.LoadRulePack(*rulesPath)
		if err != nil {
			fmt.Println("load rulepack:", err)
			os.Exit(1)
		}
	}

	analysis := hdmi.Analyze(capture, cfg, nil)
	if hash, _, err := common.Sha256OfFile(*in); err == nil {
		analysis.Fingerprint = hash
	}

	engine := rules.NewEngine(rp)
	engine.RegisterBuiltins()
	engine.SetConfigValue("diag.include_capture_times", *includeTimes)

	ctx := &rules.Context{InputFile: *in, Config: cfg, Analysis: analysis}
	diags, err := engine.Eval(ctx)
	if err != nil {
		fmt.Println("eval:", err)
		os.Exit(1)
	}

	if err := engine.WriteDiagnosticsNDJSON(*outDiag); err != nil {
		fmt.Println("write diags:", err)
		os.Exit(1)
	}
	rep := engine.MakeAcceptance()
	if err := report.SaveAcceptanceJSON(rep, *outAcc); err != nil {
		fmt.Println("write report:", err)
		os.Exit(1)
	}
	if *pdfPath != "" {
		if err := report.SaveAnalysisPDF(analysis, rep, *pdfPath); err != nil {
			fmt.Println("write pdf:", err)
			os.Exit(1)
		}
		fmt.Println("Wrote PDF:", *pdfPath)
	}
	fmt.Printf("PASS=%v, errors=%d, warnings=%d, diagnostics=%d\n",
		rep.Summary.Pass, rep.Summary.Errors, rep.Summary.Warnings, len(diags))
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	analysisPath := fs.String("analysis", "", "analysis.json from a previous run")
	accPath := fs.String("acceptance", "", "acceptance_report.json")
	pdfPath := fs.String("pdf", "", "output report PDF")
	qrPath := fs.String("qr", "", "output fingerprint QR PNG")
	fs.Parse(args)

	if *analysisPath == "" {
		fmt.Println("required: --analysis")
		os.Exit(1)
	}
	analysis, err := report.LoadAnalysisJSON(*analysisPath)
	if err != nil {
		fmt.Println("load analysis:", err)
		os.Exit(1)
	}
	if *pdfPath != "" {
		if *accPath == "" {
			fmt.Println("--pdf requires --acceptance")
			os.Exit(1)
		}
		rep, err := report.LoadAcceptanceJSON(*accPath)
		if err != nil {
			fmt.Println("load acceptance:", err)
			os.Exit(1)
		}
		if err := report.SaveAnalysisPDF(analysis, rep, *pdfPath); err != nil {
			fmt.Println("write pdf:", err)
			os.Exit(1)
		}
		fmt.Println("Wrote PDF:", *pdfPath)
	}
	if *qrPath != "" {
		if analysis.Fingerprint == "" {
			fmt.Println("analysis has no fingerprint")
			os.Exit(1)
		}
		png, err := report.FingerprintToQR(analysis.Fingerprint, 256)
		if err != nil {
			fmt.Println("render qr:", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*qrPath, png, 0o644); err != nil {
			fmt.Println("write qr:", err)
			os.Exit(1)
		}
		fmt.Println("Wrote QR:", *qrPath)
	}
	if *pdfPath == "" && *qrPath == "" {
		if err := report.WriteSummary(os.Stdout, analysis); err != nil {
			fmt.Println("render summary:", err)
			os.Exit(1)
		}
	}
}

func testEccCmd(args []string) {
	fs := flag.NewFlagSet("test-ecc", flag.ExitOnError)
	header := fs.String("header", "", "header bytes hb0,hb1,hb2")
	received := fs.String("received", "", "checksum byte observed on the wire")
	polys := fs.String("poly", "", "candidate generator bytes, comma separated (defaults to the built-in list)")
	fs.Parse(args)

	if *header == "" || *received == "" {
		fmt.Println("required: --header and --received")
		os.Exit(1)
	}
	hb, err := parseBytes(*header)
	if err != nil || len(hb) != 3 {
		fmt.Println("--header wants three bytes, e.g. 0x82,0x02,0x0D")
		os.Exit(1)
	}
	rx, err := parseBytes(*received)
	if err != nil || len(rx) != 1 {
		fmt.Println("--received wants one byte")
		os.Exit(1)
	}

	var candidates []hdmi.CandidatePolynomial
	if *polys != "" {
		vals, err := parseBytes(*polys)
		if err != nil {
			fmt.Println("parse --poly:", err)
			os.Exit(1)
		}
		for _, v := range vals {
			candidates = append(candidates, hdmi.CandidatePolynomial{
				Name: fmt.Sprintf("0x%02X", v),
				Poly: v,
			})
		}
	}

	trials := hdmi.TestPolynomials(hb[0], hb[1], hb[2], rx[0], candidates)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POLY\tNAME\tCOMPUTED\tBIT ERRORS")
	for _, trial := range trials {
		fmt.Fprintf(w, "0x%02X\t%s\t0x%02X\t%d\n", trial.Poly, trial.Name, trial.Computed, trial.BitErrors)
	}
	w.Flush()
	if trials[0].Perfect() {
		fmt.Printf("Match: %s reproduces 0x%02X\n", trials[0].Name, rx[0])
	} else {
		fmt.Printf("No exact match; best candidate differs in %d bit(s)\n", trials[0].BitErrors)
	}
}

func parseBytes(s string) ([]uint8, error) {
	var out []uint8
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseUint(part, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", part, err)
		}
		out = append(out, uint8(v))
	}
	return out, nil
}
