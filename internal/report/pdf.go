package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/terenceang/TN9K-DVI-HDMI/internal/hdmi"
	"github.com/terenceang/TN9K-DVI-HDMI/internal/rules"
)

// SaveAnalysisPDF renders the analysis and the compliance findings into a
// PDF document.
func SaveAnalysisPDF(a *hdmi.Analysis, rep rules.AcceptanceReport, out string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("HDMI Waveform Analysis", false)
	pdf.SetAuthor("hdmiwave", false)
	pdf.SetCreator("hdmiwave", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addPDFTitle(pdf, "HDMI Waveform Analysis")
	addCaptureSection(pdf, a)
	addComplianceSection(pdf, rep)
	addPacketTableSection(pdf, a)
	addFindingsSection(pdf, rep.Findings)

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addCaptureSection(pdf *gofpdf.Fpdf, a *hdmi.Analysis) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Capture")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: "Source", value: emptyFallback(a.CapturePath, "-")},
		{label: "Fingerprint", value: emptyFallback(a.Fingerprint, "-")},
		{label: "Samples", value: strconv.Itoa(a.SampleCount)},
		{label: "Islands", value: strconv.Itoa(a.Stats.Count)},
		{label: "Frame Position", value: framePosition(a.Timing)},
		{label: "Sync Edges", value: fmt.Sprintf("H %d / V %d", a.HSyncTransitions, a.VSyncTransitions)},
	}
	if a.Duration > 0 {
		items = append(items, struct {
			label string
			value string
		}{label: "Duration", value: fmt.Sprintf("%.2f %s", a.Duration, a.TimeUnit)})
	}
	for _, item := range items {
		pdf.CellFormat(50, 6, item.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, item.value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func framePosition(t hdmi.TimingSummary) string {
	parts := make([]string, 0, 2)
	if t.HRegion != "" {
		parts = append(parts, t.HRegion)
	}
	if t.VRegion != "" {
		parts = append(parts, t.VRegion)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " / ")
}

func addComplianceSection(pdf *gofpdf.Fpdf, rep rules.AcceptanceReport) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Compliance Summary")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: "Total Findings", value: strconv.Itoa(rep.Summary.Total)},
		{label: "Errors", value: strconv.Itoa(rep.Summary.Errors)},
		{label: "Warnings", value: strconv.Itoa(rep.Summary.Warnings)},
		{label: "Overall", value: passLabel(rep.Summary.Pass)},
	}
	for _, item := range items {
		pdf.CellFormat(50, 6, item.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, item.value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addPacketTableSection(pdf *gofpdf.Fpdf, a *hdmi.Analysis) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Packets")
	pdf.Ln(9)

	if len(a.Packets) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No data islands detected.", "", "L", false)
		pdf.Ln(4)
		return
	}

	headers := []string{"#", "Time", "Type", "Samples", "ECC", "Anomalies"}
	widths := []float64{10, 26, 76, 22, 28, 22}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	lineHeight := 5.0
	for i, p := range a.Packets {
		values := []string{
			strconv.Itoa(i + 1),
			fmt.Sprintf("%d-%d", p.Island.StartTime(), p.Island.EndTime()),
			p.Header.Name(),
			strconv.Itoa(p.TotalSamples),
			eccStatus(p.Ecc.Match),
			strconv.Itoa(p.SymbolErrors),
		}
		renderTableRow(pdf, widths, values, lineHeight)
	}
	pdf.Ln(4)
}

func addFindingsSection(pdf *gofpdf.Fpdf, findings []rules.Diagnostic) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Findings")
	pdf.Ln(9)

	if len(findings) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No findings recorded.", "", "L", false)
		return
	}

	for i, d := range findings {
		pdf.SetFont("Helvetica", "B", 10)
		header := fmt.Sprintf("%d. %s (%s)", i+1, d.RuleId, severityLabel(d.Severity))
		pdf.MultiCell(0, 5, header, "", "L", false)

		if msg := strings.TrimSpace(d.Message); msg != "" {
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, msg, "", "L", false)
		}

		meta := findingMetadata(d)
		if meta != "" {
			pdf.SetFont("Helvetica", "", 9)
			pdf.MultiCell(0, 4, meta, "", "L", false)
		}

		if len(d.Refs) > 0 {
			pdf.SetFont("Helvetica", "", 9)
			pdf.MultiCell(0, 4, "Refs: "+strings.Join(d.Refs, ", "), "", "L", false)
		}

		pdf.Ln(2)
	}
}

func renderTableRow(pdf *gofpdf.Fpdf, widths []float64, values []string, lineHeight float64) {
	xStart := pdf.GetX()
	yStart := pdf.GetY()
	maxLines := 1
	splitCols := make([][]string, len(values))
	for i, val := range values {
		text := strings.TrimSpace(val)
		if text == "" {
			text = "-"
		}
		lines := pdf.SplitText(text, widths[i]-2)
		if len(lines) == 0 {
			lines = []string{""}
		}
		splitCols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	x := xStart
	for i, lines := range splitCols {
		pdf.SetXY(x, yStart)
		cellText := strings.Join(lines, "\n")
		pdf.MultiCell(widths[i], lineHeight, cellText, "1", "L", false)
		x += widths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
}

func passLabel(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}

func severityLabel(sev rules.Severity) string {
	if s := strings.TrimSpace(string(sev)); s != "" {
		return s
	}
	return "UNKNOWN"
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}

func findingMetadata(d rules.Diagnostic) string {
	parts := make([]string, 0, 4)
	if !d.Ts.IsZero() {
		parts = append(parts, d.Ts.Format(time.RFC3339))
	}
	if d.File != "" {
		parts = append(parts, d.File)
	}
	if d.PacketIndex != 0 {
		parts = append(parts, fmt.Sprintf("Packet %d", d.PacketIndex))
	}
	if d.CaptureTime != nil {
		parts = append(parts, fmt.Sprintf("Capture time %d", *d.CaptureTime))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " / ")
}
