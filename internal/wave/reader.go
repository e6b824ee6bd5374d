package wave

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/terenceang/TN9K-DVI-HDMI/internal/common"
)

const (
	// Literal values a sampled bit can take in the capture table.
	BitLow     = "0"
	BitHigh    = "1"
	BitUnknown = "X"
)

var (
	ErrNoHeader = errors.New("capture header with time unit marker not found")

	timeUnitPattern = regexp.MustCompile(`time unit:\s*(\w+)`)
)

// Capture holds one logic-analyzer export: the column names from the header
// line, the raw sample rows and the reconstructed multi-bit buses. Rows and
// buses are built once and treated as immutable afterwards; segmentation and
// decoding derive new structures from them.
type Capture struct {
	Path     string
	TimeUnit string
	// Period scales raw time indices into TimeUnit. It is 1 unless the unit
	// was derived from a sample clock frequency.
	Period  float64
	Columns []string
	Rows    [][]string
	Buses   map[string][]Value
}

// ReadCapture loads and parses the capture CSV at path and reconstructs its
// buses.
func ReadCapture(path string) (*Capture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := ParseCapture(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	c.Path = path
	return c, nil
}

// ParseCapture reads a capture table from r. The header line is located by
// the "time unit:" marker; everything before it is ignored. Data rows are
// comma separated with the time index in column 0.
func ParseCapture(r io.Reader) (*Capture, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var headerLine string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "time unit:") {
			headerLine = line
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if headerLine == "" {
		return nil, ErrNoHeader
	}

	c := &Capture{Period: 1}
	for _, h := range strings.Split(strings.TrimSpace(headerLine), ",") {
		c.Columns = append(c.Columns, strings.TrimSpace(h))
	}
	if m := timeUnitPattern.FindStringSubmatch(headerLine); m != nil {
		c.TimeUnit = m[1]
	}

	var body strings.Builder
	for scanner.Scan() {
		body.WriteString(scanner.Text())
		body.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(body.String()))
	reader.FieldsPerRecord = -1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) > 1 {
			c.Rows = append(c.Rows, row)
		}
	}

	c.Buses = ReconstructBuses(c.Columns, c.Rows)
	common.Logf("loaded %d samples, %d signals, %d buses (time unit %s)",
		len(c.Rows), len(c.Columns)-1, len(c.Buses), c.TimeUnit)
	return c, nil
}

// SetTimeUnit overrides the capture's time unit. Frequencies such as
// "25.2mhz" are converted into a per-sample period in ns, us or ms.
func (c *Capture) SetTimeUnit(unit string) error {
	lower := strings.ToLower(strings.TrimSpace(unit))
	if lower == "" {
		return errors.New("empty time unit")
	}
	if !strings.HasSuffix(lower, "hz") {
		c.TimeUnit = unit
		c.Period = 1
		return nil
	}
	spec := strings.TrimSuffix(lower, "hz")
	spec = strings.ReplaceAll(spec, "m", "e6")
	spec = strings.ReplaceAll(spec, "k", "e3")
	freq, err := strconv.ParseFloat(spec, 64)
	if err != nil || freq <= 0 {
		return fmt.Errorf("invalid frequency %q", unit)
	}
	period := 1 / freq
	switch {
	case period < 1e-6:
		c.TimeUnit = "ns"
		c.Period = period * 1e9
	case period < 1e-3:
		c.TimeUnit = "us"
		c.Period = period * 1e6
	default:
		c.TimeUnit = "ms"
		c.Period = period * 1e3
	}
	return nil
}

// TimeAt returns the time index of the given row, falling back to the row
// index when the time column is malformed.
func (c *Capture) TimeAt(row int) int {
	if row < 0 || row >= len(c.Rows) {
		return row
	}
	t, err := strconv.Atoi(strings.TrimSpace(c.Rows[row][0]))
	if err != nil {
		return row
	}
	return t
}

// Bus returns the reconstructed values for the named bus, or false when the
// capture does not carry it.
func (c *Capture) Bus(name string) ([]Value, bool) {
	vals, ok := c.Buses[name]
	return vals, ok
}
