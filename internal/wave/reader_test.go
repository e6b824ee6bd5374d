package wave

import (
	"errors"
	"math"
	"strings"
	"testing"
)

const sampleCapture = `Waveform export
module: top
Sample in Buffer,time unit: ns,data_island_enable,ctr[1],ctr[0]

0,0,0,0,0
1,1,1,0,1
2,2,1,1,0
3,3,0,X,1
`

func TestParseCapture(t *testing.T) {
	c, err := ParseCapture(strings.NewReader(sampleCapture))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.TimeUnit != "ns" {
		t.Fatalf("TimeUnit = %q, want ns", c.TimeUnit)
	}
	if len(c.Columns) != 5 {
		t.Fatalf("got %d columns, want 5", len(c.Columns))
	}
	if len(c.Rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(c.Rows))
	}
	vals, ok := c.Bus("ctr")
	if !ok {
		t.Fatal("bus ctr missing")
	}
	want := []Value{Known(0), Known(1), Known(2), Unknown}
	for i := range want {
		if vals[i] != want[i] {
			t.Fatalf("ctr[%d] = %+v, want %+v", i, vals[i], want[i])
		}
	}
	if got := c.TimeAt(2); got != 2 {
		t.Fatalf("TimeAt(2) = %d, want 2", got)
	}
}

func TestParseCaptureNoHeader(t *testing.T) {
	_, err := ParseCapture(strings.NewReader("just,some,rows\n1,2,3\n"))
	if !errors.Is(err, ErrNoHeader) {
		t.Fatalf("err = %v, want ErrNoHeader", err)
	}
}

func TestSetTimeUnit(t *testing.T) {
	tests := []struct {
		name       string
		unit       string
		wantUnit   string
		wantPeriod float64
		wantErr    bool
	}{
		{name: "plain unit", unit: "us", wantUnit: "us", wantPeriod: 1},
		{name: "pixel clock", unit: "25.2mhz", wantUnit: "ns", wantPeriod: 1e9 / 25.2e6},
		{name: "kilohertz", unit: "1khz", wantUnit: "ms", wantPeriod: 1},
		{name: "empty", unit: "", wantErr: true},
		{name: "garbage frequency", unit: "fasthz", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Capture{Period: 1}
			err := c.SetTimeUnit(tc.unit)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("SetTimeUnit: %v", err)
			}
			if c.TimeUnit != tc.wantUnit {
				t.Fatalf("TimeUnit = %q, want %q", c.TimeUnit, tc.wantUnit)
			}
			if math.Abs(c.Period-tc.wantPeriod) > 1e-9 {
				t.Fatalf("Period = %g, want %g", c.Period, tc.wantPeriod)
			}
		})
	}
}

func TestTimeAtFallback(t *testing.T) {
	c := &Capture{Rows: [][]string{{"bad", "0"}}}
	if got := c.TimeAt(0); got != 0 {
		t.Fatalf("TimeAt with malformed index = %d, want row index 0", got)
	}
	if got := c.TimeAt(7); got != 7 {
		t.Fatalf("TimeAt out of range = %d, want 7", got)
	}
}
