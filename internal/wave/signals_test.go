package wave

import "testing"

func testCapture() *Capture {
	columns := []string{"idx,time unit: ns", "u_top/video_hsync", "video_vsync"}
	rows := [][]string{
		{"0", "1", "0"},
		{"1", "1", "0"},
		{"2", "0", "1"},
		{"3", "0", "1"},
		{"4", "1", "0"},
		{"5", "X"},
	}
	return &Capture{Columns: columns, Rows: rows, Period: 1}
}

func TestSignalColumn(t *testing.T) {
	c := testCapture()
	// Substring match tolerates instance-path prefixes.
	if col := c.SignalColumn("video_hsync"); col != 1 {
		t.Fatalf("video_hsync column = %d, want 1", col)
	}
	if col := c.SignalColumn("missing_signal"); col != -1 {
		t.Fatalf("missing signal column = %d, want -1", col)
	}
}

func TestSignalAt(t *testing.T) {
	c := testCapture()
	if got := c.SignalAt(5, 1); got != BitUnknown {
		t.Fatalf("SignalAt(5,1) = %q, want X", got)
	}
	// Short row reads as indeterminate past its end.
	if got := c.SignalAt(5, 2); got != BitUnknown {
		t.Fatalf("short row SignalAt = %q, want X", got)
	}
	if !c.SignalHigh(0, 1) || c.SignalHigh(2, 1) {
		t.Fatal("SignalHigh disagrees with rows")
	}
}

func TestTransitions(t *testing.T) {
	c := testCapture()
	all := c.Transitions("video_hsync", "", "")
	if len(all) != 3 {
		t.Fatalf("got %d transitions, want 3", len(all))
	}
	falling := c.Transitions("video_hsync", BitHigh, BitLow)
	if len(falling) != 1 || falling[0].Time != 2 {
		t.Fatalf("falling = %+v, want one at time 2", falling)
	}
	rising := c.Transitions("video_hsync", BitLow, BitHigh)
	if len(rising) != 1 || rising[0].Time != 4 {
		t.Fatalf("rising = %+v, want one at time 4", rising)
	}
	if got := c.Transitions("missing_signal", "", ""); got != nil {
		t.Fatalf("missing signal transitions = %+v, want nil", got)
	}
}
