package wave

import (
	"testing"
)

func TestFindBuses(t *testing.T) {
	columns := []string{
		"time unit: ns",
		"video_hsync",
		"horizontal_counter[1]",
		"horizontal_counter[0]",
		"horizontal_counter[2]",
		"tmds_encoded_red[0]",
	}
	buses := FindBuses(columns)
	if len(buses) != 2 {
		t.Fatalf("found %d buses, want 2", len(buses))
	}
	if buses[0].Name != "horizontal_counter" {
		t.Fatalf("bus 0 = %q, want horizontal_counter", buses[0].Name)
	}
	// MSB first regardless of column order.
	wantBits := []int{2, 1, 0}
	for i, bb := range buses[0].Bits {
		if bb.Bit != wantBits[i] {
			t.Fatalf("bit %d = %d, want %d", i, bb.Bit, wantBits[i])
		}
	}
	if buses[1].Name != "tmds_encoded_red" || len(buses[1].Bits) != 1 {
		t.Fatalf("bus 1 = %q with %d bits, want tmds_encoded_red with 1", buses[1].Name, len(buses[1].Bits))
	}
}

func TestFindBusesDuplicateBit(t *testing.T) {
	columns := []string{"time", "ctr[0]", "ctr[1]", "ctr[1]"}
	buses := FindBuses(columns)
	if len(buses) != 1 {
		t.Fatalf("found %d buses, want 1", len(buses))
	}
	if len(buses[0].Bits) != 2 {
		t.Fatalf("kept %d bits, want 2", len(buses[0].Bits))
	}
	// First claim of bit 1 wins.
	if buses[0].Bits[0].Bit != 1 || buses[0].Bits[0].Column != 2 {
		t.Fatalf("msb = bit %d column %d, want bit 1 column 2", buses[0].Bits[0].Bit, buses[0].Bits[0].Column)
	}
}

func TestBusValueAt(t *testing.T) {
	bus := Bus{Name: "v", Bits: []BusBit{{Bit: 1, Column: 2}, {Bit: 0, Column: 1}}}
	tests := []struct {
		name string
		row  []string
		want Value
	}{
		{name: "both low", row: []string{"0", "0", "0"}, want: Known(0)},
		{name: "lsb high", row: []string{"0", "1", "0"}, want: Known(1)},
		{name: "msb high", row: []string{"0", "0", "1"}, want: Known(2)},
		{name: "both high", row: []string{"0", "1", "1"}, want: Known(3)},
		{name: "indeterminate bit", row: []string{"0", "X", "1"}, want: Unknown},
		{name: "short row", row: []string{"0", "1"}, want: Unknown},
		{name: "padded literals", row: []string{"0", " 1 ", " 0"}, want: Known(1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := bus.ValueAt(tc.row)
			if got != tc.want {
				t.Fatalf("ValueAt = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestReconstructBuses(t *testing.T) {
	columns := []string{"time", "ctr[1]", "ctr[0]"}
	rows := [][]string{
		{"0", "0", "1"},
		{"1", "1", "0"},
		{"2", "X", "1"},
	}
	buses := ReconstructBuses(columns, rows)
	vals, ok := buses["ctr"]
	if !ok {
		t.Fatal("bus ctr not reconstructed")
	}
	want := []Value{Known(1), Known(2), Unknown}
	if len(vals) != len(want) {
		t.Fatalf("got %d values, want %d", len(vals), len(want))
	}
	for i := range want {
		if vals[i] != want[i] {
			t.Fatalf("value %d = %+v, want %+v", i, vals[i], want[i])
		}
	}
}
