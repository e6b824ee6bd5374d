package wave

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/terenceang/TN9K-DVI-HDMI/internal/common"
)

// busPattern matches per-bit bus columns such as "horizontal_counter[9]".
// Columns without a bracketed bit index remain unconnected single-bit
// signals.
var busPattern = regexp.MustCompile(`(.+)\[(\d+)\]`)

// BusBit ties one bit position of a bus to its source column index.
type BusBit struct {
	Bit    int
	Column int
}

// Bus is a named multi-bit signal assembled from individual bit columns,
// ordered most-significant bit first. Bit positions within a bus are unique.
type Bus struct {
	Name string
	Bits []BusBit
}

// FindBuses groups bracketed bit columns into buses. Duplicate bit positions
// are dropped with a warning; the first column claiming a position wins.
func FindBuses(columns []string) []Bus {
	grouped := make(map[string][]BusBit)
	var order []string
	for idx, header := range columns {
		m := busPattern.FindStringSubmatch(header)
		if m == nil {
			continue
		}
		name := m[1]
		bit, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if _, seen := grouped[name]; !seen {
			order = append(order, name)
		}
		dup := false
		for _, b := range grouped[name] {
			if b.Bit == bit {
				common.Logf("bus %s: duplicate bit %d in column %d ignored", name, bit, idx)
				dup = true
				break
			}
		}
		if !dup {
			grouped[name] = append(grouped[name], BusBit{Bit: bit, Column: idx})
		}
	}

	buses := make([]Bus, 0, len(order))
	for _, name := range order {
		bits := grouped[name]
		sort.Slice(bits, func(i, j int) bool { return bits[i].Bit > bits[j].Bit })
		buses = append(buses, Bus{Name: name, Bits: bits})
	}
	return buses
}

// ValueAt reconstructs the bus value for one sample row. A bit sampled as
// indeterminate makes the whole value indeterminate; so does a row too short
// to carry the bit's column. Partial reconstruction from only the known bits
// would fabricate a value.
func (b Bus) ValueAt(row []string) Value {
	var bits uint32
	for _, bb := range b.Bits {
		if bb.Column >= len(row) {
			return Unknown
		}
		switch strings.TrimSpace(row[bb.Column]) {
		case BitUnknown:
			return Unknown
		case BitHigh:
			bits |= 1 << uint(bb.Bit)
		}
	}
	return Known(bits)
}

// ReconstructBuses builds, for every bus found in columns, one value per
// sample row.
func ReconstructBuses(columns []string, rows [][]string) map[string][]Value {
	out := make(map[string][]Value)
	for _, bus := range FindBuses(columns) {
		values := make([]Value, len(rows))
		for i, row := range rows {
			values[i] = bus.ValueAt(row)
		}
		out[bus.Name] = values
	}
	return out
}
