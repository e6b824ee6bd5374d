package hdmi

import (
	"math/bits"
	"sort"
)

// HDMI protects the 24-bit packet header with a shortened BCH(31,24) code.
// The encoder is a 7-bit LFSR with generator polynomial x^7 + x^3 + x^2 + 1;
// the polynomial's non-leading terms form the tap mask.
const (
	GeneratorPoly = 0x8D
	eccDegree     = 7
	eccTapMask    = GeneratorPoly & ((1 << eccDegree) - 1)
)

// ComputeECC calculates the 7-bit header checksum over {HB0, HB1, HB2}. Bit 7
// of the returned byte is always zero.
func ComputeECC(hb0, hb1, hb2 uint8) uint8 {
	return computeECCPoly(headerWord(hb0, hb1, hb2), GeneratorPoly, eccDegree)
}

func headerWord(hb0, hb1, hb2 uint8) uint32 {
	return uint32(hb0)<<16 | uint32(hb1)<<8 | uint32(hb2)
}

// computeECCPoly runs the LFSR for an arbitrary generator polynomial. The 24
// header bits are processed most significant first; on each step the feedback
// bit is the input XOR the register's top bit, and a set feedback XORs the
// non-leading polynomial taps into the shifted register.
func computeECCPoly(header uint32, poly uint8, degree int) uint8 {
	taps := poly & ((1 << degree) - 1)
	var lfsr uint8
	for i := 23; i >= 0; i-- {
		bit := uint8(header>>uint(i)) & 1
		feedback := bit ^ ((lfsr >> uint(degree-1)) & 1)
		lfsr = (lfsr << 1) & ((1 << degree) - 1)
		if feedback != 0 {
			lfsr ^= taps
		}
	}
	return lfsr & 0x7F
}

// CandidatePolynomial names one degree-7 generator polynomial for the
// diagnostic brute-force comparison.
type CandidatePolynomial struct {
	Name string
	Poly uint8
}

// CandidatePolynomials is the default list tried against a captured header
// and received checksum when the fixed generator is in doubt.
var CandidatePolynomials = []CandidatePolynomial{
	{"x^7 + x + 1", 0b10000011},
	{"x^7 + x^3 + x^2 + 1", 0b10001101},
	{"x^7 + x^6 + 1", 0b11000001},
	{"x^7 + x^6 + x^5 + x^4 + x^2 + x + 1", 0b11110111},
	{"x^7 + x^6 + x^3 + x + 1", 0b11001011},
	{"x^7 + x^4 + x^3 + x^2 + 1", 0b10011101},
	{"x^7 + x^5 + x^4 + x^3 + x^2 + x + 1", 0b10111111},
	{"x^7 + x^3 + 1", 0b10001001},
	{"x^7 + x^4 + 1", 0b10010001},
	{"x^7 + x^5 + x^3 + x^2 + 1", 0b10101101},
}

// PolynomialTrial scores one candidate generator against an observed
// (header, checksum) pair.
type PolynomialTrial struct {
	Name      string `json:"name"`
	Poly      uint8  `json:"poly"`
	Computed  uint8  `json:"computed"`
	BitErrors int    `json:"bitErrors"`
}

// Perfect reports whether the candidate reproduced the received checksum
// exactly.
func (t PolynomialTrial) Perfect() bool {
	return t.BitErrors == 0
}

// TestPolynomials evaluates each candidate generator polynomial against the
// header bytes and the checksum observed on the wire, ranked by Hamming
// distance between computed and received checksums. Candidates with equal
// distance keep their input order. The comparison is purely advisory and
// mutates nothing.
func TestPolynomials(hb0, hb1, hb2, received uint8, candidates []CandidatePolynomial) []PolynomialTrial {
	if candidates == nil {
		candidates = CandidatePolynomials
	}
	header := headerWord(hb0, hb1, hb2)
	trials := make([]PolynomialTrial, 0, len(candidates))
	for _, c := range candidates {
		computed := computeECCPoly(header, c.Poly, eccDegree)
		trials = append(trials, PolynomialTrial{
			Name:      c.Name,
			Poly:      c.Poly,
			Computed:  computed,
			BitErrors: bits.OnesCount8(computed ^ received),
		})
	}
	sort.SliceStable(trials, func(i, j int) bool {
		return trials[i].BitErrors < trials[j].BitErrors
	})
	return trials
}
