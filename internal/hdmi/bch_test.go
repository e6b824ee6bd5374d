package hdmi

import (
	"testing"

	"pgregory.net/rapid"
)

func TestComputeECC(t *testing.T) {
	tests := []struct {
		name          string
		hb0, hb1, hb2 uint8
		want          uint8
	}{
		{name: "null header", hb0: 0x00, hb1: 0x00, hb2: 0x00, want: 0x00},
		{name: "acr header", hb0: 0x01, hb1: 0x00, hb2: 0x00, want: 0x75},
		{name: "audio sample header", hb0: 0x02, hb1: 0x00, hb2: 0x00, want: 0x67},
		{name: "avi infoframe header", hb0: 0x82, hb1: 0x02, hb2: 0x0D, want: 0x55},
		{name: "sparse bits", hb0: 0x04, hb1: 0x0E, hb2: 0x10, want: 0x13},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeECC(tc.hb0, tc.hb1, tc.hb2)
			if got != tc.want {
				t.Fatalf("ComputeECC(%02X,%02X,%02X) = 0x%02X, want 0x%02X", tc.hb0, tc.hb1, tc.hb2, got, tc.want)
			}
		})
	}
}

func TestComputeECCProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		hb0 := rapid.Uint8().Draw(t, "hb0")
		hb1 := rapid.Uint8().Draw(t, "hb1")
		hb2 := rapid.Uint8().Draw(t, "hb2")
		ecc := ComputeECC(hb0, hb1, hb2)
		if ecc&0x80 != 0 {
			t.Fatalf("checksum 0x%02X uses bit 7", ecc)
		}
		// The LFSR starts from a zero register, so the code is linear over
		// GF(2): the checksum of an XOR of headers is the XOR of checksums.
		gb0 := rapid.Uint8().Draw(t, "gb0")
		gb1 := rapid.Uint8().Draw(t, "gb1")
		gb2 := rapid.Uint8().Draw(t, "gb2")
		lhs := ComputeECC(hb0^gb0, hb1^gb1, hb2^gb2)
		rhs := ecc ^ ComputeECC(gb0, gb1, gb2)
		if lhs != rhs {
			t.Fatalf("linearity violated: 0x%02X != 0x%02X", lhs, rhs)
		}
	})
}

func TestTestPolynomials(t *testing.T) {
	trials := TestPolynomials(0x02, 0x00, 0x00, 0x67, nil)
	if len(trials) != len(CandidatePolynomials) {
		t.Fatalf("got %d trials, want %d", len(trials), len(CandidatePolynomials))
	}
	best := trials[0]
	if !best.Perfect() {
		t.Fatalf("best trial %q has %d bit errors, want 0", best.Name, best.BitErrors)
	}
	if best.Poly != GeneratorPoly {
		t.Fatalf("best poly = 0x%02X, want 0x%02X", best.Poly, GeneratorPoly)
	}
	for i := 1; i < len(trials); i++ {
		if trials[i].BitErrors < trials[i-1].BitErrors {
			t.Fatalf("trials not ranked: %d before %d", trials[i-1].BitErrors, trials[i].BitErrors)
		}
	}
}

func TestTestPolynomialsCustomList(t *testing.T) {
	cands := []CandidatePolynomial{{Name: "x^7 + x + 1", Poly: 0b10000011}}
	trials := TestPolynomials(0x02, 0x00, 0x00, 0x67, cands)
	if len(trials) != 1 {
		t.Fatalf("got %d trials, want 1", len(trials))
	}
	if trials[0].Computed != 0x78 || trials[0].BitErrors != 5 {
		t.Fatalf("trial = computed 0x%02X with %d bit errors, want 0x78 with 5", trials[0].Computed, trials[0].BitErrors)
	}
}

func TestTestPolynomialsSelfConsistency(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		hb0 := rapid.Uint8().Draw(t, "hb0")
		hb1 := rapid.Uint8().Draw(t, "hb1")
		hb2 := rapid.Uint8().Draw(t, "hb2")

		trials := TestPolynomials(hb0, hb1, hb2, ComputeECC(hb0, hb1, hb2), nil)
		if len(trials) != len(CandidatePolynomials) {
			t.Fatalf("got %d trials, want %d", len(trials), len(CandidatePolynomials))
		}
		// The checksum came from the reference polynomial, so that candidate
		// must reproduce it exactly and nothing can rank above it. Another
		// candidate may tie at zero on headers where the two LFSRs agree,
		// which is why the assertion is on distance, not on which polynomial
		// sorts first.
		if trials[0].BitErrors != 0 {
			t.Fatalf("best candidate %#02x has %d bit errors for header %02x %02x %02x",
				trials[0].Poly, trials[0].BitErrors, hb0, hb1, hb2)
		}
		seen := false
		for _, trial := range trials {
			if trial.Poly != GeneratorPoly {
				continue
			}
			seen = true
			if !trial.Perfect() {
				t.Fatalf("reference polynomial computed %#02x with %d bit errors for header %02x %02x %02x",
					trial.Computed, trial.BitErrors, hb0, hb1, hb2)
			}
		}
		if !seen {
			t.Fatal("reference polynomial missing from candidate list")
		}
	})
}
