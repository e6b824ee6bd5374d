package hdmi

import (
	"testing"

	"pgregory.net/rapid"
)

func TestTERC4RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sym := rapid.Uint8Range(0, 15).Draw(t, "sym")
		code := EncodeTERC4(sym)
		back, ok := DecodeTERC4(code)
		if !ok {
			t.Fatalf("code 0b%010b for symbol %X rejected by decode", code, sym)
		}
		if back != sym {
			t.Fatalf("decode(encode(%X)) = %X", sym, back)
		}
	})
}

func TestTERC4CodesDistinct(t *testing.T) {
	seen := make(map[uint16]uint8)
	for sym := uint8(0); sym < 16; sym++ {
		code := EncodeTERC4(sym)
		if prev, dup := seen[code]; dup {
			t.Fatalf("symbols %X and %X share code 0b%010b", prev, sym, code)
		}
		seen[code] = sym
	}
}

func TestControlPatterns(t *testing.T) {
	// The preamble pattern is not auxiliary data.
	if _, ok := DecodeTERC4(PreamblePattern); ok {
		t.Fatalf("preamble pattern 0b%010b decodes as a data symbol", PreamblePattern)
	}
	// The guard band reuses the code for symbol 0x8.
	if GuardPattern != EncodeTERC4(0x8) {
		t.Fatalf("guard pattern 0b%010b is not the code for symbol 8", GuardPattern)
	}
}

func TestDecodeTERC4Invalid(t *testing.T) {
	for _, code := range []uint16{0, 0b1111111111, PreamblePattern} {
		if sym, ok := DecodeTERC4(code); ok {
			t.Fatalf("code 0b%010b unexpectedly decoded to %X", code, sym)
		}
	}
}
