package hdmi

// TERC4 maps 4-bit auxiliary data symbols onto reserved 10-bit TMDS codes
// during data island periods. The table is bijective, so decode is the exact
// inverse of encode.
var terc4Codes = [16]uint16{
	0x0: 0b1010011100,
	0x1: 0b1001100011,
	0x2: 0b1011100100,
	0x3: 0b1011100010,
	0x4: 0b0101110001,
	0x5: 0b0100011110,
	0x6: 0b0110001110,
	0x7: 0b0100111100,
	0x8: 0b1011001100,
	0x9: 0b0100111001,
	0xA: 0b0110011100,
	0xB: 0b1011000110,
	0xC: 0b1010001110,
	0xD: 0b1001110001,
	0xE: 0b0101100011,
	0xF: 0b1011000011,
}

var terc4Symbols = func() map[uint16]uint8 {
	m := make(map[uint16]uint8, len(terc4Codes))
	for sym, code := range terc4Codes {
		m[code] = uint8(sym)
	}
	return m
}()

// Fixed 10-bit control patterns surrounding a data island. Neither is part of
// the 16-symbol table; both are identical across all three TMDS channels.
const (
	PreamblePattern uint16 = 0b1101010100
	GuardPattern    uint16 = 0b1011001100
)

// EncodeTERC4 returns the 10-bit code for a 4-bit symbol.
func EncodeTERC4(symbol uint8) uint16 {
	return terc4Codes[symbol&0xF]
}

// DecodeTERC4 returns the 4-bit symbol for a captured 10-bit code. ok is
// false when the code is not one of the 16 valid TERC4 codes; callers record
// that as a per-sample decode anomaly rather than an error.
func DecodeTERC4(code uint16) (uint8, bool) {
	sym, ok := terc4Symbols[code]
	return sym, ok
}
