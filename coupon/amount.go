package coupon

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// MISTDecimals is the number of decimal places between OCT and MIST.
const MISTDecimals = 9

var mistPerOCT = uint256.NewInt(1_000_000_000)

// ParseOCT converts a decimal OCT amount ("10", "2.5", "0.000000001") into
// MIST. Negative values, more than nine fractional digits and amounts that do
// not fit in a u64 are rejected.
func ParseOCT(raw string) (uint64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("coupon: amount required")
	}
	if strings.HasPrefix(trimmed, "-") {
		return 0, fmt.Errorf("coupon: amount %q must not be negative", raw)
	}
	trimmed = strings.TrimPrefix(trimmed, "+")
	whole, frac, _ := strings.Cut(trimmed, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > MISTDecimals {
		return 0, fmt.Errorf("coupon: amount %q has more than %d decimals", raw, MISTDecimals)
	}
	frac += strings.Repeat("0", MISTDecimals-len(frac))
	digits := strings.TrimLeft(whole+frac, "0")
	if digits == "" {
		return 0, nil
	}
	value, err := uint256.FromDecimal(digits)
	if err != nil {
		return 0, fmt.Errorf("coupon: amount %q: %w", raw, err)
	}
	if !value.IsUint64() {
		return 0, fmt.Errorf("coupon: amount %q overflows u64", raw)
	}
	return value.Uint64(), nil
}

// OCTFloat converts a MIST amount to OCT for display arithmetic.
func OCTFloat(mist uint64) float64 {
	return float64(mist) / 1e9
}

// ParseMIST parses a decimal MIST string as returned by the ledger. Balance
// changes may be negative; the sign is returned separately.
func ParseMIST(raw string) (*uint256.Int, bool, error) {
	trimmed := strings.TrimSpace(raw)
	negative := strings.HasPrefix(trimmed, "-")
	trimmed = strings.TrimLeft(trimmed, "+-")
	if trimmed == "" {
		return uint256.NewInt(0), false, nil
	}
	value, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, false, fmt.Errorf("coupon: mist amount %q: %w", raw, err)
	}
	return value, negative && !value.IsZero(), nil
}

// FormatMIST renders a MIST amount as OCT with exactly decimals places,
// rounding the dropped digits half up.
func FormatMIST(mist *uint256.Int, decimals int) string {
	if mist == nil {
		mist = uint256.NewInt(0)
	}
	if decimals < 0 {
		decimals = 0
	}
	if decimals > MISTDecimals {
		decimals = MISTDecimals
	}
	if decimals < MISTDecimals {
		half := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(MISTDecimals-decimals)))
		half.Rsh(half, 1)
		mist = new(uint256.Int).Add(mist, half)
	}
	whole, rem := new(uint256.Int), new(uint256.Int)
	whole.DivMod(mist, mistPerOCT, rem)
	if decimals == 0 {
		return whole.Dec()
	}
	frac := rem.Dec()
	frac = strings.Repeat("0", MISTDecimals-len(frac)) + frac
	return whole.Dec() + "." + frac[:decimals]
}

// FormatMISTString parses and renders a signed MIST string. Unparseable input
// renders as zero.
func FormatMISTString(raw string, decimals int, signed bool) string {
	value, negative, err := ParseMIST(raw)
	if err != nil {
		value, negative = uint256.NewInt(0), false
	}
	out := FormatMIST(value, decimals)
	switch {
	case negative:
		return "-" + out
	case signed && !value.IsZero():
		return "+" + out
	default:
		return out
	}
}
