package units

import (
	"fmt"
	"math"
	"strconv"
)

// Gas is a compute budget in base gas units.
type Gas uint64

// gasPerTgas is 10^12.
const gasPerTgas = 1_000_000_000_000

// Tgas returns n teragas. Amounts past the range of Gas saturate at
// math.MaxUint64.
func Tgas(n uint64) Gas {
	if n > math.MaxUint64/gasPerTgas {
		return Gas(math.MaxUint64)
	}
	return Gas(n * gasPerTgas)
}

// String returns the raw gas count.
func (g Gas) String() string {
	return strconv.FormatUint(uint64(g), 10)
}

// ParseGas parses "300000000000000", "300000000000000 gas" or "30 Tgas".
func ParseGas(s string) (Gas, error) {
	amount, unit := splitAmount(s)
	if !isDigits(amount) {
		return 0, fmt.Errorf("parse gas %q: amount must be an integer", s)
	}
	n, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse gas %q: %w", s, err)
	}

	switch unit {
	case "", "gas":
		return Gas(n), nil
	case "Tgas", "TGas", "tgas":
		if n > math.MaxUint64/gasPerTgas {
			return 0, fmt.Errorf("parse gas %q: overflow", s)
		}
		return Tgas(n), nil
	default:
		return 0, fmt.Errorf("parse gas %q: unknown unit %q", s, unit)
	}
}
