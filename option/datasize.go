package option

import (
	"fmt"
	"math"
	"strconv"
)

// dataUnits maps a trailing suffix letter (uppercased) to its binary
// multiple, per spec.md §6's B/K/M/G/T/P/E data-unit types.
var dataUnits = map[byte]int64{
	'B': 1,
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
	'T': 1 << 40,
	'P': 1 << 50,
	'E': 1 << 60,
}

// ParseDataSize parses a bare integer or an integer followed by a
// B/K/M/G/T/P/E suffix (case-insensitive) into a byte count.
func ParseDataSize(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("option: empty data-size value")
	}

	last := raw[len(raw)-1]
	upper := last
	if upper >= 'a' && upper <= 'z' {
		upper -= 'a' - 'A'
	}
	mult, hasSuffix := dataUnits[upper]
	if !hasSuffix {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("option: invalid data-size value %q: %w", raw, err)
		}
		return n, nil
	}

	n, err := strconv.ParseInt(raw[:len(raw)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("option: invalid data-size value %q: %w", raw, err)
	}
	if mult != 1 {
		if n > math.MaxInt64/mult || n < math.MinInt64/mult {
			return 0, fmt.Errorf("option: data-size value %q overflows int64", raw)
		}
	}
	return n * mult, nil
}
