package util

import (
	"fmt"
	"math"
)

// FormatNano renders a nanosecond timestamp or duration compactly with the
// most natural unit: "250ns", "1.25ms", "3.2s", "2m05s".
func FormatNano(ns int64) string {
	neg := ""
	if ns < 0 {
		neg = "-"
		ns = -ns
	}
	switch {
	case ns < 1_000:
		return fmt.Sprintf("%s%dns", neg, ns)
	case ns < 1_000_000:
		return neg + trimUnit(float64(ns)/1e3, "µs")
	case ns < 1_000_000_000:
		return neg + trimUnit(float64(ns)/1e6, "ms")
	case ns < 60_000_000_000:
		return neg + trimUnit(float64(ns)/1e9, "s")
	default:
		total := ns / 1_000_000_000
		return fmt.Sprintf("%s%dm%02ds", neg, total/60, total%60)
	}
}

// FormatValue renders an amplitude with its unit, trimming noise digits.
func FormatValue(v float64, unit string) string {
	if unit == "" {
		return trimFloat(v)
	}
	return trimFloat(v) + " " + unit
}

// FormatHz renders a frequency: "0.5Hz", "2.4kHz", "1.2MHz".
func FormatHz(hz float64) string {
	abs := math.Abs(hz)
	switch {
	case abs >= 1e6:
		return trimUnit(hz/1e6, "MHz")
	case abs >= 1e3:
		return trimUnit(hz/1e3, "kHz")
	default:
		return trimUnit(hz, "Hz")
	}
}

func trimUnit(v float64, unit string) string {
	return trimFloat(v) + unit
}

// trimFloat keeps up to three significant decimals without trailing zeros.
func trimFloat(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
