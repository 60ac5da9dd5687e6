package options

import "math"

// Numeric coercion policy for upstream fields: absent or invalid means
// zero. Every optional numeric field goes through here so the default
// lives in exactly one place. The three mandatory fields (expiration,
// strike, representative price) are never coerced; their absence skips
// the contract instead.

// coerceFloat returns the pointed-to value, or 0 when the pointer is
// nil or the value is NaN/Inf.
func coerceFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}
