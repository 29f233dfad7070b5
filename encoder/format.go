// Package encoder implements the operand coercers (C3), the
// per-mnemonic opcode/layout table consumer, the SKP backpatch pass,
// and instruction-image assembly (C6) described in spec.md §4.3, §4.6
// and §4.5.2. It has no knowledge of tokens or statements: the
// statement parser calls into this package once per operand site with
// an already-evaluated numval.Value.
package encoder

import (
	"fmt"
	"math"

	"github.com/lookbusy1344/fv1asm/numval"
)

// Format describes one of the six fixed-point operand encodings of
// spec.md §4.3: a field width in bits (the integer-path range is
// 0..2^Width-1) and the real-path reference/min/max used to convert a
// real number into a bit-exact field.
type Format struct {
	Name string
	Width uint
	Ref   float64
	Min   float64
	Max   float64
}

// The six fixed-point formats, ported verbatim from asfv1.py's
// REF_*/MIN_*/MAX_* constants.
var (
	FormatS1_14 = Format{"S1.14", 16, math.Pow(2, 14), -2.0, (math.Pow(2, 15) - 1) / math.Pow(2, 14)}
	FormatS1_9  = Format{"S1.9", 11, math.Pow(2, 9), -2.0, (math.Pow(2, 10) - 1) / math.Pow(2, 9)}
	FormatS_10  = Format{"S.10", 11, math.Pow(2, 10), -1.0, (math.Pow(2, 10) - 1) / math.Pow(2, 10)}
	FormatS_15  = Format{"S.15", 16, math.Pow(2, 15), -1.0, (math.Pow(2, 15) - 1) / math.Pow(2, 15)}
	FormatS4_6  = Format{"S4.6", 11, math.Pow(2, 6), -16.0, (math.Pow(2, 10) - 1) / math.Pow(2, 6)}
	FormatS_23  = Format{"S.23", 24, math.Pow(2, 23), -1.0, (math.Pow(2, 23) - 1) / math.Pow(2, 23)}
)

// clampOrReject is the single parameterised implementation of the
// clamp-or-reject policy (spec.md §9 design note): in range, the value
// passes through unchanged; out of range with clamp enabled, it is
// clipped to the nearest bound and a warning message is returned;
// out of range with clamp disabled, an error is returned and the
// caller substitutes 0 (spec.md §7).
// ClampOrReject exposes clampOrReject for callers outside this package
// that need the same clamp-or-reject policy on a plain scalar (the
// statement parser's MEM region-size check).
func ClampOrReject(name string, v, lo, hi float64, clamp bool) (float64, string, error) {
	return clampOrReject(name, v, lo, hi, clamp)
}

func clampOrReject(name string, v, lo, hi float64, clamp bool) (float64, string, error) {
	if v >= lo && v <= hi {
		return v, "", nil
	}
	if !clamp {
		return 0, "", fmt.Errorf("invalid %s value %v", name, v)
	}
	c := v
	if c < lo {
		c = lo
	} else if c > hi {
		c = hi
	}
	return c, fmt.Sprintf("%s value clamped to %v", name, c), nil
}

// coerceFormat implements spec.md §4.3's dual int/real path for one of
// the six fixed-point Formats: an integer value is range-checked
// against the raw field width; a real value is range-checked against
// (Min, Max) and then scaled by Ref and rounded to the nearest field
// value.
func coerceFormat(f Format, v numval.Value, clamp bool) (int64, string, error) {
	if v.IsInt() {
		c, warn, err := clampOrReject(f.Name, float64(v.Int64()), 0, float64((int64(1)<<f.Width)-1), clamp)
		return int64(c), warn, err
	}
	c, warn, err := clampOrReject(f.Name, v.Float64(), f.Min, f.Max, clamp)
	if err != nil {
		return 0, warn, err
	}
	return int64(math.Round(c * f.Ref)), warn, nil
}

func CoerceS1_14(v numval.Value, clamp bool) (int64, string, error) { return coerceFormat(FormatS1_14, v, clamp) }
func CoerceS1_9(v numval.Value, clamp bool) (int64, string, error)  { return coerceFormat(FormatS1_9, v, clamp) }
func CoerceS_10(v numval.Value, clamp bool) (int64, string, error)  { return coerceFormat(FormatS_10, v, clamp) }
func CoerceS_15(v numval.Value, clamp bool) (int64, string, error)  { return coerceFormat(FormatS_15, v, clamp) }
func CoerceS4_6(v numval.Value, clamp bool) (int64, string, error)  { return coerceFormat(FormatS4_6, v, clamp) }
func CoerceS_23(v numval.Value, clamp bool) (int64, string, error)  { return coerceFormat(FormatS_23, v, clamp) }
