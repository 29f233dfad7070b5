package encoder

import (
	"fmt"
	"math"

	"github.com/lookbusy1344/fv1asm/isa"
	"github.com/lookbusy1344/fv1asm/numval"
)

// u32Bits is the bit width the RAW pseudo-instruction's data word
// coerces into; delayAddrBits is CoerceDelayAddr's field width (spec.md
// §4.3 auxiliary coercers).
const (
	delayAddrBits = 15
	u32Bits       = 32
)

// CoerceU32 fetches a raw 32-bit data word for the RAW pseudo.
func CoerceU32(v numval.Value, clamp bool) (int64, string, error) {
	if !v.IsInt() {
		return 0, "", fmt.Errorf("invalid U.32 value %v", v)
	}
	c, warn, err := clampOrReject("U.32", float64(v.Int64()), 0, float64((int64(1)<<u32Bits)-1), clamp)
	return int64(c), warn, err
}

// CoerceRegister fetches a 6-bit register number. Unlike the
// fixed-point formats, register operands never clamp (asfv1.py's
// __register__ has no clamp branch): out of range is always an error.
func CoerceRegister(v numval.Value) (int64, error) {
	if !v.IsInt() {
		return 0, fmt.Errorf("invalid register %v", v)
	}
	iv := v.Int64()
	if iv < 0 || iv > 63 {
		return 0, fmt.Errorf("invalid register %d", iv)
	}
	return iv, nil
}

// CoerceSkipOffset fetches a 6-bit forward skip distance. In
// SpinASM-compatibility mode a real operand is truncated toward zero
// with a warning rather than rejected outright (asfv1.py
// __offset__'s spinreals branch); out of range is always an error.
func CoerceSkipOffset(v numval.Value, spinReals bool) (int64, string, error) {
	warn := ""
	if spinReals && v.IsReal() {
		truncated := int64(v.Float64())
		warn = fmt.Sprintf("converted skip offset to integer %d", truncated)
		v = numval.Int(truncated)
	}
	if !v.IsInt() {
		return 0, warn, fmt.Errorf("invalid skip offset %v", v)
	}
	iv := v.Int64()
	if iv < 0 || iv > 63 {
		return 0, warn, fmt.Errorf("invalid skip offset %d", iv)
	}
	return iv, warn, nil
}

// CoerceSkipCondition fetches a 5-bit skip condition mask.
func CoerceSkipCondition(v numval.Value) (int64, error) {
	if !v.IsInt() {
		return 0, fmt.Errorf("invalid skip condition %v", v)
	}
	iv := v.Int64()
	if iv < 0 || iv > 31 {
		return 0, fmt.Errorf("invalid skip condition %d", iv)
	}
	return iv, nil
}

// CoerceLFO fetches a 2-bit LFO selector (SIN0/SIN1/RMP0/RMP1).
func CoerceLFO(v numval.Value) (int64, error) {
	if !v.IsInt() {
		return 0, fmt.Errorf("invalid LFO selector %v", v)
	}
	iv := v.Int64()
	if iv < 0 || iv > 3 {
		return 0, fmt.Errorf("invalid LFO selector %d", iv)
	}
	return iv, nil
}

// CoerceChoFlags fetches CHO condition flags, masking them to the
// bits valid for the selected LFO kind (ramp vs sine, spec.md §4.3)
// and warning when bits are discarded.
func CoerceChoFlags(v numval.Value, lfo int64) (int64, string, error) {
	if !v.IsInt() {
		return 0, "", fmt.Errorf("invalid CHO condition flags %v", v)
	}
	flags := v.Int64()
	if flags < 0 || flags > 63 {
		return 0, "", fmt.Errorf("invalid CHO condition flags %d", flags)
	}
	masked := flags & 0x0f
	kind := "sine"
	if lfo&0x02 != 0 {
		masked = flags & 0x3e
		kind = "ramp"
	}
	if masked != flags {
		return masked, fmt.Sprintf("cleared invalid %s LFO flags for CHO: %#x", kind, masked), nil
	}
	return masked, "", nil
}

// CoerceSinFreq fetches a 9-bit sine LFO frequency.
func CoerceSinFreq(v numval.Value, clamp bool) (int64, string, error) {
	if !v.IsInt() {
		return 0, "", fmt.Errorf("invalid SIN LFO frequency %v", v)
	}
	c, warn, err := clampOrReject("SIN LFO frequency", float64(v.Int64()), 0, float64(isa.M9), clamp)
	return int64(c), warn, err
}

// CoerceRampFreq fetches a ramp LFO rate/coefficient: an integer is
// range-checked against a signed 16-bit span; a real is mapped via
// the S.15 scale (spec.md §4.3).
func CoerceRampFreq(v numval.Value, clamp bool) (int64, string, error) {
	if v.IsInt() {
		c, warn, err := clampOrReject("RMP LFO frequency", float64(v.Int64()), -0x8000, 0x7FFF, clamp)
		return int64(c), warn, err
	}
	return coerceFormat(FormatS_15, v, clamp)
}

// rampAmpTable maps the documented ramp-LFO amplitude codes to their
// 2-bit field encoding (spec.md §4.3).
var rampAmpTable = map[int64]int64{
	4096: 0, 2048: 1, 1024: 2, 512: 3,
	0: 0, 1: 1, 2: 2, 3: 3,
}

// CoerceRampAmp fetches a ramp LFO amplitude, translating the
// documented magic constants into their 2-bit field code.
func CoerceRampAmp(v numval.Value) (int64, error) {
	if !v.IsInt() {
		return 0, fmt.Errorf("invalid RMP LFO amplitude %v", v)
	}
	code, ok := rampAmpTable[v.Int64()]
	if !ok {
		return 0, fmt.Errorf("invalid RMP LFO amplitude %v", v.Int64())
	}
	return code, nil
}

// CoerceDelayAddr fetches a 15-bit delay-memory address: an integer
// in -0x8000..0x7FFF is accepted and wrapped into the 15-bit field; a
// real is scaled by 2^15, rounded, and wrapped the same way (spec.md
// §4.3 "Delay address").
func CoerceDelayAddr(v numval.Value, clamp bool) (int64, string, error) {
	if v.IsInt() {
		c, warn, err := clampOrReject("delay address", float64(v.Int64()), -0x8000, 0x7FFF, clamp)
		if err != nil {
			return 0, warn, err
		}
		return int64(c) & ((1 << delayAddrBits) - 1), warn, nil
	}
	c, warn, err := clampOrReject("delay address", v.Float64(), FormatS_15.Min, FormatS_15.Max, clamp)
	if err != nil {
		return 0, warn, err
	}
	field := int64(math.Round(c * FormatS_15.Ref))
	return field & ((1 << delayAddrBits) - 1), warn, nil
}
