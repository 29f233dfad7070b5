package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T, src string, opts Options) *Parser {
	t.Helper()
	p := New(src, opts)
	p.next()
	return p
}

func TestArithmeticPrecedence(t *testing.T) {
	p := newTestParser(t, "1 + 2 * 3", Options{})
	v := p.expr()
	require.True(t, v.IsInt())
	assert.EqualValues(t, 7, v.Int64())
}

func TestPowerIsRightAssociative(t *testing.T) {
	p := newTestParser(t, "2 ** 3 ** 2", Options{}) // 2**(3**2), not (2**3)**2
	v := p.expr()
	assert.EqualValues(t, 512, v.Int64())
}

func TestDivisionAlwaysYieldsReal(t *testing.T) {
	p := newTestParser(t, "1 / 2", Options{})
	v := p.expr()
	require.True(t, v.IsReal())
	assert.InDelta(t, 0.5, v.Float64(), 1e-9)
}

func TestFloorDivisionIsIntegerForIntegerOperands(t *testing.T) {
	p := newTestParser(t, "7 // 2", Options{})
	v := p.expr()
	require.True(t, v.IsInt())
	assert.EqualValues(t, 3, v.Int64())
}

func TestBitwiseOnRealOperandTruncatesWithWarning(t *testing.T) {
	p := newTestParser(t, "5 | 2.7", Options{})
	v := p.expr()
	assert.EqualValues(t, 7, v.Int64())
	require.Len(t, p.diag.Entries(), 1)
	assert.Equal(t, SevWarning, p.diag.Entries()[0].Severity)
}

func TestIntOperatorRoundsToNearestEven(t *testing.T) {
	p := newTestParser(t, "INT 2.5", Options{})
	v := p.expr()
	assert.EqualValues(t, 2, v.Int64())
}

func TestParenthesesOverridePrecedence(t *testing.T) {
	p := newTestParser(t, "(1 + 2) * 3", Options{})
	v := p.expr()
	assert.EqualValues(t, 9, v.Int64())
}

func TestUndefinedSymbolIsAnErrorAndYieldsZero(t *testing.T) {
	p := newTestParser(t, "FOOBAR", Options{})
	v := p.expr()
	assert.EqualValues(t, 0, v.Int64())
	assert.True(t, p.diag.HasErrors())
}

func TestReservedSymbolResolvesToItsTableValue(t *testing.T) {
	p := newTestParser(t, "REG0", Options{})
	v := p.expr()
	assert.EqualValues(t, 0x20, v.Int64())
}

func TestSpinRealsModeSubstitutesZeroForMissingArgument(t *testing.T) {
	p := newTestParser(t, ",", Options{SpinReals: true})
	v := p.atom()
	assert.EqualValues(t, 0, v.Int64())
	require.Len(t, p.diag.Entries(), 1)
	assert.Equal(t, SevWarning, p.diag.Entries()[0].Severity)
}

func TestWithoutSpinRealsMissingArgumentIsAnError(t *testing.T) {
	p := newTestParser(t, ",", Options{})
	v := p.atom()
	assert.EqualValues(t, 0, v.Int64())
	assert.True(t, p.diag.HasErrors())
}

func TestUnaryMinusNegatesReal(t *testing.T) {
	p := newTestParser(t, "-1.5", Options{})
	v := p.expr()
	assert.InDelta(t, -1.5, v.Float64(), 1e-9)
}

func TestShiftIsRightAssociative(t *testing.T) {
	// 1 << (2 << 1) == 1 << 4 == 16, not (1 << 2) << 1 == 8
	p := newTestParser(t, "1 << 2 << 1", Options{})
	v := p.expr()
	assert.EqualValues(t, 16, v.Int64())
}
