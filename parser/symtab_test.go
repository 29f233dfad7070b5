package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/fv1asm/isa"
)

func TestReservedNamesArePrepopulated(t *testing.T) {
	st := NewSymbolTable()
	v, ok, err := st.Lookup("REG31")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 0x3F, v)
}

func TestUndefinedSymbolLookupFails(t *testing.T) {
	st := NewSymbolTable()
	_, ok, err := st.Lookup("NOSUCHNAME")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAliasChainResolvesToTheUnderlyingNumber(t *testing.T) {
	st := NewSymbolTable()
	st.DefineNumber("BASE", 42)
	st.DefineAlias("A", "BASE")
	st.DefineAlias("B", "A")
	v, ok, err := st.Lookup("B")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 42, v)
}

func TestAliasCycleIsDetectedRatherThanLoopingForever(t *testing.T) {
	st := NewSymbolTable()
	st.DefineAlias("A", "B")
	st.DefineAlias("B", "A")
	_, _, err := st.Lookup("A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular")
}

func TestDefineNumberReportsRedefinition(t *testing.T) {
	st := NewSymbolTable()
	assert.False(t, st.DefineNumber("X", 1))
	assert.True(t, st.DefineNumber("X", 2))
}

func TestMemInstallsTheThreeLabels(t *testing.T) {
	st := NewSymbolTable()
	require.NoError(t, st.DefineMem("DEL", 100))
	base, _, _ := st.Lookup("DEL")
	top, _, _ := st.Lookup("DEL#")
	mid, _, _ := st.Lookup("DEL^")
	assert.EqualValues(t, 0, base)
	assert.EqualValues(t, 100, top)
	assert.EqualValues(t, 50, mid)
	assert.EqualValues(t, 101, st.DelayMem())
}

func TestSecondMemRegionStartsAfterOneCellOfPadding(t *testing.T) {
	st := NewSymbolTable()
	require.NoError(t, st.DefineMem("A", 10))
	require.NoError(t, st.DefineMem("B", 5))
	base, _, _ := st.Lookup("B")
	assert.EqualValues(t, 11, base)
}

func TestMemRejectsRequestExceedingRemainingDelay(t *testing.T) {
	st := NewSymbolTable()
	err := st.DefineMem("HUGE", isa.DelaySize+1)
	require.Error(t, err)
}

func TestDefineTargetAcceptsRepeatedIdenticalAddress(t *testing.T) {
	st := NewSymbolTable()
	require.NoError(t, st.DefineTarget("LOOP", 3))
	require.NoError(t, st.DefineTarget("LOOP", 3))
}

func TestDefineTargetRejectsRedefinitionAtADifferentAddress(t *testing.T) {
	st := NewSymbolTable()
	require.NoError(t, st.DefineTarget("LOOP", 3))
	assert.Error(t, st.DefineTarget("LOOP", 5))
}

func TestDefineTargetRejectsCollisionWithAnExistingSymbol(t *testing.T) {
	st := NewSymbolTable()
	assert.Error(t, st.DefineTarget("REG0", 0))
}
