package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/fv1asm/lexer"
)

func tokens(t *testing.T, src string, lookup lexer.LookupFunc) []lexer.Token {
	t.Helper()
	l := lexer.New(src, false, lookup)
	var out []lexer.Token
	for {
		tok, err := l.Next()
		require.NoError(t, err)
		out = append(out, tok)
		if tok.Kind == lexer.EOF {
			return out
		}
	}
}

func TestMnemonicAndAssembler(t *testing.T) {
	toks := tokens(t, "rdax reg0, 1.0\nDEL mem 100", nil)
	require.GreaterOrEqual(t, len(toks), 2)
	assert.Equal(t, lexer.MNEMONIC, toks[0].Kind)
	assert.Equal(t, "RDAX", toks[0].SText)
}

func TestDoublingOperators(t *testing.T) {
	toks := tokens(t, "a << b >> c ** d // e", func(string) bool { return false })
	var ops []string
	for _, tok := range toks {
		if tok.Kind == lexer.OPERATOR {
			ops = append(ops, tok.Text)
		}
	}
	assert.Equal(t, []string{"<<", ">>", "**", "//"}, ops)
}

func TestLoneAngleBracketIsScanError(t *testing.T) {
	l := lexer.New("a < b", false, nil)
	for i := 0; i < 10; i++ {
		_, err := l.Next()
		if err != nil {
			return
		}
	}
	t.Fatal("expected a scan error for a lone '<'")
}

func TestHexAndBinaryPrefixedIntegers(t *testing.T) {
	toks := tokens(t, "$DEADBEEF %1010", nil)
	require.Len(t, toks, 3)
	assert.Equal(t, lexer.INTEGER, toks[0].Kind)
	assert.EqualValues(t, 0xDEADBEEF, toks[0].IVal)
	assert.Equal(t, lexer.INTEGER, toks[1].Kind)
	assert.EqualValues(t, 0b1010, toks[1].IVal)
}

func TestHexPrefixDecimalStyleIsOneToken(t *testing.T) {
	toks := tokens(t, "0x1F 0b101", nil)
	require.Len(t, toks, 3)
	assert.EqualValues(t, 0x1F, toks[0].IVal)
	assert.EqualValues(t, 0b101, toks[1].IVal)
}

func TestFloatLiteral(t *testing.T) {
	toks := tokens(t, "1.5", nil)
	require.Len(t, toks, 2)
	assert.Equal(t, lexer.FLOAT, toks[0].Kind)
	assert.InDelta(t, 1.5, toks[0].FVal, 1e-12)
}

func TestFloatLiteralWithExponent(t *testing.T) {
	toks := tokens(t, "1.5e+2", nil)
	require.Len(t, toks, 2)
	assert.Equal(t, lexer.FLOAT, toks[0].Kind)
	assert.InDelta(t, 150.0, toks[0].FVal, 1e-9)
}

func TestSpinRealsModeRetagsBareOneAndTwo(t *testing.T) {
	l := lexer.New("1 2 3", true, nil)
	one, err := l.Next()
	require.NoError(t, err)
	two, err := l.Next()
	require.NoError(t, err)
	three, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, lexer.FLOAT, one.Kind)
	assert.Equal(t, lexer.FLOAT, two.Kind)
	assert.Equal(t, lexer.INTEGER, three.Kind)
}

func TestTargetVsLabel(t *testing.T) {
	toks := tokens(t, "loop: rdax reg0, 1.0", nil)
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, lexer.TARGET, toks[0].Kind)
	assert.Equal(t, "LOOP", toks[0].SText)
}

func TestModifierAbsorbedWhenKnown(t *testing.T) {
	known := func(name string) bool { return name == "DEL#" }
	l := lexer.New("DEL#", false, known)
	tok, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, lexer.LABEL, tok.Kind)
	assert.Equal(t, "DEL#", tok.SText)
}

func TestModifierNotAbsorbedWhenUnknownLeavesBareLabel(t *testing.T) {
	l := lexer.New("FOO^ , 1", false, func(string) bool { return false })
	tok, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, lexer.LABEL, tok.Kind)
	assert.Equal(t, "FOO", tok.SText)
}

func TestIntKeywordIsAnOperator(t *testing.T) {
	toks := tokens(t, "INT 1.5", nil)
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, lexer.OPERATOR, toks[0].Kind)
	assert.Equal(t, "INT", toks[0].SText)
}

func TestCommentToEndOfLine(t *testing.T) {
	toks := tokens(t, "rdax reg0, 1.0 ; trailing comment\nclr", nil)
	var mnemonics []string
	for _, tok := range toks {
		if tok.Kind == lexer.MNEMONIC {
			mnemonics = append(mnemonics, tok.SText)
		}
	}
	assert.Equal(t, []string{"RDAX", "CLR"}, mnemonics)
}

func TestArgsep(t *testing.T) {
	toks := tokens(t, "reg0,reg1", nil)
	require.Len(t, toks, 4)
	assert.Equal(t, lexer.ARGSEP, toks[1].Kind)
}
