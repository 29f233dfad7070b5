package parser

import (
	"fmt"

	"github.com/lookbusy1344/fv1asm/encoder"
	"github.com/lookbusy1344/fv1asm/isa"
	"github.com/lookbusy1344/fv1asm/lexer"
	"github.com/lookbusy1344/fv1asm/numval"
)

// Options configures one assembly session (spec.md §6's CLI flags that
// affect the front end).
type Options struct {
	Clamp      bool
	Quiet      bool
	SpinReals  bool
	NoSkipPad  bool
	ErrorLimit int
}

// Result is what a successful Parse produces: the fully backpatched
// instruction list, the assembled 512-byte image, and the diagnostic
// log accumulated along the way.
type Result struct {
	Instructions []encoder.Instruction
	Image        []byte
	Diagnostics  *Diagnostics
}

// Parser drives the lexer and symbol table through one assembly
// session (spec.md C5/C6).
type Parser struct {
	lex    *lexer.Lexer
	syms   *SymbolTable
	diag   *Diagnostics
	opts   Options
	sym    lexer.Token
	peeked *lexer.Token
	list   []encoder.Instruction
	icnt   int
}

// abortSignal unwinds the call stack on a scan-fatal error or an
// error-ceiling breach (spec.md §5, §7): both conditions are
// irrecoverable for the current statement and for every statement
// after it, so there is no useful place to return an error from deep
// inside the expression grammar. panic/recover plays the role Python's
// exception-based control flow plays in the original.
type abortSignal struct{ err error }

// New builds a Parser over already-decoded source text.
func New(source string, opts Options) *Parser {
	p := &Parser{
		syms: NewSymbolTable(),
		diag: NewDiagnostics(opts.Quiet, opts.ErrorLimit),
		opts: opts,
	}
	p.lex = lexer.New(source, opts.SpinReals, p.syms.Has)
	return p
}

// Diagnostics returns the accumulated diagnostic log. Valid to call
// whether or not Parse succeeded: a failing Backpatch/Assemble pass
// still leaves every diagnostic recorded during statement parsing on
// this Parser, even though Parse itself returns a nil *Result.
func (p *Parser) Diagnostics() *Diagnostics { return p.diag }

// Parse runs the full statement-driver loop, then backpatches SKP
// targets and assembles the instruction image.
func (p *Parser) Parse() (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig, ok := r.(abortSignal)
			if !ok {
				panic(r)
			}
			err = sig.err
		}
	}()

	p.next()
	for p.sym.Kind != lexer.EOF {
		switch p.sym.Kind {
		case lexer.TARGET:
			p.target()
		case lexer.MNEMONIC:
			p.statement()
		case lexer.LABEL, lexer.ASSEMBLER:
			p.assemblerStmt()
		default:
			p.errorf(PhaseParse, p.sym.Line, "unexpected input %s", p.sym)
			p.next()
		}
	}

	list, berr := encoder.Backpatch(p.list, p.syms.JumpTable(), p.opts.NoSkipPad)
	if berr != nil {
		return nil, berr
	}
	image, aerr := encoder.Assemble(list)
	if aerr != nil {
		return nil, aerr
	}
	return &Result{Instructions: list, Image: image, Diagnostics: p.diag}, nil
}

// ScanError wraps a lexer scan failure so callers outside this package
// (the CLI, choosing an exit code per spec.md §6) can tell it apart
// from a parse-phase error ceiling breach with errors.As.
type ScanError struct{ Err error }

func (e *ScanError) Error() string { return e.Err.Error() }
func (e *ScanError) Unwrap() error { return e.Err }

func (p *Parser) next() {
	if p.peeked != nil {
		p.sym = *p.peeked
		p.peeked = nil
		return
	}
	tok, err := p.lex.Next()
	if err != nil {
		panic(abortSignal{&ScanError{err}})
	}
	p.sym = tok
}

// peek returns the token after p.sym without consuming it, used only
// to decide whether an EQU's right-hand side is a bare alias
// reference or the start of a longer expression.
func (p *Parser) peek() lexer.Token {
	if p.peeked == nil {
		tok, err := p.lex.Next()
		if err != nil {
			panic(abortSignal{&ScanError{err}})
		}
		p.peeked = &tok
	}
	return *p.peeked
}

func (p *Parser) warnf(phase Phase, line int, format string, args ...any) {
	p.diag.Warn(phase, line, fmt.Sprintf(format, args...))
}

func (p *Parser) errorf(phase Phase, line int, format string, args ...any) {
	if err := p.diag.Error(phase, line, fmt.Sprintf(format, args...)); err != nil {
		panic(abortSignal{err})
	}
}

// target handles a TARGET token (spec.md §4.5): records the current
// instruction count as the jump address for this name.
func (p *Parser) target() {
	name := p.sym.SText
	line := p.sym.Line
	if err := p.syms.DefineTarget(name, p.icnt); err != nil {
		p.errorf(PhaseParse, line, "%s", err)
	}
	p.next()
}

var continuationOps = map[string]bool{
	"|": true, "^": true, "&": true, "<<": true, ">>": true,
	"+": true, "-": true, "*": true, "/": true, "//": true, "**": true,
}

func operatorContinues(tok lexer.Token) bool {
	return tok.Kind == lexer.OPERATOR && continuationOps[tok.Text]
}

// assemblerStmt parses `name EQU value` / `EQU name value` and
// `name MEM n` (spec.md §4.4, §4.5): both label-before-keyword and
// keyword-before-label orderings are accepted.
func (p *Parser) assemblerStmt() {
	line := p.sym.Line
	var name string

	if p.sym.Kind == lexer.LABEL {
		name = p.sym.SText
		p.next()
	}

	if p.sym.Kind != lexer.ASSEMBLER {
		p.errorf(PhaseParse, p.sym.Line, "expected EQU or MEM but saw %s", p.sym)
		return
	}
	kind := p.sym.SText
	p.next()

	if name == "" {
		if p.sym.Kind != lexer.LABEL {
			p.errorf(PhaseParse, p.sym.Line, "expected a name but saw %s", p.sym)
			return
		}
		name = p.sym.SText
		p.next()
	}

	if p.syms.Has(name) {
		p.warnf(PhaseParse, line, "symbol %q re-defined", name)
	}

	// `EQU X Y`, where Y is a single bare identifier with nothing
	// following it, binds X as a lazy alias to Y rather than
	// evaluating Y immediately (spec.md §3's symbol table model);
	// anything more than a bare name is a normal expression.
	if kind == "EQU" && p.sym.Kind == lexer.LABEL && !operatorContinues(p.peek()) {
		alias := p.sym.SText
		p.next()
		if isa.Unredefinable[name] {
			p.errorf(PhaseParse, line, "symbol %q may not be redefined", name)
			return
		}
		p.syms.DefineAlias(name, alias)
		return
	}

	val := p.expr()

	if kind == "MEM" {
		if isa.Unredefinable[name] {
			p.errorf(PhaseParse, line, "symbol %q may not be redefined", name)
			return
		}
		if val.IsReal() {
			p.errorf(PhaseParse, line, "memory %q length %v not integer", name, val)
			return
		}
		n, warn, err := encoder.ClampOrReject("memory size", float64(val.Int64()), 0, isa.DelaySize, p.opts.Clamp)
		if warn != "" {
			p.warnf(PhaseRange, line, "%s", warn)
		}
		if err != nil {
			p.errorf(PhaseRange, line, "%s", err)
			return
		}
		if derr := p.syms.DefineMem(name, int64(n)); derr != nil {
			p.errorf(PhaseResource, line, "%s", derr)
		}
		return
	}

	if isa.Unredefinable[name] {
		p.errorf(PhaseParse, line, "symbol %q may not be redefined", name)
		return
	}
	p.syms.DefineNumber(name, val.Int64())
}

// statement parses one MNEMONIC-led instruction, then checks for and
// recovers from excess operands (spec.md §4.5).
func (p *Parser) statement() {
	p.instruction()
	if p.sym.Kind == lexer.ARGSEP {
		p.errorf(PhaseParse, p.sym.Line, "excess operands")
		p.resync()
	}
}

// resync skips tokens until the next statement boundary, used after
// an unexpected token so one bad statement doesn't cascade into every
// statement that follows.
func (p *Parser) resync() {
	for p.sym.Kind != lexer.EOF && p.sym.Kind != lexer.MNEMONIC &&
		p.sym.Kind != lexer.ASSEMBLER && p.sym.Kind != lexer.LABEL &&
		p.sym.Kind != lexer.TARGET {
		p.next()
	}
}

// emit appends a fully-coerced instruction at the next free address,
// rejecting it if the program is already full (spec.md §4.5).
func (p *Parser) emit(mnemonic string, operands []int64, target string, line int) {
	if p.icnt >= isa.ProgLen {
		p.errorf(PhaseParse, line, "max program exceeded by %s", mnemonic)
		return
	}
	p.list = append(p.list, encoder.Instruction{
		Mnemonic: mnemonic, Operands: operands, Addr: p.icnt, Target: target, Line: line,
	})
	p.icnt++
}

func (p *Parser) sep(mnemonic string) {
	if p.sym.Kind == lexer.ARGSEP {
		p.next()
		return
	}
	p.errorf(PhaseParse, p.sym.Line, "missing required operand for %s", mnemonic)
}

// fixedPoint parses one operand expression and runs it through one of
// the six clamp-or-reject fixed-point coercers.
func (p *Parser) fixedPoint(coerce func(numval.Value, bool) (int64, string, error)) int64 {
	line := p.sym.Line
	v := p.expr()
	n, warn, err := coerce(v, p.opts.Clamp)
	if warn != "" {
		p.warnf(PhaseRange, line, "%s", warn)
	}
	if err != nil {
		p.errorf(PhaseRange, line, "%s", err)
		return 0
	}
	return n
}

// errorOnly parses one operand expression through a coercer that never
// clamps: out of range is always an error (spec.md §4.3).
func (p *Parser) errorOnly(coerce func(numval.Value) (int64, error)) int64 {
	line := p.sym.Line
	v := p.expr()
	n, err := coerce(v)
	if err != nil {
		p.errorf(PhaseRange, line, "%s", err)
		return 0
	}
	return n
}

func (p *Parser) register() int64  { return p.errorOnly(encoder.CoerceRegister) }
func (p *Parser) s1_14() int64     { return p.fixedPoint(encoder.CoerceS1_14) }
func (p *Parser) s1_9() int64      { return p.fixedPoint(encoder.CoerceS1_9) }
func (p *Parser) s_10() int64      { return p.fixedPoint(encoder.CoerceS_10) }
func (p *Parser) s_15() int64      { return p.fixedPoint(encoder.CoerceS_15) }
func (p *Parser) s4_6() int64      { return p.fixedPoint(encoder.CoerceS4_6) }
func (p *Parser) s_23() int64      { return p.fixedPoint(encoder.CoerceS_23) }
func (p *Parser) u32() int64       { return p.fixedPoint(encoder.CoerceU32) }
func (p *Parser) delayAddr() int64 { return p.fixedPoint(encoder.CoerceDelayAddr) }
func (p *Parser) sinFreq() int64   { return p.fixedPoint(encoder.CoerceSinFreq) }
func (p *Parser) rampFreq() int64  { return p.fixedPoint(encoder.CoerceRampFreq) }
func (p *Parser) lfo() int64       { return p.errorOnly(encoder.CoerceLFO) }
func (p *Parser) rampAmp() int64   { return p.errorOnly(encoder.CoerceRampAmp) }

func (p *Parser) skipCondition() int64 { return p.errorOnly(encoder.CoerceSkipCondition) }

func (p *Parser) skipOffset() int64 {
	line := p.sym.Line
	v := p.expr()
	n, warn, err := encoder.CoerceSkipOffset(v, p.opts.SpinReals)
	if warn != "" {
		p.warnf(PhaseRange, line, "%s", warn)
	}
	if err != nil {
		p.errorf(PhaseRange, line, "%s", err)
		return 0
	}
	return n
}

func (p *Parser) choFlags(lfo int64) int64 {
	line := p.sym.Line
	v := p.expr()
	n, warn, err := encoder.CoerceChoFlags(v, lfo)
	if warn != "" {
		p.warnf(PhaseRange, line, "%s", warn)
	}
	if err != nil {
		p.errorf(PhaseRange, line, "%s", err)
		return 0
	}
	return n
}

// instruction dispatches on the current MNEMONIC token to the fixed
// operand shape for that mnemonic (spec.md §4.5's table), expanding
// pseudo-instructions to their real encoding at parse time.
func (p *Parser) instruction() {
	mnemonic := p.sym.SText
	line := p.sym.Line
	p.next()

	switch mnemonic {
	case "AND", "OR", "XOR":
		mask := p.s_23()
		p.emit(mnemonic, []int64{mask}, "", line)

	case "CLR":
		p.emit("AND", []int64{0}, "", line)

	case "NOT":
		p.emit("XOR", []int64{0xFFFFFF}, "", line)

	case "SOF", "EXP":
		mult := p.s1_14()
		p.sep(mnemonic)
		oft := p.s_10()
		p.emit(mnemonic, []int64{mult, oft}, "", line)

	case "LOG":
		mult := p.s1_14()
		p.sep(mnemonic)
		oft := p.s4_6()
		p.emit(mnemonic, []int64{mult, oft}, "", line)

	case "RDAX", "WRAX", "MAXX", "RDFX", "WRLX", "WRHX":
		reg := p.register()
		p.sep(mnemonic)
		mult := p.s1_14()
		p.emit(mnemonic, []int64{reg, mult}, "", line)

	case "LDAX":
		reg := p.register()
		p.emit("RDFX", []int64{reg, 0}, "", line)

	case "ABSA":
		p.emit("MAXX", []int64{0, 0}, "", line)

	case "MULX":
		reg := p.register()
		p.emit(mnemonic, []int64{reg}, "", line)

	case "SKP":
		cond := p.skipCondition()
		p.sep(mnemonic)
		target, offset := p.skipTargetOrOffset()
		p.emit("SKP", []int64{cond, offset}, target, line)

	case "JMP":
		target, offset := p.skipTargetOrOffset()
		p.emit("SKP", []int64{0, offset}, target, line)

	case "NOP":
		p.emit("SKP", []int64{0, 0}, "", line)

	case "RDA", "WRA", "WRAP":
		addr := p.s_15()
		p.sep(mnemonic)
		mult := p.s1_9()
		p.emit(mnemonic, []int64{addr, mult}, "", line)

	case "RMPA":
		mult := p.s1_9()
		p.emit(mnemonic, []int64{mult}, "", line)

	case "WLDS":
		lfoVal := p.lfo() & 0x01
		p.sep(mnemonic)
		freq := p.sinFreq()
		p.sep(mnemonic)
		amp := p.delayAddr()
		p.emit(mnemonic, []int64{lfoVal, freq, amp}, "", line)

	case "WLDR":
		lfoVal := p.lfo() | 0x02
		p.sep(mnemonic)
		freq := p.rampFreq()
		p.sep(mnemonic)
		amp := p.rampAmp()
		p.emit(mnemonic, []int64{lfoVal, freq, amp}, "", line)

	case "CHO":
		p.choInstruction(line)

	case "JAM":
		lfoVal := p.lfo() | 0x02
		p.emit(mnemonic, []int64{lfoVal}, "", line)

	case "RAW":
		word := p.u32()
		p.emit(mnemonic, []int64{word}, "", line)

	default:
		p.errorf(PhaseParse, line, "unimplemented mnemonic %s", mnemonic)
	}
}

// skipTargetOrOffset parses the second SKP/JMP operand: any bare LABEL
// token names a forward jump target (spec.md §4.5.1's "Label |
// Offset"), regardless of whether that name is separately bound in
// the symbol table; anything else is a literal numeric offset.
func (p *Parser) skipTargetOrOffset() (target string, offset int64) {
	if p.sym.Kind == lexer.LABEL {
		target = p.sym.SText
		p.next()
		return target, 0
	}
	return "", p.skipOffset()
}

// choInstruction parses `CHO subtype, lfo[, flags, addr]` (spec.md
// §4.5.1): RDAL's flags operand is optional, defaulting to 0b000010
// with the address defaulting to 0; RDA and SOF both require flags
// and address.
func (p *Parser) choInstruction(line int) {
	name := p.sym.SText
	if name != "RDA" && name != "SOF" && name != "RDAL" {
		p.errorf(PhaseParse, line, "expected CHO subtype RDA, SOF or RDAL but saw %s", p.sym)
		return
	}
	chotype, _, _ := p.syms.Lookup(name)
	p.next()
	p.sep("CHO")
	lfoVal := p.lfo()

	flags := int64(0b000010)
	var addr int64
	if chotype != 0x03 {
		p.sep("CHO")
		flags = p.choFlags(lfoVal)
		p.sep("CHO")
		addr = p.s_15()
	} else if p.sym.Kind == lexer.ARGSEP {
		p.next()
		flags = p.choFlags(lfoVal)
	}
	p.emit("CHO", []int64{chotype, lfoVal, flags, addr}, "", line)
}
