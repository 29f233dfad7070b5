package parser

import (
	"github.com/lookbusy1344/fv1asm/lexer"
	"github.com/lookbusy1344/fv1asm/numval"
)

// The grammar below follows spec.md §4.2's precedence-climbing
// recursive descent exactly (lowest to highest): expr -> orExpr ->
// xorExpr -> andExpr -> shiftExpr -> aExpr -> mExpr -> uExpr -> power
// -> atom.

func (p *Parser) expr() numval.Value {
	return p.orExpr()
}

func (p *Parser) orExpr() numval.Value {
	acc := p.xorExpr()
	for p.opAt("|") {
		line := p.sym.Line
		p.next()
		rhs := p.xorExpr()
		v, truncated := numval.Or(acc, rhs)
		if truncated {
			p.warnf(PhaseParse, line, "real operand truncated for bitwise or (|)")
		}
		acc = v
	}
	return acc
}

func (p *Parser) xorExpr() numval.Value {
	acc := p.andExpr()
	for p.opAt("^") {
		line := p.sym.Line
		p.next()
		rhs := p.andExpr()
		v, truncated := numval.Xor(acc, rhs)
		if truncated {
			p.warnf(PhaseParse, line, "real operand truncated for bitwise xor (^)")
		}
		acc = v
	}
	return acc
}

func (p *Parser) andExpr() numval.Value {
	acc := p.shiftExpr()
	for p.opAt("&") {
		line := p.sym.Line
		p.next()
		rhs := p.shiftExpr()
		v, truncated := numval.And(acc, rhs)
		if truncated {
			p.warnf(PhaseParse, line, "real operand truncated for bitwise and (&)")
		}
		acc = v
	}
	return acc
}

// shiftExpr is right-associative, so it recurses into itself rather
// than looping, per spec.md's grammar (`shift_expr := a_expr (('<<'|
// '>>') shift_expr)?`).
func (p *Parser) shiftExpr() numval.Value {
	acc := p.aExpr()
	if p.opAt("<<") || p.opAt(">>") {
		op := p.sym.Text
		line := p.sym.Line
		p.next()
		rhs := p.shiftExpr()
		var v numval.Value
		var truncated bool
		if op == "<<" {
			v, truncated = numval.Shl(acc, rhs)
		} else {
			v, truncated = numval.Shr(acc, rhs)
		}
		if truncated {
			p.warnf(PhaseParse, line, "real operand truncated for shift (%s)", op)
		}
		acc = v
	}
	return acc
}

func (p *Parser) aExpr() numval.Value {
	acc := p.mExpr()
	for p.opAt("+") || p.opAt("-") {
		op := p.sym.Text
		p.next()
		rhs := p.mExpr()
		if op == "+" {
			acc = numval.Add(acc, rhs)
		} else {
			acc = numval.Sub(acc, rhs)
		}
	}
	return acc
}

func (p *Parser) mExpr() numval.Value {
	acc := p.uExpr()
	for p.opAt("*") || p.opAt("//") || p.opAt("/") {
		op := p.sym.Text
		p.next()
		rhs := p.uExpr()
		switch op {
		case "*":
			acc = numval.Mul(acc, rhs)
		case "//":
			acc = numval.FloorDiv(acc, rhs)
		default:
			acc = numval.Div(acc, rhs)
		}
	}
	return acc
}

func (p *Parser) uExpr() numval.Value {
	if p.sym.Kind == lexer.OPERATOR {
		switch p.sym.Text {
		case "+":
			p.next()
			return p.uExpr()
		case "-":
			p.next()
			return numval.Neg(p.uExpr())
		case "~", "!":
			op := p.sym.Text
			line := p.sym.Line
			p.next()
			v, truncated := numval.Not(p.uExpr())
			if truncated {
				p.warnf(PhaseParse, line, "real operand truncated for unary %s", op)
			}
			return v
		}
	}
	if p.sym.Kind == lexer.OPERATOR && p.sym.SText == "INT" {
		p.next()
		return numval.IntNearest(p.uExpr())
	}
	return p.power()
}

// power is right-associative (`power := atom ('**' u_expr)?`).
func (p *Parser) power() numval.Value {
	acc := p.atom()
	if p.opAt("**") {
		p.next()
		return numval.Pow(acc, p.uExpr())
	}
	return acc
}

func (p *Parser) atom() numval.Value {
	switch {
	case p.opAt("("):
		p.next()
		v := p.expr()
		if p.opAt(")") {
			p.next()
		} else {
			p.errorf(PhaseParse, p.sym.Line, "expected ')' but saw %s", p.sym)
		}
		return v

	case p.sym.Kind == lexer.LABEL:
		name := p.sym.SText
		text := p.sym.Text
		line := p.sym.Line
		val, ok, err := p.syms.Lookup(name)
		p.next()
		if err != nil {
			p.errorf(PhaseParse, line, "%s", err)
			return numval.Int(0)
		}
		if !ok {
			p.errorf(PhaseParse, line, "undefined symbol %q", text)
			return numval.Int(0)
		}
		return numval.Int(val)

	case p.sym.Kind == lexer.INTEGER:
		v := numval.Int(p.sym.IVal)
		p.next()
		return v

	case p.sym.Kind == lexer.FLOAT:
		v := numval.Real(p.sym.FVal)
		p.next()
		return v

	default:
		if p.opts.SpinReals {
			p.warnf(PhaseParse, p.sym.Line, "missing argument replaced with 0")
			return numval.Int(0)
		}
		p.errorf(PhaseParse, p.sym.Line, "expected name or value but saw %s", p.sym)
		p.next()
		return numval.Int(0)
	}
}

func (p *Parser) opAt(text string) bool {
	return p.sym.Kind == lexer.OPERATOR && p.sym.Text == text
}
