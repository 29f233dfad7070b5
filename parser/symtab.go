package parser

import (
	"fmt"

	"github.com/lookbusy1344/fv1asm/isa"
)

// binding is one symbol-table entry: either a resolved integer or an
// alias naming another entry, resolved lazily on reference (spec.md
// §3, §4.4).
type binding struct {
	isAlias bool
	num     int64
	alias   string
}

// SymbolTable holds the reserved names, user EQU/MEM bindings and the
// SKP jump table for one assembly session (spec.md §3, §4.4).
type SymbolTable struct {
	entries  map[string]binding
	jumptbl  map[string]int
	delaymem int64
}

// NewSymbolTable builds a table pre-populated with the reserved names
// of spec.md §6 (ported verbatim into isa.Reserved).
func NewSymbolTable() *SymbolTable {
	st := &SymbolTable{
		entries: make(map[string]binding, len(isa.Reserved)),
		jumptbl: make(map[string]int),
	}
	for name, v := range isa.Reserved {
		st.entries[name] = binding{num: v}
	}
	return st
}

// Has reports whether name is bound to anything (reserved, EQU, or
// MEM-synthesised).
func (st *SymbolTable) Has(name string) bool {
	_, ok := st.entries[name]
	return ok
}

// Lookup dereferences name, walking an EQU alias chain iteratively
// with cycle detection (spec.md §4.4, §9's "no pointer cycles" note).
// ok is false if name is entirely undefined.
func (st *SymbolTable) Lookup(name string) (value int64, ok bool, err error) {
	seen := make(map[string]bool)
	cur := name
	for {
		b, present := st.entries[cur]
		if !present {
			return 0, false, nil
		}
		if !b.isAlias {
			return b.num, true, nil
		}
		if seen[cur] {
			return 0, true, fmt.Errorf("circular definition of symbol %q", name)
		}
		seen[cur] = true
		cur = b.alias
	}
}

// DefineNumber binds name to an integer value (the EQU form that
// evaluates to a plain number). It reports whether name already
// existed, so the caller can emit the "symbol redefined" warning
// spec.md §4.4 describes; rejecting RDAL/SOF/RDA redefinition
// outright is the caller's responsibility (isa.Unredefinable).
func (st *SymbolTable) DefineNumber(name string, v int64) (existed bool) {
	_, existed = st.entries[name]
	st.entries[name] = binding{num: v}
	return existed
}

// DefineAlias binds name to another symbol's name, resolved lazily.
func (st *SymbolTable) DefineAlias(name, target string) (existed bool) {
	_, existed = st.entries[name]
	st.entries[name] = binding{isAlias: true, alias: target}
	return existed
}

// DefineMem installs the three MEM-generated labels for `name MEM n`
// (spec.md §3, §4.4): name=base, name#=base+n, name^=base+n/2, then
// advances the delaymem cursor to base+n+1.
func (st *SymbolTable) DefineMem(name string, n int64) error {
	if st.delaymem > isa.DelaySize {
		return fmt.Errorf("delay memory exhausted")
	}
	top := st.delaymem + n
	if top > isa.DelaySize {
		return fmt.Errorf("delay memory exhausted: requested %d exceeds %d available", n, isa.DelaySize-st.delaymem)
	}
	base := st.delaymem
	st.entries[name] = binding{num: base}
	st.entries[name+"#"] = binding{num: top}
	st.entries[name+"^"] = binding{num: base + n/2}
	st.delaymem = top + 1
	return nil
}

// DefineTarget records a jump-table entry for a TARGET statement
// (spec.md §4.5): rejecting redefinition at a different address and
// collision with an existing symbol.
func (st *SymbolTable) DefineTarget(name string, addr int) error {
	if st.Has(name) {
		return fmt.Errorf("target %q collides with an existing symbol", name)
	}
	if existing, ok := st.jumptbl[name]; ok {
		if existing != addr {
			return fmt.Errorf("label %q redefined", name)
		}
		return nil
	}
	st.jumptbl[name] = addr
	return nil
}

// JumpTable returns the accumulated target→address mapping for the
// backpatch pass (encoder.Backpatch).
func (st *SymbolTable) JumpTable() map[string]int {
	return st.jumptbl
}

// DelayMem returns the current delay-memory cursor, for diagnostics.
func (st *SymbolTable) DelayMem() int64 {
	return st.delaymem
}
