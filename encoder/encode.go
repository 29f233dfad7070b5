package encoder

import (
	"encoding/binary"
	"fmt"

	"github.com/lookbusy1344/fv1asm/isa"
)

// Instruction is a post-coercion parse-list entry (spec.md §3): a
// mnemonic, its already-coerced operand fields in layout order, the
// instruction address it occupies, an optional symbolic SKP target,
// and the source line for diagnostics.
type Instruction struct {
	Mnemonic string
	Operands []int64
	Addr     int
	Target   string
	Line     int
}

// EncodeWord bit-packs one Instruction into its 32-bit word per the
// mnemonic's isa.Layout (spec.md §4.6): starting from the opcode,
// each operand is masked and shifted into place.
func EncodeWord(ins Instruction) (uint32, error) {
	layout, ok := isa.Mnemonics[ins.Mnemonic]
	if !ok {
		return 0, fmt.Errorf("unknown mnemonic %q", ins.Mnemonic)
	}
	word := layout.Opcode
	for i, field := range layout.Fields {
		if i >= len(ins.Operands) {
			break
		}
		word |= (uint32(ins.Operands[i]) & field.Mask) << field.Shift
	}
	return word, nil
}

// Backpatch resolves every symbolic SKP target against jumpTable
// (spec.md §4.5.2), mutating each affected Instruction's offset
// operand (index 1) in place, then pads the list to isa.ProgLen
// entries. noSkipPad selects between the two padding strategies
// documented in SPEC_FULL.md §4: literal one-at-a-time `SKP 0,0`
// (noSkipPad true, the `-n` flag) or a chain of `SKP 0,d` hops across
// the unused tail (noSkipPad false, the default, matching the
// original's `doskip` behaviour).
func Backpatch(list []Instruction, jumpTable map[string]int, noSkipPad bool) ([]Instruction, error) {
	for i := range list {
		ins := &list[i]
		if ins.Mnemonic != "SKP" || ins.Target == "" {
			continue
		}
		dest, ok := jumpTable[ins.Target]
		if !ok {
			return nil, fmt.Errorf("undefined target for SKP %q (line %d)", ins.Target, ins.Line)
		}
		if dest <= ins.Addr {
			return nil, fmt.Errorf("target %q does not follow SKP (line %d)", ins.Target, ins.Line)
		}
		d := dest - ins.Addr - 1
		if d > 63 {
			return nil, fmt.Errorf("offset from SKP to %q (%#x) too large (line %d)", ins.Target, d, ins.Line)
		}
		if len(ins.Operands) < 2 {
			ins.Operands = append(ins.Operands, 0)
		}
		ins.Operands[1] = int64(d)
	}

	n := len(list)
	if n > isa.ProgLen {
		return nil, fmt.Errorf("max program exceeded: %d instructions parsed", n)
	}

	for addr := n; addr < isa.ProgLen; addr++ {
		list = append(list, Instruction{Mnemonic: "SKP", Operands: []int64{0, 0}, Addr: addr})
	}

	if !noSkipPad {
		addr := n
		for addr < isa.ProgLen {
			remaining := isa.ProgLen - addr - 1
			if remaining > 63 {
				remaining = 63
			}
			list[addr] = Instruction{Mnemonic: "SKP", Operands: []int64{0, int64(remaining)}, Addr: addr}
			addr += remaining + 1
		}
	}

	return list, nil
}

// Assemble packs a fully backpatched, exactly-isa.ProgLen-long
// instruction list into the 512-byte big-endian instruction image
// (spec.md §3, P1).
func Assemble(list []Instruction) ([]byte, error) {
	if len(list) != isa.ProgLen {
		return nil, fmt.Errorf("internal: expected %d instructions, got %d", isa.ProgLen, len(list))
	}
	buf := make([]byte, isa.ProgLen*4)
	for _, ins := range list {
		if ins.Addr < 0 || ins.Addr >= isa.ProgLen {
			return nil, fmt.Errorf("internal: instruction address %d out of range", ins.Addr)
		}
		word, err := EncodeWord(ins)
		if err != nil {
			return nil, err
		}
		binary.BigEndian.PutUint32(buf[ins.Addr*4:], word)
	}
	return buf, nil
}
