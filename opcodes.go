package main

import "fmt"

// Opcode is the high 16 bits of an emitted instruction word.
type Opcode int

const (
	OpNop      Opcode = 0
	OpCall     Opcode = 1
	OpReturn   Opcode = 2
	OpPop      Opcode = 3
	OpLoad     Opcode = 4
	OpStore    Opcode = 5
	OpAdd      Opcode = 6
	OpSub      Opcode = 7
	OpRest     Opcode = 8
	OpGtr      Opcode = 9
	OpGte      Opcode = 10
	OpEq       Opcode = 11
	OpNeq      Opcode = 12
	OpDup      Opcode = 13
	OpGettag   Opcode = 14
	OpSettag   Opcode = 15
	OpAnd      Opcode = 16
	OpOr       Opcode = 17
	OpXor      Opcode = 18
	OpLshift   Opcode = 19
	OpRshift   Opcode = 20
	OpGetbp    Opcode = 21
	OpReserve  Opcode = 24
	OpPush     Opcode = 25
	OpGoto     Opcode = 26
	OpBfalse   Opcode = 27
	OpGetlocal Opcode = 29
	OpSetlocal Opcode = 30
	OpCleanup  Opcode = 31
)

var opcodeNames = map[Opcode]string{
	OpNop:      "nop",
	OpCall:     "call",
	OpReturn:   "return",
	OpPop:      "pop",
	OpLoad:     "load",
	OpStore:    "store",
	OpAdd:      "add",
	OpSub:      "sub",
	OpRest:     "rest",
	OpGtr:      "gtr",
	OpGte:      "gte",
	OpEq:       "eq",
	OpNeq:      "neq",
	OpDup:      "dup",
	OpGettag:   "gettag",
	OpSettag:   "settag",
	OpAnd:      "and",
	OpOr:       "or",
	OpXor:      "xor",
	OpLshift:   "lshift",
	OpRshift:   "rshift",
	OpGetbp:    "getbp",
	OpReserve:  "reserve",
	OpPush:     "push",
	OpGoto:     "goto",
	OpBfalse:   "bfalse",
	OpGetlocal: "getlocal",
	OpSetlocal: "setlocal",
	OpCleanup:  "cleanup",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%d)", int(op))
}

// Tag values carried alongside a word by settag/gettag/load/store.
const (
	TagInt      = 0
	TagCons     = 1
	TagFunction = 2
)

// instruction is one emitted word, kept unencoded until layout resolves
// fixups against it.
type instruction struct {
	op      Opcode
	operand int
}

// encode packs the instruction into the 32-bit word format of §6: high 16
// bits opcode, low 16 bits two's-complement operand.
func (in instruction) encode() uint32 {
	return uint32(in.op)<<16 | uint32(uint16(in.operand))
}
