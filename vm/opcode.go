package vm

/*
	Instruction encoding: one opcode byte followed by zero or more
	single-byte immediates. All indices (constant, local, global, field)
	and jump offsets are unsigned bytes, capping a single image at 256
	constants / 256 globals / 256 locals per frame / 256-byte jump
	distances.

	Stack/constant ops
		PushConst  idx   push constants[idx]
		PushTrue            push true
		PushFalse           push false
		PushNil             push nil
		Pop                 pop, closing any upvalues chained to the slot

	Variables
		SetGlobal  idx   pop v; globals[idx] = v
		PushGlobal idx   push globals[idx]
		SetLocal   idx   pop v; fp[idx] = v (keeps fp[idx]'s upvalue chain)
		PushLocal  idx   push fp[idx]

	Type coercions (operate on top-of-stack, replacing it)
		CoerceInt, CoerceNum, CoerceBool, CoerceStr

	Arithmetic / comparison (typed, compiler picks the variant)
		IntAdd, IntSub, IntMul, IntDiv, IntNeg, IntLess, IntGreater
		NumAdd, NumSub, NumMul, NumDiv, NumNeg, NumLess, NumGreater
		StrCat, Not, Equal

	I/O
		Print  pop top (must be String), write bytes + newline
		Clock  push Num of elapsed process CPU time in seconds

	Control flow
		Jump         off   ip += off
		JumpIfFalse  off   pop cond; if false, ip += off
		Loop         off   ip -= off

	Functions and calls
		Function off   push CodePtr(ip); ip += off (skip the body)
		Call     n     save return ip and caller fp below the new frame
		LoadIP         pop CodePtr, set ip
		LoadFP         pop FramePtr, set fp
		SetReturn      pop into the return-store scratch slot
		PushReturn     push the return-store scratch slot

	Structs
		Struct       n   pop n values (right-to-left), push struct handle
		GetField     i   pop struct, push fields[i]
		ExtractField off, i   peek struct at depth off, push fields[i]
		SetField     i   pop value, peek struct at top, overwrite fields[i]

	Upvalue / closure
		RefLocal i   allocate Upvalue aliasing fp+i, link into fp[i]'s chain
		Deref        top must be Upvalue, replace with a copy of its cell
		SetRef       pop value, pop Upvalue, write through the cell
*/

// Opcode is a single instruction byte. Dispatch of a byte >= OpCount is
// always fatal.
type Opcode byte

const (
	PushConst Opcode = iota
	PushTrue
	PushFalse
	PushNil
	Pop

	SetGlobal
	PushGlobal
	SetLocal
	PushLocal

	CoerceInt
	CoerceNum
	CoerceBool
	CoerceStr

	IntAdd
	IntSub
	IntMul
	IntDiv
	IntNeg
	IntLess
	IntGreater

	NumAdd
	NumSub
	NumMul
	NumDiv
	NumNeg
	NumLess
	NumGreater

	StrCat
	Not
	Equal

	Print
	Clock

	Jump
	JumpIfFalse
	Loop

	Function
	Call
	LoadIP
	LoadFP
	SetReturn
	PushReturn

	Struct
	GetField
	ExtractField
	SetField

	RefLocal
	Deref
	SetRef

	// OpCount marks the end of the defined opcode range. Any byte >=
	// OpCount fails with ErrUnknownOpcode.
	OpCount
)

var opcodeNames = [OpCount]string{
	PushConst:    "push_const",
	PushTrue:     "push_true",
	PushFalse:    "push_false",
	PushNil:      "push_nil",
	Pop:          "pop",
	SetGlobal:    "set_global",
	PushGlobal:   "push_global",
	SetLocal:     "set_local",
	PushLocal:    "push_local",
	CoerceInt:    "int",
	CoerceNum:    "num",
	CoerceBool:   "bool",
	CoerceStr:    "str",
	IntAdd:       "int_add",
	IntSub:       "int_sub",
	IntMul:       "int_mul",
	IntDiv:       "int_div",
	IntNeg:       "int_neg",
	IntLess:      "int_less",
	IntGreater:   "int_greater",
	NumAdd:       "num_add",
	NumSub:       "num_sub",
	NumMul:       "num_mul",
	NumDiv:       "num_div",
	NumNeg:       "num_neg",
	NumLess:      "num_less",
	NumGreater:   "num_greater",
	StrCat:       "str_cat",
	Not:          "not",
	Equal:        "equal",
	Print:        "print",
	Clock:        "clock",
	Jump:         "jump",
	JumpIfFalse:  "jump_if_false",
	Loop:         "loop",
	Function:     "function",
	Call:         "call",
	LoadIP:       "load_ip",
	LoadFP:       "load_fp",
	SetReturn:    "set_return",
	PushReturn:   "push_return",
	Struct:       "struct",
	GetField:     "get_field",
	ExtractField: "extract_field",
	SetField:     "set_field",
	RefLocal:     "ref_local",
	Deref:        "deref",
	SetRef:       "set_ref",
}

// String implements fmt.Stringer so opcodes read naturally in traces and
// fault messages.
func (op Opcode) String() string {
	if op < OpCount {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return "?unknown?"
}

// immediateCount returns how many single-byte immediates follow this
// opcode in the instruction stream.
func (op Opcode) immediateCount() int {
	switch op {
	case PushConst, SetGlobal, PushGlobal, SetLocal, PushLocal,
		Jump, JumpIfFalse, Loop, Function, Call,
		Struct, GetField, SetField, RefLocal:
		return 1
	case ExtractField:
		return 2
	default:
		return 0
	}
}
