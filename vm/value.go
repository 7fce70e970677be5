package vm

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is Value's tagged discriminant.
type Kind byte

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindNum
	KindCodePtr
	KindFramePtr
	KindObj
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindNum:
		return "num"
	case KindCodePtr:
		return "code_ptr"
	case KindFramePtr:
		return "frame_ptr"
	case KindObj:
		return "obj"
	default:
		return "?kind?"
	}
}

// upvalRef is one link in a stack slot's back-chain: the set of heap
// Upvalue objects currently aliasing that slot. The chain belongs to the
// slot, not to whichever Value currently inhabits it, so SET_LOCAL must
// carry it forward.
type upvalRef struct {
	handle ObjHandle
	next   *upvalRef
}

// Value is the VM's tagged value: a small immediate plus, for KindObj, a
// handle into the heap. refs is the upvalue back-chain, populated only
// while the Value lives in a stack slot some REF_LOCAL has closed over.
type Value struct {
	Kind    Kind
	boolVal bool
	intVal  int32
	numVal  float64
	addr    int
	obj     ObjHandle
	refs    *upvalRef
}

func Nil() Value { return Value{Kind: KindNil} }
func Bool(b bool) Value { return Value{Kind: KindBool, boolVal: b} }
func Int(i int32) Value { return Value{Kind: KindInt, intVal: i} }
func Num(f float64) Value { return Value{Kind: KindNum, numVal: f} }
func CodePtr(offset int) Value { return Value{Kind: KindCodePtr, addr: offset} }
func FramePtr(offset int) Value { return Value{Kind: KindFramePtr, addr: offset} }
func Obj(h ObjHandle) Value { return Value{Kind: KindObj, obj: h} }

func (v Value) BoolVal() bool { return v.boolVal }
func (v Value) IntVal() int32 { return v.intVal }
func (v Value) NumVal() float64 { return v.numVal }
func (v Value) Addr() int { return v.addr }
func (v Value) Handle() ObjHandle { return v.obj }

func (v Value) IsNil() bool { return v.Kind == KindNil }
func (v Value) IsObj() bool { return v.Kind == KindObj }
func (v Value) IsBool() bool { return v.Kind == KindBool }
func (v Value) IsInt() bool { return v.Kind == KindInt }
func (v Value) IsNum() bool { return v.Kind == KindNum }

// ValuesEqual reports whether a and b are equal: false if their kinds
// differ, variant-wise otherwise, with String objects compared by byte
// content and every other Obj variant compared by handle identity.
func ValuesEqual(h *Heap, a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindBool:
		return a.boolVal == b.boolVal
	case KindInt:
		return a.intVal == b.intVal
	case KindNum:
		return a.numVal == b.numVal
	case KindCodePtr, KindFramePtr:
		return a.addr == b.addr
	case KindObj:
		if a.obj == b.obj {
			return true
		}
		as, aIsStr := h.AsString(a.obj)
		bs, bIsStr := h.AsString(b.obj)
		if aIsStr && bIsStr {
			return string(as) == string(bs)
		}
		return false
	default:
		return false
	}
}

// numPrecision is the epsilon used for floating comparisons and the
// fuzzy-zero BOOL coercion.
const numPrecision = 1e-7

// Stringify converts v to its string form and allocates a fresh String
// object on the heap.
func Stringify(h *Heap, v Value) (Value, error) {
	var s string
	switch v.Kind {
	case KindBool:
		if v.boolVal {
			s = "true"
		} else {
			s = "false"
		}
	case KindNil:
		s = "nil"
	case KindInt:
		s = strconv.FormatInt(int64(v.intVal), 10)
	case KindNum:
		s = strconv.FormatFloat(v.numVal, 'g', 7, 64)
	case KindObj:
		if bytes, ok := h.AsString(v.obj); ok {
			s = string(bytes)
		} else if _, ok := h.AsStruct(v.obj); ok {
			s = fmt.Sprintf("<struct %d>", v.obj)
		} else {
			s = fmt.Sprintf("<obj %d>", v.obj)
		}
	case KindCodePtr:
		s = fmt.Sprintf("<code %d>", v.addr)
	case KindFramePtr:
		s = fmt.Sprintf("<frame %d>", v.addr)
	default:
		s = "<?>"
	}
	handle := h.AllocString([]byte(s))
	return Obj(handle), nil
}

// coerceInt implements the INT opcode's conversion table.
func coerceInt(v Value) (Value, error) {
	switch v.Kind {
	case KindBool:
		if v.boolVal {
			return Int(1), nil
		}
		return Int(0), nil
	case KindInt:
		return v, nil
	case KindNil:
		return Int(0), nil
	case KindNum:
		return Int(int32(math.Trunc(v.numVal))), nil
	default:
		return Value{}, ErrTypeMismatch
	}
}

// coerceNum implements the NUM opcode's conversion table.
func coerceNum(v Value) (Value, error) {
	switch v.Kind {
	case KindBool:
		if v.boolVal {
			return Num(1), nil
		}
		return Num(0), nil
	case KindInt:
		return Num(float64(v.intVal)), nil
	case KindNil:
		return Num(0), nil
	case KindNum:
		return v, nil
	default:
		return Value{}, ErrTypeMismatch
	}
}

// coerceBool implements the BOOL opcode. The numeric branch's fuzzy-zero
// test is sign-dependent on purpose; existing bytecode may depend on it.
func coerceBool(v Value, precision float64) (Value, error) {
	switch v.Kind {
	case KindBool:
		return v, nil
	case KindInt:
		return Bool(v.intVal != 0), nil
	case KindNil:
		return Bool(false), nil
	case KindNum:
		if v.numVal > 0 {
			return Bool(v.numVal < precision), nil
		}
		return Bool(v.numVal > -precision), nil
	default:
		return Value{}, ErrTypeMismatch
	}
}

// numericLess/numericGreater implement the epsilon-based comparisons used
// by NUM_LESS/NUM_GREATER.
func numericLess(a, b, precision float64) bool { return a < b-precision }
func numericGreater(a, b, precision float64) bool { return a > b+precision }
