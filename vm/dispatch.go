package vm

import (
	"fmt"
	"io"
	"os"
)

// defaultWriter is where PRINT sends its output when VM.Writer is nil;
// the CLI driver or tests may redirect output by setting VM.Writer.
var defaultWriter io.Writer = os.Stdout

// dispatch executes a single decoded instruction: one switch over every
// opcode, since a handler table's indirection isn't worth it for a switch
// this size in a tight loop.
func (vm *VM) dispatch(op Opcode, args []byte) error {
	switch op {

	case PushConst:
		idx := int(args[0])
		if idx >= len(vm.constants) {
			return ErrConstOutOfRange
		}
		return vm.push(vm.constants[idx])

	case PushTrue:
		return vm.push(Bool(true))
	case PushFalse:
		return vm.push(Bool(false))
	case PushNil:
		return vm.push(Nil())

	case Pop:
		_, err := vm.pop()
		return err

	case SetGlobal:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		return vm.globals.Set(int(args[0]), v)

	case PushGlobal:
		v, err := vm.globals.Get(int(args[0]))
		if err != nil {
			return err
		}
		return vm.push(v)

	case SetLocal:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		abs, err := vm.local(int(args[0]))
		if err != nil {
			return err
		}
		vm.setLocal(abs, v)
		return nil

	case PushLocal:
		abs, err := vm.local(int(args[0]))
		if err != nil {
			return err
		}
		return vm.push(vm.stack[abs])

	case CoerceInt:
		return vm.unaryCoerce(coerceInt)
	case CoerceNum:
		return vm.unaryCoerce(coerceNum)
	case CoerceBool:
		return vm.unaryCoerce(func(v Value) (Value, error) { return coerceBool(v, vm.cfg.NumPrecision) })
	case CoerceStr:
		return vm.unaryCoerce(func(v Value) (Value, error) { return Stringify(vm.heap, v) })

	case IntAdd:
		return vm.intBinOp(func(a, b int32) (Value, error) { return Int(a + b), nil })
	case IntSub:
		return vm.intBinOp(func(a, b int32) (Value, error) { return Int(a - b), nil })
	case IntMul:
		return vm.intBinOp(func(a, b int32) (Value, error) { return Int(a * b), nil })
	case IntDiv:
		return vm.intBinOp(func(a, b int32) (Value, error) {
			if b == 0 {
				return Value{}, ErrDivByZero
			}
			return Int(a / b), nil
		})
	case IntLess:
		return vm.intBinOp(func(a, b int32) (Value, error) { return Bool(a < b), nil })
	case IntGreater:
		return vm.intBinOp(func(a, b int32) (Value, error) { return Bool(a > b), nil })
	case IntNeg:
		return vm.intUnOp(func(a int32) (Value, error) { return Int(-a), nil })

	case NumAdd:
		return vm.numBinOp(func(a, b float64) (Value, error) { return Num(a + b), nil })
	case NumSub:
		return vm.numBinOp(func(a, b float64) (Value, error) { return Num(a - b), nil })
	case NumMul:
		return vm.numBinOp(func(a, b float64) (Value, error) { return Num(a * b), nil })
	case NumDiv:
		return vm.numBinOp(func(a, b float64) (Value, error) { return Num(a / b), nil })
	case NumLess:
		p := vm.cfg.NumPrecision
		return vm.numBinOp(func(a, b float64) (Value, error) { return Bool(numericLess(a, b, p)), nil })
	case NumGreater:
		p := vm.cfg.NumPrecision
		return vm.numBinOp(func(a, b float64) (Value, error) { return Bool(numericGreater(a, b, p)), nil })
	case NumNeg:
		return vm.numUnOp(func(a float64) (Value, error) { return Num(-a), nil })

	case StrCat:
		b, err := vm.pop()
		if err != nil {
			return err
		}
		a, err := vm.pop()
		if err != nil {
			return err
		}
		if !a.IsObj() || !b.IsObj() {
			return ErrTypeMismatch
		}
		handle, err := vm.heap.Concat(a.Handle(), b.Handle())
		if err != nil {
			return err
		}
		return vm.push(Obj(handle))

	case Not:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if !v.IsBool() {
			return ErrTypeMismatch
		}
		return vm.push(Bool(!v.BoolVal()))

	case Equal:
		b, err := vm.pop()
		if err != nil {
			return err
		}
		a, err := vm.pop()
		if err != nil {
			return err
		}
		return vm.push(Bool(ValuesEqual(vm.heap, a, b)))

	case Print:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		bytes, ok := vm.heap.AsString(v.Handle())
		if !v.IsObj() || !ok {
			return ErrTypeMismatch
		}
		w := vm.Writer
		if w == nil {
			w = defaultWriter
		}
		fmt.Fprintf(w, "%s\n", bytes)
		return nil

	case Clock:
		return vm.push(Num(elapsedCPUSeconds(vm.startCPU)))

	case Jump:
		return vm.jumpRelative(int(args[0]))
	case JumpIfFalse:
		cond, err := vm.pop()
		if err != nil {
			return err
		}
		if !cond.IsBool() {
			return ErrTypeMismatch
		}
		if !cond.BoolVal() {
			return vm.jumpRelative(int(args[0]))
		}
		return nil
	case Loop:
		return vm.jumpRelative(-int(args[0]))

	case Function:
		bodyAddr := vm.ip
		if err := vm.push(CodePtr(bodyAddr)); err != nil {
			return err
		}
		return vm.jumpAbsolute(vm.ip + int(args[0]))

	case Call:
		return vm.call(int(args[0]))

	case LoadIP:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if v.Kind != KindCodePtr {
			return ErrTypeMismatch
		}
		return vm.jumpAbsolute(v.Addr())

	case LoadFP:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if v.Kind != KindFramePtr {
			return ErrTypeMismatch
		}
		vm.fp = v.Addr()
		return nil

	case SetReturn:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		vm.returnStore = v
		return nil

	case PushReturn:
		return vm.push(vm.returnStore)

	case Struct:
		return vm.buildStruct(int(args[0]))

	case GetField:
		s, err := vm.pop()
		if err != nil {
			return err
		}
		if !s.IsObj() {
			return ErrTypeMismatch
		}
		v, err := vm.heap.GetField(s.Handle(), int(args[0]))
		if err != nil {
			return err
		}
		return vm.push(v)

	case ExtractField:
		s, err := vm.peek(int(args[0]))
		if err != nil {
			return err
		}
		if !s.IsObj() {
			return ErrTypeMismatch
		}
		v, err := vm.heap.GetField(s.Handle(), int(args[1]))
		if err != nil {
			return err
		}
		return vm.push(v)

	case SetField:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		s, err := vm.peek(0)
		if err != nil {
			return err
		}
		if !s.IsObj() {
			return ErrTypeMismatch
		}
		return vm.heap.SetField(s.Handle(), int(args[0]), v)

	case RefLocal:
		abs, err := vm.local(int(args[0]))
		if err != nil {
			return err
		}
		return vm.push(Obj(vm.refLocal(abs)))

	case Deref:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		if !v.IsObj() {
			return ErrTypeMismatch
		}
		if _, ok := vm.heap.Upvalue(v.Handle()); !ok {
			return ErrTypeMismatch
		}
		cellVal, err := vm.derefUpvalue(v.Handle())
		if err != nil {
			return err
		}
		return vm.push(cellVal)

	case SetRef:
		v, err := vm.pop()
		if err != nil {
			return err
		}
		ref, err := vm.pop()
		if err != nil {
			return err
		}
		if !ref.IsObj() {
			return ErrTypeMismatch
		}
		if _, ok := vm.heap.Upvalue(ref.Handle()); !ok {
			return ErrTypeMismatch
		}
		return vm.setRefUpvalue(ref.Handle(), v)

	default:
		return ErrUnimplementedOp
	}
}

func (vm *VM) jumpRelative(delta int) error {
	return vm.jumpAbsolute(vm.ip + delta)
}

func (vm *VM) jumpAbsolute(addr int) error {
	if addr < 0 || addr > len(vm.image) {
		return ErrJumpOutOfRange
	}
	vm.ip = addr
	return nil
}

func (vm *VM) unaryCoerce(f func(Value) (Value, error)) error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	out, err := f(v)
	if err != nil {
		return err
	}
	return vm.push(out)
}

func (vm *VM) intBinOp(f func(a, b int32) (Value, error)) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	if !a.IsInt() || !b.IsInt() {
		return ErrTypeMismatch
	}
	out, err := f(a.IntVal(), b.IntVal())
	if err != nil {
		return err
	}
	return vm.push(out)
}

func (vm *VM) intUnOp(f func(a int32) (Value, error)) error {
	a, err := vm.pop()
	if err != nil {
		return err
	}
	if !a.IsInt() {
		return ErrTypeMismatch
	}
	out, err := f(a.IntVal())
	if err != nil {
		return err
	}
	return vm.push(out)
}

func (vm *VM) numBinOp(f func(a, b float64) (Value, error)) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	if !a.IsNum() || !b.IsNum() {
		return ErrTypeMismatch
	}
	out, err := f(a.NumVal(), b.NumVal())
	if err != nil {
		return err
	}
	return vm.push(out)
}

func (vm *VM) numUnOp(f func(a float64) (Value, error)) error {
	a, err := vm.pop()
	if err != nil {
		return err
	}
	if !a.IsNum() {
		return ErrTypeMismatch
	}
	out, err := f(a.NumVal())
	if err != nil {
		return err
	}
	return vm.push(out)
}

// call implements CALL n: saves the return address and caller's frame
// pointer below the callee's new frame, then re-pushes the popped
// arguments so they become locals 0..n-1.
func (vm *VM) call(n int) error {
	callee, err := vm.pop()
	if err != nil {
		return err
	}
	if callee.Kind != KindCodePtr {
		return ErrTypeMismatch
	}

	args := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}

	returnIP := vm.ip
	if err := vm.push(CodePtr(returnIP)); err != nil {
		return err
	}
	if err := vm.push(FramePtr(vm.fp)); err != nil {
		return err
	}

	vm.fp = vm.sp
	vm.ip = callee.Addr()

	for _, a := range args {
		if err := vm.push(a); err != nil {
			return err
		}
	}
	return nil
}

// buildStruct implements STRUCT n: pops n values right-to-left into a
// fresh struct's fields so that fields end up in source (left-to-right
// push) order.
func (vm *VM) buildStruct(n int) error {
	fields := make([]Value, n)
	for i := n - 1; i >= 0; i-- {
		v, err := vm.pop()
		if err != nil {
			return err
		}
		fields[i] = v
	}
	handle := vm.heap.AllocStruct(fields)
	return vm.push(Obj(handle))
}
