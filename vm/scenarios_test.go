package vm

import (
	"bytes"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// This file hand-assembles a set of end-to-end scenarios and runs them as
// a BDD-style suite. There is no compiler, so each scenario's bytecode is
// built directly with the opcode primitives plus the test-only assembler
// in asm_test.go.

func TestScenarios(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "VM end-to-end scenarios")
}

func runImage(image []byte) (*VM, *bytes.Buffer, error) {
	machine := NewDefault()
	out := &bytes.Buffer{}
	machine.Writer = out
	err := machine.Execute(image)
	return machine, out, err
}

var _ = Describe("end-to-end scenarios", func() {

	It("prints 1+2", func() {
		a := newAsm()
		one := a.constInt(1)
		two := a.constInt(2)
		a.op(PushConst, one).
			op(PushConst, two).
			op(IntAdd).
			op(CoerceStr).
			op(Print)

		_, out, err := runImage(a.build())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal("3\n"))
	})

	It("implements a closure counter surviving the enclosing call's return", func() {
		a := newAsm()
		zero := a.constInt(0)
		one := a.constInt(1)
		cSlot := byte(0)

		// Function pushes a CodePtr to the instruction right after it and
		// jumps to its label, so each function body sits inline directly
		// after the Function that introduces it.

		// top level: val c := make_counter(); print c(); print c(); print c();
		a.opTo(Function, "after_make_counter", fixupForward) // [CodePtr(make_counter)], skips its body

		// make_counter(): val i := 0; return {uv, counter}.
		a.op(PushConst, zero)                           // [i]
		a.op(RefLocal, 0)                               // [i, uv]
		a.opTo(Function, "after_counter", fixupForward) // [i, uv, CodePtr(counter)], skips its body

		// counter(uv): set i = i+1; return (old) i.
		a.op(PushLocal, 0) // [uv, uv]
		a.op(Deref)        // [uv, i]            -> local1 = i
		a.op(PushLocal, 0) // [uv, i, uv]
		a.op(PushLocal, 1) // [uv, i, uv, i]
		a.op(PushConst, one)
		a.op(IntAdd)       // [uv, i, uv, i+1]
		a.op(SetRef)       // [uv, i]            writes i+1 through uv
		a.op(PushLocal, 1) // [uv, i, i]
		a.op(SetReturn)    // [uv, i]            returns old i
		a.op(Pop)          // [uv]
		a.op(Pop)          // []                 closes uv's upvalue if still open
		a.op(LoadFP)
		a.op(LoadIP)

		a.label("after_counter")
		a.op(Struct, 2) // [i, {uv, CodePtr}]
		a.op(PushLocal, 1)
		a.op(SetReturn) // [i, closure]
		a.op(Pop)       // [i]                 pop closure local
		a.op(Pop)       // []                  pop i, closing the upvalue
		a.op(LoadFP)
		a.op(LoadIP)

		a.label("after_make_counter")
		a.op(Call, 0)
		a.op(PushReturn)
		a.op(SetGlobal, cSlot)

		for i := 0; i < 3; i++ {
			a.op(PushGlobal, cSlot)
			a.op(GetField, 0) // uv
			a.op(PushGlobal, cSlot)
			a.op(GetField, 1) // CodePtr
			a.op(Call, 1)
			a.op(PushReturn)
			a.op(CoerceStr)
			a.op(Print)
		}

		_, out, err := runImage(a.build())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal("0\n1\n2\n"))
	})

	It("reassigns a global", func() {
		a := newAsm()
		one := a.constInt(1)
		g := byte(0)
		a.op(PushConst, one).op(SetGlobal, g)
		a.op(PushGlobal, g).op(PushConst, one).op(IntAdd).op(SetGlobal, g)
		a.op(PushGlobal, g).op(CoerceStr).op(Print)

		_, out, err := runImage(a.build())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal("2\n"))
	})

	It("updates and reads struct fields", func() {
		a := newAsm()
		one := a.constInt(1)
		two := a.constInt(2)
		five := a.constInt(5)

		a.op(PushConst, one).op(PushConst, two).op(Struct, 2) // {a:1, b:2}
		a.op(PushConst, five).op(SetField, 1)                 // b := 5
		a.op(ExtractField, 0, 1).op(CoerceStr).op(Print)      // prints 5
		a.op(GetField, 0).op(CoerceStr).op(Print)             // prints 1

		_, out, err := runImage(a.build())
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(Equal("5\n1\n"))
	})

	It("faults on integer division by zero", func() {
		a := newAsm()
		one := a.constInt(1)
		zero := a.constInt(0)
		a.op(PushConst, one).op(PushConst, zero).op(IntDiv)

		_, _, err := runImage(a.build())
		Expect(err).To(HaveOccurred())
		fault, ok := err.(*Fault)
		Expect(ok).To(BeTrue())
		Expect(fault.Unwrap()).To(Equal(ErrDivByZero))
	})

	It("lets IEEE division by zero through for floats", func() {
		a := newAsm()
		one := a.constNum(1.0)
		zero := a.constNum(0.0)
		a.op(PushConst, one).op(PushConst, zero).op(NumDiv).op(SetGlobal, 0)

		machine, _, err := runImage(a.build())
		Expect(err).NotTo(HaveOccurred())
		v, gerr := machine.Globals().Get(0)
		Expect(gerr).NotTo(HaveOccurred())
		Expect(v.NumVal()).To(BeNumerically(">", 1e300))
	})

	It("fails a malformed image with an unknown constant tag, executing nothing", func() {
		image := []byte{1, 99}
		_, _, err := runImage(image)
		Expect(err).To(Equal(ErrUnknownConstTag))
	})
})
