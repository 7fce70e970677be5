package vm

import (
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VM is the execution core: a value stack, frame pointer, global table,
// constant pool and object heap, executed by a single
// fetch-decode-execute loop. There is exactly one execution context per
// instance and no suspension or scheduling.
type VM struct {
	ID uuid.UUID

	cfg Config

	image     []byte
	constants []Value

	stack []Value
	sp    int // one past the last occupied slot
	fp    int // index where the current frame's locals begin

	ip int // byte offset of the next opcode

	globals *Globals
	heap    *Heap

	returnStore Value

	// Writer receives PRINT output. Defaults to os.Stdout when nil.
	Writer io.Writer

	Logger *zap.Logger
	tracer Tracer

	lastFault *Fault
	startCPU  cpuClock
}

// New constructs a VM with the given configuration. Heap, globals and the
// value stack are allocated up front and owned exclusively by this
// instance for its lifetime.
func New(cfg Config, logger *zap.Logger) *VM {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VM{
		ID:       uuid.New(),
		cfg:      cfg,
		stack:    make([]Value, cfg.StackMax),
		globals:  NewGlobals(cfg.GlobalMax),
		heap:     NewHeap(),
		Logger:   logger,
		startCPU: readCPUClock(),
	}
}

// NewDefault builds a VM using DefaultConfig and a no-op logger, the
// common case for tests and simple embeddings.
func NewDefault() *VM {
	return New(DefaultConfig(), zap.NewNop())
}

// SetTracer attaches a hook invoked after every successfully executed
// instruction (see Tracer, trace.go). The dispatch loop's hot path pays a
// single nil check when no tracer is attached.
func (vm *VM) SetTracer(t Tracer) { vm.tracer = t }

// LastFault returns the fault that ended the most recent Execute/Run call,
// or nil if it completed successfully or hasn't run yet.
func (vm *VM) LastFault() *Fault { return vm.lastFault }

func (vm *VM) Globals() *Globals { return vm.globals }
func (vm *VM) Heap() *Heap       { return vm.heap }
func (vm *VM) IP() int           { return vm.ip }
func (vm *VM) SP() int           { return vm.sp }
func (vm *VM) FP() int           { return vm.fp }

// Teardown releases the heap's owned buffers. Safe to call once, after
// Execute/Run has returned; the VM is not usable afterward.
func (vm *VM) Teardown() {
	vm.heap.Teardown()
}

// Load parses image's constant pool and positions the VM at the start of
// its instruction stream, without running anything. It is split out from
// Execute so debug tooling can stage a VM and then drive it one Step at a
// time instead of calling Run to completion.
func (vm *VM) Load(image []byte) error {
	constants, bodyOffset, err := LoadImage(vm.heap, image)
	if err != nil {
		vm.Logger.Error("failed to load image", zap.String("vm", vm.ID.String()), zap.Error(err))
		return err
	}
	vm.image = image
	vm.constants = constants
	vm.lastFault = nil
	vm.ip = bodyOffset
	vm.sp = 0
	vm.fp = 0
	return nil
}

// Execute loads image and runs it to completion, a fault, or the end of
// the instruction stream.
func (vm *VM) Execute(image []byte) error {
	if err := vm.Load(image); err != nil {
		return err
	}
	return vm.Run()
}

// Run executes from the current ip to completion or fault.
func (vm *VM) Run() error {
	for {
		more, err := vm.Step()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// Step executes exactly one instruction, returning false once the
// instruction pointer reaches the end of the image. Breakpointing and
// single-stepping tooling drives Step directly; the core dispatch loop
// itself never special-cases debugging.
func (vm *VM) Step() (bool, error) {
	if vm.ip == len(vm.image) {
		return false, nil
	}
	if vm.ip > len(vm.image) {
		return false, vm.fault(OpCount, ErrTruncatedInstr)
	}

	opByte := vm.image[vm.ip]
	if opByte >= byte(OpCount) {
		return false, vm.fault(Opcode(opByte), ErrUnknownOpcode)
	}
	op := Opcode(opByte)
	vm.ip++

	immediates, err := vm.readImmediates(op)
	if err != nil {
		return false, vm.fault(op, err)
	}

	if err := vm.dispatch(op, immediates); err != nil {
		return false, vm.fault(op, err)
	}

	if vm.tracer != nil {
		vm.tracer.OnStep(vm.Snapshot(op))
	}

	return true, nil
}

func (vm *VM) readImmediates(op Opcode) ([]byte, error) {
	n := op.immediateCount()
	if n == 0 {
		return nil, nil
	}
	if vm.ip+n > len(vm.image) {
		return nil, ErrTruncatedInstr
	}
	args := vm.image[vm.ip : vm.ip+n]
	vm.ip += n
	return args, nil
}
