package vm

import "go.uber.org/zap"

// Snapshot is a point-in-time view of VM state, producible between any
// two instructions: a plain, serializable value consumed by logging, the
// debug HTTP server and the debug TUI, none of which reach into the VM's
// private fields directly.
type Snapshot struct {
	VMID   string  `ion:"vm_id" json:"vm_id"`
	IP     int     `ion:"ip" json:"ip"`
	SP     int     `ion:"sp" json:"sp"`
	FP     int     `ion:"fp" json:"fp"`
	LastOp string  `ion:"last_op" json:"last_op"`
	Stack  []Value `ion:"-" json:"-"`
	Return Value   `ion:"-" json:"-"`
}

// Tracer receives a Snapshot after every successfully executed
// instruction. Attaching one is the only way the dispatch loop's
// behavior changes when debugging tools are present: the hot path pays
// one nil check when no Tracer is set.
type Tracer interface {
	OnStep(Snapshot)
}

// Snapshot builds a Snapshot of the VM's current state. op is the opcode
// that was just executed; callers outside the dispatch loop (the debug
// TUI, tests) pass OpCount, which LastOp renders as "?unknown?".
func (vm *VM) Snapshot(op Opcode) Snapshot {
	stack := make([]Value, vm.sp)
	copy(stack, vm.stack[:vm.sp])
	return Snapshot{
		VMID:   vm.ID.String(),
		IP:     vm.ip,
		SP:     vm.sp,
		FP:     vm.fp,
		LastOp: op.String(),
		Stack:  stack,
		Return: vm.returnStore,
	}
}

// TracerFunc adapts a plain function to the Tracer interface.
type TracerFunc func(Snapshot)

func (f TracerFunc) OnStep(s Snapshot) { f(s) }

// ZapTracer logs a debug-level line per step. Used when Config.TraceLevel
// is "debug".
func ZapTracer(logger *zap.Logger) Tracer {
	return TracerFunc(func(s Snapshot) {
		logger.Debug("step",
			zap.String("vm", s.VMID),
			zap.Int("ip", s.IP),
			zap.Int("sp", s.SP),
			zap.Int("fp", s.FP),
			zap.String("op", s.LastOp),
		)
	})
}

// MultiTracer fans a single OnStep call out to several Tracers, letting
// the CLI attach the zap debug tracer and the debug HTTP server at once
// without the dispatch loop knowing more than one Tracer is attached.
func MultiTracer(ts ...Tracer) Tracer {
	return TracerFunc(func(s Snapshot) {
		for _, t := range ts {
			if t != nil {
				t.OnStep(s)
			}
		}
	})
}

// vmLogFields builds the common zap fields attached to every fault log
// line (errors.go).
func vmLogFields(vm *VM, op Opcode, err error) []zap.Field {
	return []zap.Field{
		zap.String("vm", vm.ID.String()),
		zap.Int("ip", vm.ip),
		zap.String("op", op.String()),
		zap.Error(err),
	}
}
