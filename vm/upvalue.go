package vm

// refLocal implements REF_LOCAL: allocate an Upvalue object aliasing the
// stack slot at absolute index `slot`, and link it into that slot's
// back-chain so a later pop can close it.
func (vm *VM) refLocal(slot int) ObjHandle {
	handle := vm.heap.AllocUpvalue(slot)
	vm.stack[slot].refs = &upvalRef{handle: handle, next: vm.stack[slot].refs}
	return handle
}

// closeUpvaluesAt transitions every Upvalue object chained to the stack
// slot at absolute index `slot` from "open" (pointer-to-slot) to "closed"
// (owning a copy of the slot's current value). Called exactly once, by
// pop, before the slot is reused.
func (vm *VM) closeUpvaluesAt(slot int) {
	ref := vm.stack[slot].refs
	if ref == nil {
		return
	}
	value := vm.stack[slot]
	value.refs = nil // a closed upvalue owns a plain value, not another chain
	for ref != nil {
		if cell, ok := vm.heap.Upvalue(ref.handle); ok {
			cell.open = false
			cell.owned = value
		}
		ref = ref.next
	}
	vm.stack[slot].refs = nil
}

// derefUpvalue implements DEREF: read through an Upvalue cell, whether
// still open (reads the live stack slot) or already closed (reads its
// owned value).
func (vm *VM) derefUpvalue(handle ObjHandle) (Value, error) {
	cell, ok := vm.heap.Upvalue(handle)
	if !ok {
		return Value{}, ErrTypeMismatch
	}
	if cell.open {
		return vm.stack[cell.slot], nil
	}
	return cell.owned, nil
}

// setRefUpvalue implements SET_REF: write through an Upvalue cell. A
// write to an open cell goes to the live stack slot (preserving that
// slot's own back-chain, the same discipline setLocal uses); a write to a
// closed cell updates the owned value directly.
func (vm *VM) setRefUpvalue(handle ObjHandle, v Value) error {
	cell, ok := vm.heap.Upvalue(handle)
	if !ok {
		return ErrTypeMismatch
	}
	if cell.open {
		vm.setLocal(cell.slot, v)
	} else {
		cell.owned = v
	}
	return nil
}
