package vm

import "github.com/dchest/siphash"

// ObjHandle identifies a heap object. Object identity is by handle;
// structural equality is special-cased for String in ValuesEqual.
type ObjHandle int

type objKind byte

const (
	objString objKind = iota
	objStruct
	objUpvalue
)

// heapObject is the VM's boxed-object representation: a discriminated
// union over String/Struct/Upvalue plus the intrusive next pointer that
// links it into the VM's single allocation list.
type heapObject struct {
	kind objKind

	str    []byte       // objString
	fields []Value      // objStruct
	up     *upvalueCell // objUpvalue

	next *heapObject
}

// upvalueCell is the mutable interior of an Upvalue object: either
// "open" (aliasing a live stack slot by absolute index) or "closed"
// (owning its own Value).
type upvalueCell struct {
	open  bool
	slot  int
	owned Value
}

// siphash keys used to dedup identical constant-pool strings at load
// time. Fixed, arbitrary 64-bit halves; this is a cache key, not a
// security boundary.
const (
	internKey0 uint64 = 0x5b2e8f19a6c3d071
	internKey1 uint64 = 0x14d9a37bf082c6e5
)

// Heap owns every boxed object a VM allocates. Objects are released in
// one pass at Teardown by walking the allocation list. A parallel slice
// indexed by ObjHandle gives O(1) lookup without walking that list on
// every access.
type Heap struct {
	head   *heapObject
	objs   []*heapObject
	intern map[uint64]ObjHandle
}

func NewHeap() *Heap {
	return &Heap{intern: make(map[uint64]ObjHandle)}
}

func (h *Heap) alloc(o *heapObject) ObjHandle {
	o.next = h.head
	h.head = o
	handle := ObjHandle(len(h.objs))
	h.objs = append(h.objs, o)
	return handle
}

func (h *Heap) get(handle ObjHandle) *heapObject {
	if handle < 0 || int(handle) >= len(h.objs) {
		return nil
	}
	return h.objs[handle]
}

// AllocString always allocates a fresh String object; used by STR_CAT and
// by stringify, neither of which may alias an existing object.
func (h *Heap) AllocString(b []byte) ObjHandle {
	buf := make([]byte, len(b))
	copy(buf, b)
	return h.alloc(&heapObject{kind: objString, str: buf})
}

// InternString is used by the constant pool loader to dedup identical STR
// constants across an image instead of allocating one String object per
// occurrence.
func (h *Heap) InternString(b []byte) ObjHandle {
	key := siphash.Hash(internKey0, internKey1, b)
	if existingHandle, ok := h.intern[key]; ok {
		if existing, ok := h.AsString(existingHandle); ok && string(existing) == string(b) {
			return existingHandle
		}
	}
	handle := h.AllocString(b)
	h.intern[key] = handle
	return handle
}

func (h *Heap) AsString(handle ObjHandle) ([]byte, bool) {
	o := h.get(handle)
	if o == nil || o.kind != objString {
		return nil, false
	}
	return o.str, true
}

// Concat allocates a fresh String object holding the bytes of a followed
// by b.
func (h *Heap) Concat(a, b ObjHandle) (ObjHandle, error) {
	as, ok := h.AsString(a)
	if !ok {
		return 0, ErrTypeMismatch
	}
	bs, ok := h.AsString(b)
	if !ok {
		return 0, ErrTypeMismatch
	}
	buf := make([]byte, 0, len(as)+len(bs))
	buf = append(buf, as...)
	buf = append(buf, bs...)
	return h.AllocString(buf), nil
}

func (h *Heap) AllocStruct(fields []Value) ObjHandle {
	return h.alloc(&heapObject{kind: objStruct, fields: fields})
}

func (h *Heap) AsStruct(handle ObjHandle) ([]Value, bool) {
	o := h.get(handle)
	if o == nil || o.kind != objStruct {
		return nil, false
	}
	return o.fields, true
}

func (h *Heap) GetField(handle ObjHandle, i int) (Value, error) {
	fields, ok := h.AsStruct(handle)
	if !ok {
		return Value{}, ErrTypeMismatch
	}
	if i < 0 || i >= len(fields) {
		return Value{}, ErrFieldOutOfRange
	}
	return fields[i], nil
}

func (h *Heap) SetField(handle ObjHandle, i int, v Value) error {
	fields, ok := h.AsStruct(handle)
	if !ok {
		return ErrTypeMismatch
	}
	if i < 0 || i >= len(fields) {
		return ErrFieldOutOfRange
	}
	fields[i] = v
	return nil
}

// AllocUpvalue creates an "open" Upvalue object aliasing the given
// absolute stack index.
func (h *Heap) AllocUpvalue(stackIndex int) ObjHandle {
	return h.alloc(&heapObject{kind: objUpvalue, up: &upvalueCell{open: true, slot: stackIndex}})
}

func (h *Heap) Upvalue(handle ObjHandle) (*upvalueCell, bool) {
	o := h.get(handle)
	if o == nil || o.kind != objUpvalue {
		return nil, false
	}
	return o.up, true
}

// Teardown releases every allocated object's owned buffers in one pass.
// It is the VM's only deallocation path; there is no mid-run GC.
func (h *Heap) Teardown() {
	for o := h.head; o != nil; {
		next := o.next
		o.str = nil
		o.fields = nil
		o.up = nil
		o.next = nil
		o = next
	}
	h.head = nil
	h.objs = nil
	h.intern = nil
}

// Len reports the number of live (allocated, never-freed-before-teardown)
// objects. Used by tests.
func (h *Heap) Len() int { return len(h.objs) }
