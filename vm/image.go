package vm

import "encoding/binary"

// Constant pool tag values. Stable across compiler and VM; extending the
// set must assign new tags rather than reuse these.
const (
	constTagInt byte = 0
	constTagNum byte = 1
	constTagStr byte = 2
)

// LoadImage parses the constant-pool header of a bytecode image and
// returns the constant table plus the byte offset at which the
// instruction stream begins.
//
//	u8              K  = constant count
//	K × ConstEntry  constant pool
//	u8[*]           instruction stream to EOF
func LoadImage(h *Heap, image []byte) ([]Value, int, error) {
	if len(image) < 1 {
		return nil, 0, ErrTruncatedImage
	}

	count := int(image[0])
	offset := 1
	constants := make([]Value, 0, count)

	for i := 0; i < count; i++ {
		if offset >= len(image) {
			return nil, 0, ErrTruncatedImage
		}
		tag := image[offset]
		offset++

		switch tag {
		case constTagInt:
			if offset+4 > len(image) {
				return nil, 0, ErrTruncatedImage
			}
			bits := binary.LittleEndian.Uint32(image[offset:])
			constants = append(constants, Int(int32(bits)))
			offset += 4

		case constTagNum:
			if offset+8 > len(image) {
				return nil, 0, ErrTruncatedImage
			}
			bits := binary.LittleEndian.Uint64(image[offset:])
			constants = append(constants, Num(float64FromBits(bits)))
			offset += 8

		case constTagStr:
			if offset >= len(image) {
				return nil, 0, ErrTruncatedImage
			}
			length := int(image[offset])
			offset++
			if offset+length > len(image) {
				return nil, 0, ErrTruncatedImage
			}
			handle := h.InternString(image[offset : offset+length])
			constants = append(constants, Obj(handle))
			offset += length

		default:
			return nil, 0, ErrUnknownConstTag
		}
	}

	return constants, offset, nil
}
