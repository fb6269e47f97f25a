// Package marshalutil adds bounds checks to [marshal] reads.
// every Read* returns err instead of panicking on short input.
package marshalutil

import (
	"bytes"

	"github.com/tchajed/marshal"
)

// ReadBool reads one byte, which must be 0 or 1.
func ReadBool(b []byte) (data bool, rem []byte, err bool) {
	if uint64(len(b)) < 1 {
		err = true
		return
	}
	data0, rem := marshal.ReadBytes(b, 1)
	switch data0[0] {
	case 0:
	case 1:
		data = true
	default:
		err = true
	}
	return
}

func WriteBool(b []byte, data bool) []byte {
	if data {
		return marshal.WriteBytes(b, []byte{1})
	}
	return marshal.WriteBytes(b, []byte{0})
}

func ReadInt(b []byte) (data uint64, rem []byte, err bool) {
	if uint64(len(b)) < 8 {
		err = true
		return
	}
	data, rem = marshal.ReadInt(b)
	return
}

// ReadConstInt errors if the next int isn't cst.
func ReadConstInt(b []byte, cst uint64) (rem []byte, err bool) {
	data, rem, err := ReadInt(b)
	if err {
		return
	}
	if data != cst {
		err = true
	}
	return
}

// ReadBytes returns a copy of the next length bytes.
func ReadBytes(b []byte, length uint64) (data []byte, rem []byte, err bool) {
	if uint64(len(b)) < length {
		err = true
		return
	}
	data0, rem := marshal.ReadBytes(b, length)
	data = bytes.Clone(data0)
	return
}

func ReadSlice1D(b []byte) (data []byte, rem []byte, err bool) {
	length, rem, err := ReadInt(b)
	if err {
		return
	}
	return ReadBytes(rem, length)
}

func WriteSlice1D(b []byte, data []byte) []byte {
	b = marshal.WriteInt(b, uint64(len(data)))
	return marshal.WriteBytes(b, data)
}
