package marshalutil

import (
	"bytes"
	"testing"
)

func TestBool(t *testing.T) {
	b := WriteBool(nil, true)
	b = WriteBool(b, false)
	if !bytes.Equal(b, []byte{1, 0}) {
		t.Fatal(b)
	}
	flag, rem, err := ReadBool(b)
	if err || !flag {
		t.Fatal()
	}
	flag, rem, err = ReadBool(rem)
	if err || flag || len(rem) != 0 {
		t.Fatal()
	}

	// only 0 and 1 are bools.
	if _, _, err := ReadBool([]byte{2}); !err {
		t.Fatal()
	}
}

func TestShortInput(t *testing.T) {
	if _, _, err := ReadInt([]byte{1, 2, 3}); !err {
		t.Fatal()
	}
	if _, _, err := ReadBool(nil); !err {
		t.Fatal()
	}

	// len says 5, only 2 bytes follow.
	b := WriteSlice1D(nil, []byte("hello"))
	if _, _, err := ReadSlice1D(b[:10]); !err {
		t.Fatal()
	}
}

func TestReadBytesCopies(t *testing.T) {
	b := WriteSlice1D(nil, []byte("abc"))
	data, _, err := ReadSlice1D(b)
	if err {
		t.Fatal()
	}
	b[8] = 'z'
	if !bytes.Equal(data, []byte("abc")) {
		t.Fatal()
	}
}

func TestConstInt(t *testing.T) {
	b := WriteSlice1D(nil, nil)
	if _, err := ReadConstInt(b, 0); err {
		t.Fatal()
	}
	if _, err := ReadConstInt(b, 1); !err {
		t.Fatal()
	}
}
