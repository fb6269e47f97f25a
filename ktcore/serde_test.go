package ktcore

import (
	"bytes"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func testFullTreeHead() *FullTreeHead {
	return &FullTreeHead{
		TreeHead: &TreeHead{
			TreeSize:  12345,
			Timestamp: 1669123456789,
			Signatures: []*Signature{
				{SignerID: []byte{0x01, 0x02, 0x03, 0x04}, Signature: []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee}},
			},
		},
		Last:          [][]byte{{0x10, 0x20, 0x30, 0x40}, {0x50, 0x60, 0x70, 0x80}},
		Distinguished: [][]byte{{0xa1, 0xa2, 0xa3, 0xa4}},
	}
}

func TestFullTreeHeadRoundTrip(t *testing.T) {
	in := testFullTreeHead()
	b, err := FullTreeHeadEncode(nil, in)
	if err {
		t.Fatal()
	}
	out, err := FullTreeHeadDecode(b)
	if err {
		t.Fatal()
	}
	if !in.Equal(out) {
		t.Fatal()
	}
	if out.TreeHead.TreeSize != 12345 || out.TreeHead.Timestamp != 1669123456789 {
		t.Fatal()
	}
	if len(out.Last) != 2 || len(out.Distinguished) != 1 || len(out.FullAuditorTreeHeads) != 0 {
		t.Fatal()
	}

	// decoded bytes don't alias the input.
	for i := range b {
		b[i] = 0
	}
	if !in.Equal(out) {
		t.Fatal()
	}
}

func TestEmptyTreeHeadKeepsPresence(t *testing.T) {
	in := &FullTreeHead{TreeHead: &TreeHead{}}
	b, err := FullTreeHeadEncode(nil, in)
	if err {
		t.Fatal()
	}
	out, err := FullTreeHeadDecode(b)
	if err {
		t.Fatal()
	}
	if out.TreeHead == nil {
		t.Fatal()
	}

	// no tree head at all.
	b, err = FullTreeHeadEncode(nil, &FullTreeHead{})
	if err || len(b) != 0 {
		t.Fatal()
	}
	out, err = FullTreeHeadDecode(b)
	if err || out.TreeHead != nil {
		t.Fatal()
	}
}

func TestNilSignature(t *testing.T) {
	in := &FullTreeHead{TreeHead: &TreeHead{Signatures: []*Signature{nil}}}
	if _, err := FullTreeHeadEncode(nil, in); !err {
		t.Fatal()
	}
}

func TestNegativeTimestamp(t *testing.T) {
	in := &TreeHead{TreeSize: 1, Timestamp: -5}
	b, err := TreeHeadEncode(nil, in)
	if err {
		t.Fatal()
	}
	out, err := TreeHeadDecode(b)
	if err || out.Timestamp != -5 {
		t.Fatal()
	}
}

func TestUnknownFieldsSkipped(t *testing.T) {
	b, _ := FullTreeHeadEncode(nil, testFullTreeHead())
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("future"))
	b = protowire.AppendTag(b, 100, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)
	out, err := FullTreeHeadDecode(b)
	if err {
		t.Fatal()
	}
	if !out.Equal(testFullTreeHead()) {
		t.Fatal()
	}
}

func TestDecodeGarbage(t *testing.T) {
	bad := [][]byte{
		{0xff, 0xff, 0xff, 0xff},
		// tree_head with a varint wire type.
		protowire.AppendVarint(protowire.AppendTag(nil, fthTreeHead, protowire.VarintType), 1),
		// last with a length past the end.
		{byte(fthLast)<<3 | byte(protowire.BytesType), 10, 1, 2},
	}
	for i, b := range bad {
		if _, err := FullTreeHeadDecode(b); !err {
			t.Fatal(i)
		}
	}

	// truncating a valid encoding anywhere inside a field fails.
	b, _ := FullTreeHeadEncode(nil, testFullTreeHead())
	if _, err := FullTreeHeadDecode(b[:len(b)-1]); !err {
		t.Fatal()
	}
}

func TestClone(t *testing.T) {
	in := testFullTreeHead()
	c := in.Clone()
	if !in.Equal(c) {
		t.Fatal()
	}
	c.TreeHead.Signatures[0].Signature[0] = 0
	c.Last[0][0] = 0
	if bytes.Equal(in.TreeHead.Signatures[0].Signature, c.TreeHead.Signatures[0].Signature) {
		t.Fatal()
	}
	if in.Last[0][0] != 0x10 {
		t.Fatal()
	}

	l := &LastTreeHead{TreeHead: in.TreeHead, Root: TreeRoot{1}}
	l2 := l.Clone()
	if !l.Equal(l2) || l2.Size() != 12345 {
		t.Fatal()
	}
	l2.Root[0] = 2
	if l.Equal(l2) {
		t.Fatal()
	}
	var none *LastTreeHead
	if none.Size() != 0 || !none.Equal(nil) {
		t.Fatal()
	}
}
