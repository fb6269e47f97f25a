package ktcore

import (
	"bytes"

	"google.golang.org/protobuf/encoding/protowire"
)

// FullTreeHead uses the protobuf wire format of the KT library's
// FullTreeHead message, so the bytes are compatible with its peers:
//
//	FullTreeHead { 1: TreeHead tree_head; 2: repeated bytes last;
//	  3: repeated bytes distinguished; 4: repeated bytes full_auditor_tree_heads }
//	TreeHead { 1: uint64 tree_size; 2: int64 timestamp; 3: repeated Signature signatures }
//	Signature { 1: bytes auditor_public_key; 2: bytes signature }
//
// unknown fields are skipped. zero scalars are omitted.

const (
	fthTreeHead      protowire.Number = 1
	fthLast          protowire.Number = 2
	fthDistinguished protowire.Number = 3
	fthAuditor       protowire.Number = 4

	thTreeSize   protowire.Number = 1
	thTimestamp  protowire.Number = 2
	thSignatures protowire.Number = 3

	sigSignerID  protowire.Number = 1
	sigSignature protowire.Number = 2
)

func SignatureEncode(b0 []byte, o *Signature) []byte {
	var b = b0
	if len(o.SignerID) != 0 {
		b = protowire.AppendTag(b, sigSignerID, protowire.BytesType)
		b = protowire.AppendBytes(b, o.SignerID)
	}
	if len(o.Signature) != 0 {
		b = protowire.AppendTag(b, sigSignature, protowire.BytesType)
		b = protowire.AppendBytes(b, o.Signature)
	}
	return b
}

func SignatureDecode(b0 []byte) (*Signature, bool) {
	o := &Signature{}
	err := consumeFields(b0, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case sigSignerID:
			return consumeBytes(typ, b, &o.SignerID)
		case sigSignature:
			return consumeBytes(typ, b, &o.Signature)
		}
		return skipField(num, typ, b)
	})
	if err {
		return nil, true
	}
	return o, false
}

// TreeHeadEncode errors on a nil signature.
func TreeHeadEncode(b0 []byte, o *TreeHead) ([]byte, bool) {
	var b = b0
	if o.TreeSize != 0 {
		b = protowire.AppendTag(b, thTreeSize, protowire.VarintType)
		b = protowire.AppendVarint(b, o.TreeSize)
	}
	if o.Timestamp != 0 {
		b = protowire.AppendTag(b, thTimestamp, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(o.Timestamp))
	}
	for _, s := range o.Signatures {
		if s == nil {
			return nil, true
		}
		b = protowire.AppendTag(b, thSignatures, protowire.BytesType)
		b = protowire.AppendBytes(b, SignatureEncode(nil, s))
	}
	return b, false
}

func TreeHeadDecode(b0 []byte) (*TreeHead, bool) {
	o := &TreeHead{}
	err := consumeFields(b0, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case thTreeSize:
			return consumeVarint(typ, b, &o.TreeSize)
		case thTimestamp:
			var v uint64
			n, err := consumeVarint(typ, b, &v)
			o.Timestamp = int64(v)
			return n, err
		case thSignatures:
			var raw []byte
			n, err := consumeBytes(typ, b, &raw)
			if err {
				return 0, true
			}
			s, err := SignatureDecode(raw)
			if err {
				return 0, true
			}
			o.Signatures = append(o.Signatures, s)
			return n, false
		}
		return skipField(num, typ, b)
	})
	if err {
		return nil, true
	}
	return o, false
}

// FullTreeHeadEncode errors if the tree head can't be encoded.
func FullTreeHeadEncode(b0 []byte, o *FullTreeHead) ([]byte, bool) {
	var b = b0
	if o.TreeHead != nil {
		th, err := TreeHeadEncode(nil, o.TreeHead)
		if err {
			return nil, true
		}
		// always written, even if empty, so presence survives decoding.
		b = protowire.AppendTag(b, fthTreeHead, protowire.BytesType)
		b = protowire.AppendBytes(b, th)
	}
	b = appendRepeatedBytes(b, fthLast, o.Last)
	b = appendRepeatedBytes(b, fthDistinguished, o.Distinguished)
	b = appendRepeatedBytes(b, fthAuditor, o.FullAuditorTreeHeads)
	return b, false
}

func FullTreeHeadDecode(b0 []byte) (*FullTreeHead, bool) {
	o := &FullTreeHead{}
	err := consumeFields(b0, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case fthTreeHead:
			var raw []byte
			n, err := consumeBytes(typ, b, &raw)
			if err {
				return 0, true
			}
			th, err := TreeHeadDecode(raw)
			if err {
				return 0, true
			}
			o.TreeHead = th
			return n, false
		case fthLast:
			return consumeRepeatedBytes(typ, b, &o.Last)
		case fthDistinguished:
			return consumeRepeatedBytes(typ, b, &o.Distinguished)
		case fthAuditor:
			return consumeRepeatedBytes(typ, b, &o.FullAuditorTreeHeads)
		}
		return skipField(num, typ, b)
	})
	if err {
		return nil, true
	}
	return o, false
}

func appendRepeatedBytes(b []byte, num protowire.Number, vals [][]byte) []byte {
	for _, v := range vals {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendBytes(b, v)
	}
	return b
}

// consumeFields walks every field in b, handing the bytes after each tag
// to f. f returns how many bytes the field value used.
func consumeFields(b []byte, f func(num protowire.Number, typ protowire.Type, b []byte) (int, bool)) bool {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return true
		}
		b = b[n:]
		m, err := f(num, typ, b)
		if err || m < 0 || m > len(b) {
			return true
		}
		b = b[m:]
	}
	return false
}

// consumeBytes copies the value out, so decoded messages don't alias the input.
func consumeBytes(typ protowire.Type, b []byte, out *[]byte) (int, bool) {
	if typ != protowire.BytesType {
		return 0, true
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, true
	}
	*out = bytes.Clone(v)
	if *out == nil {
		*out = []byte{}
	}
	return n, false
}

func consumeRepeatedBytes(typ protowire.Type, b []byte, out *[][]byte) (int, bool) {
	var v []byte
	n, err := consumeBytes(typ, b, &v)
	if err {
		return 0, true
	}
	*out = append(*out, v)
	return n, false
}

func consumeVarint(typ protowire.Type, b []byte, out *uint64) (int, bool) {
	if typ != protowire.VarintType {
		return 0, true
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, true
	}
	*out = v
	return n, false
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, true
	}
	return n, false
}
