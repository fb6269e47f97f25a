package trust

import (
	"github.com/sanjit-bhat/ktgossip/ktcore"
	"github.com/sanjit-bhat/ktgossip/marshalutil"
	"github.com/tchajed/marshal"
)

// the persisted form:
//
//	State        = optLastTreeHead(last) ++ optLastTreeHead(distinguished)
//	optLastTreeHead = bool(present) ++ [TreeHead ++ root(32)]
//	TreeHead     = int(size) ++ int(timestamp) ++ int(numSigs) ++ [slice1D(id) ++ slice1D(sig)]

func Encode(b0 []byte, s *State) []byte {
	var b = b0
	b = optLastTreeHeadEncode(b, s.lastTreeHead)
	b = optLastTreeHeadEncode(b, s.distinguishedTreeHead)
	return b
}

// Decode errors on short input and on trailing bytes.
func Decode(b0 []byte) (*State, bool) {
	last, b1, err1 := optLastTreeHeadDecode(b0)
	if err1 {
		return nil, true
	}
	dist, b2, err2 := optLastTreeHeadDecode(b1)
	if err2 {
		return nil, true
	}
	if len(b2) != 0 {
		return nil, true
	}
	return &State{lastTreeHead: last, distinguishedTreeHead: dist}, false
}

func optLastTreeHeadEncode(b0 []byte, o *ktcore.LastTreeHead) []byte {
	var b = b0
	b = marshalutil.WriteBool(b, o != nil)
	if o == nil {
		return b
	}
	b = treeHeadEncode(b, o.TreeHead)
	b = marshal.WriteBytes(b, o.Root[:])
	return b
}

func optLastTreeHeadDecode(b0 []byte) (*ktcore.LastTreeHead, []byte, bool) {
	present, b1, err1 := marshalutil.ReadBool(b0)
	if err1 {
		return nil, nil, true
	}
	if !present {
		return nil, b1, false
	}
	th, b2, err2 := treeHeadDecode(b1)
	if err2 {
		return nil, nil, true
	}
	root, b3, err3 := marshalutil.ReadBytes(b2, ktcore.RootLen)
	if err3 {
		return nil, nil, true
	}
	o := &ktcore.LastTreeHead{TreeHead: th}
	copy(o.Root[:], root)
	return o, b3, false
}

func treeHeadEncode(b0 []byte, o *ktcore.TreeHead) []byte {
	var b = b0
	if o == nil {
		o = &ktcore.TreeHead{}
	}
	b = marshal.WriteInt(b, o.TreeSize)
	b = marshal.WriteInt(b, uint64(o.Timestamp))
	b = marshal.WriteInt(b, uint64(len(o.Signatures)))
	for _, s := range o.Signatures {
		if s == nil {
			s = &ktcore.Signature{}
		}
		b = marshalutil.WriteSlice1D(b, s.SignerID)
		b = marshalutil.WriteSlice1D(b, s.Signature)
	}
	return b
}

func treeHeadDecode(b0 []byte) (*ktcore.TreeHead, []byte, bool) {
	size, b1, err1 := marshalutil.ReadInt(b0)
	if err1 {
		return nil, nil, true
	}
	ts, b2, err2 := marshalutil.ReadInt(b1)
	if err2 {
		return nil, nil, true
	}
	numSigs, b3, err3 := marshalutil.ReadInt(b2)
	if err3 {
		return nil, nil, true
	}
	// each sig is at least two length prefixes.
	if numSigs > uint64(len(b3))/16 {
		return nil, nil, true
	}
	var sigs []*ktcore.Signature
	var b = b3
	for i := uint64(0); i < numSigs; i++ {
		id, b4, err4 := marshalutil.ReadSlice1D(b)
		if err4 {
			return nil, nil, true
		}
		sig, b5, err5 := marshalutil.ReadSlice1D(b4)
		if err5 {
			return nil, nil, true
		}
		sigs = append(sigs, &ktcore.Signature{SignerID: id, Signature: sig})
		b = b5
	}
	return &ktcore.TreeHead{TreeSize: size, Timestamp: int64(ts), Signatures: sigs}, b, false
}
