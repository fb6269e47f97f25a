package gossip

import (
	"fmt"
	"time"

	"github.com/sanjit-bhat/ktgossip/ktcore"
	"google.golang.org/protobuf/encoding/protowire"
)

// Version tags the envelope schema. Decode rejects any other value,
// including a missing tag.
//
//	Gossip { 1: bytes full_tree_head; 2: bytes tree_root;
//	  3: int64 timestamp (ms); 15: uint32 version }
const Version uint64 = 1

const (
	fieldFullTreeHead protowire.Number = 1
	fieldTreeRoot     protowire.Number = 2
	fieldTimestamp    protowire.Number = 3
	fieldVersion      protowire.Number = 15
)

func Encode(g *Gossip) ([]byte, error) {
	if g == nil || g.FullTreeHead == nil {
		return nil, fmt.Errorf("%w: no full tree head", ErrInvalid)
	}
	fth, err := ktcore.FullTreeHeadEncode(nil, g.FullTreeHead)
	if err {
		return nil, fmt.Errorf("%w: bad full tree head", ErrInvalid)
	}
	ms := g.Timestamp.UnixMilli()
	if ms < 0 {
		return nil, fmt.Errorf("%w: timestamp before epoch", ErrInvalid)
	}

	b := make([]byte, 0, len(fth)+ktcore.RootLen+32)
	b = protowire.AppendTag(b, fieldFullTreeHead, protowire.BytesType)
	b = protowire.AppendBytes(b, fth)
	b = protowire.AppendTag(b, fieldTreeRoot, protowire.BytesType)
	b = protowire.AppendBytes(b, g.TreeRoot[:])
	if ms != 0 {
		b = protowire.AppendTag(b, fieldTimestamp, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(ms))
	}
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, Version)
	return b, nil
}

// Decode restores a Gossip without verifying it.
// the timestamp is the one the sender transmitted.
func Decode(b []byte) (*Gossip, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalid)
	}
	var (
		fthB    []byte
		root    []byte
		hasRoot bool
		ms      uint64
		ver     uint64
		hasVer  bool
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: bad tag", ErrInvalid)
		}
		b = b[n:]
		switch num {
		case fieldFullTreeHead, fieldTreeRoot:
			if typ != protowire.BytesType {
				return nil, fmt.Errorf("%w: field %d: wrong wire type", ErrInvalid, num)
			}
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, fmt.Errorf("%w: field %d: truncated", ErrInvalid, num)
			}
			if num == fieldFullTreeHead {
				fthB = v
			} else {
				root, hasRoot = v, true
			}
			n = m
		case fieldTimestamp, fieldVersion:
			if typ != protowire.VarintType {
				return nil, fmt.Errorf("%w: field %d: wrong wire type", ErrInvalid, num)
			}
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, fmt.Errorf("%w: field %d: truncated", ErrInvalid, num)
			}
			if num == fieldTimestamp {
				ms = v
			} else {
				ver, hasVer = v, true
			}
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: malformed", ErrInvalid, num)
			}
		}
		b = b[n:]
	}

	if !hasVer || ver != Version {
		return nil, fmt.Errorf("%w: unsupported version", ErrInvalid)
	}
	if !hasRoot || len(root) != ktcore.RootLen {
		return nil, fmt.Errorf("%w: tree root must be %d bytes, got %d", ErrInvalid, ktcore.RootLen, len(root))
	}
	if int64(ms) < 0 {
		return nil, fmt.Errorf("%w: timestamp before epoch", ErrInvalid)
	}
	fth, err := ktcore.FullTreeHeadDecode(fthB)
	if err {
		return nil, fmt.Errorf("%w: bad full tree head", ErrInvalid)
	}

	g := &Gossip{FullTreeHead: fth, Timestamp: time.UnixMilli(int64(ms))}
	copy(g.TreeRoot[:], root)
	return g, nil
}
