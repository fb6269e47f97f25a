// Package ktcore defines the KT checkpoint types that gossip and
// monitoring exchange.
// a tree head is a signed (size, timestamp) checkpoint of the log.
// the tree root is the log digest at that checkpoint.
package ktcore

import (
	"bytes"
	"slices"
)

// RootLen is the only valid tree root length.
const RootLen = 32

type TreeRoot [RootLen]byte

type Signature struct {
	// SignerID names the key that made Signature,
	// e.g., an auditor's public key.
	SignerID  []byte
	Signature []byte
}

type TreeHead struct {
	TreeSize uint64
	// Timestamp is in milliseconds since the Unix epoch.
	Timestamp  int64
	Signatures []*Signature
}

// FullTreeHead is what a peer relays about the log.
type FullTreeHead struct {
	// TreeHead is nil if the peer had no checkpoint to share.
	TreeHead      *TreeHead
	Last          [][]byte
	Distinguished [][]byte
	// FullAuditorTreeHeads are opaque auditor records.
	FullAuditorTreeHeads [][]byte
}

// LastTreeHead is a checkpoint the client trusts.
type LastTreeHead struct {
	TreeHead *TreeHead
	Root     TreeRoot
}

// Update is a checkpoint that passed monitor verification.
type Update struct {
	TreeHead *TreeHead
	Root     TreeRoot
}

// Consistency asks the log to prove consistency from these tree sizes.
type Consistency struct {
	Last          uint64
	Distinguished uint64
}

type MonitorRequest struct {
	SearchKeys  [][]byte
	Consistency *Consistency
}

type MonitorResponse struct {
	FullTreeHead *FullTreeHead
	Proofs       [][]byte
}

// MonitorContext is the client-side input to monitor verification.
type MonitorContext struct {
	Last          *LastTreeHead
	Distinguished *LastTreeHead
	// Data is per-search-key monitoring data, owned by the verifier.
	Data map[string][]byte
}

func (s *Signature) Clone() *Signature {
	if s == nil {
		return nil
	}
	return &Signature{SignerID: bytes.Clone(s.SignerID), Signature: bytes.Clone(s.Signature)}
}

func (s *Signature) Equal(o *Signature) bool {
	if s == nil || o == nil {
		return s == o
	}
	return bytes.Equal(s.SignerID, o.SignerID) && bytes.Equal(s.Signature, o.Signature)
}

func (th *TreeHead) Clone() *TreeHead {
	if th == nil {
		return nil
	}
	var sigs []*Signature
	for _, s := range th.Signatures {
		sigs = append(sigs, s.Clone())
	}
	return &TreeHead{TreeSize: th.TreeSize, Timestamp: th.Timestamp, Signatures: sigs}
}

func (th *TreeHead) Equal(o *TreeHead) bool {
	if th == nil || o == nil {
		return th == o
	}
	if th.TreeSize != o.TreeSize || th.Timestamp != o.Timestamp {
		return false
	}
	return slices.EqualFunc(th.Signatures, o.Signatures, (*Signature).Equal)
}

func (l *LastTreeHead) Clone() *LastTreeHead {
	if l == nil {
		return nil
	}
	return &LastTreeHead{TreeHead: l.TreeHead.Clone(), Root: l.Root}
}

func (l *LastTreeHead) Equal(o *LastTreeHead) bool {
	if l == nil || o == nil {
		return l == o
	}
	return l.Root == o.Root && l.TreeHead.Equal(o.TreeHead)
}

// Size is the tree size of the checkpoint, or 0 if there is none.
func (l *LastTreeHead) Size() uint64 {
	if l == nil || l.TreeHead == nil {
		return 0
	}
	return l.TreeHead.TreeSize
}

func (f *FullTreeHead) Clone() *FullTreeHead {
	if f == nil {
		return nil
	}
	return &FullTreeHead{
		TreeHead:             f.TreeHead.Clone(),
		Last:                 cloneSlice2D(f.Last),
		Distinguished:        cloneSlice2D(f.Distinguished),
		FullAuditorTreeHeads: cloneSlice2D(f.FullAuditorTreeHeads),
	}
}

func (f *FullTreeHead) Equal(o *FullTreeHead) bool {
	if f == nil || o == nil {
		return f == o
	}
	return f.TreeHead.Equal(o.TreeHead) &&
		slices.EqualFunc(f.Last, o.Last, bytes.Equal) &&
		slices.EqualFunc(f.Distinguished, o.Distinguished, bytes.Equal) &&
		slices.EqualFunc(f.FullAuditorTreeHeads, o.FullAuditorTreeHeads, bytes.Equal)
}

func cloneSlice2D(in [][]byte) [][]byte {
	var out [][]byte
	for _, b := range in {
		out = append(out, bytes.Clone(b))
	}
	return out
}
