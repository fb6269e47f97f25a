// Package trust holds the two checkpoints a client trusts.
//
// lastTreeHead is the newest checkpoint accepted from gossip or monitoring.
// distinguishedTreeHead is the newest checkpoint from monitoring only.
// it anchors every gossip check, and gossip never writes it.
package trust

import (
	"github.com/sanjit-bhat/ktgossip/ktcore"
)

// Phase is a coarse view of how far trust has been established.
type Phase uint8

const (
	// PhaseUninitialized has no anchor. gossip can't move it forward.
	PhaseUninitialized Phase = iota
	// PhaseAnchorOnly has an anchor, and the last tree head is the anchor.
	PhaseAnchorOnly
	// PhaseTracking has a last tree head that gossip moved past the anchor.
	PhaseTracking
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseAnchorOnly:
		return "anchor_only"
	case PhaseTracking:
		return "tracking"
	default:
		return "unknown"
	}
}

// State is not safe for concurrent use. the service serializes access.
type State struct {
	lastTreeHead          *ktcore.LastTreeHead
	distinguishedTreeHead *ktcore.LastTreeHead
}

func New() *State {
	return &State{}
}

// LastTreeHead returns a copy, or nil.
func (s *State) LastTreeHead() *ktcore.LastTreeHead {
	return s.lastTreeHead.Clone()
}

// LastDistinguishedTreeHead returns a copy, or nil.
func (s *State) LastDistinguishedTreeHead() *ktcore.LastTreeHead {
	return s.distinguishedTreeHead.Clone()
}

func (s *State) SetLastTreeHead(l *ktcore.LastTreeHead) {
	s.lastTreeHead = l.Clone()
}

// SetLastDistinguishedTreeHead must only be called with a checkpoint
// from monitor verification.
func (s *State) SetLastDistinguishedTreeHead(l *ktcore.LastTreeHead) {
	s.distinguishedTreeHead = l.Clone()
}

func (s *State) HasTreeHead() bool {
	return s.lastTreeHead != nil
}

func (s *State) HasDistinguishedTreeHead() bool {
	return s.distinguishedTreeHead != nil
}

func (s *State) IsInitialized() bool {
	return s.HasTreeHead() && s.HasDistinguishedTreeHead()
}

func (s *State) Phase() Phase {
	if s.distinguishedTreeHead == nil {
		return PhaseUninitialized
	}
	if s.lastTreeHead == nil || s.lastTreeHead.Equal(s.distinguishedTreeHead) {
		return PhaseAnchorOnly
	}
	return PhaseTracking
}

func (s *State) Clone() *State {
	return &State{
		lastTreeHead:          s.lastTreeHead.Clone(),
		distinguishedTreeHead: s.distinguishedTreeHead.Clone(),
	}
}

func (s *State) Equal(o *State) bool {
	return s.lastTreeHead.Equal(o.lastTreeHead) &&
		s.distinguishedTreeHead.Equal(o.distinguishedTreeHead)
}
