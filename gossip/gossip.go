// Package gossip carries a peer's claim about the log's checkpoint.
// gossip is untrusted. it only restores structure; callers must check it
// against a [Verifier] before acting on it.
package gossip

import (
	"errors"
	"time"

	"github.com/sanjit-bhat/ktgossip/ktcore"
)

var (
	// ErrInvalid covers malformed bytes, bad lengths, and unmet preconditions.
	ErrInvalid = errors.New("gossip: invalid")
	// ErrInconsistent is returned when the verifier rejects a candidate.
	ErrInconsistent = errors.New("gossip: inconsistent")
)

type Gossip struct {
	FullTreeHead *ktcore.FullTreeHead
	TreeRoot     ktcore.TreeRoot
	// Timestamp is what the sender put on the wire, at ms precision.
	Timestamp time.Time
}

func New(fth *ktcore.FullTreeHead, root ktcore.TreeRoot, ts time.Time) *Gossip {
	return &Gossip{FullTreeHead: fth, TreeRoot: root, Timestamp: ts}
}

// Verifier does the cryptographic checks.
// implementations must not keep or modify their arguments.
type Verifier interface {
	// VerifyDistinguished checks that fth is a signed, consistent extension
	// of last (which may be nil) and distinguished.
	VerifyDistinguished(fth *ktcore.FullTreeHead, last, distinguished *ktcore.LastTreeHead) error
	// VerifyMonitor checks a monitor exchange with the log and returns
	// the checkpoint it proves.
	VerifyMonitor(req *ktcore.MonitorRequest, resp *ktcore.MonitorResponse, mctx *ktcore.MonitorContext, now time.Time) (*ktcore.Update, error)
}
