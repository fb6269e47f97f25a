// Package sigcheck checks auditor signatures on tree heads before
// handing them to an inner verifier.
package sigcheck

import (
	"errors"
	"fmt"
	"time"

	"github.com/sanjit-bhat/ktgossip/gossip"
	"github.com/sanjit-bhat/ktgossip/ktcore"
	"github.com/sanjit-bhat/ktgossip/marshalutil"
	"github.com/tchajed/marshal"
	"github.com/tink-crypto/tink-go/v2/keyset"
	"github.com/tink-crypto/tink-go/v2/signature"
	"github.com/tink-crypto/tink-go/v2/tink"
)

var (
	// ErrQuorum means too few known signers signed a tree head.
	ErrQuorum = errors.New("sigcheck: not enough valid signatures")
)

// domain separates tree head signatures from anything else the
// signers sign.
const domain = "ktgossip/tree-head/v1"

// Verifier wraps a [gossip.Verifier], first requiring quorum valid
// signatures from distinct known signers on each tree head.
type Verifier struct {
	inner   gossip.Verifier
	quorum  int
	signers map[string]tink.Verifier
}

func New(inner gossip.Verifier, quorum int) *Verifier {
	return &Verifier{inner: inner, quorum: quorum, signers: make(map[string]tink.Verifier)}
}

// AddSigner trusts the public keyset h under id.
// it isn't safe to call concurrently with verification.
func (v *Verifier) AddSigner(id []byte, h *keyset.Handle) error {
	sv, err := signature.NewVerifier(h)
	if err != nil {
		return fmt.Errorf("sigcheck: signer %x: %w", id, err)
	}
	v.signers[string(id)] = sv
	return nil
}

// SignedData is what a signer signs for th.
func SignedData(th *ktcore.TreeHead) []byte {
	var b = make([]byte, 0, len(domain)+8+8+8)
	b = marshalutil.WriteSlice1D(b, []byte(domain))
	b = marshal.WriteInt(b, th.TreeSize)
	b = marshal.WriteInt(b, uint64(th.Timestamp))
	return b
}

// SignTreeHead appends id's signature to th.
func SignTreeHead(s tink.Signer, id []byte, th *ktcore.TreeHead) error {
	sig, err := s.Sign(SignedData(th))
	if err != nil {
		return err
	}
	th.Signatures = append(th.Signatures, &ktcore.Signature{SignerID: id, Signature: sig})
	return nil
}

// CheckTreeHead counts each known signer once. unknown signers and bad
// signatures are ignored, so long as a quorum remains.
func (v *Verifier) CheckTreeHead(th *ktcore.TreeHead) error {
	data := SignedData(th)
	seen := make(map[string]bool)
	for _, s := range th.Signatures {
		if s == nil {
			continue
		}
		id := string(s.SignerID)
		if seen[id] {
			continue
		}
		sv, ok := v.signers[id]
		if !ok {
			continue
		}
		if sv.Verify(s.Signature, data) != nil {
			continue
		}
		seen[id] = true
	}
	if len(seen) < v.quorum {
		return fmt.Errorf("%w: have %d, need %d", ErrQuorum, len(seen), v.quorum)
	}
	return nil
}

func (v *Verifier) VerifyDistinguished(fth *ktcore.FullTreeHead, last, distinguished *ktcore.LastTreeHead) error {
	if fth.TreeHead != nil {
		if err := v.CheckTreeHead(fth.TreeHead); err != nil {
			return err
		}
	}
	return v.inner.VerifyDistinguished(fth, last, distinguished)
}

func (v *Verifier) VerifyMonitor(req *ktcore.MonitorRequest, resp *ktcore.MonitorResponse, mctx *ktcore.MonitorContext, now time.Time) (*ktcore.Update, error) {
	upd, err := v.inner.VerifyMonitor(req, resp, mctx, now)
	if err != nil {
		return nil, err
	}
	if upd != nil && upd.TreeHead != nil {
		if err := v.CheckTreeHead(upd.TreeHead); err != nil {
			return nil, err
		}
	}
	return upd, nil
}
