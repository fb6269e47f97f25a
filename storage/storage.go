// Package storage persists trust state.
//
// every backend stores a sealed record: the encoded state framed with a
// magic, a format version, and a blake3 checksum. Load returns an empty
// state when there is no record, and [ErrCorrupt] instead of a partial one.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/sanjit-bhat/ktgossip/marshalutil"
	"github.com/sanjit-bhat/ktgossip/trust"
	"github.com/tchajed/marshal"
	"github.com/zeebo/blake3"
)

var ErrCorrupt = errors.New("storage: corrupt state record")

// Store is the durable home of trust state.
type Store interface {
	// Load returns an empty state if nothing was saved.
	Load(ctx context.Context) (*trust.State, error)
	// Save returns nil only once s is durable, to the extent the backend
	// documents.
	Save(ctx context.Context, s *trust.State) error
	Close() error
}

const (
	// FormatVersion is bumped whenever the trust encoding changes.
	FormatVersion uint64 = 1
	checksumLen          = 32
)

var magic = []byte("KTGS")

// Seal frames an encoded state for storage.
func Seal(s *trust.State) []byte {
	payload := trust.Encode(nil, s)
	b := make([]byte, 0, len(magic)+8+8+len(payload)+checksumLen)
	b = marshal.WriteBytes(b, magic)
	b = marshal.WriteInt(b, FormatVersion)
	b = marshalutil.WriteSlice1D(b, payload)
	sum := blake3.Sum256(b)
	return marshal.WriteBytes(b, sum[:])
}

// Open checks a sealed record and decodes the state inside.
func Open(b []byte) (*trust.State, error) {
	if len(b) < len(magic)+checksumLen {
		return nil, fmt.Errorf("%w: short record (%d bytes)", ErrCorrupt, len(b))
	}
	body, sum := b[:len(b)-checksumLen], b[len(b)-checksumLen:]
	want := blake3.Sum256(body)
	if string(want[:]) != string(sum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	m, b1, err1 := marshalutil.ReadBytes(body, uint64(len(magic)))
	if err1 || string(m) != string(magic) {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	b2, err2 := marshalutil.ReadConstInt(b1, FormatVersion)
	if err2 {
		return nil, fmt.Errorf("%w: unknown format version", ErrCorrupt)
	}
	payload, b3, err3 := marshalutil.ReadSlice1D(b2)
	if err3 || len(b3) != 0 {
		return nil, fmt.Errorf("%w: bad framing", ErrCorrupt)
	}
	s, err4 := trust.Decode(payload)
	if err4 {
		return nil, fmt.Errorf("%w: bad state encoding", ErrCorrupt)
	}
	return s, nil
}
