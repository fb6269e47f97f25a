// Package storagetest checks that a [storage.Store] meets the contract
// every backend shares.
package storagetest

import (
	"context"
	"testing"

	"github.com/sanjit-bhat/ktgossip/ktcore"
	"github.com/sanjit-bhat/ktgossip/storage"
	"github.com/sanjit-bhat/ktgossip/trust"
	"github.com/stretchr/testify/require"
)

// Checkpoint makes a distinct checkpoint per size.
func Checkpoint(size uint64) *ktcore.LastTreeHead {
	th := &ktcore.TreeHead{
		TreeSize:  size,
		Timestamp: 1669123456789 + int64(size),
		Signatures: []*ktcore.Signature{
			{SignerID: []byte{0x01, 0x02, 0x03, 0x04}, Signature: []byte{byte(size), 0xbb}},
		},
	}
	return &ktcore.LastTreeHead{TreeHead: th, Root: ktcore.TreeRoot{byte(size), 0xaa}}
}

// States covers each trust phase.
func States() []*trust.State {
	anchor := trust.New()
	anchor.SetLastTreeHead(Checkpoint(10))
	anchor.SetLastDistinguishedTreeHead(Checkpoint(10))
	tracking := anchor.Clone()
	tracking.SetLastTreeHead(Checkpoint(12))
	return []*trust.State{trust.New(), anchor, tracking}
}

// Run runs the shared contract against stores made by newStore.
// each call to newStore must return a store with nothing saved.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	ctx := context.Background()

	t.Run("LoadEmpty", func(t *testing.T) {
		s := newStore(t)
		st, err := s.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, trust.PhaseUninitialized, st.Phase())
		require.False(t, st.HasTreeHead())
	})

	t.Run("RoundTrip", func(t *testing.T) {
		s := newStore(t)
		for _, want := range States() {
			require.NoError(t, s.Save(ctx, want))
			got, err := s.Load(ctx)
			require.NoError(t, err)
			require.True(t, want.Equal(got))
			require.Equal(t, want.Phase(), got.Phase())
		}
	})

	t.Run("LoadIsACopy", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, States()[1]))
		got, err := s.Load(ctx)
		require.NoError(t, err)
		got.SetLastTreeHead(Checkpoint(99))
		again, err := s.Load(ctx)
		require.NoError(t, err)
		require.True(t, States()[1].Equal(again))
	})

	t.Run("Close", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Close())
	})
}
