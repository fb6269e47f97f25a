package trust

import (
	"testing"

	"github.com/sanjit-bhat/ktgossip/ktcore"
)

func checkpoint(size uint64, root byte) *ktcore.LastTreeHead {
	th := &ktcore.TreeHead{
		TreeSize:   size,
		Timestamp:  int64(size) * 1000,
		Signatures: []*ktcore.Signature{{SignerID: []byte("adtr"), Signature: []byte{root, root}}},
	}
	return &ktcore.LastTreeHead{TreeHead: th, Root: ktcore.TreeRoot{root}}
}

func TestPhases(t *testing.T) {
	s := New()
	if s.HasTreeHead() || s.HasDistinguishedTreeHead() || s.IsInitialized() {
		t.Fatal()
	}
	if s.Phase() != PhaseUninitialized {
		t.Fatal(s.Phase())
	}

	// a last tree head alone doesn't leave uninitialized.
	s.SetLastTreeHead(checkpoint(1, 1))
	if s.IsInitialized() || s.Phase() != PhaseUninitialized {
		t.Fatal()
	}

	// monitoring sets both.
	c := checkpoint(2, 2)
	s.SetLastTreeHead(c)
	s.SetLastDistinguishedTreeHead(c)
	if !s.IsInitialized() || s.Phase() != PhaseAnchorOnly {
		t.Fatal(s.Phase())
	}

	// gossip moves last.
	s.SetLastTreeHead(checkpoint(3, 3))
	if s.Phase() != PhaseTracking {
		t.Fatal(s.Phase())
	}
	if s.LastDistinguishedTreeHead().Size() != 2 || s.LastTreeHead().Size() != 3 {
		t.Fatal()
	}
	if PhaseTracking.String() != "tracking" {
		t.Fatal()
	}
}

func TestAccessorsCopy(t *testing.T) {
	s := New()
	c := checkpoint(5, 5)
	s.SetLastDistinguishedTreeHead(c)

	// mutating the caller's value or a returned value doesn't reach s.
	c.TreeHead.TreeSize = 99
	got := s.LastDistinguishedTreeHead()
	got.Root[0] = 0
	got.TreeHead.Signatures[0].Signature[0] = 0
	if !s.LastDistinguishedTreeHead().Equal(checkpoint(5, 5)) {
		t.Fatal()
	}

	s2 := s.Clone()
	s2.SetLastDistinguishedTreeHead(checkpoint(6, 6))
	if s.Equal(s2) {
		t.Fatal()
	}
	if s.LastDistinguishedTreeHead().Size() != 5 {
		t.Fatal()
	}
}

func TestSerde(t *testing.T) {
	states := []*State{New()}
	s1 := New()
	s1.SetLastDistinguishedTreeHead(checkpoint(7, 7))
	states = append(states, s1)
	s2 := s1.Clone()
	s2.SetLastTreeHead(checkpoint(8, 8))
	states = append(states, s2)
	s3 := New()
	s3.SetLastTreeHead(&ktcore.LastTreeHead{TreeHead: &ktcore.TreeHead{Timestamp: -1}})
	states = append(states, s3)

	for i, s := range states {
		b := Encode(nil, s)
		out, err := Decode(b)
		if err {
			t.Fatal(i)
		}
		if !out.Equal(s) {
			t.Fatal(i)
		}
		if out.Phase() != s.Phase() {
			t.Fatal(i)
		}

		// every strict prefix fails.
		for n := 0; n < len(b); n++ {
			if _, err := Decode(b[:n]); !err {
				t.Fatal(i, n)
			}
		}
		// trailing junk fails.
		if _, err := Decode(append(b, 0)); !err {
			t.Fatal(i)
		}
	}
}
