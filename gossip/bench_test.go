package gossip

import (
	"testing"
	"time"

	"github.com/sanjit-bhat/ktgossip/benchutil"
)

func TestBenchEncode(t *testing.T) {
	g := New(testFullTreeHead(), testRoot(), time.UnixMilli(1669123456789))
	benchutil.Run(100_000, func(int) {
		if _, err := Encode(g); err != nil {
			t.Fatal(err)
		}
	})
}

func TestBenchDecode(t *testing.T) {
	b, err := Encode(New(testFullTreeHead(), testRoot(), time.UnixMilli(1669123456789)))
	if err != nil {
		t.Fatal(err)
	}
	benchutil.Run(100_000, func(int) {
		if _, err := Decode(b); err != nil {
			t.Fatal(err)
		}
	}, &benchutil.Metric{N: float64(len(b)), Unit: "B/msg"})
}
