// ktgossip-push sends an encoded gossip message to a peer.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/sanjit-bhat/ktgossip/gossip"
	"github.com/sanjit-bhat/ktgossip/gossiprpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

func main() {
	peer := flag.String("peer", "localhost:7070", "peer gossip address")
	in := flag.String("in", "-", "gossip file, or - for stdin")
	timeout := flag.Duration("timeout", 10*time.Second, "push timeout")
	flag.Parse()

	b, err := readInput(*in)
	if err != nil {
		log.Fatalln("failed to read gossip:", err)
	}
	// catch malformed input before the peer does.
	g, err := gossip.Decode(b)
	if err != nil {
		log.Fatalln(err)
	}

	conn, err := grpc.NewClient(*peer, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalln("failed to connect:", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := gossiprpc.NewClient(conn).Push(ctx, b); err != nil {
		log.Fatalln("peer refused gossip:", status.Code(err), status.Convert(err).Message())
	}
	var size uint64
	if g.FullTreeHead.TreeHead != nil {
		size = g.FullTreeHead.TreeHead.TreeSize
	}
	log.Println("pushed tree size", size, "to", *peer)
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}
