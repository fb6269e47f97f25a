// ktgossip-state prints the trust state held by the configured backend.
// it reads the same KTGOSSIP_* environment as the node.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/sanjit-bhat/ktgossip/config"
	"github.com/sanjit-bhat/ktgossip/ktcore"
	"github.com/sanjit-bhat/ktgossip/node"
)

func main() {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}
	store, err := node.OpenStore(cfg)
	if err != nil {
		log.Fatalln("failed to open store:", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st, err := store.Load(ctx)
	if err != nil {
		log.Fatalln("failed to load state:", err)
	}
	fmt.Println("backend:", cfg.StateBackend)
	fmt.Println("phase:", st.Phase())
	printHead("last", st.LastTreeHead())
	printHead("distinguished", st.LastDistinguishedTreeHead())
}

func printHead(name string, l *ktcore.LastTreeHead) {
	if l == nil || l.TreeHead == nil {
		fmt.Printf("%s: none\n", name)
		return
	}
	ts := time.UnixMilli(l.TreeHead.Timestamp).UTC()
	fmt.Printf("%s: size %d, time %s, root %s, %d signatures\n",
		name, l.TreeHead.TreeSize, ts.Format(time.RFC3339), hex.EncodeToString(l.Root[:]), len(l.TreeHead.Signatures))
}
