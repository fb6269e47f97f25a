// ktgossip-keygen makes ed25519 tink keysets for tree head signers.
// public keysets go in <dir>/pub, for sigcheck's AddSignerDir.
package main

import (
	"flag"
	"log"
	"os"
	"path"
	"strings"

	"github.com/sanjit-bhat/ktgossip/sigcheck"
	"github.com/tink-crypto/tink-go/v2/insecurecleartextkeyset"
	"github.com/tink-crypto/tink-go/v2/keyset"
	"github.com/tink-crypto/tink-go/v2/signature"
)

func main() {
	keyDir := flag.String("dir", "keys", "output directory")
	names := flag.String("names", "adtr0,adtr1,adtr2", "comma-separated signer ids")
	flag.Parse()

	pubDir := path.Join(*keyDir, "pub")
	privDir := path.Join(*keyDir, "priv")
	if err := os.MkdirAll(pubDir, 0700); err != nil {
		log.Fatalln(err)
	}
	if err := os.MkdirAll(privDir, 0700); err != nil {
		log.Fatalln(err)
	}

	for _, name := range strings.Split(*names, ",") {
		if name == "" {
			continue
		}
		h, err := keyset.NewHandle(signature.ED25519KeyTemplate())
		if err != nil {
			log.Fatalln(err)
		}
		if err := sigcheck.WritePublicKeyset(h, path.Join(pubDir, name)); err != nil {
			log.Fatalln(err)
		}
		f, err := os.OpenFile(path.Join(privDir, name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			log.Fatalln(err)
		}
		if err := insecurecleartextkeyset.Write(h, keyset.NewBinaryWriter(f)); err != nil {
			log.Fatalln(err)
		}
		if err := f.Close(); err != nil {
			log.Fatalln(err)
		}
		log.Println("wrote keys for", name)
	}
}
