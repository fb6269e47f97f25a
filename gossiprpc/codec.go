package gossiprpc

import (
	"bytes"
	"fmt"
)

// CodecName is the gRPC content subtype for raw gossip frames.
const CodecName = "ktgossip-raw"

// frame carries message bytes through gRPC untouched.
// gossip bytes have their own wire format, so there's no protobuf message.
type frame struct {
	b []byte
}

type rawCodec struct{}

func (rawCodec) Marshal(v any) ([]byte, error) {
	f, ok := v.(*frame)
	if !ok {
		return nil, fmt.Errorf("gossiprpc: can't marshal %T", v)
	}
	return f.b, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	f, ok := v.(*frame)
	if !ok {
		return fmt.Errorf("gossiprpc: can't unmarshal into %T", v)
	}
	f.b = bytes.Clone(data)
	return nil
}

func (rawCodec) Name() string {
	return CodecName
}
