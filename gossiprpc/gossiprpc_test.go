package gossiprpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/sanjit-bhat/ktgossip/gossip"
	"github.com/sanjit-bhat/ktgossip/service"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type recorder struct {
	mu  sync.Mutex
	got [][]byte
	err error
}

func (r *recorder) ProcessIncomingGossip(ctx context.Context, b []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, b)
	return r.err
}

func dial(t *testing.T, in Ingestor) *Client {
	lis := bufconn.Listen(1 << 20)
	gs := NewGRPCServer(NewServer(in, zaptest.NewLogger(t)))
	go gs.Serve(lis)
	t.Cleanup(gs.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { cc.Close() })
	return NewClient(cc)
}

func TestPush(t *testing.T) {
	r := &recorder{}
	c := dial(t, r)
	msg := []byte{0x0a, 0x00, 0x12, 0x01, 0xaa}
	require.NoError(t, c.Push(context.Background(), msg))
	require.NoError(t, c.Push(context.Background(), nil))

	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.got, 2)
	require.Equal(t, msg, r.got[0])
	require.Empty(t, r.got[1])
}

func TestPushStatus(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{service.ErrNoAnchor, codes.FailedPrecondition},
		{fmt.Errorf("%w: truncated", gossip.ErrInvalid), codes.InvalidArgument},
		{fmt.Errorf("%w: %w", gossip.ErrInconsistent, errors.New("fork")), codes.Aborted},
		{fmt.Errorf("%w: %w", service.ErrPersist, errors.New("disk full")), codes.Unavailable},
		{errors.New("boom"), codes.Internal},
	}
	r := &recorder{}
	c := dial(t, r)
	for _, tc := range cases {
		r.mu.Lock()
		r.err = tc.err
		r.mu.Unlock()
		err := c.Push(context.Background(), []byte{1})
		require.Equal(t, tc.code, status.Code(err), tc.err.Error())
	}
}

func TestCode(t *testing.T) {
	require.Equal(t, codes.OK, Code(nil))
	require.Equal(t, codes.Canceled, Code(fmt.Errorf("save: %w", context.Canceled)))
	require.Equal(t, codes.DeadlineExceeded, Code(context.DeadlineExceeded))
}

func TestCodec(t *testing.T) {
	var c rawCodec
	b, err := c.Marshal(&frame{b: []byte("hi")})
	require.NoError(t, err)
	var f frame
	require.NoError(t, c.Unmarshal(b, &f))
	require.Equal(t, []byte("hi"), f.b)

	// the frame doesn't alias the transport buffer.
	b[0] = 'x'
	require.Equal(t, []byte("hi"), f.b)

	_, err = c.Marshal("hi")
	require.Error(t, err)
	require.Error(t, c.Unmarshal(b, new(string)))
}
