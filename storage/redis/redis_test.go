package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sanjit-bhat/ktgossip/storage"
	"github.com/sanjit-bhat/ktgossip/storage/storagetest"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu     sync.Mutex
	data   map[string]string
	setErr error
	getErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: make(map[string]string)}
}

func (f *fakeClient) Get(ctx context.Context, key string) *goredis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return goredis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return goredis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	default:
		return goredis.NewStatusResult("", errors.New("unsupported value type"))
	}
	return goredis.NewStatusResult("OK", nil)
}

func TestContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := New(newFakeClient(), "")
		require.NoError(t, err)
		return s
	})
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	cli := newFakeClient()
	s, err := New(cli, "k")
	require.NoError(t, err)

	boom := errors.New("READONLY You can't write against a read only replica.")
	cli.setErr = boom
	require.ErrorIs(t, s.Save(ctx, storagetest.States()[1]), boom)

	cli.setErr = nil
	cli.getErr = boom
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, boom)

	cli.getErr = nil
	cli.data["k"] = "KTGS"
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, storage.ErrCorrupt)

	_, err = New(nil, "")
	require.Error(t, err)
}
