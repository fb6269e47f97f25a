// Package redis stores trust state under a single redis key.
// Save returns once the server acknowledges the SET. whether that survives
// a server crash depends on the server's appendfsync setting; run redis
// with appendfsync always for the durability the service expects.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sanjit-bhat/ktgossip/storage"
	"github.com/sanjit-bhat/ktgossip/trust"
)

const DefaultKey = "ktgossip:trust-state"

// Client is the subset of *goredis.Client the store uses.
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
}

type Store struct {
	cli    Client
	key    string
	closer func() error
}

// New uses cli, which the caller keeps ownership of.
func New(cli Client, key string) (*Store, error) {
	if cli == nil {
		return nil, errors.New("redis store: nil client")
	}
	if key == "" {
		key = DefaultKey
	}
	return &Store{cli: cli, key: key, closer: func() error { return nil }}, nil
}

// Dial connects with opts. the store owns the client and closes it.
func Dial(opts *goredis.Options, key string) (*Store, error) {
	cli := goredis.NewClient(opts)
	s, err := New(cli, key)
	if err != nil {
		cli.Close()
		return nil, err
	}
	s.closer = cli.Close
	return s, nil
}

func (s *Store) Load(ctx context.Context) (*trust.State, error) {
	b, err := s.cli.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return trust.New(), nil
	}
	if err != nil {
		return nil, err
	}
	return storage.Open(b)
}

func (s *Store) Save(ctx context.Context, st *trust.State) error {
	return s.cli.Set(ctx, s.key, storage.Seal(st), 0).Err()
}

func (s *Store) Close() error {
	return s.closer()
}
