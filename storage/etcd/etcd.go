// Package etcd stores trust state under a single etcd key.
// a Put is acknowledged only after the etcd quorum commits it.
package etcd

import (
	"context"
	"errors"
	"time"

	"github.com/sanjit-bhat/ktgossip/storage"
	"github.com/sanjit-bhat/ktgossip/trust"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const DefaultKey = "/ktgossip/trust-state"

type Store struct {
	kv     clientv3.KV
	key    string
	closer func() error
}

// New uses kv, which the caller keeps ownership of.
func New(kv clientv3.KV, key string) (*Store, error) {
	if kv == nil {
		return nil, errors.New("etcd store: nil kv")
	}
	if key == "" {
		key = DefaultKey
	}
	return &Store{kv: kv, key: key, closer: func() error { return nil }}, nil
}

// Dial connects to endpoints. the store owns the client and closes it.
func Dial(endpoints []string, dialTimeout time.Duration, key string) (*Store, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, err
	}
	s, err := New(cli, key)
	if err != nil {
		cli.Close()
		return nil, err
	}
	s.closer = cli.Close
	return s, nil
}

func (s *Store) Load(ctx context.Context) (*trust.State, error) {
	resp, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return trust.New(), nil
	}
	return storage.Open(resp.Kvs[0].Value)
}

func (s *Store) Save(ctx context.Context, st *trust.State) error {
	_, err := s.kv.Put(ctx, s.key, string(storage.Seal(st)))
	return err
}

func (s *Store) Close() error {
	return s.closer()
}
