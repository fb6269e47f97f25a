package storage

import (
	"context"
	"sync"

	"github.com/sanjit-bhat/ktgossip/trust"
)

// Memory keeps the sealed record in process memory.
// it's durable only for the life of the process.
type Memory struct {
	mu     sync.Mutex
	record []byte
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(ctx context.Context) (*trust.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.record == nil {
		return trust.New(), nil
	}
	return Open(m.record)
}

func (m *Memory) Save(ctx context.Context, s *trust.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := Seal(s)
	m.mu.Lock()
	m.record = b
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	return nil
}
