// Package service folds gossip and monitor results into trust state.
//
// monitoring is the only way to set the distinguished tree head.
// gossip is checked against it and may only advance the last tree head.
// each mutating call holds the service lock through verify, persist,
// and swap, so concurrent calls never check against a stale state.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sanjit-bhat/ktgossip/gossip"
	"github.com/sanjit-bhat/ktgossip/ktcore"
	"github.com/sanjit-bhat/ktgossip/storage"
	"github.com/sanjit-bhat/ktgossip/telemetry"
	"github.com/sanjit-bhat/ktgossip/trust"
	"go.uber.org/zap"
)

var (
	// ErrNoAnchor is returned for gossip that arrives before any monitor run.
	ErrNoAnchor = fmt.Errorf("%w: no distinguished tree head", gossip.ErrInvalid)
	// ErrPersist means a verified update could not be saved.
	// the in-memory state was not changed.
	ErrPersist = errors.New("service: persist trust state")
	// ErrEmptyUpdate means the verifier passed a monitor run
	// without returning a checkpoint.
	ErrEmptyUpdate = errors.New("service: verifier returned no tree head")
	// ErrStaleContext means the trusted checkpoints moved after the
	// monitor request and context were taken. take fresh ones and retry.
	ErrStaleContext = errors.New("service: monitor context is stale")
)

const (
	defaultSaveRetries = 3
	defaultSaveBackoff = 50 * time.Millisecond
)

type Service struct {
	mu    sync.Mutex
	v     gossip.Verifier
	store storage.Store
	state *trust.State

	log         *zap.Logger
	saveRetries uint64
	saveBackoff time.Duration
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// WithSaveRetries sets how many times a failed save is retried
// before the caller gets [ErrPersist]. 0 means a single attempt.
func WithSaveRetries(n uint64) Option {
	return func(s *Service) {
		s.saveRetries = n
	}
}

// WithSaveBackoff sets the initial wait between save retries.
func WithSaveBackoff(d time.Duration) Option {
	return func(s *Service) {
		s.saveBackoff = d
	}
}

// New loads trust state from store.
func New(ctx context.Context, v gossip.Verifier, store storage.Store, opts ...Option) (*Service, error) {
	if v == nil || store == nil {
		return nil, errors.New("service: nil verifier or store")
	}
	s := &Service{
		v:           v,
		store:       store,
		log:         zap.NewNop(),
		saveRetries: defaultSaveRetries,
		saveBackoff: defaultSaveBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	st, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: load trust state: %w", err)
	}
	s.state = st
	s.observeState()
	s.log.Info("loaded trust state",
		zap.Stringer("phase", st.Phase()),
		zap.Uint64("last_size", st.LastTreeHead().Size()),
		zap.Uint64("distinguished_size", st.LastDistinguishedTreeHead().Size()))
	return s, nil
}

// ProcessIncomingGossip decodes b, verifies it against the trusted
// checkpoints, and on success makes it the last tree head.
//
// errors wrap [gossip.ErrInvalid] (bad bytes, or [ErrNoAnchor]),
// [gossip.ErrInconsistent] (verifier rejected it), or [ErrPersist].
// the trust state is unchanged on any error.
func (s *Service) ProcessIncomingGossip(ctx context.Context, b []byte) error {
	g, err := gossip.Decode(b)
	if err != nil {
		telemetry.GossipTotal.WithLabelValues(telemetry.ResultInvalid).Inc()
		s.log.Debug("dropping undecodable gossip", zap.Int("len", len(b)), zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dist := s.state.LastDistinguishedTreeHead()
	if dist == nil {
		telemetry.GossipTotal.WithLabelValues(telemetry.ResultNoAnchor).Inc()
		s.log.Debug("dropping gossip before first monitor run")
		return ErrNoAnchor
	}
	last := s.state.LastTreeHead()

	start := time.Now()
	err = s.v.VerifyDistinguished(g.FullTreeHead, last, dist)
	telemetry.ObserveVerify("gossip", start)
	if err != nil {
		telemetry.GossipTotal.WithLabelValues(telemetry.ResultInconsistent).Inc()
		s.log.Warn("gossip failed verification",
			zap.Uint64("candidate_size", candidateSize(g.FullTreeHead)),
			zap.Uint64("last_size", last.Size()),
			zap.Uint64("distinguished_size", dist.Size()),
			zap.Error(err))
		return fmt.Errorf("%w: %w", gossip.ErrInconsistent, err)
	}

	if g.FullTreeHead.TreeHead == nil {
		telemetry.GossipTotal.WithLabelValues(telemetry.ResultNoTreeHead).Inc()
		return nil
	}

	next := s.state.Clone()
	next.SetLastTreeHead(&ktcore.LastTreeHead{TreeHead: g.FullTreeHead.TreeHead, Root: g.TreeRoot})
	if err := s.commit(ctx, next); err != nil {
		telemetry.GossipTotal.WithLabelValues(telemetry.ResultPersistError).Inc()
		return err
	}
	telemetry.GossipTotal.WithLabelValues(telemetry.ResultAccepted).Inc()
	s.log.Debug("accepted gossip",
		zap.Uint64("size", g.FullTreeHead.TreeHead.TreeSize),
		zap.Time("sent", g.Timestamp))
	return nil
}

// RunMonitorOnce verifies a monitor exchange and makes its checkpoint
// both the last and the distinguished tree head.
// req and mctx must describe the current trust state, else the run fails
// with [ErrStaleContext]. verifier errors come back unchanged. the trust
// state is unchanged on any error.
func (s *Service) RunMonitorOnce(ctx context.Context, req *ktcore.MonitorRequest, resp *ktcore.MonitorResponse, mctx *ktcore.MonitorContext, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isCurrent(req, mctx) {
		telemetry.MonitorTotal.WithLabelValues(telemetry.ResultStale).Inc()
		s.log.Info("dropping monitor run with stale context",
			zap.Uint64("context_last_size", mctxLast(mctx).Size()),
			zap.Uint64("last_size", s.state.LastTreeHead().Size()))
		return ErrStaleContext
	}

	start := time.Now()
	upd, err := s.v.VerifyMonitor(req, resp, mctx, now)
	telemetry.ObserveVerify("monitor", start)
	if err != nil {
		telemetry.MonitorTotal.WithLabelValues(telemetry.ResultVerifyError).Inc()
		s.log.Warn("monitor failed verification", zap.Error(err))
		return err
	}
	if upd == nil || upd.TreeHead == nil {
		telemetry.MonitorTotal.WithLabelValues(telemetry.ResultVerifyError).Inc()
		return ErrEmptyUpdate
	}

	head := &ktcore.LastTreeHead{TreeHead: upd.TreeHead, Root: upd.Root}
	next := s.state.Clone()
	next.SetLastTreeHead(head)
	next.SetLastDistinguishedTreeHead(head)
	if err := s.commit(ctx, next); err != nil {
		telemetry.MonitorTotal.WithLabelValues(telemetry.ResultPersistError).Inc()
		return err
	}
	telemetry.MonitorTotal.WithLabelValues(telemetry.ResultOK).Inc()
	s.log.Info("monitor advanced distinguished tree head", zap.Uint64("size", head.Size()))
	return nil
}

// isCurrent reports whether req and mctx were taken from the state as it
// is now. it assumes s.mu is held.
func (s *Service) isCurrent(req *ktcore.MonitorRequest, mctx *ktcore.MonitorContext) bool {
	if req == nil || mctx == nil {
		return false
	}
	last := s.state.LastTreeHead()
	dist := s.state.LastDistinguishedTreeHead()
	if !mctx.Last.Equal(last) || !mctx.Distinguished.Equal(dist) {
		return false
	}
	if dist == nil {
		return req.Consistency == nil
	}
	return req.Consistency != nil &&
		req.Consistency.Last == last.Size() &&
		req.Consistency.Distinguished == dist.Size()
}

func mctxLast(mctx *ktcore.MonitorContext) *ktcore.LastTreeHead {
	if mctx == nil {
		return nil
	}
	return mctx.Last
}

// commit saves next and only then installs it. it assumes s.mu is held.
func (s *Service) commit(ctx context.Context, next *trust.State) error {
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.state = next
	s.observeState()
	return nil
}

func (s *Service) save(ctx context.Context, st *trust.State) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.saveBackoff
	b := backoff.WithContext(backoff.WithMaxRetries(eb, s.saveRetries), ctx)

	op := func() error {
		err := s.store.Save(ctx, st)
		if err != nil {
			telemetry.SaveTotal.WithLabelValues(telemetry.ResultError).Inc()
			return err
		}
		telemetry.SaveTotal.WithLabelValues(telemetry.ResultOK).Inc()
		return nil
	}
	notify := func(err error, wait time.Duration) {
		s.log.Warn("save failed, retrying", zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		s.log.Error("giving up on save", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// State returns a copy of the current trust state.
func (s *Service) State() *trust.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// MonitorContext snapshots the trusted checkpoints for a monitor run.
func (s *Service) MonitorContext() *ktcore.MonitorContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &ktcore.MonitorContext{
		Last:          s.state.LastTreeHead(),
		Distinguished: s.state.LastDistinguishedTreeHead(),
		Data:          make(map[string][]byte),
	}
}

// MonitorRequest asks about keys, with consistency from the trusted sizes.
// it has no consistency request before the first monitor run.
func (s *Service) MonitorRequest(keys [][]byte) *ktcore.MonitorRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := &ktcore.MonitorRequest{SearchKeys: keys}
	if s.state.HasDistinguishedTreeHead() {
		req.Consistency = &ktcore.Consistency{
			Last:          s.state.LastTreeHead().Size(),
			Distinguished: s.state.LastDistinguishedTreeHead().Size(),
		}
	}
	return req
}

// OutgoingGossip encodes the last tree head for relaying to peers.
func (s *Service) OutgoingGossip(now time.Time) ([]byte, error) {
	s.mu.Lock()
	last := s.state.LastTreeHead()
	s.mu.Unlock()
	if last == nil || last.TreeHead == nil {
		return nil, fmt.Errorf("%w: no tree head to relay", gossip.ErrInvalid)
	}
	fth := &ktcore.FullTreeHead{TreeHead: last.TreeHead}
	return gossip.Encode(gossip.New(fth, last.Root, now))
}

// Close flushes the trust state and closes the store.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.save(ctx, s.state)
	return errors.Join(err, s.store.Close())
}

func (s *Service) observeState() {
	telemetry.TreeSize.WithLabelValues("last").Set(float64(s.state.LastTreeHead().Size()))
	telemetry.TreeSize.WithLabelValues("distinguished").Set(float64(s.state.LastDistinguishedTreeHead().Size()))
}

func candidateSize(fth *ktcore.FullTreeHead) uint64 {
	if fth == nil || fth.TreeHead == nil {
		return 0
	}
	return fth.TreeHead.TreeSize
}
