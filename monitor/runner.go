// Package monitor periodically asks the KT server to prove consistency
// and folds the result into the service's trust state.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/sanjit-bhat/ktgossip/ktcore"
	"github.com/sanjit-bhat/ktgossip/telemetry"
	"go.uber.org/zap"
)

const DefaultInterval = time.Minute

// Source runs one monitor exchange with the KT server.
type Source interface {
	Exchange(ctx context.Context, req *ktcore.MonitorRequest) (*ktcore.MonitorResponse, error)
}

// Target is the trust state a Runner feeds.
type Target interface {
	MonitorRequest(keys [][]byte) *ktcore.MonitorRequest
	MonitorContext() *ktcore.MonitorContext
	RunMonitorOnce(ctx context.Context, req *ktcore.MonitorRequest, resp *ktcore.MonitorResponse, mctx *ktcore.MonitorContext, now time.Time) error
}

type Runner struct {
	src      Source
	tgt      Target
	interval time.Duration
	keys     [][]byte
	log      *zap.Logger
	now      func() time.Time
}

type Option func(*Runner)

func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		r.interval = d
	}
}

// WithKeys sets the search keys to monitor.
func WithKeys(keys [][]byte) Option {
	return func(r *Runner) {
		r.keys = keys
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// WithClock sets the time handed to the verifier.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

func New(src Source, tgt Target, opts ...Option) *Runner {
	r := &Runner{
		src:      src,
		tgt:      tgt,
		interval: DefaultInterval,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tick runs one monitor exchange. it fails with [service.ErrStaleContext]
// if the trust state moved during the exchange.
func (r *Runner) Tick(ctx context.Context) error {
	req := r.tgt.MonitorRequest(r.keys)
	mctx := r.tgt.MonitorContext()
	resp, err := r.src.Exchange(ctx, req)
	if err != nil {
		telemetry.MonitorTotal.WithLabelValues(telemetry.ResultExchangeErr).Inc()
		return fmt.Errorf("monitor: exchange: %w", err)
	}
	return r.tgt.RunMonitorOnce(ctx, req, resp, mctx, r.now())
}

// Run ticks right away and then every interval, until ctx is done.
// failed ticks are logged and retried on the next interval.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if err := r.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Warn("monitor run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
