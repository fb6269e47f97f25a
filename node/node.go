// Package node runs a gossip-ingesting KT client: the trust service,
// its monitor loop, the gRPC gossip intake, and the metrics endpoint.
package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sanjit-bhat/ktgossip/config"
	"github.com/sanjit-bhat/ktgossip/gossip"
	"github.com/sanjit-bhat/ktgossip/gossiprpc"
	"github.com/sanjit-bhat/ktgossip/monitor"
	"github.com/sanjit-bhat/ktgossip/service"
	"github.com/sanjit-bhat/ktgossip/storage"
	"github.com/sanjit-bhat/ktgossip/storage/etcd"
	"github.com/sanjit-bhat/ktgossip/storage/file"
	"github.com/sanjit-bhat/ktgossip/storage/redis"
	"github.com/sanjit-bhat/ktgossip/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const shutdownTimeout = 5 * time.Second

// NewLogger builds a production logger at level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// OpenStore opens the state backend cfg names.
func OpenStore(cfg config.Config) (storage.Store, error) {
	switch cfg.StateBackend {
	case config.BackendMemory:
		return storage.NewMemory(), nil
	case config.BackendFile:
		return file.New(cfg.StatePath)
	case config.BackendEtcd:
		return etcd.Dial(cfg.EtcdEndpoints, cfg.EtcdDialTimeout, cfg.EtcdKey)
	case config.BackendRedis:
		return redis.Dial(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.RedisKey)
	default:
		return nil, fmt.Errorf("node: unknown state backend %q", cfg.StateBackend)
	}
}

type Node struct {
	cfg     config.Config
	log     *zap.Logger
	svc     *service.Service
	runner  *monitor.Runner
	grpc    *grpc.Server
	lis     net.Listener
	metrics *http.Server
	mlis    net.Listener
}

// New opens the store, loads trust state, and binds the listeners.
// monitor rounds come from src, and v checks both paths.
func New(ctx context.Context, cfg config.Config, v gossip.Verifier, src monitor.Source, log *zap.Logger) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := service.New(ctx, v, store,
		service.WithLogger(log.Named("service")),
		service.WithSaveRetries(uint64(cfg.SaveRetries)))
	if err != nil {
		store.Close()
		return nil, err
	}

	n := &Node{
		cfg: cfg,
		log: log,
		svc: svc,
		runner: monitor.New(src, svc,
			monitor.WithInterval(cfg.MonitorInterval),
			monitor.WithLogger(log.Named("monitor"))),
		grpc: gossiprpc.NewGRPCServer(gossiprpc.NewServer(svc, log.Named("rpc"))),
	}

	n.lis, err = net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("node: listen: %w", err)
	}
	if cfg.MetricsAddr != "" {
		n.mlis, err = net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			n.lis.Close()
			store.Close()
			return nil, fmt.Errorf("node: listen metrics: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.MetricsHandler())
		n.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}
	return n, nil
}

// Addr is where the gossip intake listens.
func (n *Node) Addr() net.Addr {
	return n.lis.Addr()
}

// MetricsAddr is nil unless metrics are enabled.
func (n *Node) MetricsAddr() net.Addr {
	if n.mlis == nil {
		return nil
	}
	return n.mlis.Addr()
}

func (n *Node) Service() *service.Service {
	return n.svc
}

// Run serves until ctx is done or a component fails, then shuts
// everything down and flushes the trust state.
func (n *Node) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return n.runner.Run(ctx)
	})
	eg.Go(func() error {
		n.log.Info("gossip intake listening", zap.Stringer("addr", n.lis.Addr()))
		return n.grpc.Serve(n.lis)
	})
	if n.metrics != nil {
		eg.Go(func() error {
			n.log.Info("metrics listening", zap.Stringer("addr", n.mlis.Addr()))
			if err := n.metrics.Serve(n.mlis); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	eg.Go(func() error {
		<-ctx.Done()
		n.grpc.GracefulStop()
		if n.metrics != nil {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return n.metrics.Shutdown(sctx)
		}
		return nil
	})

	err := eg.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	cctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if cerr := n.svc.Close(cctx); cerr != nil {
		n.log.Error("closing trust state", zap.Error(cerr))
		err = errors.Join(err, cerr)
	}
	n.log.Info("stopped")
	return err
}
