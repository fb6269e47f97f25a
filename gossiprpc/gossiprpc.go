// Package gossiprpc accepts gossip from peers over gRPC.
package gossiprpc

import (
	"context"
	"errors"

	"github.com/sanjit-bhat/ktgossip/gossip"
	"github.com/sanjit-bhat/ktgossip/service"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName = "ktgossip.Gossip"
	PushMethod  = "/ktgossip.Gossip/Push"
)

// Ingestor is what the server hands gossip to.
type Ingestor interface {
	ProcessIncomingGossip(ctx context.Context, b []byte) error
}

type pusher interface {
	Push(ctx context.Context, b []byte) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*pusher)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Push", Handler: pushHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ktgossip.proto",
}

func pushHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(frame)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		if err := srv.(pusher).Push(ctx, req.(*frame).b); err != nil {
			return nil, err
		}
		return &frame{}, nil
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PushMethod}
	return interceptor(ctx, in, info, call)
}

type Server struct {
	in  Ingestor
	log *zap.Logger
}

func NewServer(in Ingestor, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{in: in, log: log}
}

// Push hands b to the ingestor and maps its error to a gRPC status.
func (s *Server) Push(ctx context.Context, b []byte) error {
	err := s.in.ProcessIncomingGossip(ctx, b)
	if err == nil {
		return nil
	}
	st := status.New(Code(err), err.Error())
	if st.Code() == codes.Internal || st.Code() == codes.Unavailable {
		s.log.Error("gossip push failed", zap.Error(err))
	}
	return st.Err()
}

// Code classifies an ingest error.
// no-anchor is checked first since it also wraps ErrInvalid.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, service.ErrNoAnchor):
		return codes.FailedPrecondition
	case errors.Is(err, gossip.ErrInvalid):
		return codes.InvalidArgument
	case errors.Is(err, gossip.ErrInconsistent):
		return codes.Aborted
	case errors.Is(err, service.ErrPersist):
		return codes.Unavailable
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

// Register adds s to gs. gs must use the raw codec, see [NewGRPCServer].
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&serviceDesc, s)
}

// NewGRPCServer makes a gRPC server that speaks raw gossip frames
// and serves s.
func NewGRPCServer(s *Server, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ForceServerCodec(rawCodec{}))
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	return gs
}

// Client pushes gossip to a peer.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Push sends one encoded gossip message.
// use [status.Code] on the error to see why the peer refused it.
func (c *Client) Push(ctx context.Context, b []byte) error {
	return c.cc.Invoke(ctx, PushMethod, &frame{b: b}, &frame{}, grpc.ForceCodec(rawCodec{}))
}
