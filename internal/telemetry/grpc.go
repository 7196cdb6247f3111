package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/logging"
)

// #region service
const (
	collectorServiceName = "interlock.telemetry.v1.Collector"
	pushMethod           = "/" + collectorServiceName + "/Push"
)

// CollectorServer receives pushed step records.
type CollectorServer interface {
	Push(ctx context.Context, record *structpb.Struct) (*emptypb.Empty, error)
}

var collectorServiceDesc = grpc.ServiceDesc{
	ServiceName: collectorServiceName,
	HandlerType: (*CollectorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Push", Handler: pushHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "interlock/telemetry/v1/collector.proto",
}

func pushHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CollectorServer).Push(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: pushMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CollectorServer).Push(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterCollector registers a CollectorServer on a gRPC server.
func RegisterCollector(s grpc.ServiceRegistrar, srv CollectorServer) {
	s.RegisterService(&collectorServiceDesc, srv)
}

// #endregion service

// #region collector
// Collector is a CollectorServer that forwards every pushed record to a Sink.
type Collector struct {
	sink   Sink
	logger *slog.Logger
}

// NewCollector creates a collector forwarding to sink.
func NewCollector(sink Sink) *Collector {
	return &Collector{sink: sink, logger: logging.New("collector")}
}

// Push implements CollectorServer.
func (c *Collector) Push(_ context.Context, record *structpb.Struct) (*emptypb.Empty, error) {
	if err := c.sink.Log(record.AsMap()); err != nil {
		c.logger.Warn("sink rejected record", "error", err)
		return nil, fmt.Errorf("collector sink: %w", err)
	}
	return &emptypb.Empty{}, nil
}

// #endregion collector

// #region grpc-sink

// GRPCSinkConfig tunes the asynchronous gRPC sink.
type GRPCSinkConfig struct {
	Buffer  int            // queued records before new ones are dropped
	Timeout time.Duration  // per-push deadline
	Labels  map[string]any // merged into every record (e.g. run_id, scenario)
}

// DefaultGRPCSinkConfig returns sensible defaults.
func DefaultGRPCSinkConfig() GRPCSinkConfig {
	return GRPCSinkConfig{
		Buffer:  256,
		Timeout: 2 * time.Second,
	}
}

// GRPCSink ships records to a remote Collector from a background goroutine.
// Log never blocks: when the buffer is full the record is dropped.
type GRPCSink struct {
	cc     grpc.ClientConnInterface
	conn   *grpc.ClientConn // owned connection, nil when injected
	config GRPCSinkConfig
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan *structpb.Struct
	done   chan struct{}

	sent    atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewGRPCSink dials a collector at addr (plaintext).
func NewGRPCSink(addr string, config GRPCSinkConfig) (*GRPCSink, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	s := NewGRPCSinkWithConn(conn, config)
	s.conn = conn
	return s, nil
}

// NewGRPCSinkWithConn creates a sink over an existing connection. The caller
// keeps ownership of cc.
func NewGRPCSinkWithConn(cc grpc.ClientConnInterface, config GRPCSinkConfig) *GRPCSink {
	if config.Buffer <= 0 {
		config.Buffer = DefaultGRPCSinkConfig().Buffer
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultGRPCSinkConfig().Timeout
	}
	s := &GRPCSink{
		cc:     cc,
		config: config,
		logger: logging.New("telemetry"),
		queue:  make(chan *structpb.Struct, config.Buffer),
		done:   make(chan struct{}),
	}
	go s.loop()
	return s
}

// Log enqueues a record. It returns an error only for records that cannot be
// encoded or when the sink is closed.
func (s *GRPCSink) Log(fields map[string]any) error {
	merged := fields
	if len(s.config.Labels) > 0 {
		merged = maps.Clone(fields)
		maps.Copy(merged, s.config.Labels)
	}
	record, err := structpb.NewStruct(merged)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("grpc sink closed")
	}
	select {
	case s.queue <- record:
	default:
		s.dropped.Add(1)
	}
	return nil
}

func (s *GRPCSink) loop() {
	defer close(s.done)
	for record := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
		err := s.cc.Invoke(ctx, pushMethod, record, &emptypb.Empty{})
		cancel()
		if err != nil {
			s.failed.Add(1)
			s.logger.Warn("push failed", "error", err)
			continue
		}
		s.sent.Add(1)
	}
}

// Close flushes queued records and releases an owned connection.
func (s *GRPCSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	<-s.done
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Stats reports sent, dropped and failed record counts.
func (s *GRPCSink) Stats() (sent, dropped, failed int64) {
	return s.sent.Load(), s.dropped.Load(), s.failed.Load()
}

// #endregion grpc-sink
