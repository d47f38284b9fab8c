package grpcserver

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "vazadinhas.Catalog"

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewServer builds a gRPC server exposing only the health service.
// Reflection is registered in dev mode.
func NewServer(log *zap.Logger, dev bool, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(RecoverUnary(log), LoggingUnary(log)),
		grpc.ChainStreamInterceptor(RecoverStream(log), LoggingStream(log)),
	)
	s := grpc.NewServer(opts...)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	if dev {
		reflection.Register(s)
	}
	return s, hs
}

// Prober mirrors store reachability into the health service.
type Prober struct {
	hs       *health.Server
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger

	mu   sync.Mutex
	last healthpb.HealthCheckResponse_ServingStatus
}

// NewProber probes every interval. A nil pinger always reports serving.
func NewProber(hs *health.Server, pinger Pinger, interval time.Duration, log *zap.Logger) *Prober {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	timeout := interval / 2
	if timeout > 2*time.Second {
		timeout = 2 * time.Second
	}
	return &Prober{hs: hs, pinger: pinger, interval: interval, timeout: timeout, log: log}
}

// Probe checks the store once and updates both statuses.
func (p *Prober) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if p.pinger != nil {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.pinger.Ping(ctx)
		cancel()
		if err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			p.log.Warn("store probe failed", zap.Error(err))
		}
	}

	p.mu.Lock()
	changed := st != p.last
	p.last = st
	p.mu.Unlock()
	if changed {
		p.log.Info("health status", zap.String("status", st.String()))
	}

	p.hs.SetServingStatus("", st)
	p.hs.SetServingStatus(ServiceName, st)
	return st
}

// Run probes until ctx is done, then marks everything not serving.
func (p *Prober) Run(ctx context.Context) {
	p.Probe(ctx)
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			p.hs.Shutdown()
			return
		case <-t.C:
			p.Probe(ctx)
		}
	}
}
