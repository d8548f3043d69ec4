package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/ogurasousui/shiftboard/internal/platform/config"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName は gRPC ヘルスチェックで公開するサービス名です。
const ServiceName = "shiftboard.v1.API"

// Server は HTTP API と gRPC ヘルスサービスのライフサイクルを管理します。
type Server struct {
	cfg        config.ServerConfig
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
}

// New は HTTP サーバーを構築します。grpc_listen_addr が設定されていればヘルスサービスも待ち受けます。
func New(cfg config.ServerConfig, handler http.Handler, opts ...grpc.ServerOption) *Server {
	s := &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		health: health.NewServer(),
	}

	if cfg.GRPCListenAddr != "" {
		s.grpcServer = grpc.NewServer(opts...)
		healthpb.RegisterHealthServer(s.grpcServer, s.health)
	}
	s.SetServing(false)
	return s
}

// SetServing はヘルスチェックの状態を切り替えます。
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Run はサーバーを起動し、コンテキストがキャンセルされると Graceful に停止します。
func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr, err)
	}

	var grpcLis net.Listener
	if s.grpcServer != nil {
		grpcLis, err = net.Listen("tcp", s.cfg.GRPCListenAddr)
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("listen on %s: %w", s.cfg.GRPCListenAddr, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("http server listening on %s", httpLis.Addr())
		if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})

	if grpcLis != nil {
		g.Go(func() error {
			log.Printf("grpc health server listening on %s", grpcLis.Addr())
			if err := s.grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve gRPC: %w", err)
			}
			return nil
		})
	}

	s.SetServing(true)

	g.Go(func() error {
		<-gctx.Done()
		s.shutdown()
		return nil
	})

	return g.Wait()
}

func (s *Server) shutdown() {
	s.SetServing(false)

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
}
