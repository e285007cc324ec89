package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	// ServiceName は gRPC ヘルスチェックで公開するサービス名です。
	ServiceName = "hrms.v1.HRMS"

	defaultPingInterval    = 10 * time.Second
	defaultShutdownTimeout = 15 * time.Second
	readHeaderTimeout      = 5 * time.Second
)

// Pinger はデータベースの疎通確認を行います。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options はサーバーの起動設定です。
type Options struct {
	ListenAddr string
	// HealthListenAddr が空の場合 gRPC ヘルスサーバーは起動しません。
	HealthListenAddr string
	PingInterval     time.Duration
	ShutdownTimeout  time.Duration
}

// Server は HTTP API サーバーと gRPC ヘルスサーバーのライフサイクルを管理します。
type Server struct {
	opts       Options
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	pinger     Pinger
	logger     *zap.Logger
}

// New は HTTP ハンドラとヘルスチェック対象からサーバーを構築します。
func New(opts Options, handler http.Handler, pinger Pinger, logger *zap.Logger, grpcOpts ...grpc.ServerOption) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	healthSrv := health.NewServer()
	grpcSrv := grpc.NewServer(grpcOpts...)
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	return &Server{
		opts: opts,
		httpServer: &http.Server{
			Addr:              opts.ListenAddr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		grpcServer: grpcSrv,
		health:     healthSrv,
		pinger:     pinger,
		logger:     logger.Named("server"),
	}
}

// Run は両サーバーを起動し、コンテキストがキャンセルされると GracefulStop します。
func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.ListenAddr, err)
	}

	var grpcLis net.Listener
	if s.opts.HealthListenAddr != "" {
		grpcLis, err = net.Listen("tcp", s.opts.HealthListenAddr)
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("listen on %s: %w", s.opts.HealthListenAddr, err)
		}
	}

	return s.Serve(ctx, httpLis, grpcLis)
}

// Serve は指定されたリスナーで待ち受けます。grpcLis が nil の場合 gRPC ヘルスサーバーは起動しません。
func (s *Server) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	errCh := make(chan error, 2)

	go func() {
		s.logger.Info("http server listening", zap.String("addr", httpLis.Addr().String()))
		if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve HTTP: %w", err)
		}
	}()

	if grpcLis != nil {
		go func() {
			s.logger.Info("grpc health server listening", zap.String("addr", grpcLis.Addr().String()))
			if err := s.grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("serve gRPC: %w", err)
			}
		}()
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go s.watchHealth(watchCtx)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	stopWatch()
	s.GracefulStop()
	return runErr
}

// GracefulStop はヘルス状態を NOT_SERVING にしてから両サーバーを安全に停止します。
func (s *Server) GracefulStop() {
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("http server forced to shutdown", zap.Error(err))
	}
	s.grpcServer.GracefulStop()
	s.logger.Info("servers stopped")
}

// watchHealth は定期的にデータベースへ疎通確認し、結果をヘルス状態に反映します。
func (s *Server) watchHealth(ctx context.Context) {
	s.checkHealth(ctx)

	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkHealth(ctx)
		}
	}
}

func (s *Server) checkHealth(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, s.opts.PingInterval)
		err := s.pinger.Ping(pingCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("database ping failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
