package grpcx

import (
	"context"
	"net"
	"time"

	"GuardianSOS/pkg/logger"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServerConfig gRPC 服务器配置
type ServerConfig struct {
	Addr             string
	UnaryTimeout     time.Duration
	EnableReflection bool
}

// ClientConfig gRPC 客户端配置
type ClientConfig struct {
	Target         string
	UnaryTimeout   time.Duration
	DefaultHeaders map[string]string
	// Dialer 测试时注入 bufconn
	Dialer func(ctx context.Context, addr string) (net.Conn, error)
}

// NewServer 创建 gRPC Server，已内置日志/恢复/超时拦截器
func NewServer(cfg ServerConfig, extra ...grpc.UnaryServerInterceptor) *grpc.Server {
	interceptors := append([]grpc.UnaryServerInterceptor{}, extra...)
	interceptors = append(interceptors,
		loggingInterceptor(),
		serverTimeoutInterceptor(cfg.UnaryTimeout),
		recoveryInterceptor(),
	)
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	if cfg.EnableReflection {
		reflection.Register(gs)
	}
	return gs
}

// Dial 创建客户端连接（明文），内置超时与默认Header注入拦截器
func Dial(cfg ClientConfig, extra ...grpc.UnaryClientInterceptor) (*grpc.ClientConn, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if cfg.Dialer != nil {
		opts = append(opts, grpc.WithContextDialer(cfg.Dialer))
	}
	cis := []grpc.UnaryClientInterceptor{
		clientTimeoutInterceptor(cfg.UnaryTimeout),
		clientHeaderInterceptor(cfg.DefaultHeaders),
	}
	cis = append(cis, extra...)
	opts = append(opts, grpc.WithChainUnaryInterceptor(cis...))
	return grpc.NewClient(cfg.Target, opts...)
}

// HealthReporter 将存活检查结果同步到标准 grpc.health.v1 服务
type HealthReporter struct {
	srv   *health.Server
	check func(ctx context.Context) error
}

// RegisterHealth registers grpc.health.v1 on gs. check decides SERVING vs NOT_SERVING.
func RegisterHealth(gs *grpc.Server, check func(ctx context.Context) error) *HealthReporter {
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	return &HealthReporter{srv: hs, check: check}
}

// Probe 执行一次检查并更新状态
func (h *HealthReporter) Probe(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if err := h.check(ctx); err != nil {
		logger.Warn("grpc health probe failed", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.srv.SetServingStatus("", st)
}

// Shutdown 标记为不可用，停机前调用
func (h *HealthReporter) Shutdown() { h.srv.Shutdown() }

// ---------- Interceptors ----------

func loggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("grpc call",
			zap.String("method", info.FullMethod),
			zap.Duration("latency", time.Since(start)),
			zap.String("code", status.Code(err).String()))
		return resp, err
	}
}

func serverTimeoutInterceptor(d time.Duration) grpc.UnaryServerInterceptor {
	if d <= 0 {
		d = 30 * time.Second
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		c, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return handler(c, req)
	}
}

func recoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc handler panic", zap.String("method", info.FullMethod), zap.Any("panic", r))
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

func clientTimeoutInterceptor(d time.Duration) grpc.UnaryClientInterceptor {
	if d <= 0 {
		d = 30 * time.Second
	}
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		c, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return invoker(c, method, req, reply, cc, opts...)
	}
}

func clientHeaderInterceptor(headers map[string]string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if len(headers) > 0 {
			ctx = metadata.NewOutgoingContext(ctx, metadata.New(headers))
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
