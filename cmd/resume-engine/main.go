package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-engine-go/internal/api/handler"
	"resume-engine-go/internal/api/router"
	"resume-engine-go/internal/config"
	"resume-engine-go/internal/logger"
	"resume-engine-go/internal/processor"
	"resume-engine-go/internal/storage"
	"resume-engine-go/internal/tracing"
	"resume-engine-go/pkg/ratelimit"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
)

var (
	version     = "1.0.0"            //nolint:gochecknoglobals
	serviceName = "resume-engine-go" //nolint:gochecknoglobals
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}

	initLogger(cfg)
	logger.Info().Str("version", version).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 链路追踪
	tracingCfg := tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	}
	if tracingCfg.ServiceName == "" {
		tracingCfg.ServiceName = serviceName
	}
	shutdownTracing, err := tracing.InitTracerProvider(ctx, tracingCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化链路追踪失败")
	}

	// 存储层
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()
	logger.Info().Msg("存储服务初始化成功")

	// 解析服务
	resumeService, err := processor.NewResumeService(ctx, cfg, storageManager)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化简历解析服务失败")
	}
	logger.Info().Str("parser_version", resumeService.Pipeline().ParserVersion()).Msg("简历解析服务初始化成功")

	resumeHandler := handler.NewResumeHandler(cfg, storageManager, resumeService)

	// 消费者
	if storageManager.RabbitMQ != nil {
		go func() {
			if err := resumeHandler.StartResumeUploadConsumer(ctx); err != nil {
				logger.Fatal().Err(err).Msg("启动简历上传消费者失败")
			}
		}()
	} else {
		logger.Warn().Msg("RabbitMQ未配置，异步解析不可用，仅提供同步接口")
	}

	// HTTP服务器，接入otel链路追踪中间件
	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	limiter := ratelimit.NewTokenBucket(cfg.Server.SyncParseQPM, 0)
	router.RegisterRoutes(h, resumeHandler, limiter)
	logger.Info().Str("address", cfg.Server.Address).Msg("HTTP路由注册成功，服务器启动中")

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("关闭链路追踪失败")
	}
	logger.Info().Msg("优雅退出完成")
}

// initLogger 按配置初始化zerolog，并把Hertz的hlog桥接到同一个输出
func initLogger(cfg *config.Config) {
	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	logger.Logger = logger.Logger.With().
		Str("app", serviceName).
		Str("version", version).
		Logger()

	hlog.SetLogger(hertzadapter.From(logger.Logger))
}
