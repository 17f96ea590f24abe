package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"studio-schedule/backend/config"
	"studio-schedule/backend/internal/api/handler"
	"studio-schedule/backend/internal/api/middleware"
	"studio-schedule/backend/internal/api/router"
	"studio-schedule/backend/internal/notify"
	"studio-schedule/backend/internal/policy"
	"studio-schedule/backend/internal/repository"
	"studio-schedule/backend/internal/service"
	"studio-schedule/backend/pkg/database"
	"studio-schedule/backend/pkg/jwt"
	applogger "studio-schedule/backend/pkg/logger"
	"studio-schedule/backend/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("timezone", cfg.Scheduling.Timezone),
	)
	if cfg.Feature.TestMode {
		logger.Warn("测试模式已开启：请求可通过 X-Simulated-Now 注入当前时间")
	}

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var (
		locker    service.Locker
		limiter   middleware.RateLimiter
		publisher notify.Publisher
		source    notify.Source
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，预约锁与限流不可用，通知改用进程内队列", zap.Error(err))
		rdb = nil
		ch := notify.NewChannelPublisher(cfg.Notify.BufferSize, cfg.Notify.PollTimeout)
		publisher, source = ch, ch
	} else {
		locker, limiter = rdb, rdb
		rp := notify.NewRedisPublisher(rdb, cfg.Notify.QueueKey, cfg.Notify.PollTimeout, logger)
		publisher, source = rp, rp
	}

	// 5. 通知分发
	senders := []notify.Sender{notify.NewLogSender(logger)}
	if cfg.Notify.WebhookURL != "" {
		senders = append(senders, notify.NewWebhookSender(cfg.Notify.WebhookURL, cfg.Notify.Timeout))
	}
	dispatcher := notify.NewDispatcher(source, senders, cfg.Notify.Workers, logger)
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Run(dispatchCtx)
	}()

	// 6. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 7. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(service.NewOptions(cfg), repo, publisher, locker, logger)
	clock := handler.NewRequestClock(policy.SystemClock{Location: cfg.Scheduling.Location()}, cfg.Feature.TestMode)
	h := handler.NewHandler(svc, clock)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, limiter, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 停止通知分发，等待在途投递完成
	stopDispatch()
	select {
	case <-dispatchDone:
	case <-ctx.Done():
		logger.Warn("通知分发器未能在超时前停止")
	}

	// 关闭数据库连接
	if closeDB, _ := db.DB(); closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
