package main

import (
	"cmms/internal/database"
	"cmms/internal/router"
	"cmms/internal/services"
	"cmms/pkg/config"
	"cmms/pkg/jwt"
	"cmms/pkg/logger"
	"cmms/pkg/whatsapp"
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	tenantCode := flag.String("tenant", "", "租户代码，配合 -status 使用")
	tenantStatus := flag.String("status", "", "设置租户状态 (active/inactive) 后退出")
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting CMMS server...")

	// 初始化数据库
	if err := database.Initialize(cfg); err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
		if err := database.CloseRedis(); err != nil {
			appLogger.Error("Failed to close Redis:", err)
		}
	}()

	db := database.GetDB()
	if err := database.Migrate(db); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	container := services.NewContainer(db, connectRedis(cfg), newSender(cfg), cfg)

	if *tenantStatus != "" {
		if err := setTenantStatus(container, *tenantCode, *tenantStatus); err != nil {
			appLogger.Fatalf("Failed to set tenant status: %v", err)
		}
		return
	}

	if err := seedData(container, cfg.Seed); err != nil {
		appLogger.Fatalf("Failed to initialize seed data: %v", err)
	}

	gin.SetMode(cfg.Server.Mode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 工单事件中转
	go func() {
		if err := container.Hub.Run(ctx); err != nil {
			appLogger.Errorf("Work order hub stopped: %v", err)
		}
	}()

	// 保养提醒调度器
	if err := container.Reminders.Start(); err != nil {
		appLogger.Errorf("Failed to start maintenance reminder scheduler: %v", err)
		// 不影响主服务启动
	}
	defer container.Reminders.Stop()

	r := router.SetupRouter(container, cfg, jwt.FromConfig(cfg.JWT))

	server := &http.Server{
		Addr:        ":" + cfg.Server.Port,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}

// connectRedis Redis 不可用时返回 nil，权限不走缓存，事件只在本进程分发
func connectRedis(cfg *config.Config) *redis.Client {
	if cfg.Redis.Host == "" {
		return nil
	}
	client := database.GetRedis()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.GetLogger().Warnf("Redis unavailable, running without cache: %v", err)
		return nil
	}
	return client
}

// newSender 未配置 WhatsApp 时返回 nil 接口，通知只记录不发送
func newSender(cfg *config.Config) services.Sender {
	if cfg.WhatsApp.AccessToken == "" || cfg.WhatsApp.PhoneNumberID == "" {
		logger.GetLogger().Info("WhatsApp not configured, notifications will be logged only")
		return nil
	}
	return whatsapp.NewClient(whatsapp.Config{
		APIBase:       cfg.WhatsApp.APIBase,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		AccessToken:   cfg.WhatsApp.AccessToken,
		Timeout:       cfg.WhatsApp.Timeout,
	})
}
