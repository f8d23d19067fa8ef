package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"adblast_v1_202608/internal/config"
	"adblast_v1_202608/internal/controller"
	"adblast_v1_202608/internal/model"
	"adblast_v1_202608/internal/repository"
	"adblast_v1_202608/internal/router"
	"adblast_v1_202608/internal/service"
	"adblast_v1_202608/internal/task"
	"adblast_v1_202608/pkg/database"
	"adblast_v1_202608/pkg/logger"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	// 2. 初始化日志
	zlog, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zlog.Sync()
	zap.ReplaceGlobals(zlog)

	// 3. 初始化依赖
	deps, err := initDependencies(cfg, zlog)
	if err != nil {
		zlog.Fatal("初始化依赖失败", zap.Error(err))
	}

	// 4. 启动定时任务
	if cfg.EnableTasks {
		deps.Tasks.Start()
		defer deps.Tasks.Stop()
	}

	// 5. 初始化路由并启动服务
	r := router.SetupRouter(zlog, deps.Controllers)
	startServer(r, cfg, zlog)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Services    *Services
	Controllers *router.Controllers
	Tasks       *task.TaskManager
}

// Repositories 仓库集合
type Repositories struct {
	GenLog repository.GenerationLogRepository
}

// Services 服务集合
type Services struct {
	AI    service.AIClient
	Copy  *service.CopyService
	Image *service.ImageService
	Ads   *service.AdsService
	Usage *service.UsageService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化调用日志存储，DSN 留空时整体关闭
func initDatabase(cfg *config.Config) *gorm.DB {
	if cfg.DatabaseDSN == "" {
		log.Println("DATABASE_DSN 未配置，调用日志存储关闭")
		return nil
	}
	return database.InitDB(cfg.DatabaseDSN, &model.GenerationLog{})
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, zlog *zap.Logger) (*Dependencies, error) {
	// -------- 存储层 --------
	db := initDatabase(cfg)
	repos := &Repositories{}
	if db != nil {
		repos.GenLog = repository.NewGenerationLogRepository(db)
	}

	// -------- AI 客户端 --------
	aiCfg := service.NewAIConfig(&service.AIConfig{
		Provider:   cfg.AIProvider,
		ApiKey:     cfg.ActiveKey(),
		BaseURL:    cfg.OpenAIBaseURL,
		TextModel:  cfg.TextModel,
		ImageModel: cfg.ImageModel,
		Timeout:    cfg.AITimeout,
	})
	aiClient, err := service.NewAIClient(aiCfg)
	if err != nil {
		return nil, err
	}

	// -------- 业务服务 --------
	services := &Services{
		AI:    aiClient,
		Copy:  service.NewCopyService(aiClient),
		Image: service.NewImageService(aiClient, zlog),
		Usage: service.NewUsageService(repos.GenLog),
	}
	services.Ads = service.NewAdsService(services.Copy, services.Image, repos.GenLog, zlog, aiCfg)

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		Ads:    controller.NewAdsController(services.Ads, cfg),
		System: controller.NewSystemController(services.Usage),
	}

	// -------- 定时任务 --------
	tasks := task.NewTaskManager(&task.TaskManagerDeps{
		LogRepo:  repos.GenLog,
		AIConfig: aiCfg,
	}, &task.TaskManagerConfig{
		CleanupEnabled: true,
		RetentionDays:  cfg.LogRetentionDays,
		MonitorEnabled: true,
	})

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Services:    services,
		Controllers: controllers,
		Tasks:       tasks,
	}, nil
}

// ==================== 服务启动 ====================

// startServer 启动服务并等待退出信号
func startServer(r *gin.Engine, cfg *config.Config, zlog *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: r,
	}

	// 异步启动服务
	go func() {
		zlog.Info("服务启动",
			zap.String("addr", cfg.Addr()),
			zap.String("provider", cfg.AIProvider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Fatal("服务强制关闭", zap.Error(err))
	}

	zlog.Info("服务已退出")
}
