package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"adblast_v1_202608/internal/repository"
)

// LogCleanupTask 调用日志保留期清理任务
type LogCleanupTask struct {
	logRepo       repository.GenerationLogRepository
	retentionDays int
	Cron          *cron.Cron
}

func NewLogCleanupTask(logRepo repository.GenerationLogRepository, retentionDays int) *LogCleanupTask {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &LogCleanupTask{
		logRepo:       logRepo,
		retentionDays: retentionDays,
		Cron:          cron.New(cron.WithSeconds()), // 支持秒级控制
	}
}

// Start 启动清理任务
func (t *LogCleanupTask) Start() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		log.Println("[LogCleanup] 服务启动，正在执行首次清理...")
		t.Execute(ctx)
	}()

	// 策略：每天凌晨 3 点清理一次
	// Cron: "0 0 3 * * *"
	_, err := t.Cron.AddFunc("0 0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		t.Execute(ctx)
	})
	if err != nil {
		log.Fatalf("无法启动 LogCleanup: %v", err)
	}

	t.Cron.Start()
	log.Printf("LogCleanup 清理任务已启动 (保留 %d 天)", t.retentionDays)
}

// Stop 停止清理任务
func (t *LogCleanupTask) Stop() {
	t.Cron.Stop()
}

// Execute 执行一次清理 (由 Cron 定时触发)
func (t *LogCleanupTask) Execute(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -t.retentionDays)

	deleted, err := t.logRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("[LogCleanup] 清理失败: %v\n", err)
		return 0, err
	}

	if deleted > 0 {
		log.Printf("[LogCleanup] 已删除 %d 条过期日志 (早于 %s)\n", deleted, cutoff.Format("2006-01-02"))
	}
	return deleted, nil
}
