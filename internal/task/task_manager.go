package task

import (
	"context"
	"log"

	"adblast_v1_202608/internal/repository"
	"adblast_v1_202608/internal/service"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台维护任务
// 管理范围：调用日志清理、上游连通性巡检
type TaskManager struct {
	cleanupTask *LogCleanupTask
	monitorTask *UpstreamMonitor
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	LogRepo  repository.GenerationLogRepository
	AIConfig *service.AIConfig
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	// 日志清理
	CleanupEnabled bool
	RetentionDays  int

	// 上游巡检
	MonitorEnabled bool
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		CleanupEnabled: true,
		RetentionDays:  30,

		MonitorEnabled: true,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{}

	// 日志清理任务，依赖日志存储开启
	if cfg.CleanupEnabled && deps.LogRepo != nil {
		tm.cleanupTask = NewLogCleanupTask(deps.LogRepo, cfg.RetentionDays)
	}

	// 上游巡检任务
	if cfg.MonitorEnabled && deps.AIConfig != nil {
		tm.monitorTask = NewUpstreamMonitor(deps.AIConfig, deps.LogRepo)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() {
	log.Println("[TaskManager] 正在启动后台任务...")

	if tm.cleanupTask != nil {
		tm.cleanupTask.Start()
	}
	if tm.monitorTask != nil {
		tm.monitorTask.Start()
	}

	log.Println("[TaskManager] 后台任务已全部启动")
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	log.Println("[TaskManager] 正在停止后台任务...")

	if tm.cleanupTask != nil {
		tm.cleanupTask.Stop()
	}
	if tm.monitorTask != nil {
		tm.monitorTask.Stop()
	}

	log.Println("[TaskManager] 后台任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerCleanup 手动触发一次日志清理
func (tm *TaskManager) TriggerCleanup(ctx context.Context) (int64, error) {
	if tm.cleanupTask == nil {
		return 0, ErrTaskDisabled
	}
	return tm.cleanupTask.Execute(ctx)
}

// TriggerProbe 手动触发一次上游探测
func (tm *TaskManager) TriggerProbe(ctx context.Context) error {
	if tm.monitorTask == nil {
		return ErrTaskDisabled
	}
	return tm.monitorTask.Execute(ctx)
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"cleanup": tm.cleanupTask != nil,
		"monitor": tm.monitorTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
