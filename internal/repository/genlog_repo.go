package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"adblast_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// GenerationLogRepository 生成调用日志仓储接口
type GenerationLogRepository interface {
	Create(ctx context.Context, log *model.GenerationLog) error
	GetByID(ctx context.Context, id int64) (*model.GenerationLog, error)

	// 统计查询
	GetUsage(ctx context.Context, startTime, endTime time.Time) (*GenUsageStats, error)
	GetUsageByRequest(ctx context.Context, requestID string) (*GenUsageStats, error)
	GetDailyUsage(ctx context.Context, startDate, endDate time.Time) ([]DailyUsageStats, error)

	// 保留期清理，返回删除行数
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ==================== 统计结构 ====================

// GenUsageStats 生成用量统计
type GenUsageStats struct {
	TotalCalls        int64   `json:"total_calls"`
	TextCalls         int64   `json:"text_calls"`
	ImageCalls        int64   `json:"image_calls"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	TotalDrafts       int64   `json:"total_drafts"`
	TotalImages       int64   `json:"total_images"`
	AvgDurationMs     float64 `json:"avg_duration_ms"`
	SuccessCount      int64   `json:"success_count"`
	FailedCount       int64   `json:"failed_count"`
}

// DailyUsageStats 每日用量统计
type DailyUsageStats struct {
	Date              string  `json:"date"`
	TotalCalls        int64   `json:"total_calls"`
	FailedCalls       int64   `json:"failed_calls"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	TotalImages       int64   `json:"total_images"`
	AvgDurationMs     float64 `json:"avg_duration_ms"`
}

// ==================== 仓储实现 ====================

type generationLogRepo struct {
	db *gorm.DB
}

// NewGenerationLogRepository 创建生成调用日志仓储
func NewGenerationLogRepository(db *gorm.DB) GenerationLogRepository {
	return &generationLogRepo{db: db}
}

func (r *generationLogRepo) Create(ctx context.Context, log *model.GenerationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *generationLogRepo) GetByID(ctx context.Context, id int64) (*model.GenerationLog, error) {
	var log model.GenerationLog
	if err := r.db.WithContext(ctx).First(&log, id).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

// 连通性探测记录不计入生成用量
var usageCallTypes = []string{model.GenCallTypeText, model.GenCallTypeImage}

func (r *generationLogRepo) GetUsage(ctx context.Context, startTime, endTime time.Time) (*GenUsageStats, error) {
	var stats GenUsageStats

	query := r.db.WithContext(ctx).Model(&model.GenerationLog{}).
		Where("call_type IN ?", usageCallTypes)
	if !startTime.IsZero() {
		query = query.Where("created_at >= ?", startTime)
	}
	if !endTime.IsZero() {
		query = query.Where("created_at <= ?", endTime)
	}

	err := query.Select(`
		COUNT(*) as total_calls,
		SUM(CASE WHEN call_type = 'text' THEN 1 ELSE 0 END) as text_calls,
		SUM(CASE WHEN call_type = 'image' THEN 1 ELSE 0 END) as image_calls,
		COALESCE(SUM(input_tokens), 0) as total_input_tokens,
		COALESCE(SUM(output_tokens), 0) as total_output_tokens,
		COALESCE(SUM(draft_count), 0) as total_drafts,
		COALESCE(SUM(image_count), 0) as total_images,
		COALESCE(AVG(duration_ms), 0) as avg_duration_ms,
		SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END) as success_count,
		SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) as failed_count
	`).Scan(&stats).Error

	return &stats, err
}

func (r *generationLogRepo) GetUsageByRequest(ctx context.Context, requestID string) (*GenUsageStats, error) {
	var stats GenUsageStats

	err := r.db.WithContext(ctx).Model(&model.GenerationLog{}).
		Where("request_id = ?", requestID).
		Where("call_type IN ?", usageCallTypes).
		Select(`
			COUNT(*) as total_calls,
			SUM(CASE WHEN call_type = 'text' THEN 1 ELSE 0 END) as text_calls,
			SUM(CASE WHEN call_type = 'image' THEN 1 ELSE 0 END) as image_calls,
			COALESCE(SUM(input_tokens), 0) as total_input_tokens,
			COALESCE(SUM(output_tokens), 0) as total_output_tokens,
			COALESCE(SUM(draft_count), 0) as total_drafts,
			COALESCE(SUM(image_count), 0) as total_images,
			COALESCE(AVG(duration_ms), 0) as avg_duration_ms,
			SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END) as success_count,
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) as failed_count
		`).Scan(&stats).Error

	return &stats, err
}

func (r *generationLogRepo) GetDailyUsage(ctx context.Context, startDate, endDate time.Time) ([]DailyUsageStats, error) {
	var stats []DailyUsageStats

	err := r.db.WithContext(ctx).Model(&model.GenerationLog{}).
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Where("call_type IN ?", usageCallTypes).
		Select(`
			DATE(created_at) as date,
			COUNT(*) as total_calls,
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) as failed_calls,
			COALESCE(SUM(input_tokens), 0) as total_input_tokens,
			COALESCE(SUM(output_tokens), 0) as total_output_tokens,
			COALESCE(SUM(image_count), 0) as total_images,
			COALESCE(AVG(duration_ms), 0) as avg_duration_ms
		`).
		Group("DATE(created_at)").
		Order("date ASC").
		Scan(&stats).Error

	return stats, err
}

func (r *generationLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.GenerationLog{})
	return result.RowsAffected, result.Error
}
