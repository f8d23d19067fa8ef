package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"adblast_v1_202608/internal/repository"
	"adblast_v1_202608/pkg/utils"
)

// ErrUsageDisabled 未配置日志存储时的用量查询错误
var ErrUsageDisabled = errors.New("registro de uso não está habilitado")

// 用量查询缓存，聚合扫描不必每次落库
const (
	usageCachePrefix = "usage:daily"
	usageCacheTTL    = 60 * time.Second
	usageDefaultDays = 30
	usageMaxDays     = 90
)

// UsageService 生成用量统计查询
type UsageService struct {
	logRepo repository.GenerationLogRepository
}

// NewUsageService 创建用量统计服务，logRepo 可为 nil
func NewUsageService(logRepo repository.GenerationLogRepository) *UsageService {
	return &UsageService{logRepo: logRepo}
}

// Enabled 日志存储是否开启
func (s *UsageService) Enabled() bool {
	return s.logRepo != nil
}

// DailyUsage 查询近 days 天的每日用量，结果带短缓存
func (s *UsageService) DailyUsage(ctx context.Context, days int) ([]repository.DailyUsageStats, error) {
	if s.logRepo == nil {
		return nil, ErrUsageDisabled
	}

	if days <= 0 || days > usageMaxDays {
		days = usageDefaultDays
	}

	key := fmt.Sprintf("%s:%d", usageCachePrefix, days)
	if cached, ok := utils.GetCache(key); ok {
		if stats, ok := cached.([]repository.DailyUsageStats); ok {
			return stats, nil
		}
	}

	end := time.Now()
	stats, err := s.logRepo.GetDailyUsage(ctx, end.AddDate(0, 0, -days), end)
	if err != nil {
		return nil, err
	}

	utils.SetCache(key, stats, usageCacheTTL)
	return stats, nil
}

// Overall 查询近 days 天的汇总用量
func (s *UsageService) Overall(ctx context.Context, days int) (*repository.GenUsageStats, error) {
	if s.logRepo == nil {
		return nil, ErrUsageDisabled
	}

	if days <= 0 || days > usageMaxDays {
		days = usageDefaultDays
	}

	end := time.Now()
	return s.logRepo.GetUsage(ctx, end.AddDate(0, 0, -days), end)
}
