package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"adblast_v1_202608/internal/model"
	"adblast_v1_202608/internal/repository"
)

// ==================== 外部服务依赖 ====================
// 以下接口引用同包中其他服务定义的类型：
// - AdBrief / AdDraft / TextUsage: 定义于 copy_svc.go 与 ai_svc.go
// - ImageResult: 定义于 image_svc.go

// CopyGenerator 文案生成依赖
type CopyGenerator interface {
	GenerateDrafts(ctx context.Context, brief AdBrief) ([]AdDraft, TextUsage, error)
}

// ImageSynthesizer 广告图生成依赖
type ImageSynthesizer interface {
	Generate(ctx context.Context, imagePrompt, style string) ImageResult
}

// ==================== 指标 ====================

var (
	adsRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adblast_generation_requests_total",
			Help: "Total number of ad generation pipeline runs.",
		},
		[]string{"status"},
	)
	adImagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adblast_ad_images_total",
			Help: "Total number of per-ad image outcomes.",
		},
		[]string{"status"},
	)
)

// ==================== 服务实现 ====================

// 图片阶段的并发上限
const imageParallelLimit = 5

// AdVariation 面向响应的单条广告，图片可能缺省
type AdVariation struct {
	Titulo    string
	Descricao string
	CTA       string
	ImageURL  *string
}

// AdsService 广告生成编排
// 文案失败整个请求失败，图片失败逐条降级为空 URL
type AdsService struct {
	copyGen  CopyGenerator
	imageGen ImageSynthesizer
	logRepo  repository.GenerationLogRepository // 可为 nil，表示关闭调用日志
	logger   *zap.Logger
	cfg      *AIConfig

	imageTimeout time.Duration
}

// NewAdsService 创建广告生成编排服务
func NewAdsService(
	copyGen CopyGenerator,
	imageGen ImageSynthesizer,
	logRepo repository.GenerationLogRepository,
	logger *zap.Logger,
	cfg *AIConfig,
) *AdsService {
	return &AdsService{
		copyGen:      copyGen,
		imageGen:     imageGen,
		logRepo:      logRepo,
		logger:       logger,
		cfg:          cfg,
		imageTimeout: cfg.Timeout,
	}
}

// GenerateAds 执行两段式生成：先文案，后逐条配图
func (s *AdsService) GenerateAds(ctx context.Context, requestID string, brief AdBrief, generateImages bool) ([]AdVariation, error) {
	textStart := time.Now()
	drafts, usage, err := s.copyGen.GenerateDrafts(ctx, brief)
	s.recordTextLog(ctx, requestID, usage, len(drafts), time.Since(textStart), err)
	if err != nil {
		adsRequestsTotal.With(prometheus.Labels{"status": "failed"}).Inc()
		return nil, err
	}

	variations := make([]AdVariation, len(drafts))
	for i, draft := range drafts {
		variations[i] = AdVariation{
			Titulo:    draft.Titulo,
			Descricao: draft.Descricao,
			CTA:       draft.CTA,
		}
	}

	if generateImages && len(drafts) > 0 {
		imageStart := time.Now()
		results, attempted := s.generateImagesForDrafts(ctx, drafts, brief.EstiloVisual)

		for i := range drafts {
			if url := results[i].URL; url != "" {
				variations[i].ImageURL = &url
			}
		}
		s.recordImageLog(ctx, requestID, drafts, results, attempted, time.Since(imageStart))
	}

	adsRequestsTotal.With(prometheus.Labels{"status": "success"}).Inc()
	return variations, nil
}

// generateImagesForDrafts 并发生成广告图
// 限流并发，逐条隔离；提示词为空的条目直接跳过
func (s *AdsService) generateImagesForDrafts(ctx context.Context, drafts []AdDraft, style string) ([]ImageResult, int) {
	results := make([]ImageResult, len(drafts))

	sem := make(chan struct{}, imageParallelLimit)
	var wg sync.WaitGroup
	attempted := 0

	for i, draft := range drafts {
		if draft.ImagePrompt == "" {
			continue
		}
		attempted++

		wg.Add(1)
		go func(idx int, prompt string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			// 单张图片独立超时，慢请求不拖垮整批
			imgCtx, cancel := context.WithTimeout(ctx, s.imageTimeout)
			defer cancel()

			results[idx] = s.imageGen.Generate(imgCtx, prompt, style)
		}(i, draft.ImagePrompt)
	}
	wg.Wait()

	for i, draft := range drafts {
		switch {
		case draft.ImagePrompt == "":
			adImagesTotal.With(prometheus.Labels{"status": "skipped"}).Inc()
		case results[i].Err != nil:
			adImagesTotal.With(prometheus.Labels{"status": "failed"}).Inc()
			s.logger.Warn("单条广告图生成失败，该条降级为无图",
				zap.Int("index", i),
				zap.Error(results[i].Err),
			)
		default:
			adImagesTotal.With(prometheus.Labels{"status": "success"}).Inc()
		}
	}

	return results, attempted
}

// ==================== 调用日志 ====================

// imageLogItem 图片阶段逐条结果，序列化进日志明细
type imageLogItem struct {
	Index  int    `json:"index"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *AdsService) recordTextLog(ctx context.Context, requestID string, usage TextUsage, draftCount int, duration time.Duration, err error) {
	if s.logRepo == nil {
		return
	}

	entry := &model.GenerationLog{
		RequestID:    requestID,
		CallType:     model.GenCallTypeText,
		Provider:     s.cfg.Provider,
		ModelName:    s.cfg.TextModel,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
		DraftCount:   draftCount,
		DurationMs:   duration.Milliseconds(),
		Status:       model.GenStatusSuccess,
	}
	if err != nil {
		entry.Status = model.GenStatusFailed
		entry.ErrorMsg = truncateRunes(err.Error(), 1024)
	}

	if dbErr := s.logRepo.Create(ctx, entry); dbErr != nil {
		s.logger.Warn("写入生成日志失败", zap.Error(dbErr))
	}
}

func (s *AdsService) recordImageLog(ctx context.Context, requestID string, drafts []AdDraft, results []ImageResult, attempted int, duration time.Duration) {
	if s.logRepo == nil {
		return
	}

	items := make([]imageLogItem, len(drafts))
	successCount := 0
	for i, draft := range drafts {
		item := imageLogItem{Index: i}
		switch {
		case draft.ImagePrompt == "":
			item.Status = "skipped"
		case results[i].Err != nil:
			item.Status = model.GenStatusFailed
			item.Error = truncateRunes(results[i].Err.Error(), 200)
		default:
			item.Status = model.GenStatusSuccess
			successCount++
		}
		items[i] = item
	}

	detail, _ := json.Marshal(items)

	entry := &model.GenerationLog{
		RequestID:  requestID,
		CallType:   model.GenCallTypeImage,
		Provider:   s.cfg.Provider,
		ModelName:  s.cfg.ImageModel,
		ImageCount: successCount,
		DurationMs: duration.Milliseconds(),
		Status:     model.GenStatusSuccess,
		Detail:     datatypes.JSON(detail),
	}
	// 有尝试但全部失败才算阶段失败，空跑不算
	if attempted > 0 && successCount == 0 {
		entry.Status = model.GenStatusFailed
	}

	if dbErr := s.logRepo.Create(ctx, entry); dbErr != nil {
		s.logger.Warn("写入生成日志失败", zap.Error(dbErr))
	}
}
