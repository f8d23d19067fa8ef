package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ==================== 提示词 ====================

// 广告图的统一包装语，约束质量与社媒投放要求
const imagePromptWrapper = "Create a professional advertising image: %s. High quality, suitable for social media ads, no text overlay."

// ==================== 类型 ====================

// ImageResult 单张广告图的生成结果
// 失败时 Err 非空，由编排层降级为空 URL，对外不报错
type ImageResult struct {
	URL string
	Err error
}

// ==================== 服务 ====================

// ImageService 广告图生成
type ImageService struct {
	ai     AIClient
	logger *zap.Logger
}

// NewImageService 创建广告图生成服务
func NewImageService(ai AIClient, logger *zap.Logger) *ImageService {
	return &ImageService{ai: ai, logger: logger}
}

// BuildImagePrompt 组装最终的图片提示词
// style 非空时追加 ", <style> style" 后缀
func BuildImagePrompt(imagePrompt, style string) string {
	fullPrompt := imagePrompt
	if style != "" {
		fullPrompt = fmt.Sprintf("%s, %s style", imagePrompt, style)
	}
	return fmt.Sprintf(imagePromptWrapper, fullPrompt)
}

// Generate 生成一张广告图
func (s *ImageService) Generate(ctx context.Context, imagePrompt, style string) ImageResult {
	url, err := s.ai.GenerateImage(ctx, BuildImagePrompt(imagePrompt, style))
	if err != nil {
		s.logger.Warn("生成广告图失败", zap.Error(err))
		return ImageResult{Err: err}
	}
	return ImageResult{URL: url}
}
