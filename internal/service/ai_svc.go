package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"adblast_v1_202608/internal/config"
)

// ==================== 配置 ====================

// AIConfig AI 客户端配置
type AIConfig struct {
	Provider   string // openai / gemini
	ApiKey     string
	BaseURL    string // 仅 openai 生效，可指向兼容网关
	TextModel  string
	ImageModel string
	Timeout    time.Duration
}

// NewAIConfig 按提供方补齐默认模型
func NewAIConfig(cfg *AIConfig) *AIConfig {
	if cfg.Provider == "" {
		cfg.Provider = config.ProviderOpenAI
	}

	// 固定模型配置
	if cfg.Provider == config.ProviderGemini {
		if cfg.TextModel == "" {
			cfg.TextModel = "gemini-2.0-flash"
		}
		if cfg.ImageModel == "" {
			cfg.ImageModel = "imagen-3.0-generate-002"
		}
	} else {
		if cfg.TextModel == "" {
			cfg.TextModel = "gpt-4o-mini"
		}
		if cfg.ImageModel == "" {
			cfg.ImageModel = "dall-e-3"
		}
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	return cfg
}

// ==================== 客户端接口 ====================

// TextUsage 一次文本调用的 token 用量
type TextUsage struct {
	InputTokens  int
	OutputTokens int
}

// AIClient 文本与图片生成的统一入口
// 凭证在请求期校验，构建客户端不访问上游
type AIClient interface {
	// GenerateText 发送 system+user 提示词，返回模型原始文本
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, TextUsage, error)
	// GenerateImage 按提示词生成一张 1024x1024 图片，返回可访问的 URL
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// NewAIClient 根据配置构建具体提供方的客户端
func NewAIClient(cfg *AIConfig) (AIClient, error) {
	cfg = NewAIConfig(cfg)

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return newOpenAIClient(cfg), nil
	case config.ProviderGemini:
		return newGeminiClient(cfg), nil
	default:
		return nil, fmt.Errorf("不支持的 AI 提供方: %s", cfg.Provider)
	}
}

// ==================== 指标 ====================

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adblast_ai_requests_total",
			Help: "Total number of requests to the AI API.",
		},
		[]string{"provider", "model", "type", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adblast_ai_request_duration_seconds",
			Help:    "Histogram of AI API request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "model", "type"},
	)
	aiTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adblast_ai_tokens_total",
			Help: "Total number of tokens consumed by AI calls.",
		},
		[]string{"provider", "model", "direction"},
	)
)

// observeAICall 统一记录单次上游调用的指标
func observeAICall(cfg *AIConfig, callType, status string, start time.Time) {
	aiRequestsTotal.With(prometheus.Labels{
		"provider": cfg.Provider,
		"model":    modelForCallType(cfg, callType),
		"type":     callType,
		"status":   status,
	}).Inc()
	aiRequestDuration.With(prometheus.Labels{
		"provider": cfg.Provider,
		"model":    modelForCallType(cfg, callType),
		"type":     callType,
	}).Observe(time.Since(start).Seconds())
}

func observeAITokens(cfg *AIConfig, usage TextUsage) {
	if usage.InputTokens > 0 {
		aiTokensTotal.With(prometheus.Labels{
			"provider":  cfg.Provider,
			"model":     cfg.TextModel,
			"direction": "input",
		}).Add(float64(usage.InputTokens))
	}
	if usage.OutputTokens > 0 {
		aiTokensTotal.With(prometheus.Labels{
			"provider":  cfg.Provider,
			"model":     cfg.TextModel,
			"direction": "output",
		}).Add(float64(usage.OutputTokens))
	}
}

func modelForCallType(cfg *AIConfig, callType string) string {
	if callType == "image" {
		return cfg.ImageModel
	}
	return cfg.TextModel
}
