package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// 支持的 AI 提供方
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config 服务配置，全部来自环境变量 (.env 可选)
type Config struct {
	// HTTP 服务
	ServerPort string `envconfig:"SERVER_PORT" default:"5000"`
	GinMode    string `envconfig:"GIN_MODE" default:"release"`

	// 日志
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`

	// AI 提供方: openai 或 gemini
	AIProvider string `envconfig:"AI_PROVIDER" default:"openai"`
	// 两把 Key 都可缺省，生成接口在请求时才校验
	OpenAIKey     string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	GeminiKey     string `envconfig:"GEMINI_API_KEY"`
	// 模型名留空时由 service.NewAIConfig 按提供方补默认值
	TextModel  string        `envconfig:"TEXT_MODEL"`
	ImageModel string        `envconfig:"IMAGE_MODEL"`
	AITimeout  time.Duration `envconfig:"AI_TIMEOUT" default:"120s"`

	// 调用日志存储，DSN 留空表示整体关闭
	DatabaseDSN      string `envconfig:"DATABASE_DSN"`
	LogRetentionDays int    `envconfig:"LOG_RETENTION_DAYS" default:"30"`

	// 定时任务
	EnableTasks bool `envconfig:"ENABLE_TASKS" default:"true"`
}

// LoadConfig 读取 .env（可选）并解析环境变量
func LoadConfig() (*Config, error) {
	// .env 不存在时忽略，线上环境直接注入环境变量
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	return &cfg, nil
}

// ActiveKey 返回当前提供方对应的 API Key，未配置时为空串
func (c *Config) ActiveKey() string {
	if c.AIProvider == ProviderGemini {
		return c.GeminiKey
	}
	return c.OpenAIKey
}

// ProviderName 当前提供方的展示名，用于面向用户的错误信息
func (c *Config) ProviderName() string {
	if c.AIProvider == ProviderGemini {
		return "Gemini"
	}
	return "OpenAI"
}

// Addr HTTP 监听地址
func (c *Config) Addr() string {
	return ":" + c.ServerPort
}
