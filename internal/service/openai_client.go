package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
)

// openAIClient 基于 OpenAI 官方 API 的客户端实现
type openAIClient struct {
	client *openaigo.Client
	cfg    *AIConfig
}

func newOpenAIClient(cfg *AIConfig) *openAIClient {
	clientCfg := openaigo.DefaultConfig(cfg.ApiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &openAIClient{
		client: openaigo.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}
}

// GenerateText 调用 Chat Completions 生成文案
func (c *openAIClient) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, TextUsage, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: c.cfg.TextModel,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openaigo.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   copyMaxTokens,
		Temperature: copyTemperature,
	})
	if err != nil {
		observeAICall(c.cfg, "text", "error", start)
		return "", TextUsage{}, err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		observeAICall(c.cfg, "text", "error", start)
		return "", TextUsage{}, errors.New("resposta vazia do modelo")
	}

	usage := TextUsage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	observeAICall(c.cfg, "text", "success", start)
	observeAITokens(c.cfg, usage)

	return resp.Choices[0].Message.Content, usage, nil
}

// GenerateImage 调用 DALL-E 生成一张 1024x1024 标准质量图片
func (c *openAIClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	resp, err := c.client.CreateImage(ctx, openaigo.ImageRequest{
		Model:   c.cfg.ImageModel,
		Prompt:  prompt,
		N:       1,
		Size:    openaigo.CreateImageSize1024x1024,
		Quality: openaigo.CreateImageQualityStandard,
	})
	if err != nil {
		observeAICall(c.cfg, "image", "error", start)
		return "", err
	}

	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		observeAICall(c.cfg, "image", "error", start)
		return "", errors.New("resposta de imagem vazia")
	}

	observeAICall(c.cfg, "image", "success", start)
	return resp.Data[0].URL, nil
}
