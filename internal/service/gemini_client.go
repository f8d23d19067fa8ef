package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiClient 基于 Google Gemini / Imagen 的客户端实现
type geminiClient struct {
	cfg        *AIConfig
	httpClient *http.Client // Imagen predict 走原生 HTTP
}

func newGeminiClient(cfg *AIConfig) *geminiClient {
	return &geminiClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// GenerateText 调用 Gemini 生成文案，要求 JSON 输出
func (c *geminiClient) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, TextUsage, error) {
	start := time.Now()

	// 客户端按调用创建，凭证校验留在请求期而不是启动期
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.cfg.ApiKey))
	if err != nil {
		observeAICall(c.cfg, "text", "error", start)
		return "", TextUsage{}, fmt.Errorf("Gemini 初始化失败: %v", err)
	}
	defer client.Close()

	modelAI := client.GenerativeModel(c.cfg.TextModel)
	modelAI.ResponseMIMEType = "application/json"
	modelAI.SetTemperature(copyTemperature)
	modelAI.SetMaxOutputTokens(copyMaxTokens)
	modelAI.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	resp, err := modelAI.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		observeAICall(c.cfg, "text", "error", start)
		return "", TextUsage{}, err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		observeAICall(c.cfg, "text", "error", start)
		return "", TextUsage{}, errors.New("resposta vazia do modelo")
	}

	// Gemini 返回的是 Parts，取第一个文本 Part
	var rawText string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			rawText = string(txt)
			break
		}
	}
	if rawText == "" {
		observeAICall(c.cfg, "text", "error", start)
		return "", TextUsage{}, errors.New("resposta vazia do modelo")
	}

	var usage TextUsage
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	observeAICall(c.cfg, "text", "success", start)
	observeAITokens(c.cfg, usage)

	return rawText, usage, nil
}

// GenerateImage 调用 Imagen predict 生成一张 1:1 图片
// Imagen 返回 Base64，统一封装成 data URL 下发
func (c *geminiClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:predict?key=%s",
		c.cfg.ImageModel, c.cfg.ApiKey)

	reqBody := map[string]interface{}{
		"instances": []map[string]interface{}{
			{"prompt": prompt},
		},
		"parameters": map[string]interface{}{
			"sampleCount": 1,
			"aspectRatio": "1:1",
		},
	}

	bodyBytes, _ := json.Marshal(reqBody)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		observeAICall(c.cfg, "image", "error", start)
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		observeAICall(c.cfg, "image", "error", start)
		return "", fmt.Errorf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		observeAICall(c.cfg, "image", "error", start)
		return "", fmt.Errorf("Imagen API 错误 [%d]: %s", resp.StatusCode, string(respBody))
	}

	var imagenResp struct {
		Predictions []struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
			MimeType           string `json:"mimeType"`
		} `json:"predictions"`
	}

	if err := json.Unmarshal(respBody, &imagenResp); err != nil {
		observeAICall(c.cfg, "image", "error", start)
		return "", fmt.Errorf("解析响应失败: %v", err)
	}

	for _, pred := range imagenResp.Predictions {
		if pred.BytesBase64Encoded != "" {
			mimeType := pred.MimeType
			if mimeType == "" {
				mimeType = "image/png"
			}
			observeAICall(c.cfg, "image", "success", start)
			return fmt.Sprintf("data:%s;base64,%s", mimeType, pred.BytesBase64Encoded), nil
		}
	}

	observeAICall(c.cfg, "image", "error", start)
	return "", errors.New("resposta de imagem vazia")
}
