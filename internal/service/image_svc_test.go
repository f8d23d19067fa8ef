package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestBuildImagePrompt(t *testing.T) {
	got := BuildImagePrompt("smiling student with laptop", "")
	want := "Create a professional advertising image: smiling student with laptop. High quality, suitable for social media ads, no text overlay."

	if got != want {
		t.Errorf("BuildImagePrompt() = %q, want %q", got, want)
	}
}

func TestBuildImagePrompt_ComEstilo(t *testing.T) {
	got := BuildImagePrompt("smiling student", "Minimalista")
	want := "Create a professional advertising image: smiling student, Minimalista style. High quality, suitable for social media ads, no text overlay."

	if got != want {
		t.Errorf("BuildImagePrompt() = %q, want %q", got, want)
	}
}

func TestImageService_Generate(t *testing.T) {
	var gotPrompt string
	ai := &mockAIClient{
		generateImageFn: func(ctx context.Context, prompt string) (string, error) {
			gotPrompt = prompt
			return "https://example.com/img.png", nil
		},
	}

	svc := NewImageService(ai, zap.NewNop())
	result := svc.Generate(context.Background(), "office scene", "Moderno")

	if result.Err != nil {
		t.Fatalf("Generate() err = %v", result.Err)
	}
	if result.URL != "https://example.com/img.png" {
		t.Errorf("URL = %q", result.URL)
	}
	if gotPrompt != BuildImagePrompt("office scene", "Moderno") {
		t.Errorf("下发的提示词 = %q", gotPrompt)
	}
}

func TestImageService_Generate_Falha(t *testing.T) {
	ai := &mockAIClient{
		generateImageFn: func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("rate limited")
		},
	}

	svc := NewImageService(ai, zap.NewNop())
	result := svc.Generate(context.Background(), "office scene", "")

	if result.Err == nil {
		t.Fatal("期望返回错误")
	}
	if result.URL != "" {
		t.Errorf("失败时 URL 应为空, got %q", result.URL)
	}
}
