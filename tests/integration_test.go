package tests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"adblast_v1_202608/internal/config"
	"adblast_v1_202608/internal/controller"
	"adblast_v1_202608/internal/model"
	"adblast_v1_202608/internal/repository"
	"adblast_v1_202608/internal/router"
	"adblast_v1_202608/internal/service"
	"adblast_v1_202608/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==================== 模拟 AI 上游 ====================

// 模型回包带 code fence，验证整条链路的围栏剥离
const twoDraftReply = "```json\n" + `[
  {"titulo": "Fale inglês em 6 meses", "descricao": "Método direto ao ponto para profissionais sem tempo.", "cta": "Quero começar", "image_prompt": "smiling professional with headphones"},
  {"titulo": "Inglês sem enrolação", "descricao": "Aulas curtas que cabem na sua rotina.", "cta": "Garanta sua vaga", "image_prompt": "desk with notebook and coffee"}
]` + "\n```"

type fakeAIClient struct {
	mu           sync.Mutex
	textCalls    int
	imageCalls   int
	imagePrompts []string

	textReply string
	textErr   error
	imageErr  error
}

func (f *fakeAIClient) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, service.TextUsage, error) {
	f.mu.Lock()
	f.textCalls++
	f.mu.Unlock()

	if f.textErr != nil {
		return "", service.TextUsage{}, f.textErr
	}
	return f.textReply, service.TextUsage{InputTokens: 120, OutputTokens: 60}, nil
}

func (f *fakeAIClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.imageCalls++
	f.imagePrompts = append(f.imagePrompts, prompt)
	f.mu.Unlock()

	if f.imageErr != nil {
		return "", f.imageErr
	}
	return "https://img.example/gen.png", nil
}

func (f *fakeAIClient) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.textCalls, f.imageCalls
}

// ==================== 集成测试套件 ====================

type IntegrationSuite struct {
	DB     *gorm.DB
	AI     *fakeAIClient
	Router *gin.Engine
	T      *testing.T
}

// NewIntegrationSuite 组装真实路由和服务编排，仅 AI 上游用桩
// enableDB 为 false 时走 DSN 未配置的形态，调用日志整体关闭
func NewIntegrationSuite(t *testing.T, cfg *config.Config, enableDB bool) *IntegrationSuite {
	var db *gorm.DB
	var logRepo repository.GenerationLogRepository

	if enableDB {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		if err != nil {
			t.Fatalf("连接数据库失败: %v", err)
		}
		if err := db.AutoMigrate(&model.GenerationLog{}); err != nil {
			t.Fatalf("数据库迁移失败: %v", err)
		}
		logRepo = repository.NewGenerationLogRepository(db)
	}

	ai := &fakeAIClient{textReply: twoDraftReply}
	aiCfg := service.NewAIConfig(&service.AIConfig{
		Provider: cfg.AIProvider,
		ApiKey:   cfg.ActiveKey(),
	})

	copySvc := service.NewCopyService(ai)
	imageSvc := service.NewImageService(ai, zap.NewNop())
	adsSvc := service.NewAdsService(copySvc, imageSvc, logRepo, zap.NewNop(), aiCfg)
	usageSvc := service.NewUsageService(logRepo)

	r := router.SetupRouter(zap.NewNop(), &router.Controllers{
		Ads:    controller.NewAdsController(adsSvc, cfg),
		System: controller.NewSystemController(usageSvc),
	})

	return &IntegrationSuite{
		DB:     db,
		AI:     ai,
		Router: r,
		T:      t,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		AIProvider: config.ProviderOpenAI,
		OpenAIKey:  "sk-test",
	}
}

func (s *IntegrationSuite) postJSON(path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func (s *IntegrationSuite) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

const validBrief = `{
	"oferta": "Curso de inglês com 50% de desconto",
	"cliente": "Fluency Academy",
	"nicho": "jovens profissionais",
	"estilo_visual": "cores vibrantes"
}`

type generateResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    []struct {
		Titulo    string  `json:"titulo"`
		Descricao string  `json:"descricao"`
		CTA       string  `json:"cta"`
		ImageURL  *string `json:"image_url"`
	} `json:"data"`
}

func decodeGenerate(t *testing.T, w *httptest.ResponseRecorder) generateResponse {
	t.Helper()
	var resp generateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v, body=%s", err, w.Body.String())
	}
	return resp
}

// ==================== 生成链路集成测试 ====================

func TestIntegration_GenerateAds(t *testing.T) {
	suite := NewIntegrationSuite(t, testConfig(), true)

	t.Run("完整流程", func(t *testing.T) {
		w := suite.postJSON("/generate_ads", validBrief, nil)

		if w.Code != http.StatusOK {
			t.Fatalf("状态码错误: got %d, body=%s", w.Code, w.Body.String())
		}

		resp := decodeGenerate(t, w)
		if !resp.Success {
			t.Fatalf("success 应为 true: %s", resp.Error)
		}
		if len(resp.Data) != 2 {
			t.Fatalf("变体数量错误: got %d", len(resp.Data))
		}

		if resp.Data[0].Titulo != "Fale inglês em 6 meses" {
			t.Errorf("标题错误: got %s", resp.Data[0].Titulo)
		}
		if resp.Data[1].CTA != "Garanta sua vaga" {
			t.Errorf("CTA 错误: got %s", resp.Data[1].CTA)
		}
		for i, ad := range resp.Data {
			if ad.ImageURL == nil || *ad.ImageURL != "https://img.example/gen.png" {
				t.Errorf("第 %d 条图片 URL 错误: %v", i, ad.ImageURL)
			}
		}

		textCalls, imageCalls := suite.AI.counts()
		if textCalls != 1 || imageCalls != 2 {
			t.Errorf("上游调用次数错误: text=%d, image=%d", textCalls, imageCalls)
		}

		// 图片提示词应包含文案给出的场景和请求的视觉风格
		suite.AI.mu.Lock()
		prompts := append([]string(nil), suite.AI.imagePrompts...)
		suite.AI.mu.Unlock()
		for _, p := range prompts {
			if !strings.Contains(p, "cores vibrantes style") {
				t.Errorf("图片提示词缺少风格: %s", p)
			}
		}

		// 一次请求落两条日志：文案一条、图片汇总一条
		requestID := w.Header().Get("X-Request-ID")
		if requestID == "" {
			t.Fatal("响应缺少 X-Request-ID")
		}

		var logs []model.GenerationLog
		suite.DB.Where("request_id = ?", requestID).Order("id").Find(&logs)
		if len(logs) != 2 {
			t.Fatalf("日志条数错误: got %d", len(logs))
		}

		textLog := logs[0]
		if textLog.CallType != model.GenCallTypeText || textLog.Status != model.GenStatusSuccess {
			t.Errorf("文案日志错误: type=%s, status=%s", textLog.CallType, textLog.Status)
		}
		if textLog.InputTokens != 120 || textLog.OutputTokens != 60 || textLog.DraftCount != 2 {
			t.Errorf("文案日志用量错误: in=%d, out=%d, drafts=%d",
				textLog.InputTokens, textLog.OutputTokens, textLog.DraftCount)
		}

		imageLog := logs[1]
		if imageLog.CallType != model.GenCallTypeImage || imageLog.ImageCount != 2 {
			t.Errorf("图片日志错误: type=%s, count=%d", imageLog.CallType, imageLog.ImageCount)
		}
		if len(imageLog.Detail) == 0 {
			t.Error("图片日志缺少明细")
		}
	})

	t.Run("透传请求ID", func(t *testing.T) {
		w := suite.postJSON("/generate_ads", validBrief, map[string]string{
			"X-Request-ID": "it-fixed-id",
		})

		if w.Code != http.StatusOK {
			t.Fatalf("状态码错误: got %d", w.Code)
		}
		if got := w.Header().Get("X-Request-ID"); got != "it-fixed-id" {
			t.Errorf("请求 ID 未回显: got %s", got)
		}

		var count int64
		suite.DB.Model(&model.GenerationLog{}).Where("request_id = ?", "it-fixed-id").Count(&count)
		if count != 2 {
			t.Errorf("日志未携带请求 ID: got %d", count)
		}
	})

	t.Run("关闭图片生成", func(t *testing.T) {
		body := `{"oferta": "Oferta", "cliente": "Cliente", "nicho": "Nicho", "generate_images": false}`
		_, imagesBefore := suite.AI.counts()

		w := suite.postJSON("/generate_ads", body, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("状态码错误: got %d", w.Code)
		}

		resp := decodeGenerate(t, w)
		for i, ad := range resp.Data {
			if ad.ImageURL != nil {
				t.Errorf("第 %d 条不应有图片: %s", i, *ad.ImageURL)
			}
		}

		_, imagesAfter := suite.AI.counts()
		if imagesAfter != imagesBefore {
			t.Errorf("不应触达图片上游: before=%d, after=%d", imagesBefore, imagesAfter)
		}
	})
}

// ==================== 错误契约集成测试 ====================

func TestIntegration_ContratoDeErros(t *testing.T) {
	suite := NewIntegrationSuite(t, testConfig(), true)

	t.Run("无请求体", func(t *testing.T) {
		w := suite.postJSON("/generate_ads", "", nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("状态码错误: got %d", w.Code)
		}
		resp := decodeGenerate(t, w)
		if resp.Error != "Nenhum dado enviado na requisição" {
			t.Errorf("错误信息错误: %s", resp.Error)
		}
	})

	t.Run("字段缺失", func(t *testing.T) {
		w := suite.postJSON("/generate_ads", `{"cliente": "X", "nicho": "Y"}`, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("状态码错误: got %d", w.Code)
		}
		resp := decodeGenerate(t, w)
		if resp.Error != "O campo 'oferta' é obrigatório" {
			t.Errorf("错误信息错误: %s", resp.Error)
		}
	})

	t.Run("模型响应不可解析", func(t *testing.T) {
		suite.AI.textReply = "resposta inesperada do modelo"

		w := suite.postJSON("/generate_ads", validBrief, nil)
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("状态码错误: got %d, body=%s", w.Code, w.Body.String())
		}
		resp := decodeGenerate(t, w)
		if !strings.HasPrefix(resp.Error, "Erro ao processar resposta da IA: ") {
			t.Errorf("错误信息错误: %s", resp.Error)
		}

		// 失败同样要落一条 failed 的文案日志
		var logs []model.GenerationLog
		suite.DB.Where("call_type = ? AND status = ?", model.GenCallTypeText, model.GenStatusFailed).Find(&logs)
		if len(logs) != 1 {
			t.Fatalf("失败日志条数错误: got %d", len(logs))
		}
		if logs[0].ErrorMsg == "" {
			t.Error("失败日志缺少错误信息")
		}
	})

	t.Run("上游通信失败", func(t *testing.T) {
		suite.AI.textErr = errors.New("timeout atingido")

		w := suite.postJSON("/generate_ads", validBrief, nil)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("状态码错误: got %d", w.Code)
		}
		resp := decodeGenerate(t, w)
		if resp.Error != "Erro na comunicação com a API: timeout atingido" {
			t.Errorf("错误信息错误: %s", resp.Error)
		}
	})
}

func TestIntegration_SemChave(t *testing.T) {
	cfg := &config.Config{AIProvider: config.ProviderOpenAI}
	suite := NewIntegrationSuite(t, cfg, true)

	w := suite.postJSON("/generate_ads", validBrief, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("状态码错误: got %d", w.Code)
	}
	resp := decodeGenerate(t, w)
	if resp.Error != "API Key da OpenAI não configurada. Verifique o arquivo .env" {
		t.Errorf("错误信息错误: %s", resp.Error)
	}

	// 凭证检查先于一切，上游和日志都不应被触达
	textCalls, imageCalls := suite.AI.counts()
	if textCalls != 0 || imageCalls != 0 {
		t.Errorf("不应触达上游: text=%d, image=%d", textCalls, imageCalls)
	}
	var count int64
	suite.DB.Model(&model.GenerationLog{}).Count(&count)
	if count != 0 {
		t.Errorf("不应写入日志: got %d", count)
	}
}

// ==================== 系统端点集成测试 ====================

func TestIntegration_SystemEndpoints(t *testing.T) {
	suite := NewIntegrationSuite(t, testConfig(), true)

	t.Run("健康检查", func(t *testing.T) {
		w := suite.get("/health")
		if w.Code != http.StatusOK {
			t.Fatalf("状态码错误: got %d", w.Code)
		}

		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("解析响应失败: %v", err)
		}
		if body["status"] != "healthy" || body["service"] != "AdBlast AI" || body["version"] != "1.1.0" {
			t.Errorf("健康检查响应错误: %v", body)
		}
	})

	t.Run("指标端点", func(t *testing.T) {
		w := suite.get("/metrics")
		if w.Code != http.StatusOK {
			t.Fatalf("状态码错误: got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "go_goroutines") {
			t.Error("指标输出缺少运行时指标")
		}
	})

	t.Run("用量查询", func(t *testing.T) {
		// 先产生一次调用，再查聚合
		if w := suite.postJSON("/generate_ads", validBrief, nil); w.Code != http.StatusOK {
			t.Fatalf("生成失败: %d", w.Code)
		}

		utils.DeleteCache(fmt.Sprintf("usage:daily:%d", 9))
		w := suite.get("/api/usage?days=9")
		if w.Code != http.StatusOK {
			t.Fatalf("状态码错误: got %d, body=%s", w.Code, w.Body.String())
		}

		var resp struct {
			Success bool `json:"success"`
			Data    struct {
				Days    int `json:"days"`
				Overall struct {
					TotalCalls  int64 `json:"total_calls"`
					TotalImages int64 `json:"total_images"`
				} `json:"overall"`
				Daily []json.RawMessage `json:"daily"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("解析响应失败: %v", err)
		}
		if !resp.Success || resp.Data.Days != 9 {
			t.Errorf("响应错误: success=%v, days=%d", resp.Success, resp.Data.Days)
		}
		if resp.Data.Overall.TotalCalls != 2 || resp.Data.Overall.TotalImages != 2 {
			t.Errorf("聚合错误: calls=%d, images=%d",
				resp.Data.Overall.TotalCalls, resp.Data.Overall.TotalImages)
		}
		if len(resp.Data.Daily) == 0 {
			t.Error("每日明细为空")
		}
	})
}

func TestIntegration_UsageSemBanco(t *testing.T) {
	suite := NewIntegrationSuite(t, testConfig(), false)

	w := suite.get("/api/usage")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("状态码错误: got %d", w.Code)
	}
	resp := decodeGenerate(t, w)
	if resp.Error != "registro de uso não está habilitado" {
		t.Errorf("错误信息错误: %s", resp.Error)
	}
}

// ==================== 并发集成测试 ====================

func TestIntegration_Concorrencia(t *testing.T) {
	// 关闭日志存储，只压请求链路本身
	suite := NewIntegrationSuite(t, testConfig(), false)

	const parallel = 6
	var wg sync.WaitGroup
	codes := make(chan int, parallel)

	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := suite.postJSON("/generate_ads", validBrief, nil)
			codes <- w.Code
		}()
	}

	wg.Wait()
	close(codes)

	for code := range codes {
		if code != http.StatusOK {
			t.Errorf("并发请求失败: got %d", code)
		}
	}

	textCalls, imageCalls := suite.AI.counts()
	if textCalls != parallel || imageCalls != parallel*2 {
		t.Errorf("上游调用次数错误: text=%d, image=%d", textCalls, imageCalls)
	}
}
