package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"adblast_v1_202608/internal/model"
	"adblast_v1_202608/internal/repository"
	"adblast_v1_202608/internal/service"
)

// ==================== 测试辅助 ====================

func setupSystemRouter(usageSvc *service.UsageService) *gin.Engine {
	ctl := NewSystemController(usageSvc)

	r := gin.New()
	r.GET("/health", ctl.Health)
	r.GET("/api/usage", ctl.Usage)
	return r
}

func setupUsageTestRepo(t *testing.T) repository.GenerationLogRepository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.GenerationLog{}); err != nil {
		t.Fatalf("迁移表结构失败: %v", err)
	}
	return repository.NewGenerationLogRepository(db)
}

// ==================== 测试用例 ====================

func TestSystemController_Health(t *testing.T) {
	router := setupSystemRouter(service.NewUsageService(nil))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	// 响应是固定的三个键，不带其他字段
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(resp) != 3 {
		t.Errorf("响应键数量 = %d, want 3: %v", len(resp), resp)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", resp["status"])
	}
	if resp["service"] != "AdBlast AI" {
		t.Errorf("service = %q, want AdBlast AI", resp["service"])
	}
	if resp["version"] != "1.1.0" {
		t.Errorf("version = %q, want 1.1.0", resp["version"])
	}
}

func TestSystemController_Usage_Desabilitado(t *testing.T) {
	router := setupSystemRouter(service.NewUsageService(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if resp.Success {
		t.Error("success = true, want false")
	}
	if resp.Error != "registro de uso não está habilitado" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestSystemController_Usage(t *testing.T) {
	repo := setupUsageTestRepo(t)
	logs := []*model.GenerationLog{
		{RequestID: "r1", CallType: model.GenCallTypeText, InputTokens: 100, OutputTokens: 40, DraftCount: 5, Status: model.GenStatusSuccess},
		{RequestID: "r1", CallType: model.GenCallTypeImage, ImageCount: 4, Status: model.GenStatusSuccess},
	}
	for _, l := range logs {
		if err := repo.Create(context.Background(), l); err != nil {
			t.Fatalf("写入日志失败: %v", err)
		}
	}

	router := setupSystemRouter(service.NewUsageService(repo))

	req := httptest.NewRequest(http.MethodGet, "/api/usage?days=7", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Days    int                          `json:"days"`
			Overall repository.GenUsageStats     `json:"overall"`
			Daily   []repository.DailyUsageStats `json:"daily"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}

	if !resp.Success {
		t.Error("success = false, want true")
	}
	if resp.Data.Days != 7 {
		t.Errorf("days = %d, want 7", resp.Data.Days)
	}
	if resp.Data.Overall.TotalCalls != 2 {
		t.Errorf("total_calls = %d, want 2", resp.Data.Overall.TotalCalls)
	}
	if resp.Data.Overall.TotalImages != 4 {
		t.Errorf("total_images = %d, want 4", resp.Data.Overall.TotalImages)
	}
	if len(resp.Data.Daily) != 1 {
		t.Errorf("daily length = %d, want 1", len(resp.Data.Daily))
	}
}

func TestSystemController_Usage_DiasInvalidos(t *testing.T) {
	repo := setupUsageTestRepo(t)
	router := setupSystemRouter(service.NewUsageService(repo))

	// 非法 days 回落为默认 30
	for _, q := range []string{"days=abc", "days=-1", "days=9999"} {
		req := httptest.NewRequest(http.MethodGet, "/api/usage?"+q, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want 200", q, w.Code)
		}

		var resp struct {
			Data struct {
				Days int `json:"days"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("解析响应失败: %v", err)
		}
		if resp.Data.Days != 30 {
			t.Errorf("%s: days = %d, want 30", q, resp.Data.Days)
		}
	}
}
