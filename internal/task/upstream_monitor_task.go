package task

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/robfig/cron/v3"

	"adblast_v1_202608/internal/config"
	"adblast_v1_202608/internal/model"
	"adblast_v1_202608/internal/repository"
	"adblast_v1_202608/internal/service"
	"adblast_v1_202608/pkg/utils"
)

const openAIDefaultBase = "https://api.openai.com/v1"

// UpstreamMonitor 上游连通性巡检任务
// 周期性访问提供方的模型列表接口，结果写入调用日志 (call_type=probe)
type UpstreamMonitor struct {
	client  *resty.Client
	aiCfg   *service.AIConfig
	logRepo repository.GenerationLogRepository // 可为 nil，表示只打日志不落库
	Cron    *cron.Cron
}

func NewUpstreamMonitor(aiCfg *service.AIConfig, logRepo repository.GenerationLogRepository) *UpstreamMonitor {
	return &UpstreamMonitor{
		client:  utils.NewProbeClient(10*time.Second, 2),
		aiCfg:   aiCfg,
		logRepo: logRepo,
		Cron:    cron.New(cron.WithSeconds()),
	}
}

// Start 启动巡检任务
func (m *UpstreamMonitor) Start() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		log.Println("[UpstreamMonitor] 服务启动，正在执行首次探测...")
		m.Execute(ctx)
	}()

	// 策略：每 15 分钟探测一次
	// Cron: "0 0/15 * * * *"
	_, err := m.Cron.AddFunc("0 0/15 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()

		m.Execute(ctx)
	})
	if err != nil {
		log.Fatalf("无法启动 UpstreamMonitor: %v", err)
	}

	m.Cron.Start()
	log.Println("UpstreamMonitor 巡检任务已启动 (每15分钟探测一次)")
}

// Stop 停止巡检任务
func (m *UpstreamMonitor) Stop() {
	m.Cron.Stop()
}

// Execute 执行一次探测 (由 Cron 定时触发)
func (m *UpstreamMonitor) Execute(ctx context.Context) error {
	if m.aiCfg.ApiKey == "" {
		log.Println("[UpstreamMonitor] 未配置 API Key，跳过探测")
		return nil
	}

	start := time.Now()
	err := m.probe(ctx)
	duration := time.Since(start)

	if err != nil {
		log.Printf("[UpstreamMonitor] 探测失败 (%s): %v\n", m.aiCfg.Provider, err)
	} else {
		log.Printf("[UpstreamMonitor] 探测成功 (%s, %dms)\n", m.aiCfg.Provider, duration.Milliseconds())
	}

	m.record(ctx, duration, err)
	return err
}

// probe 访问提供方的模型列表接口
func (m *UpstreamMonitor) probe(ctx context.Context) error {
	req := m.client.R().SetContext(ctx)

	var url string
	if m.aiCfg.Provider == config.ProviderGemini {
		url = "https://generativelanguage.googleapis.com/v1beta/models"
		req.SetQueryParam("key", m.aiCfg.ApiKey)
	} else {
		base := m.aiCfg.BaseURL
		if base == "" {
			base = openAIDefaultBase
		}
		url = base + "/models"
		req.SetAuthToken(m.aiCfg.ApiKey)
	}

	resp, err := req.Get(url)
	if err != nil {
		return fmt.Errorf("请求失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("上游返回 [%d]", resp.StatusCode())
	}
	return nil
}

// record 写入探测日志，探测记录不计入生成用量聚合
func (m *UpstreamMonitor) record(ctx context.Context, duration time.Duration, probeErr error) {
	if m.logRepo == nil {
		return
	}

	entry := &model.GenerationLog{
		CallType:   model.GenCallTypeProbe,
		Provider:   m.aiCfg.Provider,
		DurationMs: duration.Milliseconds(),
		Status:     model.GenStatusSuccess,
	}
	if probeErr != nil {
		entry.Status = model.GenStatusFailed
		entry.ErrorMsg = probeErr.Error()
	}

	if err := m.logRepo.Create(ctx, entry); err != nil {
		log.Printf("[UpstreamMonitor] 写入探测日志失败: %v\n", err)
	}
}
