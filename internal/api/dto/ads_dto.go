package dto

import (
	"fmt"
	"strings"
)

// ==================== 请求 DTO ====================

// GenerateAdsRequest 广告生成请求，宽松解析后的视图
// 字段缺失或类型不对都收敛为零值，不在绑定层报错
type GenerateAdsRequest struct {
	Oferta         string
	Cliente        string
	Nicho          string
	EstiloVisual   string
	GenerateImages bool
}

// NewGenerateAdsRequest 从原始请求体提取字段并去除首尾空白
func NewGenerateAdsRequest(raw map[string]interface{}) *GenerateAdsRequest {
	return &GenerateAdsRequest{
		Oferta:         strings.TrimSpace(getString(raw, "oferta")),
		Cliente:        strings.TrimSpace(getString(raw, "cliente")),
		Nicho:          strings.TrimSpace(getString(raw, "nicho")),
		EstiloVisual:   strings.TrimSpace(getString(raw, "estilo_visual")),
		GenerateImages: getBool(raw, "generate_images", true),
	}
}

// Validate 按 oferta、cliente、nicho 的固定顺序校验必填字段
// 返回首个缺失字段的提示文本，全部通过时返回空串
func (r *GenerateAdsRequest) Validate() string {
	checks := []struct {
		value string
		field string
	}{
		{r.Oferta, "oferta"},
		{r.Cliente, "cliente"},
		{r.Nicho, "nicho"},
	}

	for _, chk := range checks {
		if chk.value == "" {
			return fmt.Sprintf("O campo '%s' é obrigatório", chk.field)
		}
	}
	return ""
}

// ==================== 响应 DTO ====================

// AdVariationVO 单条广告变体视图对象
type AdVariationVO struct {
	Titulo    string  `json:"titulo"`
	Descricao string  `json:"descricao"`
	CTA       string  `json:"cta"`
	ImageURL  *string `json:"image_url"` // 生成失败或未开启时为 null
}

// ==================== 辅助 ====================

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getBool(m map[string]interface{}, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}
