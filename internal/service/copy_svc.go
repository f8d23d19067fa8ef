package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ==================== 提示词 ====================

// 文案模型的生成参数，对齐 Meta Ads 投放场景
const (
	copyTemperature = 0.7
	copyMaxTokens   = 2000
)

// systemPromptText 巴西市场投放文案的固定 system 提示词
const systemPromptText = `Você é um Copywriter Sênior e Estrategista de Tráfego Pago especialista em Direct Response para o mercado brasileiro. Sua especialidade é criar anúncios para Meta Ads (Facebook/Instagram) que param o scroll e geram cliques qualificados.

CONTEXTO DE EXECUÇÃO:
O usuário fornecerá: Cliente, Oferta, Função/Nicho e opcionalmente um Estilo Visual.
Use os frameworks AIDA (Atenção, Interesse, Desejo, Ação) e PAS (Problema, Agitação, Solução).

REGRAS RÍGIDAS DE CONTEÚDO E FORMATO:
1. QUANTIDADE: Gere exatamente 5 variações distintas.
2. LIMITES TÉCNICOS (NÃO ULTRAPASSE):
   - TÍTULO: Máximo 40 caracteres (Direto e impactante).
   - DESCRIÇÃO: Máximo 250 caracteres (Texto mais detalhado, 5-6 linhas, com storytelling).
   - CTA: Máximo 20 caracteres (Curto e imperativo).
   - IMAGE_PROMPT: Crie um prompt em INGLÊS para gerar uma imagem impactante para o anúncio (máximo 200 caracteres).
3. IDIOMA: Português do Brasil (PT-BR) para titulo, descricao e cta. INGLÊS para image_prompt.
4. Tom natural, humano e persuasivo. Evite "IA-speak".

ESTRUTURA DAS VARIAÇÕES:
- Variação 1 (PAS): Foco na dor latente do público e na solução rápida.
- Variação 2 (Benefício): Foco na transformação clara após usar o produto/serviço.
- Variação 3 (Autoridade): Foco em prova social ou tempo de mercado do cliente.
- Variação 4 (Escassez): Foco em tempo limitado ou poucas vagas (Urgência Real).
- Variação 5 (Direct/Hook): Um gancho de curiosidade forte ou pergunta provocativa.

REQUISITO TÉCNICO DE SAÍDA:
Retorne EXCLUSIVAMENTE um array JSON puro, sem blocos de código markdown (sem ` + "```json" + `), sem explicações.
Formato: [{"titulo": "...", "descricao": "...", "cta": "...", "image_prompt": "..."}]

O image_prompt deve descrever uma imagem profissional, moderna e relevante para o anúncio. Exemplo:
"Professional smiling person in modern office with growth charts, vibrant colors, flat design style"
`

// ==================== 字数预算 ====================

// charLimits 各文案字段的长度预算（Facebook/Instagram Ads 限制，按字符数）
var charLimits = map[string]int{
	"titulo":    40,
	"descricao": 250,
	"cta":       20,
}

// 图片提示词的长度预算
const imagePromptLimit = 200

// ==================== 类型 ====================

// AdBrief 广告简报，字段已做 TrimSpace
type AdBrief struct {
	Oferta       string
	Cliente      string
	Nicho        string
	EstiloVisual string
}

// AdDraft 单条广告文案
type AdDraft struct {
	Titulo      string
	Descricao   string
	CTA         string
	ImagePrompt string
}

// ==================== 哨兵错误 ====================

var (
	// ErrRespostaIA 模型输出无法解析为 JSON 数组
	ErrRespostaIA = errors.New("Erro ao processar resposta da IA")
	// ErrComunicacaoAPI 与上游模型通信失败
	ErrComunicacaoAPI = errors.New("Erro na comunicação com a API")
)

// ==================== 服务 ====================

// CopyService 广告文案生成
type CopyService struct {
	ai AIClient
}

// NewCopyService 创建文案生成服务
func NewCopyService(ai AIClient) *CopyService {
	return &CopyService{ai: ai}
}

// GenerateDrafts 生成一批广告文案
// 提示词要求 5 条，模型实际返回几条就下发几条
func (s *CopyService) GenerateDrafts(ctx context.Context, brief AdBrief) ([]AdDraft, TextUsage, error) {
	raw, usage, err := s.ai.GenerateText(ctx, systemPromptText, buildUserPrompt(brief))
	if err != nil {
		return nil, usage, fmt.Errorf("%w: %v", ErrComunicacaoAPI, err)
	}

	drafts, err := parseDrafts(raw)
	if err != nil {
		return nil, usage, err
	}
	return drafts, usage, nil
}

// buildUserPrompt 组装单次请求的 user 提示词
func buildUserPrompt(brief AdBrief) string {
	estiloInfo := ""
	if brief.EstiloVisual != "" {
		estiloInfo = fmt.Sprintf("\nESTILO VISUAL DESEJADO: %s", brief.EstiloVisual)
	}

	return fmt.Sprintf(`Gere 5 variações de anúncios para:

OFERTA PRINCIPAL: %s
CLIENTE/EMPRESA: %s
NICHO/PÚBLICO-ALVO: %s%s

Lembre-se:
- Retorne APENAS o array JSON
- Inclua o campo "image_prompt" em INGLÊS para cada variação
- A descrição agora pode ter até 250 caracteres (mais detalhada)`,
		brief.Oferta, brief.Cliente, brief.Nicho, estiloInfo)
}

// parseDrafts 宽松解析模型输出并收敛为强类型文案
// 先剥掉可能的 markdown 代码块，再逐键取值、缺失补空串、按预算截断
func parseDrafts(raw string) ([]AdDraft, error) {
	text := stripMarkdownFences(raw)

	var items []map[string]interface{}
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRespostaIA, err)
	}

	drafts := make([]AdDraft, 0, len(items))
	for _, item := range items {
		drafts = append(drafts, AdDraft{
			Titulo:      truncateRunes(getMapString(item, "titulo", ""), charLimits["titulo"]),
			Descricao:   truncateRunes(getMapString(item, "descricao", ""), charLimits["descricao"]),
			CTA:         truncateRunes(getMapString(item, "cta", ""), charLimits["cta"]),
			ImagePrompt: truncateRunes(getMapString(item, "image_prompt", ""), imagePromptLimit),
		})
	}
	return drafts, nil
}

// stripMarkdownFences 容忍模型违反"纯 JSON"约定时包裹的代码块标记
func stripMarkdownFences(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```json") {
		text = text[7:]
	}
	if strings.HasPrefix(text, "```") {
		text = text[3:]
	}
	if strings.HasSuffix(text, "```") {
		text = text[:len(text)-3]
	}

	return strings.TrimSpace(text)
}

// ==================== 工具函数 ====================

// getMapString 从宽松解析的 map 中取字符串，缺失或类型不符时返回默认值
func getMapString(m map[string]interface{}, key, def string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// truncateRunes 按字符数截断，多字节字符计 1 个
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
