package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"adblast_v1_202608/internal/api/dto"
	"adblast_v1_202608/internal/config"
	"adblast_v1_202608/internal/service"
)

// ==================== 控制器 ====================

// AdsController 广告生成控制器
type AdsController struct {
	adsService *service.AdsService
	cfg        *config.Config
}

func NewAdsController(adsService *service.AdsService, cfg *config.Config) *AdsController {
	return &AdsController{adsService: adsService, cfg: cfg}
}

// ==================== API 方法 ====================

// GenerateAds 生成一组广告文案与配图
// @Summary 提交 brief，生成多条广告变体
// @Tags Ads
// @Accept json
// @Produce json
// @Param body body map[string]interface{} true "生成请求"
// @Success 200 {object} map[string]interface{}
// @Router /generate_ads [post]
func (ctrl *AdsController) GenerateAds(c *gin.Context) {
	// 凭证检查先于请求体读取
	if ctrl.cfg.ActiveKey() == "" {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   fmt.Sprintf("API Key da %s não configurada. Verifique o arquivo .env", ctrl.cfg.ProviderName()),
		})
		return
	}

	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Nenhum dado enviado na requisição",
		})
		return
	}

	req := dto.NewGenerateAdsRequest(raw)
	if msg := req.Validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   msg,
		})
		return
	}

	ctx := c.Request.Context()
	brief := service.AdBrief{
		Oferta:       req.Oferta,
		Cliente:      req.Cliente,
		Nicho:        req.Nicho,
		EstiloVisual: req.EstiloVisual,
	}

	variations, err := ctrl.adsService.GenerateAds(ctx, c.GetString("request_id"), brief, req.GenerateImages)
	if err != nil {
		// 模型返回不可解析时用 422，其余上游失败用 500
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrRespostaIA) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	data := make([]dto.AdVariationVO, len(variations))
	for i, v := range variations {
		data[i] = dto.AdVariationVO{
			Titulo:    v.Titulo,
			Descricao: v.Descricao,
			CTA:       v.CTA,
			ImageURL:  v.ImageURL,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}
