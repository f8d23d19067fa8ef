package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"adblast_v1_202608/internal/service"
)

// ==================== 控制器 ====================

// SystemController 健康检查、首页与用量查询
type SystemController struct {
	usageService *service.UsageService
}

func NewSystemController(usageService *service.UsageService) *SystemController {
	return &SystemController{usageService: usageService}
}

// ==================== API 方法 ====================

// Health 健康检查
// @Summary 服务健康状态
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (ctrl *SystemController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "AdBlast AI",
		"version": "1.1.0",
	})
}

// Index 广告生成器首页
// @Summary 返回前端页面
// @Tags System
// @Produce html
// @Router / [get]
func (ctrl *SystemController) Index(c *gin.Context) {
	c.File("./static/index.html")
}

// Usage 生成用量统计
// @Summary 查询近 N 天的调用用量
// @Tags System
// @Produce json
// @Param days query int false "统计天数，默认 30，最大 90"
// @Success 200 {object} map[string]interface{}
// @Router /api/usage [get]
func (ctrl *SystemController) Usage(c *gin.Context) {
	if !ctrl.usageService.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   service.ErrUsageDisabled.Error(),
		})
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 || days > 90 {
		days = 30
	}

	ctx := c.Request.Context()
	overall, err := ctrl.usageService.Overall(ctx, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	daily, err := ctrl.usageService.DailyUsage(ctx, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"days":    days,
			"overall": overall,
			"daily":   daily,
		},
	})
}
