package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"adblast_v1_202608/internal/controller"
	"adblast_v1_202608/internal/middleware"
)

// Controllers 路由需要的控制器集合
type Controllers struct {
	Ads    *controller.AdsController
	System *controller.SystemController
}

// SetupRouter 构建 gin 引擎并注册所有路由
func SetupRouter(logger *zap.Logger, ctls *Controllers) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(logger))
	r.Use(gin.Recovery())

	// 前端直接从浏览器调用，放开跨域
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID"}
	r.Use(cors.New(corsConfig))

	// 页面与系统路由
	r.GET("/", ctls.System.Index)
	r.GET("/health", ctls.System.Health)

	// 生成接口
	r.POST("/generate_ads", ctls.Ads.GenerateAds)

	// API 路由组
	api := r.Group("/api")
	{
		// GET /api/usage
		api.GET("/usage", ctls.System.Usage)
	}

	// /metrics 在业务路由注册完成后再挂
	p := ginprometheus.NewPrometheus("gin")
	p.Use(r)

	return r
}
