package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// NewProbeClient 创建用于连通性探测的 Resty 客户端
// 它是系统内所有探测类请求的统一入口
func NewProbeClient(timeout time.Duration, retries int) *resty.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).                          // 探测请求必须有界，不允许挂死调度器
		SetRetryCount(retries).                       // 瞬时抖动重试，探测失败本身不算错误
		SetHeader("User-Agent", "AdBlast-Go-App/1.1") // 标准 UA

	return client
}
