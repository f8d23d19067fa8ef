package model

import "gorm.io/datatypes"

// GenerationLog 生成调用日志
type GenerationLog struct {
	BaseModel

	// 关联
	RequestID string `gorm:"size:64;index;comment:请求ID"`

	// 调用信息
	CallType  string `gorm:"size:32;index;comment:调用类型(text/image/probe)"`
	Provider  string `gorm:"size:32;comment:提供方(openai/gemini)"`
	ModelName string `gorm:"size:64;comment:模型名称"`

	// 用量统计
	InputTokens  int `gorm:"default:0;comment:输入token数"`
	OutputTokens int `gorm:"default:0;comment:输出token数"`
	DraftCount   int `gorm:"default:0;comment:解析出的文案条数"`
	ImageCount   int `gorm:"default:0;comment:成功生成图片数"`

	// 性能
	DurationMs int64 `gorm:"comment:耗时(毫秒)"`

	// 状态
	Status   string `gorm:"size:32;index;default:success;comment:状态(success/failed)"`
	ErrorMsg string `gorm:"size:1024;comment:错误信息"`

	// 明细，如逐条图片结果。跨 postgres/sqlite 统一用 JSON 列
	Detail datatypes.JSON `gorm:"comment:调用明细"`
}

func (GenerationLog) TableName() string {
	return "generation_logs"
}

// ==================== 调用类型常量 ====================

const (
	GenCallTypeText  = "text"
	GenCallTypeImage = "image"
	GenCallTypeProbe = "probe"
)

// ==================== 状态常量 ====================

const (
	GenStatusSuccess = "success"
	GenStatusFailed  = "failed"
)
