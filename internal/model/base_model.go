package model

import "time"

// BaseModel 公共字段
// 日志类表由清理任务做物理删除，不带软删除字段
type BaseModel struct {
	ID        int64     `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
