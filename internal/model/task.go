package model

import (
	"time"

	"gorm.io/datatypes"
)

type KeyVisibility string

const (
	KeyPublic  KeyVisibility = "public"
	KeyPrivate KeyVisibility = "private"
)

func (v KeyVisibility) Valid() bool {
	return v == KeyPublic || v == KeyPrivate
}

// Task 参赛题目。KeyUploaded 由 task_keys 表是否存在对应行得出。
// swagger:model Task
type Task struct {
	ID            string        `gorm:"primaryKey;size:64" json:"id"`
	Name          string        `gorm:"size:255;not null" json:"name"`
	KeyVisibility KeyVisibility `gorm:"size:10;default:'private'" json:"keyVisibility"`
	KeyUploaded   bool          `gorm:"-" json:"keyUploaded"`
	CreatedAt     time.Time     `json:"-"`
	UpdatedAt     time.Time     `json:"-"`
}

func (Task) TableName() string {
	return "tasks"
}

// TaskKey 解析后的答案数据，供外部评分方使用
type TaskKey struct {
	TaskID    string         `gorm:"primaryKey;size:64" json:"taskId"`
	Rows      datatypes.JSON `gorm:"column:key_rows" json:"rows"`
	RowCount  int            `json:"rowCount"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (TaskKey) TableName() string {
	return "task_keys"
}

// KeyObjectName 对象存储中答案文件的名字，每个任务一个，重复上传覆盖
func KeyObjectName(taskID string) string {
	return taskID + ".csv"
}

// TaskBoard 推送给客户端的任务视图，Uploading 为正在上传答案的任务
type TaskBoard struct {
	Tasks     []Task   `json:"tasks"`
	Uploading []string `json:"uploading"`
}
