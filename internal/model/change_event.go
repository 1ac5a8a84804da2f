package model

import "fmt"

type ChangeTable string

const (
	TableSubmissions ChangeTable = "submissions"
	TableUsers       ChangeTable = "users"
	TableTeams       ChangeTable = "teams"
	TableTaskKeys    ChangeTable = "task_keys"
)

type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
)

// ChangeEvent 行级变更通知，可能重复、乱序或丢失
type ChangeEvent struct {
	Table  ChangeTable            `json:"table"`
	Kind   ChangeKind             `json:"kind"`
	Record map[string]interface{} `json:"record,omitempty"`
}

// TaskID 从记录中取出 task_id，没有时返回空串
func (e ChangeEvent) TaskID() string {
	if e.Record == nil {
		return ""
	}
	switch v := e.Record["task_id"].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
