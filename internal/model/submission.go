package model

// Submission 某队伍在某任务上的最新状态，(team_id, task_id) 唯一。
// IsBestScore 是派生字段，每次排名时重新计算，从不落库。
// swagger:model Submission
type Submission struct {
	ID          uint                `gorm:"primaryKey;autoIncrement" json:"-"`
	TeamID      string              `gorm:"type:varchar(36);not null;uniqueIndex:idx_submission_team_task" json:"-"`
	TaskID      string              `gorm:"size:64;not null;uniqueIndex:idx_submission_team_task" json:"taskId"`
	Score       *float64            `json:"score"`
	Attempts    int                 `gorm:"default:0" json:"attempts"`
	IsBestScore bool                `gorm:"-" json:"isBestScore"`
	History     []SubmissionAttempt `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"history"`
}

func (Submission) TableName() string {
	return "submissions"
}

func (s Submission) Clone() Submission {
	out := s
	if s.Score != nil {
		v := *s.Score
		out.Score = &v
	}
	if s.History != nil {
		out.History = make([]SubmissionAttempt, len(s.History))
		copy(out.History, s.History)
	}
	return out
}

// SubmissionAttempt 一次评分记录，只追加不修改
type SubmissionAttempt struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"-"`
	SubmissionID uint    `gorm:"index;not null" json:"-"`
	Score        float64 `json:"score"`
	Timestamp    int64   `gorm:"index" json:"timestamp"`
}

func (SubmissionAttempt) TableName() string {
	return "submission_attempts"
}
