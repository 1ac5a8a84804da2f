package model

import "time"

// Team 队伍及其在各任务上的提交状态。
// Solved、TotalScore、LastSolveTimestamp 由外部评分方维护；Rank 只在内存中计算。
// swagger:model Team
type Team struct {
	ID                 string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name               string       `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Solved             int          `gorm:"default:0" json:"solved"`
	TotalScore         float64      `gorm:"default:0" json:"totalScore"`
	LastSolveTimestamp *int64       `json:"lastSolveTimestamp,omitempty"`
	Rank               int          `gorm:"-" json:"rank"`
	Submissions        []Submission `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"submissions"`
	CreatedAt          time.Time    `json:"-"`
	UpdatedAt          time.Time    `json:"-"`
}

func (Team) TableName() string {
	return "teams"
}

// Clone 深拷贝，排名计算不能修改调用方持有的数据
func (t Team) Clone() Team {
	out := t
	if t.LastSolveTimestamp != nil {
		ts := *t.LastSolveTimestamp
		out.LastSolveTimestamp = &ts
	}
	if t.Submissions != nil {
		out.Submissions = make([]Submission, len(t.Submissions))
		for i, s := range t.Submissions {
			out.Submissions[i] = s.Clone()
		}
	}
	return out
}

// SubmissionFor 返回该队伍在某任务上的提交，没有则返回 nil
func (t *Team) SubmissionFor(taskID string) *Submission {
	for i := range t.Submissions {
		if t.Submissions[i].TaskID == taskID {
			return &t.Submissions[i]
		}
	}
	return nil
}
