package model

import "time"

type ContestStatus string

const (
	ContestNotStarted ContestStatus = "Not Started"
	ContestLive       ContestStatus = "Live"
	ContestFinished   ContestStatus = "Finished"
)

func (s ContestStatus) Valid() bool {
	switch s {
	case ContestNotStarted, ContestLive, ContestFinished:
		return true
	}
	return false
}

// ContestStats 排行榜汇总数据
type ContestStats struct {
	TotalSubmissions int     `json:"totalSubmissions"`
	HighestScore     float64 `json:"highestScore"`
	AvgAttempts      float64 `json:"avgAttempts"`
}

// ScoreboardSnapshot 一次完整刷新后发布的排行榜，发布后只读
type ScoreboardSnapshot struct {
	Version     uint64       `json:"version"`
	Teams       []Team       `json:"teams"`
	Stats       ContestStats `json:"stats"`
	RefreshedAt time.Time    `json:"refreshedAt"`
}
