package service

import (
	"contest_leaderboard/internal/model"
	"sort"
)

// RankTeams 重新计算每个任务的最高分、提交的 IsBestScore 标记以及队伍排名。
//
// 纯函数：输入不会被修改，相同输入得到相同输出，对自身结果再次调用不会改变任何字段。
// 任务范围取自提交数据本身，不依赖任务列表。
func RankTeams(teams []model.Team) []model.Team {
	ranked := make([]model.Team, len(teams))
	for i := range teams {
		ranked[i] = teams[i].Clone()
	}

	best := bestScoresByTask(ranked)
	for i := range ranked {
		for j := range ranked[i].Submissions {
			sub := &ranked[i].Submissions[j]
			top, ok := best[sub.TaskID]
			sub.IsBestScore = ok && sub.Score != nil && *sub.Score == top
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return solvedBefore(a.LastSolveTimestamp, b.LastSolveTimestamp)
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// bestScoresByTask 每个任务的非空最高分；没有任何得分的任务不出现在结果里
func bestScoresByTask(teams []model.Team) map[string]float64 {
	best := make(map[string]float64)
	for _, t := range teams {
		for _, s := range t.Submissions {
			if s.Score == nil {
				continue
			}
			if cur, ok := best[s.TaskID]; !ok || *s.Score > cur {
				best[s.TaskID] = *s.Score
			}
		}
	}
	return best
}

// solvedBefore 缺失的时间戳视为无限晚
func solvedBefore(a, b *int64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}

// ComputeStats 汇总总提交次数、最高分和已解题目的平均尝试次数
func ComputeStats(teams []model.Team) model.ContestStats {
	var (
		stats          model.ContestStats
		solvedCount    int
		solvedAttempts int
	)

	for _, t := range teams {
		for _, s := range t.Submissions {
			stats.TotalSubmissions += s.Attempts
			if s.Score == nil {
				continue
			}
			if *s.Score > stats.HighestScore {
				stats.HighestScore = *s.Score
			}
			if *s.Score > 0 {
				solvedCount++
				solvedAttempts += s.Attempts
			}
		}
	}

	if solvedCount > 0 {
		stats.AvgAttempts = float64(solvedAttempts) / float64(solvedCount)
	}
	return stats
}
