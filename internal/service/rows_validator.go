package service

import (
	"contest_leaderboard/internal/util"
	"contest_leaderboard/pkg/csvparse"
	"fmt"
	"strings"
)

const (
	// HeaderToken 表头行第一列的保留字（不区分大小写）
	HeaderToken = "category_id"
	// MinColumns 每行数据至少需要的列数：category_id,content,overall_band_score
	MinColumns = 3
)

// ValidateRows 去掉可选表头并检查列数。提交文件和答案文件走同一套规则。
func ValidateRows(rows [][]string) ([][]string, error) {
	data := rows
	if len(data) > 0 && len(data[0]) > 0 && strings.EqualFold(data[0][0], HeaderToken) {
		data = data[1:]
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no data rows after header", util.ErrEmptyInput)
	}

	for i, row := range data {
		if len(row) < MinColumns {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected at least %d (category_id,content,overall_band_score)",
				util.ErrMalformedInput, i+1, len(row), MinColumns)
		}
	}

	return data, nil
}

// ParseAndValidate 解析文件内容并校验
func ParseAndValidate(content string) ([][]string, error) {
	return ValidateRows(csvparse.Parse(content))
}
