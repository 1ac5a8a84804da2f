package service

import (
	"contest_leaderboard/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRowsStripsHeader(t *testing.T) {
	rows, err := ParseAndValidate("Category_ID,content,overall_band_score\n1,essay,6.5\n2,\"second, essay\",7")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "essay", "6.5"}, {"2", "second, essay", "7"}}, rows)
}

func TestValidateRowsWithoutHeader(t *testing.T) {
	rows, err := ParseAndValidate("1,a,5\n2,b,6,extra")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Len(t, rows[1], 4)
}

func TestValidateRowsShortRow(t *testing.T) {
	_, err := ParseAndValidate("category_id,content,overall_band_score\n1,only two")
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrMalformedInput)
	assert.Contains(t, err.Error(), "at least 3")
}

func TestValidateRowsHeaderOnly(t *testing.T) {
	_, err := ParseAndValidate("category_id,content,overall_band_score\n")
	assert.ErrorIs(t, err, util.ErrEmptyInput)
}

func TestValidateRowsEmpty(t *testing.T) {
	_, err := ParseAndValidate("")
	assert.ErrorIs(t, err, util.ErrEmptyInput)

	_, err = ValidateRows(nil)
	assert.ErrorIs(t, err, util.ErrEmptyInput)
}

func TestValidateRowsHeaderOnlyMatchesFirstRow(t *testing.T) {
	// 第二行的 category_id 不是表头，按数据处理
	rows, err := ParseAndValidate("1,a,5\ncategory_id,b,6")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
