package util

import (
	"errors"
	"net/http"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrTaskNotFound       = errors.New("task not found")
	ErrTeamNotFound       = errors.New("team not found")

	// 注册冲突
	ErrUsernameExists = errors.New("username or email already registered")
	ErrTeamNameExists = errors.New("team name already taken")

	// 提交 / 答案文件校验
	ErrMalformedInput = errors.New("malformed input")
	ErrEmptyInput     = errors.New("empty input")
	ErrInvalidUpload  = errors.New("invalid upload")

	// 角色、比赛阶段或缺少选择
	ErrPreconditionFailed = errors.New("precondition failed")

	// 外部协作方失败，均在本地恢复
	ErrSyncFailure    = errors.New("scoreboard sync failed")
	ErrUploadFailure  = errors.New("key upload failed")
	ErrScoringFailure = errors.New("scoring failed")
	ErrUploadInFlight = errors.New("key upload already in progress")
)

// HTTPStatus 将领域错误映射为 HTTP 状态码
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrTaskNotFound), errors.Is(err, ErrTeamNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMalformedInput), errors.Is(err, ErrEmptyInput), errors.Is(err, ErrInvalidUpload),
		errors.Is(err, ErrPreconditionFailed):
		return http.StatusBadRequest
	case errors.Is(err, ErrUploadInFlight), errors.Is(err, ErrUsernameExists), errors.Is(err, ErrTeamNameExists):
		return http.StatusConflict
	case errors.Is(err, ErrSyncFailure), errors.Is(err, ErrUploadFailure), errors.Is(err, ErrScoringFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
