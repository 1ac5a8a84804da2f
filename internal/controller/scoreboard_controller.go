package controller

import (
	"contest_leaderboard/internal/service"
	"contest_leaderboard/internal/util"

	"github.com/gin-gonic/gin"
)

// ScoreboardController 只读视图与实时推送
type ScoreboardController struct {
	Sync *service.ScoreboardSync
	Hub  *service.ScoreboardHub
}

func NewScoreboardController(sync *service.ScoreboardSync, hub *service.ScoreboardHub) *ScoreboardController {
	return &ScoreboardController{Sync: sync, Hub: hub}
}

// GetScoreboard godoc
// @Summary 排行榜
// @Description 最近一次完整刷新得到的排名快照
// @Tags 排行榜
// @Produce json
// @Success 200 {object} util.Response{data=model.ScoreboardSnapshot} "成功"
// @Router /api/scoreboard [get]
func (c *ScoreboardController) GetScoreboard(ctx *gin.Context) {
	util.Success(ctx, c.Sync.Snapshot())
}

// GetStats godoc
// @Summary 比赛统计
// @Tags 排行榜
// @Produce json
// @Success 200 {object} util.Response{data=model.ContestStats} "成功"
// @Router /api/scoreboard/stats [get]
func (c *ScoreboardController) GetStats(ctx *gin.Context) {
	util.Success(ctx, c.Sync.Snapshot().Stats)
}

// GetTasks godoc
// @Summary 任务列表
// @Description 任务及答案上传状态，包括正在上传中的任务
// @Tags 排行榜
// @Produce json
// @Success 200 {object} util.Response{data=model.TaskBoard} "成功"
// @Router /api/tasks [get]
func (c *ScoreboardController) GetTasks(ctx *gin.Context) {
	util.Success(ctx, c.Sync.Tasks())
}

// Refresh godoc
// @Summary 立即刷新排行榜
// @Description 已有刷新在进行时共享其结果
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.ScoreboardSnapshot} "成功"
// @Failure 502 {object} util.Response "数据源不可用"
// @Router /api/admin/scoreboard/refresh [post]
func (c *ScoreboardController) Refresh(ctx *gin.Context) {
	if err := c.Sync.RefreshScoreboard(ctx.Request.Context()); err != nil {
		util.Fail(ctx, err)
		return
	}
	if err := c.Sync.RefreshTaskStatus(ctx.Request.Context()); err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, c.Sync.Snapshot())
}

// ServeWs godoc
// @Summary 实时推送
// @Description 建立 websocket 连接，推送 SCOREBOARD、TASKS、TOAST 消息
// @Tags 排行榜
// @Param token query string false "JWT令牌"
// @Router /api/ws [get]
func (c *ScoreboardController) ServeWs(ctx *gin.Context) {
	userID := ""
	if actor := util.ActorFromContext(ctx); actor != nil {
		userID = actor.ID
	}
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, userID)
}
