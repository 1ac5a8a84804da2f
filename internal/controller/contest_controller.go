package controller

import (
	"contest_leaderboard/internal/model"
	"contest_leaderboard/internal/service"
	"contest_leaderboard/internal/util"

	"github.com/gin-gonic/gin"
)

type ContestController struct {
	ContestService *service.ContestService
}

func NewContestController(contestService *service.ContestService) *ContestController {
	return &ContestController{ContestService: contestService}
}

// SetStatusRequest 比赛阶段
// swagger:model SetStatusRequest
type SetStatusRequest struct {
	Status model.ContestStatus `json:"status" binding:"required"`
}

// GetStatus godoc
// @Summary 比赛阶段
// @Tags 比赛
// @Produce json
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/contest/status [get]
func (c *ContestController) GetStatus(ctx *gin.Context) {
	status, err := c.ContestService.Status(ctx.Request.Context())
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"status": status})
}

// SetStatus godoc
// @Summary 设置比赛阶段
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body SetStatusRequest true "Not Started | Live | Finished"
// @Success 200 {object} util.Response "成功"
// @Failure 400 {object} util.Response "未知阶段"
// @Failure 403 {object} util.Response "权限不足"
// @Router /api/admin/contest/status [put]
func (c *ContestController) SetStatus(ctx *gin.Context) {
	var req SetStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ContestService.SetStatus(ctx.Request.Context(), util.ActorFromContext(ctx), req.Status); err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"status": req.Status})
}

// Reset godoc
// @Summary 重置比赛
// @Description 比赛阶段恢复为 Live 并完整刷新排行榜
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response "成功"
// @Failure 502 {object} util.Response "刷新失败"
// @Router /api/admin/contest/reset [post]
func (c *ContestController) Reset(ctx *gin.Context) {
	if err := c.ContestService.Reset(ctx.Request.Context(), util.ActorFromContext(ctx)); err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"status": model.ContestLive})
}

// UpdateTeamRequest 队伍编辑
// swagger:model UpdateTeamRequest
type UpdateTeamRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateTeam godoc
// @Summary 修改队伍名
// @Description 持久化后立即重新排名并推送，下一次刷新确认
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "队伍ID"
// @Param body body UpdateTeamRequest true "新队伍名"
// @Success 200 {object} util.Response{data=model.Team} "成功"
// @Failure 400 {object} util.Response "队伍名为空"
// @Failure 404 {object} util.Response "队伍不存在"
// @Failure 409 {object} util.Response "队伍名已被占用"
// @Router /api/admin/teams/{id} [put]
func (c *ContestController) UpdateTeam(ctx *gin.Context) {
	var req UpdateTeamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	team, err := c.ContestService.UpdateTeam(ctx.Request.Context(), util.ActorFromContext(ctx), ctx.Param("id"), req.Name)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, team)
}

// DeleteTeam godoc
// @Summary 删除队伍
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "队伍ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "队伍不存在"
// @Router /api/admin/teams/{id} [delete]
func (c *ContestController) DeleteTeam(ctx *gin.Context) {
	if err := c.ContestService.DeleteTeam(ctx.Request.Context(), util.ActorFromContext(ctx), ctx.Param("id")); err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
