package controller

import (
	"contest_leaderboard/internal/service"
	"contest_leaderboard/internal/util"

	"github.com/gin-gonic/gin"
)

// TaskController 管理员的任务与答案管理
type TaskController struct {
	KeyService *service.KeyService
}

func NewTaskController(keyService *service.KeyService) *TaskController {
	return &TaskController{KeyService: keyService}
}

// CreateTask godoc
// @Summary 新建任务
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.TaskInput true "任务"
// @Success 201 {object} util.Response{data=model.Task} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/admin/tasks [post]
func (c *TaskController) CreateTask(ctx *gin.Context) {
	var req service.TaskInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	task, err := c.KeyService.CreateTask(ctx.Request.Context(), util.ActorFromContext(ctx), req)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Created(ctx, task)
}

// UpdateTask godoc
// @Summary 修改任务名称或答案可见性
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "任务ID"
// @Param body body service.TaskInput true "任务"
// @Success 200 {object} util.Response{data=model.Task} "成功"
// @Failure 404 {object} util.Response "任务不存在"
// @Router /api/admin/tasks/{id} [put]
func (c *TaskController) UpdateTask(ctx *gin.Context) {
	var req service.TaskInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	task, err := c.KeyService.UpdateTask(ctx.Request.Context(), util.ActorFromContext(ctx), ctx.Param("id"), req)
	if err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, task)
}

// DeleteTask godoc
// @Summary 删除任务及其答案
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "任务ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/admin/tasks/{id} [delete]
func (c *TaskController) DeleteTask(ctx *gin.Context) {
	if err := c.KeyService.DeleteTask(ctx.Request.Context(), util.ActorFromContext(ctx), ctx.Param("id")); err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// UploadKey godoc
// @Summary 上传任务答案
// @Description 答案文件先在本地校验，再覆盖写入对象存储
// @Tags 管理
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "任务ID"
// @Param file formData file true "CSV 文件"
// @Success 200 {object} util.Response "成功"
// @Failure 400 {object} util.Response "文件格式错误"
// @Failure 409 {object} util.Response "正在上传"
// @Failure 502 {object} util.Response "存储失败"
// @Router /api/admin/tasks/{id}/key [post]
func (c *TaskController) UploadKey(ctx *gin.Context) {
	var content []byte
	if fh, err := ctx.FormFile("file"); err == nil {
		content, err = util.ReadCSVUpload(fh)
		if err != nil {
			util.Fail(ctx, err)
			return
		}
	}

	taskID := ctx.Param("id")
	if err := c.KeyService.UploadKey(ctx.Request.Context(), util.ActorFromContext(ctx), taskID, content); err != nil {
		util.Fail(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"taskId": taskID})
}
