package controller

import (
	"contest_leaderboard/internal/service"
	"contest_leaderboard/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	SubmissionService *service.SubmissionService
}

func NewSubmissionController(submissionService *service.SubmissionService) *SubmissionController {
	return &SubmissionController{SubmissionService: submissionService}
}

// Submit godoc
// @Summary 提交答案
// @Description 上传 CSV 文件，本地解析校验后交给评分服务
// @Tags 提交
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param taskId formData string true "任务ID"
// @Param file formData file true "CSV 文件"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 400 {object} util.Response "文件格式错误或比赛未进行"
// @Failure 403 {object} util.Response "不是参赛者"
// @Failure 502 {object} util.Response "评分失败"
// @Router /api/submissions [post]
func (c *SubmissionController) Submit(ctx *gin.Context) {
	taskID := ctx.PostForm("taskId")

	var content []byte
	if fh, err := ctx.FormFile("file"); err == nil {
		content, err = util.ReadCSVUpload(fh)
		if err != nil {
			util.Fail(ctx, err)
			return
		}
	}

	score, err := c.SubmissionService.Submit(ctx.Request.Context(), util.ActorFromContext(ctx), taskID, content)
	if err != nil {
		util.Fail(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"taskId": taskID, "score": score})
}
