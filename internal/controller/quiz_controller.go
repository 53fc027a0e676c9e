package controller

import (
	"context"
	"english_virtual_lab/internal/model"
	"english_virtual_lab/internal/service"
	"english_virtual_lab/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// SelectAnswerRequest 选择答案
// swagger:model SelectAnswerRequest
type SelectAnswerRequest struct {
	Option *int `json:"option" binding:"required,gte=0"`
}

type quizAction func(ctx context.Context, viewer model.Viewer) (*service.QuizView, error)

func (c *QuizController) run(ctx *gin.Context, action quizAction) {
	view, err := action(ctx.Request.Context(), util.ViewerFromContext(ctx))
	c.respond(ctx, view, err)
}

func (c *QuizController) respond(ctx *gin.Context, view *service.QuizView, err error) {
	if err != nil {
		var data gin.H
		if view != nil {
			data = gin.H{"quiz": view}
		}
		respondError(ctx, err, data)
		return
	}
	respondOK(ctx, gin.H{"quiz": view})
}

// Start godoc
// @Summary 开始测验
// @Description 开始新的尝试，丢弃当前未完成的尝试
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/quiz/attempts [post]
func (c *QuizController) Start(ctx *gin.Context) {
	c.run(ctx, c.QuizService.Start)
}

// Current godoc
// @Summary 当前测验
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Failure 404 {object} util.Response "没有进行中的测验"
// @Router /api/quiz/attempts/current [get]
func (c *QuizController) Current(ctx *gin.Context) {
	c.run(ctx, c.QuizService.Current)
}

// SelectAnswer godoc
// @Summary 选择答案
// @Tags 测验
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param index path int true "题目序号（从0开始）"
// @Param body body SelectAnswerRequest true "选项序号"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response "当前状态不允许"
// @Router /api/quiz/attempts/current/answers/{index} [put]
func (c *QuizController) SelectAnswer(ctx *gin.Context) {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		util.BadRequest(ctx, "invalid question index")
		return
	}
	var req SelectAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	view, err := c.QuizService.SelectAnswer(ctx.Request.Context(), util.ViewerFromContext(ctx), index, *req.Option)
	c.respond(ctx, view, err)
}

// Next godoc
// @Summary 下一题
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Failure 409 {object} util.Response "最后一题应提交"
// @Router /api/quiz/attempts/current/next [post]
func (c *QuizController) Next(ctx *gin.Context) {
	c.run(ctx, c.QuizService.Next)
}

// Previous godoc
// @Summary 上一题
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/quiz/attempts/current/previous [post]
func (c *QuizController) Previous(ctx *gin.Context) {
	c.run(ctx, c.QuizService.Previous)
}

// Submit godoc
// @Summary 提交测验
// @Description 未答完返回 422；结果保存失败返回 503 并回到最后一题
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Failure 422 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/quiz/attempts/current/submit [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	c.run(ctx, c.QuizService.Submit)
}

// Retake godoc
// @Summary 重新测验
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/quiz/attempts/current/retake [post]
func (c *QuizController) Retake(ctx *gin.Context) {
	c.run(ctx, c.QuizService.Retake)
}

// Results godoc
// @Summary 最近测验结果
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "条数，默认5，最大50"
// @Success 200 {object} util.Response{data=[]model.QuizResult}
// @Router /api/quiz/results [get]
func (c *QuizController) Results(ctx *gin.Context) {
	limit := util.ParseLimit(ctx.Query("limit"), util.DefaultRecentQuizLimit, util.MaxRecentQuizLimit)
	results, err := c.QuizService.RecentResults(ctx.Request.Context(), util.ViewerFromContext(ctx), limit)
	if err != nil {
		respondError(ctx, err, nil)
		return
	}
	if results == nil {
		results = []model.QuizResult{}
	}
	util.Success(ctx, results)
}
