package router

import (
	"context"
	"errors"
	"strconv"

	"resume-engine-go/internal/api/handler"
	"resume-engine-go/internal/processor"
	"resume-engine-go/internal/storage"
	"resume-engine-go/pkg/ratelimit"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// parseTextRequest 同步解析接口的请求体
type parseTextRequest struct {
	Text string `json:"text"`
}

// RegisterRoutes 注册 API 路由
// limiter保护同步解析接口，传nil则不限流。
func RegisterRoutes(h *server.Hertz, resumeHandler *handler.ResumeHandler, limiter *ratelimit.TokenBucket) {
	api := h.Group("/api/v1")

	// 同步解析在请求线程里跑完整流水线，必须限流
	syncLimit := func(c context.Context, ctx *app.RequestContext) {
		if limiter != nil && !limiter.Allow() {
			ctx.AbortWithStatusJSON(consts.StatusTooManyRequests, utils.H{"error": "请求过于频繁，请稍后重试"})
			return
		}
		ctx.Next(c)
	}

	api.POST("/resume/upload", func(c context.Context, ctx *app.RequestContext) {
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
			return
		}

		sourceChannel := ctx.PostForm("source_channel")
		if sourceChannel == "" {
			sourceChannel = "web_upload"
		}

		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
			return
		}
		defer file.Close()

		resp, err := resumeHandler.HandleResumeUpload(c, file, fileHeader.Size, fileHeader.Filename, sourceChannel)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}

		if resp.Duplicate {
			ctx.JSON(consts.StatusOK, resp)
			return
		}
		// 异步处理，返回202
		ctx.JSON(consts.StatusAccepted, resp)
	})

	api.GET("/resumes", func(c context.Context, ctx *app.RequestContext) {
		status := ctx.Query("status")
		offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
		limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

		resp, err := resumeHandler.HandleListSubmissions(c, status, offset, limit)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/resume/:uuid", func(c context.Context, ctx *app.RequestContext) {
		submissionUUID := ctx.Param("uuid")
		resp, err := resumeHandler.HandleGetAnalysis(c, submissionUUID)
		if err != nil {
			if errors.Is(err, storage.ErrSubmissionNotFound) {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "简历提交记录不存在"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/resume/:uuid/status", func(c context.Context, ctx *app.RequestContext) {
		submissionUUID := ctx.Param("uuid")
		resp, err := resumeHandler.HandleSubmissionStatus(c, submissionUUID)
		if err != nil {
			if errors.Is(err, storage.ErrSubmissionNotFound) {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "简历提交记录不存在"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/resume/parse-text", syncLimit, func(c context.Context, ctx *app.RequestContext) {
		var req parseTextRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
			return
		}

		resume, err := resumeHandler.HandleParseText(c, req.Text)
		if err != nil {
			var perr *processor.PipelineError
			if errors.As(err, &perr) {
				ctx.JSON(consts.StatusUnprocessableEntity, utils.H{
					"error": perr.Error(),
					"stage": string(perr.Stage),
				})
				return
			}
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resume)
	})

	api.POST("/resume/extract-skills", syncLimit, func(c context.Context, ctx *app.RequestContext) {
		var req parseTextRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
			return
		}

		skills, err := resumeHandler.HandleExtractSkills(c, req.Text)
		if err != nil {
			var perr *processor.PipelineError
			if errors.As(err, &perr) {
				ctx.JSON(consts.StatusUnprocessableEntity, utils.H{
					"error": perr.Error(),
					"stage": string(perr.Stage),
				})
				return
			}
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{"skills": skills})
	})

	api.GET("/parser/status", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, resumeHandler.HandleParserStatus())
	})

	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	h.GET("/ping", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"message": "pong"})
	})
}
