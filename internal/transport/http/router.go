package apihttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pictor/internal/logger"
	"pictor/internal/pipeline"
	"pictor/internal/report"
	"pictor/internal/store/runlog"
	"pictor/internal/types"
)

// 中文说明：
// API 路由。致命错误映射：参数问题 400，全量生成失败 502，无合格候选 409，
// 运行不存在 404，取消/超时 503。

// PipelineRunner 流水线入口的窄接口。
type PipelineRunner interface {
	RunOpen(ctx context.Context, req types.GenerateRequest) (*types.RunResult, error)
	RunSubject(ctx context.Context, req types.GenerateRequest) (*types.RunResult, error)
}

// Router 业务路由与依赖。
type Router struct {
	runner  PipelineRunner
	store   *runlog.Store
	reports *report.Generator
}

func NewRouter(runner PipelineRunner, store *runlog.Store, reports *report.Generator) *Router {
	return &Router{runner: runner, store: store, reports: reports}
}

// Register 挂载 /api 路由。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/pipeline/generate", r.handleGenerate)
	group.POST("/pipeline/subject", r.handleSubject)
	group.GET("/runs", r.handleListRuns)
	group.GET("/runs/:id", r.handleGetRun)
	group.GET("/runs/:id/report", r.handleRunReport)
}

func (r *Router) handleGenerate(c *gin.Context) {
	r.handleRun(c, r.runner.RunOpen)
}

func (r *Router) handleSubject(c *gin.Context) {
	r.handleRun(c, r.runner.RunSubject)
}

func (r *Router) handleRun(c *gin.Context, run func(context.Context, types.GenerateRequest) (*types.RunResult, error)) {
	var req types.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体不是合法 JSON: " + err.Error()})
		return
	}
	result, err := run(c.Request.Context(), req)
	if err != nil {
		status, msg := mapRunError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	if r.reports != nil {
		if path, err := r.reports.Write(c.Request.Context(), result); err != nil {
			logger.Warnf("[http] 运行 %s 报表生成失败: %v", result.RunID, err)
		} else {
			logger.Debugf("[http] 运行 %s 报表: %s", result.RunID, path)
		}
	}
	c.JSON(http.StatusOK, result)
}

func mapRunError(err error) (int, string) {
	var ve *pipeline.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Error()
	}
	var nc *pipeline.NoCandidatesError
	if errors.As(err, &nc) {
		return http.StatusBadGateway, nc.Error()
	}
	var ne *pipeline.NoEligibleCandidateError
	if errors.As(err, &ne) {
		return http.StatusConflict, ne.Error()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, "运行被取消或超时"
	}
	return http.StatusInternalServerError, err.Error()
}

func (r *Router) handleListRuns(c *gin.Context) {
	if r.store == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "运行日志存储未启用"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	runs, err := r.store.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (r *Router) handleGetRun(c *gin.Context) {
	if r.store == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "运行日志存储未启用"})
		return
	}
	record, err := r.store.GetRun(c.Request.Context(), c.Param("id"))
	if errors.Is(err, runlog.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "运行不存在"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (r *Router) handleRunReport(c *gin.Context) {
	if r.reports == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "报表未启用"})
		return
	}
	path := r.reports.HTMLPath(c.Param("id"))
	if path == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "报表不存在"})
		return
	}
	c.File(path)
}
