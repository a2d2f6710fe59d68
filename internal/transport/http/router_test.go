package apihttp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pictor/internal/pipeline"
	"pictor/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	result *types.RunResult
	err    error
	last   types.GenerateRequest
}

func (s *stubRunner) RunOpen(_ context.Context, req types.GenerateRequest) (*types.RunResult, error) {
	s.last = req
	return s.result, s.err
}

func (s *stubRunner) RunSubject(_ context.Context, req types.GenerateRequest) (*types.RunResult, error) {
	s.last = req
	return s.result, s.err
}

func newTestEngine(runner PipelineRunner) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewRouter(runner, nil, nil).Register(engine.Group("/api"))
	return engine
}

func doPost(t *testing.T, engine *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestGenerateReturnsResult(t *testing.T) {
	runner := &stubRunner{result: &types.RunResult{RunID: "run-1", BestProvider: "seedream"}}
	engine := newTestEngine(runner)

	w := doPost(t, engine, "/api/pipeline/generate", `{"prompt":"一只猫","providers":["seedream"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"run_id":"run-1"`)
	assert.Equal(t, "一只猫", runner.last.Prompt)
}

func TestGenerateRejectsMalformedBody(t *testing.T) {
	engine := newTestEngine(&stubRunner{})
	w := doPost(t, engine, "/api/pipeline/generate", `{"prompt":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"参数校验失败", &pipeline.ValidationError{Field: "prompt", Reason: "不能为空"}, http.StatusBadRequest},
		{"全部生成失败", &pipeline.NoCandidatesError{Providers: []string{"a"}}, http.StatusBadGateway},
		{"无合格候选", &pipeline.NoEligibleCandidateError{Total: 3}, http.StatusConflict},
		{"运行取消", context.Canceled, http.StatusServiceUnavailable},
		{"超时", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"未知错误", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := newTestEngine(&stubRunner{err: tc.err})
			w := doPost(t, engine, "/api/pipeline/subject", `{"prompt":"p"}`)
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestRunsEndpointsWithoutStore(t *testing.T) {
	engine := newTestEngine(&stubRunner{})
	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/runs/run-1", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
