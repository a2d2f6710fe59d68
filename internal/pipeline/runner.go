package pipeline

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"pictor/internal/config"
	"pictor/internal/consistency"
	"pictor/internal/gateway/provider"
	"pictor/internal/logger"
	"pictor/internal/review"
	"pictor/internal/scoring"
	"pictor/internal/selector"
	"pictor/internal/types"
)

// 中文说明：
// 流水线编排器：生成 → 评分（+主体一致性）→ 选优 → 对比点评。
// 单次调用失败一律降级（记事件、继续跑），只在三类致命错误时让整次运行失败。
// 上下文取消立即中止且不产出结果。

// Runner 编排一次完整的生成运行。
type Runner struct {
	cfg      config.PipelineConfig
	registry *provider.Registry
	scorer   *scoring.Aggregator
	verifier *consistency.Verifier
	reviewer *review.Reviewer
	observer Observer

	consistencyTimeout time.Duration
}

func NewRunner(
	cfg config.PipelineConfig,
	ccfg config.ConsistencyConfig,
	registry *provider.Registry,
	scorer *scoring.Aggregator,
	verifier *consistency.Verifier,
	reviewer *review.Reviewer,
	observer Observer,
) *Runner {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Runner{
		cfg:                cfg,
		registry:           registry,
		scorer:             scorer,
		verifier:           verifier,
		reviewer:           reviewer,
		observer:           observer,
		consistencyTimeout: time.Duration(ccfg.TimeoutSeconds) * time.Second,
	}
}

// RunOpen 开放生成模式：不带参考主体，候选只按评分竞争。
func (r *Runner) RunOpen(ctx context.Context, req types.GenerateRequest) (*types.RunResult, error) {
	if err := r.validate(req, false); err != nil {
		return nil, err
	}
	return r.run(ctx, req, false)
}

// RunSubject 主体一致生成模式：必须带参考图，候选还要过一致性关。
func (r *Runner) RunSubject(ctx context.Context, req types.GenerateRequest) (*types.RunResult, error) {
	if err := r.validate(req, true); err != nil {
		return nil, err
	}
	return r.run(ctx, req, true)
}

func (r *Runner) validate(req types.GenerateRequest, subjectBound bool) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return &ValidationError{Field: "prompt", Reason: "不能为空"}
	}
	if len(req.Providers) == 0 {
		return &ValidationError{Field: "providers", Reason: "至少指定一个提供方"}
	}
	if r.cfg.MaxProviders > 0 && len(req.Providers) > r.cfg.MaxProviders {
		return &ValidationError{Field: "providers", Reason: "超出提供方数量上限"}
	}
	if req.NumCandidates < 0 {
		return &ValidationError{Field: "num_candidates", Reason: "不能为负数"}
	}
	if !knownRatio(req.Ratio) {
		return &ValidationError{Field: "ratio", Reason: "不支持的画幅比例"}
	}
	if subjectBound && len(req.ReferenceImages) == 0 {
		return &ValidationError{Field: "reference_images", Reason: "主体模式必须提供参考图"}
	}
	return nil
}

func (r *Runner) run(ctx context.Context, req types.GenerateRequest, subjectBound bool) (*types.RunResult, error) {
	runID := uuid.NewString()
	startedAt := time.Now()
	r.observer.RunStarted(runID, req)
	logger.Infof("[pipeline] 运行 %s 开始: providers=%v candidates=%d subject=%v",
		runID, req.Providers, req.NumCandidates, subjectBound)

	result, err := r.execute(ctx, runID, req, subjectBound, startedAt)
	r.observer.RunFinished(result, err)
	if err != nil {
		logger.Warnf("[pipeline] 运行 %s 失败: %v", runID, err)
		return nil, err
	}
	logger.Infof("[pipeline] 运行 %s 完成: best=%s composite=%.3f 耗时=%s",
		runID, result.BestProvider, result.BestComposite, result.FinishedAt.Sub(result.StartedAt))
	return result, nil
}

func (r *Runner) execute(ctx context.Context, runID string, req types.GenerateRequest, subjectBound bool, startedAt time.Time) (*types.RunResult, error) {
	candidates, used, lastGenErr := r.generate(ctx, runID, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, &NoCandidatesError{Providers: req.Providers, LastErr: lastGenErr}
	}

	r.score(ctx, runID, req, candidates, subjectBound)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sel, err := selector.Pick(candidates, subjectBound)
	if err != nil {
		return nil, &NoEligibleCandidateError{Total: len(candidates)}
	}
	best := sel.Best

	var rv *types.ComparativeReview
	if len(sel.Ranked) >= 2 && r.reviewer != nil {
		begin := time.Now()
		rv = r.reviewer.Generate(ctx, req.Prompt, best, sel.Worst())
		r.emit(CallEvent{
			RunID: runID, Stage: StageReview, Target: "oracle",
			CandidateID: best.ID, Duration: time.Since(begin),
			Err: errLabel(rv == nil), At: time.Now(),
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if subjectBound {
		sortForDisplay(candidates)
	}
	return &types.RunResult{
		RunID:         runID,
		Request:       req,
		BestImage:     best.Image,
		BestProvider:  best.Provider,
		BestComposite: best.Scores.Composite,
		Candidates:    candidates,
		Review:        rv,
		ProvidersUsed: used,
		Summary:       buildSummary(best, len(candidates)),
		StartedAt:     startedAt,
		FinishedAt:    time.Now(),
	}, nil
}

// generate 并发打满所有提供方，拿回候选集。返回最后一个生成错误用于全挂时定责。
func (r *Runner) generate(ctx context.Context, runID string, req types.GenerateRequest) ([]*types.Candidate, []string, error) {
	perProvider := req.NumCandidates
	if perProvider <= 0 {
		perProvider = 1
	}
	task := "text2image"
	if len(req.ReferenceImages) > 0 {
		task = "image2image"
	}
	size := resolveSize(req.Size, req.Ratio)

	sem := semaphore.NewWeighted(int64(r.cfg.GenerateConcurrency))
	var (
		mu         sync.Mutex
		candidates []*types.Candidate
		used       []string
		lastErr    error
		submitted  int
	)
	var eg errgroup.Group
	for _, id := range req.Providers {
		adapter, ok := r.registry.Get(id)
		if !ok {
			logger.Warnf("[pipeline] 运行 %s: 提供方 %s 未注册或未启用，跳过", runID, id)
			continue
		}
		calls := 1
		variations := perProvider
		if !adapter.SupportsBurst() {
			calls = perProvider
			variations = 1
		}
		for n := 0; n < calls; n++ {
			adapter := adapter
			eg.Go(func() error {
				if err := sem.Acquire(ctx, 1); err != nil {
					return nil
				}
				defer sem.Release(1)

				callCtx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.GenerateTimeoutSeconds)*time.Second)
				defer cancel()

				begin := time.Now()
				res, err := adapter.Generate(callCtx, provider.Request{
					Task:       task,
					Prompt:     req.Prompt,
					References: req.ReferenceImages,
					Size:       size,
					Variations: variations,
					Params:     req.Params,
				})
				r.emit(CallEvent{
					RunID: runID, Stage: StageGenerate, Target: adapter.ID(),
					Duration: time.Since(begin), Err: errString(err), At: time.Now(),
				})
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					lastErr = err
					logger.Warnf("[pipeline] 运行 %s: %s 生成失败: %v", runID, adapter.ID(), err)
					return nil
				}
				for _, img := range res.Images {
					submitted++
					candidates = append(candidates, &types.Candidate{
						ID:            uuid.NewString(),
						Provider:      adapter.ID(),
						Image:         img.URL,
						SequenceIndex: img.SequenceIndex,
						GroupSize:     img.GroupSize,
						Submitted:     submitted,
					})
				}
				used = appendUnique(used, adapter.ID())
				return nil
			})
		}
	}
	_ = eg.Wait()

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Submitted < candidates[j].Submitted })
	if r.cfg.MaxCandidates > 0 && len(candidates) > r.cfg.MaxCandidates {
		logger.Warnf("[pipeline] 运行 %s: 候选 %d 个超出上限，截断到 %d", runID, len(candidates), r.cfg.MaxCandidates)
		candidates = candidates[:r.cfg.MaxCandidates]
	}
	sort.Strings(used)
	return candidates, used, lastErr
}

// score 并发对候选打分；主体模式追加一致性判定。单个失败只降级。
func (r *Runner) score(ctx context.Context, runID string, req types.GenerateRequest, candidates []*types.Candidate, subjectBound bool) {
	sem := semaphore.NewWeighted(int64(r.cfg.ScoreConcurrency))
	var eg errgroup.Group
	for _, c := range candidates {
		c := c
		eg.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			scoreCtx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.ScoreTimeoutSeconds)*time.Second)
			begin := time.Now()
			scores, err := r.scorer.Score(scoreCtx, c.Image, req.Prompt)
			cancel()
			r.emit(CallEvent{
				RunID: runID, Stage: StageScore, Target: scoreSource(scores),
				CandidateID: c.ID, Duration: time.Since(begin), Err: errString(err), At: time.Now(),
			})
			if err != nil {
				// 评分失败的候选不再进一致性判定
				logger.Warnf("[pipeline] 运行 %s: 候选 %s 评分失败: %v", runID, c.ID, err)
				return nil
			}
			c.Scores = scores

			if !subjectBound || r.verifier == nil {
				return nil
			}
			verifyCtx, cancelVerify := context.WithTimeout(ctx, r.consistencyTimeout)
			defer cancelVerify()
			begin = time.Now()
			cons, err := r.verifier.Verify(verifyCtx, req.ReferenceImages, c, req.Prompt)
			r.emit(CallEvent{
				RunID: runID, Stage: StageConsistency, Target: "oracle",
				CandidateID: c.ID, Duration: time.Since(begin), Err: errString(err), At: time.Now(),
			})
			if err != nil {
				logger.Warnf("[pipeline] 运行 %s: 候选 %s 一致性判定失败: %v", runID, c.ID, err)
				return nil
			}
			c.Consistency = cons
			return nil
		})
	}
	_ = eg.Wait()
}

// sortForDisplay 主体模式的结果候选按综合分降序展示，未评分的沉底，平手按提交顺序。
func sortForDisplay(candidates []*types.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Scored() != b.Scored() {
			return a.Scored()
		}
		if a.Scored() && a.Scores.Composite != b.Scores.Composite {
			return a.Scores.Composite > b.Scores.Composite
		}
		return a.Submitted < b.Submitted
	})
}

func (r *Runner) emit(evt CallEvent) {
	r.observer.CallObserved(evt)
}

func appendUnique(list []string, v string) []string {
	for _, item := range list {
		if item == v {
			return list
		}
	}
	return append(list, v)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func errLabel(failed bool) string {
	if failed {
		return "点评缺席"
	}
	return ""
}

func scoreSource(s *types.ScoringResult) string {
	if s == nil {
		return "oracle"
	}
	return s.Source
}
