package review

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"pictor/internal/logger"
	"pictor/internal/pkg/jsonutil"
	"pictor/internal/types"
)

// 中文说明：
// 对比点评：最佳 vs 最差候选交给视觉裁判生成结构化点评。
// 输出经 JSON Schema 校验，不合规自动重试一次；仍失败则放弃点评（不算运行失败）。

const reviewSchemaJSON = `{
  "type": "object",
  "required": ["title", "analysis", "key_difference"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "analysis": {"type": "string", "minLength": 1},
    "key_difference": {"type": "string", "minLength": 1}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
)

func reviewSchema() *jsonschema.Schema {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("review.json", strings.NewReader(reviewSchemaJSON)); err != nil {
			panic(err)
		}
		compiledSchema = compiler.MustCompile("review.json")
	})
	return compiledSchema
}

// Oracle 对比点评裁判的窄接口，返回已剥离代码块围栏的文本。
type Oracle interface {
	Compare(ctx context.Context, images []string, prompt string) (string, error)
}

// PromptSource 构造对比点评提示词。
type PromptSource interface {
	Compare(flavor, promptText, scoreBlock string) string
}

// Reviewer 生成最佳/最差候选的对比点评。
type Reviewer struct {
	oracle  Oracle
	prompts PromptSource
	flavor  string
}

// NewReviewer flavor 为 general / commerce，空值按 general 处理。
func NewReviewer(o Oracle, prompts PromptSource, flavor string) *Reviewer {
	if flavor == "" {
		flavor = "general"
	}
	return &Reviewer{oracle: o, prompts: prompts, flavor: flavor}
}

// Generate 产出对比点评。best 与 worst 必须是不同的已评分候选，否则返回 nil。
// 点评失败不向上传播错误，只记日志。
func (r *Reviewer) Generate(ctx context.Context, promptText string, best, worst *types.Candidate) *types.ComparativeReview {
	if best == nil || worst == nil || best.ID == worst.ID {
		return nil
	}
	if !best.Scored() || !worst.Scored() {
		return nil
	}
	userPrompt := r.prompts.Compare(r.flavor, promptText, scoreBlock(best, worst))
	images := []string{best.Image, worst.Image}

	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil
		}
		raw, err := r.oracle.Compare(ctx, images, userPrompt)
		if err != nil {
			logger.Warnf("[review] 对比点评调用失败(第 %d 次): %v", attempt+1, err)
			continue
		}
		review, err := parseReview(raw)
		if err != nil {
			logger.Warnf("[review] 对比点评输出不合规(第 %d 次): %v", attempt+1, err)
			continue
		}
		return review
	}
	logger.Warnf("[review] 对比点评最终失败，本次运行不带点评")
	return nil
}

func parseReview(raw string) (*types.ComparativeReview, error) {
	if extracted, ok := jsonutil.ExtractJSON(raw); ok {
		raw = extracted
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("非法 JSON: %w", err)
	}
	if err := reviewSchema().Validate(doc); err != nil {
		return nil, err
	}
	var review types.ComparativeReview
	if err := json.Unmarshal([]byte(raw), &review); err != nil {
		return nil, err
	}
	return &review, nil
}

// scoreBlock 生成 10 分制评分概要：最佳/最差并排，附每维差值。
func scoreBlock(best, worst *types.Candidate) string {
	dims := make(map[string]struct{})
	for d := range best.Scores.Dimensions {
		dims[d] = struct{}{}
	}
	for d := range worst.Scores.Dimensions {
		dims[d] = struct{}{}
	}
	names := make([]string, 0, len(dims))
	for d := range dims {
		names = append(names, d)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "综合分：最佳 %.1f vs 最差 %.1f\n", best.Scores.Composite*10, worst.Scores.Composite*10)
	for _, d := range names {
		bv := best.Scores.Dimensions[d] * 10
		wv := worst.Scores.Dimensions[d] * 10
		fmt.Fprintf(&b, "%s：%.1f vs %.1f（差 %+.1f）\n", d, bv, wv, bv-wv)
	}
	return strings.TrimRight(b.String(), "\n")
}
