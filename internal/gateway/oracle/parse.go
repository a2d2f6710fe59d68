package oracle

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"pictor/internal/pkg/jsonutil"
)

// 中文说明：
// oracle 响应解析：content 提取、代码围栏剥离、维度报告与一致性分数扫描。
// 不同网关的返回结构并不统一，这里对常见嵌套形态做宽容处理。

// ExtractContent 从 chat completions 响应体中提取文本内容。
// 兼容 content 为字符串或分段数组两种形态，以及旧式 output/data 包装。
func ExtractContent(body []byte) string {
	root := gjson.ParseBytes(body)

	if content := root.Get("choices.0.message.content"); content.Exists() {
		if content.IsArray() {
			var b strings.Builder
			content.ForEach(func(_, part gjson.Result) bool {
				if text := part.Get("text"); text.Exists() {
					b.WriteString(text.String())
				}
				return true
			})
			return b.String()
		}
		return content.String()
	}
	for _, path := range []string{"output.text", "output.result", "output.content", "data.text", "data.result", "data.content"} {
		if v := root.Get(path); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}

// StripJSONFence 去掉 ```json 代码围栏。
func StripJSONFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return ""
	}
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
		if strings.HasSuffix(cleaned, "```") {
			cleaned = strings.TrimSpace(cleaned[:len(cleaned)-3])
		}
	}
	return cleaned
}

// ExtractErrorMessage 从响应体里找业务错误信息（error.message / message / code 非零）。
func ExtractErrorMessage(body []byte) string {
	root := gjson.ParseBytes(body)
	for _, path := range []string{"error.message", "error.detail", "message"} {
		if v := root.Get(path); v.Exists() && v.Type == gjson.String {
			if text := strings.TrimSpace(v.String()); text != "" {
				return text
			}
		}
	}
	if code := root.Get("code"); code.Exists() {
		switch code.Type {
		case gjson.String:
			normalized := strings.ToLower(strings.TrimSpace(code.String()))
			if normalized != "" && normalized != "0" && normalized != "200" && normalized != "success" {
				return code.String()
			}
		case gjson.Number:
			if n := code.Int(); n != 0 && n != 200 {
				return fmt.Sprintf("%d", n)
			}
		}
	}
	return ""
}

// ParseScoreReport 把评分 JSON 解析为原生维度报告。
// 每个维度既可能是 {"score": 8, "comment": "..."} 对象，也可能是裸数值。
func ParseScoreReport(text string) (*ScoreReport, error) {
	cleaned := StripJSONFence(text)
	if !gjson.Valid(cleaned) {
		// 模型偶尔在 JSON 前后夹带说明文字，做一次抠取兜底。
		if extracted, ok := jsonutil.ExtractJSON(text); ok {
			cleaned = extracted
		}
	}
	if cleaned == "" || !gjson.Valid(cleaned) {
		return nil, fmt.Errorf("评分内容不是有效 JSON")
	}
	root := gjson.Parse(cleaned)
	if !root.IsObject() {
		return nil, fmt.Errorf("评分内容根节点必须是 JSON 对象")
	}

	report := &ScoreReport{Dimensions: make(map[string]DimensionScore)}
	root.ForEach(func(key, value gjson.Result) bool {
		name := strings.ToLower(strings.TrimSpace(key.String()))
		if name == "" {
			return true
		}
		if name == "final_score" || name == "composite" || name == "overall" {
			if value.Type == gjson.Number {
				report.Final = value.Float()
				report.HasFinal = true
			} else if s := value.Get("score"); s.Type == gjson.Number {
				report.Final = s.Float()
				report.HasFinal = true
			}
			return true
		}
		switch {
		case value.IsObject():
			score := value.Get("score")
			if score.Type != gjson.Number {
				return true
			}
			report.Dimensions[name] = DimensionScore{
				Score:   score.Float(),
				Comment: strings.TrimSpace(value.Get("comment").String()),
			}
		case value.Type == gjson.Number:
			report.Dimensions[name] = DimensionScore{Score: value.Float()}
		}
		return true
	})
	if len(report.Dimensions) == 0 && !report.HasFinal {
		return nil, fmt.Errorf("评分内容未包含任何维度")
	}
	return report, nil
}

var consistencyScoreKeys = []string{"score", "similarity", "consistency", "consistency_score"}

// ScanConsistency 在响应文本中递归寻找一致性分数与短评。
// 分数 >1 时按百分制换算；超过 100 视为满分。
func ScanConsistency(text string) (score float64, comment string, ok bool) {
	cleaned := StripJSONFence(text)
	if !gjson.Valid(cleaned) {
		if extracted, found := jsonutil.ExtractJSON(text); found {
			cleaned = extracted
		}
	}
	if cleaned == "" || !gjson.Valid(cleaned) {
		return 0, "", false
	}
	return scanConsistencyNode(gjson.Parse(cleaned), 0)
}

func scanConsistencyNode(node gjson.Result, depth int) (float64, string, bool) {
	if depth > 6 {
		return 0, "", false
	}
	if node.IsObject() {
		for _, key := range consistencyScoreKeys {
			v := node.Get(key)
			if v.Type != gjson.Number {
				continue
			}
			return normalizeConsistencyScore(v.Float()), strings.TrimSpace(node.Get("comment").String()), true
		}
		// 文本字段里可能嵌套一层 JSON
		for _, key := range []string{"text", "content", "result"} {
			v := node.Get(key)
			if v.Type != gjson.String {
				continue
			}
			inner := StripJSONFence(v.String())
			if gjson.Valid(inner) {
				if score, comment, ok := scanConsistencyNode(gjson.Parse(inner), depth+1); ok {
					return score, comment, true
				}
			}
		}
		for _, key := range []string{"output", "data", "answer", "response", "extra"} {
			if v := node.Get(key); v.Exists() {
				if score, comment, ok := scanConsistencyNode(v, depth+1); ok {
					return score, comment, true
				}
			}
		}
		return 0, "", false
	}
	if node.IsArray() {
		var found bool
		var score float64
		var comment string
		node.ForEach(func(_, item gjson.Result) bool {
			if s, c, ok := scanConsistencyNode(item, depth+1); ok {
				score, comment, found = s, c, true
				return false
			}
			return true
		})
		return score, comment, found
	}
	return 0, "", false
}

func normalizeConsistencyScore(v float64) float64 {
	if v > 1 {
		if v <= 100 {
			return v / 100
		}
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
