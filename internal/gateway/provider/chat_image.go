package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// 中文说明：
// 通用 chat 出图适配器（Qwen 等把图片放进 chat completions 响应的网关）。
// 提示词与参考图走多模态 messages，响应里递归找 image_url / url 字段。

type ChatImageAdapter struct {
	id      string
	enabled bool
	baseURL string
	model   string
	doer    *httpDoer
}

func NewChatImageAdapter(id string, enabled bool, baseURL, apiKey, model string, headers map[string]string, timeout time.Duration, maxRetries int) *ChatImageAdapter {
	url := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasSuffix(url, "/chat/completions") {
		url += "/chat/completions"
	}
	return &ChatImageAdapter{
		id:      id,
		enabled: enabled,
		baseURL: url,
		model:   model,
		doer:    newHTTPDoer(apiKey, headers, timeout, maxRetries),
	}
}

func (a *ChatImageAdapter) ID() string          { return a.id }
func (a *ChatImageAdapter) Enabled() bool       { return a.enabled }
func (a *ChatImageAdapter) SupportsBurst() bool { return false }

func (a *ChatImageAdapter) Generate(ctx context.Context, req Request) (Result, error) {
	content := make([]map[string]any, 0, len(req.References)+1)
	for _, ref := range req.References {
		content = append(content, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": ref},
		})
	}
	prompt := req.Prompt
	if req.Size != "" {
		prompt = fmt.Sprintf("%s\n目标尺寸: %s", prompt, req.Size)
	}
	content = append(content, map[string]any{"type": "text", "text": prompt})
	body := map[string]any{
		"model":    a.model,
		"messages": []map[string]any{{"role": "user", "content": content}},
	}
	data, err := a.doer.postJSON(ctx, a.baseURL, body)
	if err != nil {
		return Result{}, fmt.Errorf("%s 生成失败: %w", a.id, err)
	}
	urls := extractImageURLs(data)
	if len(urls) == 0 {
		return Result{}, fmt.Errorf("%s 未返回有效图片", a.id)
	}
	images := make([]Image, 0, len(urls))
	for _, u := range urls {
		images = append(images, Image{URL: u})
	}
	return Result{Images: images, Metadata: map[string]any{"model": a.model}}, nil
}

// extractImageURLs 从 chat 响应中收集图片地址（message.images / content 分段 / markdown 链接）。
func extractImageURLs(body []byte) []string {
	root := gjson.ParseBytes(body)
	seen := make(map[string]bool)
	var urls []string
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			return
		}
		if !strings.HasPrefix(u, "http") && !strings.HasPrefix(u, "data:") {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}
	root.Get("choices.0.message.images").ForEach(func(_, item gjson.Result) bool {
		add(item.Get("image_url.url").String())
		add(item.String())
		return true
	})
	content := root.Get("choices.0.message.content")
	if content.IsArray() {
		content.ForEach(func(_, part gjson.Result) bool {
			add(part.Get("image_url.url").String())
			return true
		})
	} else if content.Type == gjson.String {
		for _, line := range strings.Fields(content.String()) {
			if strings.HasPrefix(line, "http") {
				add(strings.Trim(line, "()[]"))
			}
		}
	}
	return urls
}
