package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// 中文说明：
// OpenAI 兼容的 /images/generations 适配器（DALL·E 及同形态网关）。
// 该接口不接受参考图，image2image 请求也只下发提示词。

type OpenAIImagesAdapter struct {
	id      string
	enabled bool
	baseURL string
	model   string
	doer    *httpDoer
}

func NewOpenAIImagesAdapter(id string, enabled bool, baseURL, apiKey, model string, headers map[string]string, timeout time.Duration, maxRetries int) *OpenAIImagesAdapter {
	return &OpenAIImagesAdapter{
		id:      id,
		enabled: enabled,
		baseURL: normalizeImagesURL(baseURL),
		model:   model,
		doer:    newHTTPDoer(apiKey, headers, timeout, maxRetries),
	}
}

func normalizeImagesURL(raw string) string {
	url := strings.TrimRight(strings.TrimSpace(raw), "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	if strings.HasSuffix(url, "/images/generations") {
		return url
	}
	return url + "/images/generations"
}

func (a *OpenAIImagesAdapter) ID() string          { return a.id }
func (a *OpenAIImagesAdapter) Enabled() bool       { return a.enabled }
func (a *OpenAIImagesAdapter) SupportsBurst() bool { return false }

func (a *OpenAIImagesAdapter) Generate(ctx context.Context, req Request) (Result, error) {
	body := map[string]any{
		"model":  a.model,
		"prompt": req.Prompt,
		"n":      1,
	}
	if req.Size != "" {
		body["size"] = req.Size
	}
	data, err := a.doer.postJSON(ctx, a.baseURL, body)
	if err != nil {
		return Result{}, fmt.Errorf("%s 生成失败: %w", a.id, err)
	}
	var resp struct {
		Data []struct {
			URL     string `json:"url"`
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return Result{}, fmt.Errorf("%s 响应解析失败: %w", a.id, err)
	}
	images := make([]Image, 0, len(resp.Data))
	for _, item := range resp.Data {
		switch {
		case item.URL != "":
			images = append(images, Image{URL: item.URL})
		case item.B64JSON != "":
			images = append(images, Image{URL: "data:image/png;base64," + item.B64JSON})
		}
	}
	if len(images) == 0 {
		return Result{}, fmt.Errorf("%s 未返回有效图片", a.id)
	}
	return Result{Images: images, Metadata: map[string]any{"model": a.model}}, nil
}
