package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// 中文说明：
// Ark Seedream 适配器：支持参考图与按序批量出图（sequential_image_generation）。
// 单次调用返回的有序多图会带上 SequenceIndex/GroupSize。

type SeedreamAdapter struct {
	id      string
	enabled bool
	baseURL string
	model   string
	doer    *httpDoer
}

func NewSeedreamAdapter(id string, enabled bool, baseURL, apiKey, model string, headers map[string]string, timeout time.Duration, maxRetries int) *SeedreamAdapter {
	return &SeedreamAdapter{
		id:      id,
		enabled: enabled,
		baseURL: normalizeImagesURL(baseURL),
		model:   model,
		doer:    newHTTPDoer(apiKey, headers, timeout, maxRetries),
	}
}

func (a *SeedreamAdapter) ID() string          { return a.id }
func (a *SeedreamAdapter) Enabled() bool       { return a.enabled }
func (a *SeedreamAdapter) SupportsBurst() bool { return true }

func (a *SeedreamAdapter) Generate(ctx context.Context, req Request) (Result, error) {
	variations := req.Variations
	if variations < 1 {
		variations = 1
	}
	body := map[string]any{
		"model":  a.model,
		"prompt": req.Prompt,
	}
	if req.Size != "" {
		body["size"] = req.Size
	}
	if len(req.References) > 0 {
		// 单图直接传字符串，多图传数组（Ark 两种形态都接受，保持与参考图数量一致）
		if len(req.References) == 1 {
			body["image"] = req.References[0]
		} else {
			body["image"] = req.References
		}
	}
	if variations > 1 {
		body["sequential_image_generation"] = "auto"
		body["sequential_image_generation_options"] = map[string]any{"max_images": variations}
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
		Usage map[string]any `json:"usage"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return Result{}, fmt.Errorf("%s 响应解析失败: %w", a.id, err)
	}
	urls := make([]string, 0, len(resp.Data))
	for _, item := range resp.Data {
		switch {
		case strings.TrimSpace(item.URL) != "":
			urls = append(urls, item.URL)
		case item.B64JSON != "":
			urls = append(urls, "data:image/png;base64,"+item.B64JSON)
		}
	}
	if len(urls) == 0 {
		return Result{}, fmt.Errorf("%s 未返回有效图片", a.id)
	}
	if len(urls) > variations {
		urls = urls[:variations]
	}
	images := make([]Image, 0, len(urls))
	groupSize := 0
	if len(urls) > 1 {
		groupSize = len(urls)
	}
	for i, u := range urls {
		images = append(images, Image{URL: u, SequenceIndex: i, GroupSize: groupSize})
	}
	return Result{Images: images, Metadata: map[string]any{"model": a.model, "delivered": len(urls)}}, nil
}
