package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"pictor/internal/config"
	"pictor/internal/logger"
	"pictor/internal/pkg/jsonutil"
)

// 中文说明：
// 视觉评分 oracle 客户端（chat completions 形态，兼容 Ark/Doubao 与 OpenAI 风格网关）。
// 三类调用：单图评分、多图对比、主体一致性校验。
// 对 429/5xx 做有限重试（指数退避+抖动）；所有请求贯穿 ctx 以支持取消。

const (
	backoffBase   = 800 * time.Millisecond
	backoffJitter = 250 * time.Millisecond
)

type Client struct {
	apiURL     string
	apiKey     string
	model      string
	headers    map[string]string
	timeout    time.Duration
	maxRetries int

	httpc *http.Client
}

func NewClient(cfg config.OracleConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 2
	}
	return &Client{
		apiURL:     normalizeChatURL(cfg.APIURL),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		headers:    cfg.Headers,
		timeout:    timeout,
		maxRetries: retries,
		httpc:      &http.Client{Timeout: timeout},
	}
}

// 规范化 BaseURL：配置里写全路径或基础路径均可。
func normalizeChatURL(raw string) string {
	url := strings.TrimRight(strings.TrimSpace(raw), "/")
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	if strings.HasSuffix(url, "/chat/completions") {
		return url
	}
	return url + "/chat/completions"
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

func imageContent(source string) map[string]any {
	return map[string]any{
		"type":      "image_url",
		"image_url": map[string]any{"url": source},
	}
}

func textContent(text string) map[string]any {
	return map[string]any{"type": "text", "text": text}
}

// Score 对单张候选图做多维度评分，返回原生 1~10 分制结果。
func (c *Client) Score(ctx context.Context, image, systemPrompt, userPrompt string) (*ScoreReport, error) {
	msgs := []message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: []map[string]any{
			imageContent(image),
			textContent(userPrompt),
		}},
	}
	raw, err := c.complete(ctx, "score", msgs, []string{image}, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	report, err := ParseScoreReport(raw)
	if err != nil {
		return nil, fmt.Errorf("oracle score 响应解析失败: %w", err)
	}
	return report, nil
}

// Compare 将多张图交给 oracle 做结构化对比，返回剥离代码围栏后的 JSON 文本。
// 输出契约由调用方（review 包）校验。
func (c *Client) Compare(ctx context.Context, images []string, prompt string) (string, error) {
	content := make([]map[string]any, 0, len(images)+1)
	for _, img := range images {
		content = append(content, imageContent(img))
	}
	content = append(content, textContent(prompt))
	msgs := []message{
		{Role: "system", Content: "You are a professional visual art critic. Please output in pure JSON format."},
		{Role: "user", Content: content},
	}
	raw, err := c.complete(ctx, "compare", msgs, images, "", prompt)
	if err != nil {
		return "", err
	}
	return StripJSONFence(raw), nil
}

// VerifyConsistency 比较候选图与参考图的主体一致性，Score 钳制到 [0,1]。
func (c *Client) VerifyConsistency(ctx context.Context, references []string, candidate, prompt string) (*ConsistencyJudgment, error) {
	content := make([]map[string]any, 0, len(references)+2)
	for _, ref := range references {
		content = append(content, imageContent(ref))
	}
	content = append(content, imageContent(candidate))
	content = append(content, textContent(prompt))
	msgs := []message{{Role: "user", Content: content}}
	images := append(append([]string{}, references...), candidate)
	raw, err := c.complete(ctx, "consistency", msgs, images, "", prompt)
	if err != nil {
		return nil, err
	}
	score, comment, ok := ScanConsistency(raw)
	if !ok {
		return nil, fmt.Errorf("未能从 oracle 响应中提取一致性分数")
	}
	return &ConsistencyJudgment{Score: clamp01(score), Comment: comment}, nil
}

// complete 发送一次 chat completions 请求并返回 message content 文本。
func (c *Client) complete(ctx context.Context, kind string, msgs []message, images []string, systemPrompt, userPrompt string) (string, error) {
	body := map[string]any{
		"model":           c.model,
		"messages":        msgs,
		"response_format": map[string]string{"type": "json_object"},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	logger.LogOracleRequest(kind, c.model, systemPrompt, userPrompt, images, string(payload))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffBase*time.Duration(attempt) + time.Duration(rand.Int63n(int64(backoffJitter)))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
		raw, retryable, err := c.post(ctx, payload)
		if err == nil {
			logger.LogOracleResponse(kind, c.model, jsonutil.Pretty(raw))
			return raw, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.Warnf("[oracle] %s 第 %d/%d 次调用失败: %v", kind, attempt+1, c.maxRetries+1, err)
		if !retryable {
			break
		}
	}
	return "", lastErr
}

func (c *Client) post(ctx context.Context, payload []byte) (content string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, err
	}
	if resp.StatusCode/100 != 2 {
		msg := ExtractErrorMessage(data)
		if msg == "" {
			msg = resp.Status
		}
		return "", retryableStatus(resp.StatusCode), fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
	}
	text := ExtractContent(data)
	if strings.TrimSpace(text) == "" {
		if msg := ExtractErrorMessage(data); msg != "" {
			return "", false, fmt.Errorf("oracle 返回错误: %s", msg)
		}
		return "", false, fmt.Errorf("oracle 响应缺少内容")
	}
	return text, false, nil
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooEarly,
		http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MaskedKey 仅用于调试日志展示密钥尾部。
func (c *Client) MaskedKey() string {
	if c.apiKey == "" {
		return ""
	}
	if len(c.apiKey) <= 4 {
		return "****"
	}
	return "****" + c.apiKey[len(c.apiKey)-4:]
}
