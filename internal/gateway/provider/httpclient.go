package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pictor/internal/logger"
)

// 中文说明：
// 适配器共用的 HTTP 帮助层：POST JSON + 对 429/5xx 的有限重试（支持 Retry-After）。

type httpDoer struct {
	client     *http.Client
	apiKey     string
	headers    map[string]string
	maxRetries int
}

func newHTTPDoer(apiKey string, headers map[string]string, timeout time.Duration, maxRetries int) *httpDoer {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 2
	}
	return &httpDoer{
		client:     &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		headers:    headers,
		maxRetries: maxRetries,
	}
}

func (d *httpDoer) postJSON(ctx context.Context, url string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if d.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+d.apiKey)
		}
		for k, v := range d.headers {
			req.Header.Set(k, v)
		}
		resp, err := d.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			break
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			break
		}
		if resp.StatusCode/100 == 2 {
			return data, nil
		}
		msg := extractAPIError(data)
		if msg == "" {
			msg = resp.Status
		}
		lastErr = fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
		if !retryableHTTPStatus(resp.StatusCode) || attempt >= d.maxRetries {
			break
		}
		wait := retryAfter(resp, attempt)
		logger.Debugf("[provider] 请求失败将在 %s 后重试: %v", wait, lastErr)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func retryableHTTPStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func retryAfter(resp *http.Response, attempt int) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	// 基本指数退避：0.8s, 1.6s, 3.2s ...
	wait := 800 * time.Millisecond << attempt
	if wait > 8*time.Second {
		wait = 8 * time.Second
	}
	return wait
}

func extractAPIError(body []byte) string {
	var eresp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &eresp); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(eresp.Error.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(eresp.Message)
}
