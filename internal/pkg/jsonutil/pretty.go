package jsonutil

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Pretty 美化 JSON 文本，主要用于 oracle 调用日志；不是合法 JSON 时原样返回。
func Pretty(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}
