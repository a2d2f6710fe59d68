package provider

import (
	"sort"
	"strings"
	"time"

	"pictor/internal/config"
	"pictor/internal/logger"
)

// BuildAdapters 按预设构建适配器列表（按 ID 排序保证确定性）。
func BuildAdapters(presets map[string]config.ProviderPreset) []Adapter {
	ids := make([]string, 0, len(presets))
	for id := range presets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Adapter, 0, len(ids))
	for _, id := range ids {
		preset := presets[id]
		adapter := buildAdapter(strings.ToLower(strings.TrimSpace(id)), preset)
		if adapter == nil {
			continue
		}
		out = append(out, adapter)
	}
	return out
}

func buildAdapter(id string, p config.ProviderPreset) Adapter {
	if id == "" {
		return nil
	}
	timeout := time.Duration(p.TimeoutSeconds) * time.Second
	switch strings.ToLower(strings.TrimSpace(p.Kind)) {
	case "openai_images", "":
		return NewOpenAIImagesAdapter(id, p.Enabled, p.APIURL, p.APIKey, p.Model, p.Headers, timeout, p.MaxRetries)
	case "seedream":
		return NewSeedreamAdapter(id, p.Enabled, p.APIURL, p.APIKey, p.Model, p.Headers, timeout, p.MaxRetries)
	case "chat_image":
		return NewChatImageAdapter(id, p.Enabled, p.APIURL, p.APIKey, p.Model, p.Headers, timeout, p.MaxRetries)
	default:
		logger.Warnf("未知的提供方类型 %q (id=%s)，已跳过", p.Kind, id)
		return nil
	}
}
