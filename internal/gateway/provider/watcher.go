package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pictor/internal/config"
	"pictor/internal/logger"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// 中文说明：
// 提供方注册表文件的加载与热更新。文件变更后做去抖重载，
// 解析失败保留现有注册表，避免坏配置把运行中的服务打空。

type presetsFile struct {
	Providers map[string]config.ProviderPreset `yaml:"providers"`
}

// LoadPresetsFile 读取注册表文件（yaml），键统一转小写。
func LoadPresetsFile(path string) (map[string]config.ProviderPreset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取提供方注册表失败: %w", err)
	}
	var file presetsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("解析提供方注册表失败: %w", err)
	}
	out := make(map[string]config.ProviderPreset, len(file.Providers))
	for id, preset := range file.Providers {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		out[id] = preset
	}
	return out, nil
}

// Watch 监听注册表文件并在变更后替换 Registry 内容。阻塞直到 ctx 结束。
func Watch(ctx context.Context, path string, registry *Registry) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// 监听目录而不是文件本身：编辑器常用 rename+create 的方式写文件。
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	var timer *time.Timer
	reload := func() {
		presets, err := LoadPresetsFile(target)
		if err != nil {
			logger.Warnf("[provider] 注册表重载失败，保留现有配置: %v", err)
			return
		}
		adapters := BuildAdapters(presets)
		registry.Replace(adapters)
		logger.Infof("[provider] 注册表已重载，当前可用: %v", registry.IDs())
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// 去抖：写入往往是多个事件连发
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(200*time.Millisecond, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("[provider] 注册表监听错误: %v", err)
		}
	}
}
