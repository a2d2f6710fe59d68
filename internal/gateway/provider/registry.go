package provider

import (
	"sort"
	"strings"
	"sync"
)

// Registry 以能力键（提供方 ID）索引适配器。
// 动态增删提供方只改注册表内容，编排逻辑不感知。
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	r.Replace(adapters)
	return r
}

// Replace 原子替换全部适配器（热更新入口）。
func (r *Registry) Replace(adapters []Adapter) {
	next := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		if a == nil {
			continue
		}
		id := strings.ToLower(strings.TrimSpace(a.ID()))
		if id == "" {
			continue
		}
		next[id] = a
	}
	r.mu.Lock()
	r.adapters = next
	r.mu.Unlock()
}

func (r *Registry) Get(id string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(id))]
	if !ok || !a.Enabled() {
		return nil, false
	}
	return a, true
}

// IDs 返回启用中的适配器 ID（稳定排序）。
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for id, a := range r.adapters {
		if a.Enabled() {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
