package prompt

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"pictor/internal/config"
	"pictor/internal/logger"
)

// 中文说明：
// 提示词管理：内置默认模板，支持从目录按文件名覆盖（scoring_system.txt 等）。
// 模板占位符用 {{PROMPT}} / {{COUNT}} 文本替换，避免用户输入里的 % 干扰格式化。

const (
	keyScoringSystem   = "scoring_system"
	keyScoringUser     = "scoring_user"
	keyConsistency     = "consistency"
	keyCompareGeneral  = "compare_general"
	keyCompareCommerce = "compare_commerce"
)

const defaultScoringSystem = `你是一名严格的 AIGC 图像质量评审员。对给定图片逐维打分（1~10 整数或一位小数），仅输出纯 JSON，不要任何额外文字或代码块标记。
输出格式：
{
  "prompt_fidelity": {"score": 8, "comment": "简短点评"},
  "structural_integrity": {"score": 7, "comment": "简短点评"},
  "physical_plausibility": {"score": 8, "comment": "简短点评"},
  "cleanliness": {"score": 9, "comment": "简短点评"},
  "aesthetic_appeal": {"score": 7, "comment": "简短点评"}
}
维度说明：
- prompt_fidelity：画面与生成指令的贴合度
- structural_integrity：人体/物体结构是否完整无畸形（手指、肢体、文字等）
- physical_plausibility：光影、透视、物理逻辑是否合理
- cleanliness：有无噪点、伪影、水印、多余元素
- aesthetic_appeal：构图、色彩、整体美感`

const defaultScoringUser = `生成指令：{{PROMPT}}
请按系统要求对这张图片打分。`

const defaultConsistency = `前 {{COUNT}} 张为参考图，最后一张为候选图。判断候选图中的主体（人物/产品/IP 形象）与参考图是否为同一主体。
生成指令（背景信息）：{{PROMPT}}
仅输出纯 JSON：{"score": 0.0 到 1.0 的一致性得分, "comment": "简短判定理由"}
score 含义：1.0 完全同一主体；0.5 左右难以判断；0.0 明显不是同一主体。忽略姿态、构图、光线差异，只看主体本身特征。`

const defaultCompareGeneral = `以下是同一生成指令下的两张图：第一张为综合评分最高的候选，第二张为最低的候选。
生成指令：{{PROMPT}}
评分概要（10 分制）：
{{SCORES}}
请对比两图，说明最佳候选胜出的关键原因。仅输出纯 JSON：
{"title": "一句话结论", "analysis": "两段以内的对比分析", "key_difference": "最关键的单点差异"}`

const defaultCompareCommerce = `以下是同一商品生成指令下的两张图：第一张为综合评分最高的候选，第二张为最低的候选。
生成指令：{{PROMPT}}
评分概要（10 分制）：
{{SCORES}}
请从商品可用性角度对比（主体清晰度、卖点呈现、画面干净程度、是否适合直接投放）。仅输出纯 JSON：
{"title": "一句话结论", "analysis": "两段以内的对比分析", "key_difference": "最关键的单点差异"}`

var builtin = map[string]string{
	keyScoringSystem:   defaultScoringSystem,
	keyScoringUser:     defaultScoringUser,
	keyConsistency:     defaultConsistency,
	keyCompareGeneral:  defaultCompareGeneral,
	keyCompareCommerce: defaultCompareCommerce,
}

// Manager 提示词查询入口，覆盖文件只在构造时读取一次。
type Manager struct {
	mu        sync.RWMutex
	overrides map[string]string
}

func NewManager(cfg config.PromptConfig) *Manager {
	m := &Manager{overrides: map[string]string{}}
	if cfg.Dir != "" {
		m.loadOverrides(cfg.Dir)
	}
	return m
}

func (m *Manager) loadOverrides(dir string) {
	for key := range builtin {
		path := filepath.Join(dir, key+".txt")
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Warnf("[prompt] 读取覆盖模板 %s 失败: %v", path, err)
			}
			continue
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}
		m.overrides[key] = text
		logger.Infof("[prompt] 已加载覆盖模板: %s", key)
	}
}

func (m *Manager) template(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.overrides[key]; ok {
		return t
	}
	return builtin[key]
}

// ScoringSystem 打分系统提示词。
func (m *Manager) ScoringSystem() string {
	return m.template(keyScoringSystem)
}

// ScoringUser 打分用户提示词（填入生成指令）。
func (m *Manager) ScoringUser(promptText string) string {
	return fill(m.template(keyScoringUser), map[string]string{"PROMPT": promptText})
}

// Consistency 一致性比对提示词。参考图数量在调用时填入。
func (m *Manager) Consistency(promptText string) string {
	return fill(m.template(keyConsistency), map[string]string{"PROMPT": promptText})
}

// ConsistencyWithCount 需要标注参考图张数时使用。
func (m *Manager) ConsistencyWithCount(promptText string, refCount int) string {
	return fill(m.template(keyConsistency), map[string]string{
		"PROMPT": promptText,
		"COUNT":  strconv.Itoa(refCount),
	})
}

// Compare 对比点评提示词，flavor 为 general / commerce。
func (m *Manager) Compare(flavor, promptText, scoreBlock string) string {
	key := keyCompareGeneral
	if flavor == "commerce" {
		key = keyCompareCommerce
	}
	return fill(m.template(key), map[string]string{
		"PROMPT": promptText,
		"SCORES": scoreBlock,
	})
}

func fill(tmpl string, vars map[string]string) string {
	out := tmpl
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}
