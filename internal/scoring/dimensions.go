package scoring

import "math"

// 中文说明：
// 固定维度分类与 oracle 原生标签映射。
// oracle 侧按 1~10 打分，这里统一归一化到 [0,1]（保留三位小数）。

// 固定五个基础维度 + 综合分。
const (
	DimPromptFidelity       = "prompt_fidelity"
	DimStructuralIntegrity  = "structural_integrity"
	DimPhysicalPlausibility = "physical_plausibility"
	DimCleanliness          = "cleanliness"
	DimAestheticAppeal      = "aesthetic_appeal"
	DimComposite            = "composite"
)

// BaseDimensions 基础维度全集（不含 composite）。
var BaseDimensions = []string{
	DimPromptFidelity,
	DimStructuralIntegrity,
	DimPhysicalPlausibility,
	DimCleanliness,
	DimAestheticAppeal,
}

// mappingPriority 原生标签 → 固定维度。
// 第一组对应新版 AIGC 原生指标，第二组兼容旧版输出；同名直通放在最前。
var mappingPriority = []map[string]string{
	{
		DimPromptFidelity:       DimPromptFidelity,
		DimStructuralIntegrity:  DimStructuralIntegrity,
		DimPhysicalPlausibility: DimPhysicalPlausibility,
		DimCleanliness:          DimCleanliness,
		DimAestheticAppeal:      DimAestheticAppeal,
	},
	{
		"prompt_adherence":     DimPromptFidelity,
		"anatomical_integrity": DimStructuralIntegrity,
		"physical_logic":       DimPhysicalPlausibility,
		"aesthetic_value":      DimAestheticAppeal,
	},
	{
		"semantic_fidelity": DimPromptFidelity,
		"clarity_integrity": DimStructuralIntegrity,
		"composition":       DimPhysicalPlausibility,
		"style_coherence":   DimCleanliness,
		"light_color":       DimAestheticAppeal,
	},
}

// MapDimension 按优先级把原生标签映射到固定维度。
func MapDimension(label string) (string, bool) {
	for _, tier := range mappingPriority {
		if dim, ok := tier[label]; ok {
			return dim, true
		}
	}
	return "", false
}

// mapReport 按优先级逐组吸收原生标签，先到先得，保证同维度的取值确定。
func mapReport(labels map[string]bool) map[string]string {
	picked := make(map[string]string)
	for _, tier := range mappingPriority {
		for label, dim := range tier {
			if !labels[label] {
				continue
			}
			if _, exists := picked[dim]; exists {
				continue
			}
			picked[dim] = label
		}
	}
	return picked
}

// NormalizeTen 把 1~10 分制压到 [0,1]，保留三位小数。
func NormalizeTen(v float64) float64 {
	if v < 0 {
		v = 0
	}
	if v > 10 {
		v = 10
	}
	return math.Round(v/10*1000) / 1000
}
