package pipeline

// ratioSizes 画幅比例到像素尺寸的固定映射。
var ratioSizes = map[string]string{
	"1:1":  "2048x2048",
	"3:4":  "1728x2304",
	"4:3":  "2304x1728",
	"9:16": "1440x2560",
	"16:9": "2560x1440",
}

const defaultSize = "2048x2048"

// resolveSize 显式尺寸优先，其次按比例查表，都没有则用默认值。
func resolveSize(size, ratio string) string {
	if size != "" {
		return size
	}
	if mapped, ok := ratioSizes[ratio]; ok {
		return mapped
	}
	return defaultSize
}

// knownRatio 校验用：空比例合法（走默认尺寸）。
func knownRatio(ratio string) bool {
	if ratio == "" {
		return true
	}
	_, ok := ratioSizes[ratio]
	return ok
}
