package scoring

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"strings"

	"pictor/internal/types"
)

// 中文说明：
// 本地回退打分器：oracle 不可用时兜底，只产出 aesthetic_appeal 一个维度。
// signal_stats 基于图像字节熵估算信息量，baseline 直接给固定先验分。

// SignalStatsScorer 对 data URI 图像做字节熵统计。
type SignalStatsScorer struct{}

func NewSignalStatsScorer() *SignalStatsScorer { return &SignalStatsScorer{} }

func (s *SignalStatsScorer) Name() string { return "signal_stats" }

func (s *SignalStatsScorer) Score(_ context.Context, image, _ string) (*types.ScoringResult, error) {
	raw, err := decodeDataURI(image)
	if err != nil {
		return nil, err
	}
	entropy := byteEntropy(raw)
	// 8 bit 熵满格记 1.0；压缩后的正常图像通常在 0.9 以上。
	score := math.Round(entropy/8*1000) / 1000
	if score > 1 {
		score = 1
	}
	return &types.ScoringResult{
		Dimensions: map[string]float64{DimAestheticAppeal: score},
		Comments:   map[string]string{DimAestheticAppeal: "本地信号统计估分"},
	}, nil
}

func decodeDataURI(image string) ([]byte, error) {
	if !strings.HasPrefix(image, "data:") {
		return nil, errors.New("signal_stats 仅支持 data URI 图像")
	}
	idx := strings.Index(image, ",")
	if idx < 0 {
		return nil, errors.New("data URI 缺少载荷")
	}
	if !strings.Contains(image[:idx], ";base64") {
		return nil, errors.New("data URI 非 base64 编码")
	}
	raw, err := base64.StdEncoding.DecodeString(image[idx+1:])
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("data URI 载荷为空")
	}
	return raw, nil
}

func byteEntropy(data []byte) float64 {
	var counts [256]int
	for _, b := range data {
		counts[b]++
	}
	total := float64(len(data))
	var entropy float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// BaselineScorer 永不失败的固定先验分。
type BaselineScorer struct {
	aesthetic float64
}

func NewBaselineScorer(aesthetic float64) *BaselineScorer {
	if aesthetic <= 0 || aesthetic > 1 {
		aesthetic = 0.5
	}
	return &BaselineScorer{aesthetic: aesthetic}
}

func (s *BaselineScorer) Name() string { return "baseline" }

func (s *BaselineScorer) Score(_ context.Context, _, _ string) (*types.ScoringResult, error) {
	return &types.ScoringResult{
		Dimensions: map[string]float64{DimAestheticAppeal: s.aesthetic},
		Comments:   map[string]string{DimAestheticAppeal: "先验兜底分"},
	}, nil
}
