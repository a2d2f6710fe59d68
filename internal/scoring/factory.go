package scoring

import (
	"pictor/internal/config"
	"pictor/internal/logger"
)

// BuildScorers 构造打分器序列：oracle 优先，其后按配置追加回退打分器。
func BuildScorers(cfg config.ScoringConfig, o ScoreOracle, prompts PromptSource) []Scorer {
	scorers := make([]Scorer, 0, len(cfg.Fallbacks)+1)
	if o != nil {
		scorers = append(scorers, NewOracleScorer(o, prompts))
	}
	for _, name := range cfg.Fallbacks {
		switch name {
		case "signal_stats":
			scorers = append(scorers, NewSignalStatsScorer())
		case "baseline":
			scorers = append(scorers, NewBaselineScorer(cfg.BaselineAesthetic))
		default:
			logger.Warnf("[scoring] 未知回退打分器 %s，已忽略", name)
		}
	}
	return scorers
}
