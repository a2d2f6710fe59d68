package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Oracle.validate(); err != nil {
		return err
	}
	if err := c.Scoring.validate(); err != nil {
		return err
	}
	if err := c.Consistency.validate(); err != nil {
		return err
	}
	if err := c.Pipeline.validate(); err != nil {
		return err
	}
	if err := c.Providers.validate(); err != nil {
		return err
	}
	return nil
}

func (o *OracleConfig) validate() error {
	if strings.TrimSpace(o.APIURL) == "" {
		return fmt.Errorf("oracle.api_url cannot be empty")
	}
	if strings.TrimSpace(o.Model) == "" {
		return fmt.Errorf("oracle.model cannot be empty")
	}
	if o.TimeoutSeconds <= 0 {
		return fmt.Errorf("oracle.timeout_seconds must be > 0")
	}
	return nil
}

func (s *ScoringConfig) validate() error {
	var sum float64
	for name, w := range s.Weights {
		if w < 0 {
			return fmt.Errorf("scoring.weights.%s must be >= 0", name)
		}
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("scoring.weights must sum to a positive value")
	}
	if s.VetoThreshold < 0 || s.VetoThreshold > 1 {
		return fmt.Errorf("scoring.veto_threshold must be within [0,1]")
	}
	if s.VetoCap < 0 || s.VetoCap > 1 {
		return fmt.Errorf("scoring.veto_cap must be within [0,1]")
	}
	switch s.ReviewFlavor {
	case "", "general", "commerce":
	default:
		return fmt.Errorf("scoring.review_flavor must be general or commerce")
	}
	return nil
}

func (c *ConsistencyConfig) validate() error {
	if c.ConsistentMin <= c.UncertainMin {
		return fmt.Errorf("consistency.consistent_min must be greater than uncertain_min")
	}
	if c.UncertainMin < 0 || c.ConsistentMin > 1 {
		return fmt.Errorf("consistency thresholds must be within [0,1]")
	}
	return nil
}

func (p *PipelineConfig) validate() error {
	if p.GenerateConcurrency <= 0 || p.ScoreConcurrency <= 0 {
		return fmt.Errorf("pipeline concurrency limits must be > 0")
	}
	if p.GenerateTimeoutSeconds <= 0 || p.ScoreTimeoutSeconds <= 0 {
		return fmt.Errorf("pipeline timeouts must be > 0")
	}
	if p.MaxCandidates <= 0 {
		return fmt.Errorf("pipeline.max_candidates must be > 0")
	}
	return nil
}

func (p *ProvidersConfig) validate() error {
	for id, preset := range p.Presets {
		if !preset.Enabled {
			continue
		}
		if strings.TrimSpace(preset.APIURL) == "" {
			return fmt.Errorf("providers.presets.%s missing api_url", id)
		}
		switch preset.Kind {
		case "openai_images", "seedream", "chat_image":
		default:
			return fmt.Errorf("providers.presets.%s has unknown kind %q", id, preset.Kind)
		}
	}
	return nil
}
