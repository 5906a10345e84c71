// Package orchestrator wires retrieval, routing, agents, tools, and
// the confidence evaluator into one compiled graph, and projects the
// final run state into a caller-facing result.
package orchestrator

import (
	"log"
	"os"
	"strconv"

	"github.com/danielpatrickdp/brainbox/internal/model"
)

// #region tiers

// Tier is one rung of the confidence-gated retry ladder.
type Tier struct {
	ID      string
	Options model.Options
}

// #endregion tiers

// #region config

// Config carries the engine knobs. All thresholds compare with >=.
type Config struct {
	TopK                int
	MaxSteps            int
	MinRetrievalSupport float64
	MinAnswerCoverage   float64
	Tiers               []Tier
}

// DefaultConfig returns the stock configuration with environment
// overrides applied:
//
//	BRAINBOX_TOP_K          fused documents returned per query
//	BRAINBOX_MAX_STEPS      tool-round ceiling per run
//	BRAINBOX_MIN_SUPPORT    retrieval-support acceptance threshold
//	BRAINBOX_MIN_COVERAGE   answer-coverage acceptance threshold
func DefaultConfig() Config {
	cfg := Config{
		TopK:                5,
		MaxSteps:            5,
		MinRetrievalSupport: 0.3,
		MinAnswerCoverage:   0.2,
		Tiers: []Tier{
			{ID: "TIER_1", Options: model.Options{Temperature: 0.1}},
			{ID: "TIER_2", Options: model.Options{Temperature: 0.3}},
		},
	}
	cfg.TopK = envInt("BRAINBOX_TOP_K", cfg.TopK)
	cfg.MaxSteps = envInt("BRAINBOX_MAX_STEPS", cfg.MaxSteps)
	cfg.MinRetrievalSupport = envFloat("BRAINBOX_MIN_SUPPORT", cfg.MinRetrievalSupport)
	cfg.MinAnswerCoverage = envFloat("BRAINBOX_MIN_COVERAGE", cfg.MinAnswerCoverage)
	return cfg
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("[CONFIG] invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("[CONFIG] invalid %s=%q, using %g", key, raw, fallback)
		return fallback
	}
	return v
}

// #endregion config
