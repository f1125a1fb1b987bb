// Package config loads pipeline settings from an optional YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ExtractionConfig controls frame sampling.
type ExtractionConfig struct {
	// Interval is the time between sampled frames in seconds.
	Interval float64 `yaml:"interval"`
	// MaxFrames caps how many frames a single run will ingest.
	MaxFrames int `yaml:"max_frames"`
}

// DetectionConfig controls the external UI detector.
type DetectionConfig struct {
	// ConfidenceThreshold is the minimum confidence for detector output.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	// Workers is the number of parallel detector processes.
	Workers int `yaml:"workers"`
}

// ActionsConfig controls the action heuristics.
type ActionsConfig struct {
	ClickThreshold  float64 `yaml:"click_threshold"`
	MinActionGap    float64 `yaml:"min_action_gap"`
	TypingDetection bool    `yaml:"typing_detection"`
	ScrollDetection bool    `yaml:"scroll_detection"`
}

// MappingConfig controls screen clustering and navigation inference.
type MappingConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MergeSimilarScreens bool    `yaml:"merge_similar_screens"`
	InferNavigation     bool    `yaml:"infer_navigation"`
}

// VLMConfig controls the external description-service path.
type VLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	BatchSize   int     `yaml:"batch_size"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	// Timeout bounds every single service call, e.g. "120s".
	Timeout string `yaml:"timeout"`
}

// Config is the full pipeline configuration.
type Config struct {
	Extraction ExtractionConfig `yaml:"extraction"`
	Detection  DetectionConfig  `yaml:"detection"`
	Actions    ActionsConfig    `yaml:"actions"`
	Mapping    MappingConfig    `yaml:"mapping"`
	VLM        VLMConfig        `yaml:"vlm"`
}

// Default returns the configuration the pipeline ships with.
func Default() Config {
	return Config{
		Extraction: ExtractionConfig{
			Interval:  0.5,
			MaxFrames: 10000,
		},
		Detection: DetectionConfig{
			ConfidenceThreshold: 0.7,
			Workers:             1,
		},
		Actions: ActionsConfig{
			ClickThreshold:  0.8,
			MinActionGap:    0.1,
			TypingDetection: true,
			ScrollDetection: true,
		},
		Mapping: MappingConfig{
			SimilarityThreshold: 0.9,
			MergeSimilarScreens: true,
			InferNavigation:     true,
		},
		VLM: VLMConfig{
			Provider:    "ollama",
			Model:       "llava:13b",
			BaseURL:     "http://localhost:11434",
			BatchSize:   8,
			Temperature: 0.1,
			MaxTokens:   4096,
			Timeout:     "120s",
		},
	}
}

// Load returns the defaults merged with an optional YAML file and
// environment overrides. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if key := os.Getenv("PLAYBOOK_VLM_API_KEY"); key != "" {
		cfg.VLM.APIKey = key
	}
	if url := os.Getenv("PLAYBOOK_VLM_BASE_URL"); url != "" {
		cfg.VLM.BaseURL = url
	}

	return cfg, nil
}
