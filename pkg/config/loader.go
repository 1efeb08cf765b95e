package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// FortunedYAMLConfig represents the complete fortuned.yaml file structure.
// Every section is optional; unset sections fall back to built-in defaults.
type FortunedYAMLConfig struct {
	Defaults     *Defaults          `yaml:"defaults"`
	Queue        *QueueConfig       `yaml:"queue"`
	Cache        *CacheConfig       `yaml:"cache"`
	RAG          *RAGConfig         `yaml:"rag"`
	VectorStore  *VectorStoreConfig `yaml:"vectorstore"`
	LLM          *LLMConfig         `yaml:"llm"`
	Breakers     *BreakersConfig    `yaml:"breakers"`
	Stream       *StreamConfig      `yaml:"stream"`
	Server       *ServerConfig      `yaml:"server"`
	DeityTemples map[string]string  `yaml:"deity_temples"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load fortuned.yaml from configDir (missing file is not an error;
//     built-in defaults apply)
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge user-defined sections over built-in defaults
//  5. Validate all configuration
//  6. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration initialized successfully",
		"worker_count", cfg.Queue.WorkerCount,
		"llm_model", cfg.LLM.Model,
		"deity_temples", len(cfg.DeityTemples))

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	yamlCfg, err := loader.loadFortunedYAML()
	if err != nil {
		return nil, NewLoadError("fortuned.yaml", err)
	}

	defaults := DefaultDefaults()
	if yamlCfg.Defaults != nil {
		if err := mergo.Merge(defaults, yamlCfg.Defaults, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge defaults: %w", err)
		}
	}

	queueCfg := DefaultQueueConfig()
	if yamlCfg.Queue != nil {
		if err := mergo.Merge(queueCfg, yamlCfg.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	cacheCfg := DefaultCacheConfig()
	if yamlCfg.Cache != nil {
		if err := mergo.Merge(cacheCfg, yamlCfg.Cache, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge cache config: %w", err)
		}
	}

	ragCfg := DefaultRAGConfig()
	if yamlCfg.RAG != nil {
		if err := mergo.Merge(ragCfg, yamlCfg.RAG, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge rag config: %w", err)
		}
	}

	vectorCfg := DefaultVectorStoreConfig()
	if yamlCfg.VectorStore != nil {
		if err := mergo.Merge(vectorCfg, yamlCfg.VectorStore, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge vectorstore config: %w", err)
		}
	}

	llmCfg := DefaultLLMConfig()
	if yamlCfg.LLM != nil {
		if err := mergo.Merge(llmCfg, yamlCfg.LLM, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge llm config: %w", err)
		}
	}

	breakersCfg := DefaultBreakersConfig()
	if yamlCfg.Breakers != nil {
		if err := mergo.Merge(breakersCfg, yamlCfg.Breakers, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge breakers config: %w", err)
		}
	}

	streamCfg := DefaultStreamConfig()
	if yamlCfg.Stream != nil {
		if err := mergo.Merge(streamCfg, yamlCfg.Stream, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge stream config: %w", err)
		}
	}

	serverCfg := DefaultServerConfig()
	if yamlCfg.Server != nil {
		if err := mergo.Merge(serverCfg, yamlCfg.Server, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge server config: %w", err)
		}
	}

	return &Config{
		configDir:    configDir,
		Defaults:     defaults,
		Queue:        queueCfg,
		Cache:        cacheCfg,
		RAG:          ragCfg,
		VectorStore:  vectorCfg,
		LLM:          llmCfg,
		Breakers:     breakersCfg,
		Stream:       streamCfg,
		Server:       serverCfg,
		DeityTemples: yamlCfg.DeityTemples,
	}, nil
}

func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Absence is not fatal: built-in defaults cover every section.
			return nil
		}
		return err
	}

	// Expand environment variables (e.g. ${OPENAI_API_KEY}) before parsing.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadFortunedYAML() (*FortunedYAMLConfig, error) {
	var cfg FortunedYAMLConfig
	if err := l.loadYAML("fortuned.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
