package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type AggregationConfig struct {
	BackoffBase    time.Duration `yaml:"backoff_base"`
	BackoffFactor  int           `yaml:"backoff_factor"`
	BackoffCap     time.Duration `yaml:"backoff_cap"`
	FoldBufferSize int           `yaml:"fold_buffer_size"`
}

type DispatchConfig struct {
	MaxParallelism int           `yaml:"max_parallelism"`
	Timeout        time.Duration `yaml:"timeout"`
}

type DirectoryConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Config reúne os parâmetros de ajuste do console. Endereços e segredos
// continuam no .env; aqui ficam só os ajustes finos.
type Config struct {
	Aggregation AggregationConfig `yaml:"aggregation"`
	Dispatch    DispatchConfig    `yaml:"dispatch"`
	Directory   DirectoryConfig   `yaml:"directory"`
}

func Default() Config {
	return Config{
		Aggregation: AggregationConfig{
			BackoffBase:    1 * time.Second,
			BackoffFactor:  2,
			BackoffCap:     30 * time.Second,
			FoldBufferSize: 64,
		},
		Dispatch: DispatchConfig{
			MaxParallelism: 16,
			Timeout:        20 * time.Second,
		},
		Directory: DirectoryConfig{
			CacheTTL: 30 * time.Second,
		},
	}
}

// Load lê o arquivo YAML apontado por path. Path vazio devolve os defaults;
// campos ausentes no arquivo também caem nos defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("lendo arquivo de config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("interpretando arquivo de config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Aggregation.BackoffBase <= 0 {
		return fmt.Errorf("aggregation.backoff_base deve ser positivo")
	}
	if c.Aggregation.BackoffFactor < 2 {
		return fmt.Errorf("aggregation.backoff_factor deve ser no mínimo 2")
	}
	if c.Aggregation.BackoffCap < c.Aggregation.BackoffBase {
		return fmt.Errorf("aggregation.backoff_cap não pode ser menor que a base")
	}
	if c.Aggregation.FoldBufferSize <= 0 {
		return fmt.Errorf("aggregation.fold_buffer_size deve ser positivo")
	}
	if c.Dispatch.MaxParallelism <= 0 {
		return fmt.Errorf("dispatch.max_parallelism deve ser positivo")
	}
	if c.Dispatch.Timeout <= 0 {
		return fmt.Errorf("dispatch.timeout deve ser positivo")
	}
	if c.Directory.CacheTTL <= 0 {
		return fmt.Errorf("directory.cache_ttl deve ser positivo")
	}
	return nil
}
