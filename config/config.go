// Package config loads the service configuration: embedded defaults, an
// optional YAML file on top, then NIM_MEMORY_* environment variables.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/becomeliminal/nim-memory/core"
	"github.com/becomeliminal/nim-memory/memory"
)

//go:embed default.yml
var defaultConfig []byte

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NIM_MEMORY"

// Config is the complete service configuration.
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Generation GenerationConfig `mapstructure:"generation"`
	Memory     MemoryConfig     `mapstructure:"memory"`
	Vocabulary core.Vocabulary  `mapstructure:"vocabulary"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// EmbeddingConfig selects the embedder and vector index.
type EmbeddingConfig struct {
	Provider   string     `mapstructure:"provider"`
	Host       string     `mapstructure:"host"`
	Model      string     `mapstructure:"model"`
	Dimensions int        `mapstructure:"dimensions"`
	CacheSize  int64      `mapstructure:"cache_size"`
	Index      string     `mapstructure:"index"`
	ONNX       ONNXConfig `mapstructure:"onnx"`
}

// ONNXConfig locates the in-process model files.
type ONNXConfig struct {
	Library   string `mapstructure:"library"`
	Model     string `mapstructure:"model"`
	Tokenizer string `mapstructure:"tokenizer"`
}

// GenerationConfig selects the text generator used for triple extraction.
type GenerationConfig struct {
	Provider    string  `mapstructure:"provider"`
	Host        string  `mapstructure:"host"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// MemoryConfig holds the retrieval thresholds.
type MemoryConfig struct {
	RecallThreshold     float64 `mapstructure:"recall_threshold"`
	DuplicateThreshold  float64 `mapstructure:"duplicate_threshold"`
	DuplicateCandidates int     `mapstructure:"duplicate_candidates"`
	MaxResults          int     `mapstructure:"max_results"`
}

// ServerConfig configures the admin websocket server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultPath is the user config file read when no path is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".nim-memory", "config.yml")
}

// Load builds the configuration. An explicit path must exist; with an empty
// path the file at DefaultPath is merged when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultConfig)); err != nil {
		return nil, fmt.Errorf("read default config: %w", err)
	}

	file := path
	if file == "" {
		if p := DefaultPath(); p != "" && fileExists(p) {
			file = p
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	fillVocabulary(&cfg.Vocabulary, core.DefaultVocabulary())
	return &cfg, nil
}

// ManagerConfig converts the retrieval thresholds for memory.NewManager.
func (c *Config) ManagerConfig() *memory.Config {
	return &memory.Config{
		RecallThreshold:     c.Memory.RecallThreshold,
		DuplicateThreshold:  c.Memory.DuplicateThreshold,
		DuplicateCandidates: c.Memory.DuplicateCandidates,
		MaxResults:          c.Memory.MaxResults,
	}
}

// fillVocabulary takes every field left empty by the user from defaults.
func fillVocabulary(v, defaults *core.Vocabulary) {
	if v.GenericSubject == "" {
		v.GenericSubject = defaults.GenericSubject
	}
	if v.GenericSubjectAliases == nil {
		v.GenericSubjectAliases = defaults.GenericSubjectAliases
	}
	if v.IdentityPredicates == nil {
		v.IdentityPredicates = defaults.IdentityPredicates
	}
	if v.MultiValuePredicates == nil {
		v.MultiValuePredicates = defaults.MultiValuePredicates
	}
	if v.SentimentPredicates == nil {
		v.SentimentPredicates = defaults.SentimentPredicates
	}
	if v.IdentityQuestions == nil {
		v.IdentityQuestions = defaults.IdentityQuestions
	}
	if v.AboutMeQuestions == nil {
		v.AboutMeQuestions = defaults.AboutMeQuestions
	}
	if v.SentimentKeywords == nil {
		v.SentimentKeywords = defaults.SentimentKeywords
	}
	if v.Categories == nil {
		v.Categories = defaults.Categories
	}
	if v.Expansions == nil {
		v.Expansions = defaults.Expansions
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
