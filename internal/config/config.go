package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete readgate configuration.
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	Budget     BudgetConfig     `json:"budget" mapstructure:"budget"`
	Engine     EngineConfig     `json:"engine" mapstructure:"engine"`
	Importance ImportanceConfig `json:"importance" mapstructure:"importance"`
	Risk       RiskConfig       `json:"risk" mapstructure:"risk"`
	Graph      GraphConfig      `json:"graph" mapstructure:"graph"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
}

// BudgetConfig contains token budget configuration.
type BudgetConfig struct {
	DefaultLimit  int     `json:"defaultLimit" mapstructure:"defaultLimit"`
	WarningRatio  float64 `json:"warningRatio" mapstructure:"warningRatio"`
	CriticalRatio float64 `json:"criticalRatio" mapstructure:"criticalRatio"`
}

// EngineConfig controls which decision signals run and how they weigh in.
type EngineConfig struct {
	CheckBudget       bool   `json:"checkBudget" mapstructure:"checkBudget"`
	CheckContextLock  bool   `json:"checkContextLock" mapstructure:"checkContextLock"`
	CheckHypothesis   bool   `json:"checkHypothesis" mapstructure:"checkHypothesis"`
	CheckImportance   bool   `json:"checkImportance" mapstructure:"checkImportance"`
	CheckRisk         bool   `json:"checkRisk" mapstructure:"checkRisk"`
	CheckLocality     bool   `json:"checkLocality" mapstructure:"checkLocality"`
	MinRiskLevel      string `json:"minRiskLevel" mapstructure:"minRiskLevel"`
	LocalityThreshold int    `json:"localityThreshold" mapstructure:"localityThreshold"`

	BudgetCriticalPenalty int `json:"budgetCriticalPenalty" mapstructure:"budgetCriticalPenalty"`
	ImportancePenalty     int `json:"importancePenalty" mapstructure:"importancePenalty"`
	RiskPenalty           int `json:"riskPenalty" mapstructure:"riskPenalty"`
	LocalityPenalty       int `json:"localityPenalty" mapstructure:"localityPenalty"`
	WarnBelowScore        int `json:"warnBelowScore" mapstructure:"warnBelowScore"`
}

// ImportanceConfig contains importance index configuration.
type ImportanceConfig struct {
	TopK int `json:"topK" mapstructure:"topK"`
}

// RiskConfig contains risk assessor configuration.
type RiskConfig struct {
	// PatternFile optionally points at a YAML file whose pattern tables are
	// merged over the builtin ones.
	PatternFile string `json:"patternFile" mapstructure:"patternFile"`
}

// GraphConfig contains dependency graph scanner configuration.
type GraphConfig struct {
	Ignore           []string `json:"ignore" mapstructure:"ignore"`
	MaxFileSizeBytes int      `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		RepoRoot: ".",
		Budget: BudgetConfig{
			DefaultLimit:  50000,
			WarningRatio:  0.7,
			CriticalRatio: 0.9,
		},
		Engine: EngineConfig{
			CheckBudget:           true,
			CheckContextLock:      true,
			CheckHypothesis:       true,
			CheckImportance:       true,
			CheckRisk:             true,
			CheckLocality:         true,
			MinRiskLevel:          "low",
			LocalityThreshold:     25,
			BudgetCriticalPenalty: 20,
			ImportancePenalty:     30,
			RiskPenalty:           20,
			LocalityPenalty:       15,
			WarnBelowScore:        50,
		},
		Importance: ImportanceConfig{
			TopK: 50,
		},
		Risk: RiskConfig{},
		Graph: GraphConfig{
			Ignore:           []string{"node_modules", "vendor", "dist", "build", ".git", stateDirName},
			MaxFileSizeBytes: 1000000,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

const stateDirName = ".readgate"

// LoadConfig loads configuration from .readgate/config.json, falling back to
// defaults when the file does not exist.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("repoRoot", ".")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, stateDirName))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to .readgate/config.json.
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, stateDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Budget.DefaultLimit <= 0 {
		return &ConfigError{Field: "budget.defaultLimit", Message: "must be positive"}
	}
	if c.Budget.WarningRatio <= 0 || c.Budget.WarningRatio >= c.Budget.CriticalRatio {
		return &ConfigError{Field: "budget.warningRatio", Message: "must be positive and below criticalRatio"}
	}
	if c.Budget.CriticalRatio > 1 {
		return &ConfigError{Field: "budget.criticalRatio", Message: "must not exceed 1"}
	}
	if c.Importance.TopK <= 0 {
		return &ConfigError{Field: "importance.topK", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
