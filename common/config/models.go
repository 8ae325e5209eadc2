package config

import (
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ModelDeployment maps a public model name onto a provider deployment.
type ModelDeployment struct {
	Name          string            `yaml:"name" validate:"required"`
	Provider      string            `yaml:"provider" validate:"required,oneof=openai anthropic deepseek bedrock"`
	UpstreamModel string            `yaml:"upstream_model"`
	BaseURL       string            `yaml:"base_url" validate:"omitempty,url"`
	APIKeyEnv     string            `yaml:"api_key_env"`
	ModelGroup    string            `yaml:"model_group"`
	Headers       map[string]string `yaml:"headers"`
}

// ModelConfig is the YAML document loaded from ModelConfigPath.
type ModelConfig struct {
	Models        []ModelDeployment `yaml:"models" validate:"dive"`
	CachingGroups [][]string        `yaml:"caching_groups"`
}

var (
	modelConfigLock sync.RWMutex
	modelConfig     = &ModelConfig{}
	validate        = validator.New()
)

// LoadModelConfig reads, validates and installs the model table at path.
func LoadModelConfig(path string) (*ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read model config")
	}
	cfg, err := ParseModelConfig(data)
	if err != nil {
		return nil, err
	}
	SetModelConfig(cfg)
	return cfg, nil
}

func ParseModelConfig(data []byte) (*ModelConfig, error) {
	cfg := &ModelConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse model config")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validate model config")
	}
	seen := make(map[string]bool, len(cfg.Models))
	for _, m := range cfg.Models {
		if seen[m.Name] {
			return nil, errors.Errorf("duplicate model %q in model config", m.Name)
		}
		seen[m.Name] = true
	}
	return cfg, nil
}

func SetModelConfig(cfg *ModelConfig) {
	if cfg == nil {
		cfg = &ModelConfig{}
	}
	modelConfigLock.Lock()
	modelConfig = cfg
	modelConfigLock.Unlock()
}

// GetModelDeployment looks up name in the installed model table.
func GetModelDeployment(name string) (ModelDeployment, bool) {
	modelConfigLock.RLock()
	defer modelConfigLock.RUnlock()
	for _, m := range modelConfig.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelDeployment{}, false
}

func GetModelDeployments() []ModelDeployment {
	modelConfigLock.RLock()
	defer modelConfigLock.RUnlock()
	models := make([]ModelDeployment, len(modelConfig.Models))
	copy(models, modelConfig.Models)
	return models
}

func GetCachingGroups() [][]string {
	modelConfigLock.RLock()
	defer modelConfigLock.RUnlock()
	return modelConfig.CachingGroups
}

// APIKey resolves the deployment's key from its environment variable.
func (m ModelDeployment) APIKey() string {
	if m.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(m.APIKeyEnv)
}
