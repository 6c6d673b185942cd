// Copyright 2026 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the model and council settings from an optional
// YAML file and overlays environment variables on top. Environment
// always wins, so a deployment can override any file value without
// editing it. Store, export and HTTP settings stay env-only in their
// own packages.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/cloudwego/boardroom/internal/env"
	"github.com/cloudwego/boardroom/llm"
)

type Config struct {
	Model   Model   `yaml:"model"`
	Council Council `yaml:"council"`
}

// Model names the LLM backend every council role runs on.
type Model struct {
	Type        string   `yaml:"type"`
	Name        string   `yaml:"name"`
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"`
	Temperature *float32 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

// Council carries the workflow knobs.
type Council struct {
	MaxSteps       int    `yaml:"max_steps"`
	WindowHours    int    `yaml:"window_hours"`
	EnableThinking bool   `yaml:"enable_thinking"`
	PromptDir      string `yaml:"prompt_dir"`
	Rule           string `yaml:"rule"`
	RuleFile       string `yaml:"rule_file"`
}

// Load reads the YAML file at path, then overlays the environment. An
// empty path skips the file and reads the environment alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("API_TYPE"); v != "" {
		c.Model.Type = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		c.Model.APIKey = v
	}
	if v := os.Getenv("MODEL_NAME"); v != "" {
		c.Model.Name = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		c.Model.BaseURL = v
	}
	if v := os.Getenv("MODEL_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "parse MODEL_MAX_TOKENS")
		}
		c.Model.MaxTokens = n
	}

	maxSteps, err := env.Int("BOARDROOM_MAX_STEPS", c.Council.MaxSteps)
	if err != nil {
		return err
	}
	c.Council.MaxSteps = maxSteps

	window, err := env.Int("BOARDROOM_WINDOW_HOURS", c.Council.WindowHours)
	if err != nil {
		return err
	}
	c.Council.WindowHours = window

	thinking, err := env.Bool("BOARDROOM_ENABLE_THINKING", c.Council.EnableThinking)
	if err != nil {
		return err
	}
	c.Council.EnableThinking = thinking

	c.Council.PromptDir = env.String("BOARDROOM_PROMPT_DIR", c.Council.PromptDir)
	c.Council.Rule = env.String("BOARDROOM_RULE", c.Council.Rule)
	c.Council.RuleFile = env.String("BOARDROOM_RULE_FILE", c.Council.RuleFile)
	return nil
}

// Validate checks the model section is complete enough to construct a
// backend. Ollama runs keyless; every other provider needs a key.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Model.Name) == "" {
		return errors.New("model name is required, set MODEL_NAME or model.name")
	}
	mt := llm.NewModelType(c.Model.Type)
	if mt == llm.ModelTypeUnknown {
		return errors.Errorf("unknown model type %q, set API_TYPE or model.type", c.Model.Type)
	}
	if mt != llm.ModelTypeOllama && strings.TrimSpace(c.Model.APIKey) == "" {
		return errors.New("api key is required, set API_KEY or model.api_key")
	}
	return nil
}

// ModelConfig converts the section into the llm package's shape. The
// alias doubles as the council's model lookup key.
func (c *Config) ModelConfig(alias string) llm.ModelConfig {
	return llm.ModelConfig{
		Name:        alias,
		APIType:     llm.NewModelType(c.Model.Type),
		APIKey:      c.Model.APIKey,
		ModelName:   c.Model.Name,
		BaseURL:     c.Model.BaseURL,
		Temperature: c.Model.Temperature,
		MaxTokens:   c.Model.MaxTokens,
	}
}
