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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudwego/boardroom/llm"
)

const sampleYAML = `
model:
  type: openai
  name: gpt-4o
  api_key: file-key
  max_tokens: 2048
council:
  max_steps: 12
  window_hours: 48
  enable_thinking: true
  prompt_dir: ./prompts
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "boardroom.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FileOnly(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Model.Type != "openai" || cfg.Model.Name != "gpt-4o" || cfg.Model.APIKey != "file-key" {
		t.Fatalf("model section wrong: %+v", cfg.Model)
	}
	if cfg.Council.MaxSteps != 12 || cfg.Council.WindowHours != 48 || !cfg.Council.EnableThinking {
		t.Fatalf("council section wrong: %+v", cfg.Council)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
}

func TestLoad_EnvWins(t *testing.T) {
	t.Setenv("API_KEY", "env-key")
	t.Setenv("MODEL_NAME", "claude-sonnet-4-5")
	t.Setenv("API_TYPE", "claude")
	t.Setenv("BOARDROOM_MAX_STEPS", "30")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Model.APIKey != "env-key" {
		t.Fatalf("api key = %q, env must win", cfg.Model.APIKey)
	}
	if cfg.Model.Name != "claude-sonnet-4-5" || cfg.Model.Type != "claude" {
		t.Fatalf("model overrides lost: %+v", cfg.Model)
	}
	if cfg.Council.MaxSteps != 30 {
		t.Fatalf("max steps = %d, want 30", cfg.Council.MaxSteps)
	}
	if cfg.Council.WindowHours != 48 {
		t.Fatalf("untouched file values must survive: %+v", cfg.Council)
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("API_TYPE", "ollama")
	t.Setenv("MODEL_NAME", "qwen3:8b")
	t.Setenv("BASE_URL", "http://localhost:11434")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("ollama without a key must validate: %v", err)
	}

	mc := cfg.ModelConfig("default")
	if mc.APIType != llm.ModelTypeOllama || mc.ModelName != "qwen3:8b" || mc.Name != "default" {
		t.Fatalf("model config wrong: %+v", mc)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/boardroom.yaml"); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{name: "complete", cfg: Config{Model: Model{Type: "openai", Name: "gpt-4o", APIKey: "k"}}, ok: true},
		{name: "missing name", cfg: Config{Model: Model{Type: "openai", APIKey: "k"}}, ok: false},
		{name: "unknown type", cfg: Config{Model: Model{Type: "watsonx", Name: "m", APIKey: "k"}}, ok: false},
		{name: "missing key", cfg: Config{Model: Model{Type: "claude", Name: "m"}}, ok: false},
		{name: "ollama keyless", cfg: Config{Model: Model{Type: "ollama", Name: "m"}}, ok: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Validate()
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.ok && err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
