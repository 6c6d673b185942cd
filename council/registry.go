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

package council

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/cloudwego/boardroom/internal/utils"
	"github.com/cloudwego/boardroom/llm/log"
	"github.com/cloudwego/boardroom/llm/prompt"
)

// Registry holds the instruction template text per unit. Defaults are
// the embedded prompts; a prompt directory overrides per unit with
// <unit-name>.md files, reloaded on write and reverted on remove.
// Changes apply to the next workflow build, never to a running one.
type Registry struct {
	mu       sync.RWMutex
	texts    map[string]string
	defaults map[string]string
}

func defaultTexts() map[string]string {
	return map[string]string{
		UnitDataFinder:    prompt.PromptDataFinder,
		UnitCMO:           prompt.PromptCMO,
		UnitCFO:           prompt.PromptCFO,
		UnitOps:           prompt.PromptOps,
		UnitCEO:           prompt.PromptCEO,
		UnitDebateLogger:  prompt.PromptDebateLogger,
		UnitFinalReporter: prompt.PromptFinalReporter,
	}
}

// NewRegistry loads the defaults, applies overrides from promptDir
// (may be "") and starts watching the directory for changes.
func NewRegistry(promptDir string) (*Registry, error) {
	r := &Registry{
		texts:    defaultTexts(),
		defaults: defaultTexts(),
	}
	if promptDir == "" {
		return r, nil
	}

	entries, err := os.ReadDir(promptDir)
	if err != nil {
		return nil, errors.Wrapf(err, "read prompt dir %s", promptDir)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		if err := r.loadOverride(filepath.Join(promptDir, e.Name())); err != nil {
			return nil, err
		}
	}

	utils.WatchDir(promptDir, func(op fsnotify.Op, file string) {
		if !strings.HasSuffix(file, ".md") {
			return
		}
		if op&fsnotify.Write != 0 || op&fsnotify.Create != 0 {
			if err := r.loadOverride(file); err != nil {
				log.Error("reload prompt override failed: %v", err)
			} else {
				log.Info("prompt override reloaded: %s", file)
			}
		} else if op&fsnotify.Remove != 0 {
			r.revert(unitForFile(file))
		}
	})
	return r, nil
}

func unitForFile(file string) string {
	return strings.TrimSuffix(filepath.Base(file), ".md")
}

func (r *Registry) loadOverride(file string) error {
	unit := unitForFile(file)
	r.mu.RLock()
	_, known := r.defaults[unit]
	r.mu.RUnlock()
	if !known {
		// not a unit prompt, ignore
		return nil
	}
	bs, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrapf(err, "read prompt override %s", file)
	}
	if len(strings.TrimSpace(string(bs))) == 0 {
		return errors.Errorf("prompt override %s is empty", file)
	}
	r.mu.Lock()
	r.texts[unit] = string(bs)
	r.mu.Unlock()
	return nil
}

func (r *Registry) revert(unit string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if def, ok := r.defaults[unit]; ok {
		r.texts[unit] = def
	}
}

// Text returns the current instruction template text for the unit.
func (r *Registry) Text(unit string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.texts[unit]
}
